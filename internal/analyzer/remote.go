package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/talentbridge/aptitude-backend/internal/model"
)

// RemoteAnalyzer calls an external face-landmark inference service
// over HTTP. One instance is shared across sessions.
type RemoteAnalyzer struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewRemote creates a RemoteAnalyzer for the given service base URL.
func NewRemote(baseURL string, timeout time.Duration, log zerolog.Logger) *RemoteAnalyzer {
	return &RemoteAnalyzer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "remote_analyzer").Logger(),
	}
}

// Warmup asks the inference service to load its model. The service may
// answer slowly on cold start, so the caller's context bounds the wait.
func (a *RemoteAnalyzer) Warmup(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/warmup", nil)
	if err != nil {
		return fmt.Errorf("build warmup request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("warmup call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("warmup status %d", resp.StatusCode)
	}

	a.log.Info().Msg("Analyzer warmed up")
	return nil
}

// estimateResponse is the inference service's wire format.
type estimateResponse struct {
	Faces []struct {
		Bounds    *model.BoundingRegion `json:"bounds"`
		Landmarks []model.Point         `json:"landmarks"`
	} `json:"faces"`
}

// EstimateFaces submits one frame and returns the detected faces.
func (a *RemoteAnalyzer) EstimateFaces(ctx context.Context, frame *model.Frame) (model.FrameAnalysis, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/estimate", bytes.NewReader(frame.Data))
	if err != nil {
		return model.FrameAnalysis{}, fmt.Errorf("build estimate request: %w", err)
	}
	req.Header.Set("Content-Type", frame.MimeType)

	resp, err := a.client.Do(req)
	if err != nil {
		return model.FrameAnalysis{}, fmt.Errorf("estimate call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.FrameAnalysis{}, fmt.Errorf("estimate status %d: %s", resp.StatusCode, body)
	}

	var decoded estimateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return model.FrameAnalysis{}, fmt.Errorf("decode estimate response: %w", err)
	}

	analysis := model.FrameAnalysis{Faces: make([]model.FaceObservation, 0, len(decoded.Faces))}
	for _, f := range decoded.Faces {
		analysis.Faces = append(analysis.Faces, model.FaceObservation{
			Bounds:    f.Bounds,
			Landmarks: f.Landmarks,
		})
	}
	return analysis, nil
}
