package service

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/talentbridge/aptitude-backend/internal/model"
)

// ExportEntryName is the archive member holding the result JSON.
const ExportEntryName = "aptitude-result.json"

// ExportFilename is the suggested download name for the archive.
const ExportFilename = "result_with_metadata.zip"

// exportPayload is the portable result shape inside the archive.
type exportPayload struct {
	Timestamp time.Time          `json:"timestamp"`
	ID        string             `json:"id"`
	Score     int                `json:"score"`
	Batch     model.Batch        `json:"batch"`
	Violation *string            `json:"violation"`
	Answers   model.AnswerVector `json:"answers"`
}

// BuildExportArchive packages a stored result into a single-entry ZIP
// the user can keep and attach to a later application.
func BuildExportArchive(result *model.StoredResult) ([]byte, error) {
	payload, err := json.MarshalIndent(exportPayload{
		Timestamp: time.Now().UTC(),
		ID:        result.ID,
		Score:     result.Record.Score,
		Batch:     result.Record.Batch,
		Violation: result.Record.Violation,
		Answers:   result.Record.Answers,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export payload: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	entry, err := zw.Create(ExportEntryName)
	if err != nil {
		return nil, fmt.Errorf("create archive entry: %w", err)
	}
	if _, err := entry.Write(payload); err != nil {
		return nil, fmt.Errorf("write archive entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	return buf.Bytes(), nil
}
