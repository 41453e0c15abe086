// Package analyzer defines the capability-provider contract: per video
// frame, zero or more detected faces, each optionally carrying a
// bounding region and/or a dense facial landmark set.
package analyzer

import (
	"context"

	"github.com/talentbridge/aptitude-backend/internal/model"
)

// Analyzer estimates faces in a single video frame.
//
// Warmup performs provider initialization (model load, service
// handshake). It may fail or block; callers own the timeout. A failed
// warmup does not poison the instance — EstimateFaces may still be
// attempted and Warmup may be retried.
type Analyzer interface {
	Warmup(ctx context.Context) error
	EstimateFaces(ctx context.Context, frame *model.Frame) (model.FrameAnalysis, error)
}
