package sampler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/talentbridge/aptitude-backend/internal/analyzer"
	"github.com/talentbridge/aptitude-backend/internal/detector"
	"github.com/talentbridge/aptitude-backend/internal/model"
)

// SamplePeriod is the fixed interval between frame evaluations while a
// session is active.
const SamplePeriod = 1200 * time.Millisecond

// VerdictSink receives violation verdicts as they are raised.
type VerdictSink func(*detector.Verdict)

// Sampler drives the proctoring loop for one session. It does not
// schedule itself: Start blocks until the context is cancelled, and the
// session state machine owns that cancellation.
type Sampler struct {
	analyzer analyzer.Analyzer
	detector *detector.Detector
	mailbox  *Mailbox
	sink     VerdictSink
	period   time.Duration
	log      zerolog.Logger
}

// New creates a Sampler. A non-positive period falls back to
// SamplePeriod.
func New(a analyzer.Analyzer, d *detector.Detector, mb *Mailbox, sink VerdictSink, period time.Duration, log zerolog.Logger) *Sampler {
	if period <= 0 {
		period = SamplePeriod
	}
	return &Sampler{
		analyzer: a,
		detector: d,
		mailbox:  mb,
		sink:     sink,
		period:   period,
		log:      log.With().Str("component", "sampler").Logger(),
	}
}

// Start runs the sampling loop until ctx is cancelled. Each tick pulls
// the latest frame and evaluates it in its own goroutine: a slow
// analysis call never delays the next tick, and overlapping calls are
// tolerated because the detector's state transition is atomic per call.
func (s *Sampler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	s.log.Debug().Dur("period", s.period).Msg("Sampler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Debug().Msg("Sampler stopped")
			return
		case <-ticker.C:
			frame := s.mailbox.Latest()
			if frame == nil {
				continue
			}
			go s.evaluate(ctx, frame)
		}
	}
}

// evaluate runs a single analysis call. A failed call skips this tick
// and keeps the loop sampling.
func (s *Sampler) evaluate(ctx context.Context, frame *model.Frame) {
	analysis, err := s.analyzer.EstimateFaces(ctx, frame)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Debug().Err(err).Msg("Frame analysis failed, skipping tick")
		}
		return
	}

	if verdict := s.detector.Evaluate(analysis); verdict != nil {
		s.log.Info().Str("kind", string(verdict.Kind)).Msg("Violation detected")
		s.sink(verdict)
	}
}
