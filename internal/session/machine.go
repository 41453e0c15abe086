// Package session orchestrates one proctored test attempt: camera
// acquisition, the sampling loop, the visibility watcher, scoring and
// the terminal persistence call.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/talentbridge/aptitude-backend/internal/analyzer"
	"github.com/talentbridge/aptitude-backend/internal/detector"
	"github.com/talentbridge/aptitude-backend/internal/model"
	"github.com/talentbridge/aptitude-backend/internal/sampler"
	"github.com/talentbridge/aptitude-backend/internal/scoring"
)

// State is the session lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateActive
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateActive:
		return "ACTIVE"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

var (
	// ErrNotIdle is returned when camera acquisition is signalled on a
	// session that already started or finished.
	ErrNotIdle = errors.New("session is not idle")
	// ErrNotActive is returned for answer mutations outside the Active state.
	ErrNotActive = errors.New("session is not active")
)

// Event is pushed to the session's client stream.
type Event struct {
	Type    EventType              `json:"event"`
	Message string                 `json:"message,omitempty"`
	Verdict *detector.Verdict      `json:"verdict,omitempty"`
	Result  *model.PersistedResult `json:"result,omitempty"`
	Score   *int                   `json:"score,omitempty"`
	Batch   model.Batch            `json:"batch,omitempty"`
}

// EventType enumerates session events.
type EventType string

const (
	EventPermissionDenied   EventType = "permission_denied"
	EventMonitoringDegraded EventType = "monitoring_degraded"
	EventReleaseCamera      EventType = "release_camera"
	EventTerminated         EventType = "terminated"
)

// Persister durably stores a finished session record. It never fails:
// every outcome resolves to a PersistedResult.
type Persister interface {
	Persist(ctx context.Context, record model.SessionRecord, attachment *model.Attachment) model.PersistedResult
}

// ViolationRecorder queues violation events for the audit trail.
type ViolationRecorder interface {
	Enqueue(ctx context.Context, event model.ViolationEvent)
}

// Machine is the per-session state machine. All transitions are safe
// for concurrent use; the terminated flag is the single check-and-set
// gate shared by the sampler callback, the visibility watcher and the
// manual submit path.
type Machine struct {
	ID uuid.UUID

	analyzer      analyzer.Analyzer
	detector      *detector.Detector
	mailbox       *sampler.Mailbox
	persister     Persister
	violations    ViolationRecorder
	questions     []model.Question
	samplePeriod  time.Duration
	warmupTimeout time.Duration
	onEvent       func(Event)
	log           zerolog.Logger

	state      atomic.Int32
	terminated atomic.Bool

	mu            sync.Mutex
	answers       model.AnswerVector
	violation     *detector.Verdict
	result        *model.PersistedResult
	cancelSampler context.CancelFunc
}

// Config wires a Machine's collaborators.
type Config struct {
	Analyzer      analyzer.Analyzer
	Persister     Persister
	Violations    ViolationRecorder
	Questions     []model.Question
	SamplePeriod  time.Duration
	WarmupTimeout time.Duration
	OnEvent       func(Event)
	Log           zerolog.Logger
}

// New creates an idle session machine.
func New(cfg Config) *Machine {
	id := uuid.New()
	if cfg.OnEvent == nil {
		cfg.OnEvent = func(Event) {}
	}
	if cfg.WarmupTimeout <= 0 {
		cfg.WarmupTimeout = 30 * time.Second
	}
	return &Machine{
		ID:            id,
		analyzer:      cfg.Analyzer,
		detector:      detector.New(),
		mailbox:       sampler.NewMailbox(),
		persister:     cfg.Persister,
		violations:    cfg.Violations,
		questions:     cfg.Questions,
		samplePeriod:  cfg.SamplePeriod,
		warmupTimeout: cfg.WarmupTimeout,
		onEvent:       cfg.OnEvent,
		log:           cfg.Log.With().Str("component", "session").Str("session_id", id.String()).Logger(),
	}
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	return State(m.state.Load())
}

// Mailbox exposes the frame intake for the client stream.
func (m *Machine) Mailbox() *sampler.Mailbox {
	return m.mailbox
}

// CameraGranted transitions Idle → Active: the detector state is
// reset, the sampling loop starts and the capability provider is
// warmed up in the background.
func (m *Machine) CameraGranted(ctx context.Context) error {
	if !m.state.CompareAndSwap(int32(StateIdle), int32(StateActive)) {
		return ErrNotIdle
	}

	m.detector.Reset()

	samplerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.mu.Lock()
	m.cancelSampler = cancel
	m.mu.Unlock()

	s := sampler.New(m.analyzer, m.detector, m.mailbox, m.HandleVerdict, m.samplePeriod, m.log)
	go s.Start(samplerCtx)
	go m.warmup(samplerCtx)

	m.log.Info().Msg("Session active")
	return nil
}

// CameraDenied surfaces the PermissionDenied condition. The session
// stays Idle and may be started again once the user grants access.
func (m *Machine) CameraDenied() {
	m.log.Info().Msg("Camera permission denied")
	m.onEvent(Event{Type: EventPermissionDenied, Message: "Camera permission denied - enable camera to take test"})
}

// warmup initializes the capability provider. Failure or a hang beyond
// the timeout leaves the session running without monitoring; the
// degradation is logged and surfaced to the client rather than
// silently swallowed.
func (m *Machine) warmup(ctx context.Context) {
	warmupCtx, cancel := context.WithTimeout(ctx, m.warmupTimeout)
	defer cancel()

	if err := m.analyzer.Warmup(warmupCtx); err != nil {
		if ctx.Err() != nil {
			return // Session already torn down.
		}
		m.log.Warn().Err(err).Msg("Analyzer init failed, session continues unmonitored")
		m.onEvent(Event{Type: EventMonitoringDegraded, Message: "Proctoring unavailable - test continues unmonitored"})
	}
}

// SelectAnswer records a choice while the session is active.
func (m *Machine) SelectAnswer(questionIndex, choiceIndex int) error {
	if m.State() != StateActive {
		return ErrNotActive
	}
	m.mu.Lock()
	m.answers = m.answers.Set(questionIndex, choiceIndex)
	m.mu.Unlock()
	return nil
}

// HandleVerdict is the sampler's verdict sink. The first verdict wins;
// anything after termination is a no-op.
func (m *Machine) HandleVerdict(v *detector.Verdict) {
	m.terminate(v, model.TerminationViolation)
}

// VisibilityLost is the page-visibility watcher signal.
func (m *Machine) VisibilityLost() {
	m.terminate(detector.TabHiddenVerdict(), model.TerminationViolation)
}

// Submit is the explicit submit action. Partial answer sets are allowed.
func (m *Machine) Submit() {
	m.terminate(nil, model.TerminationManual)
}

// Result returns the persisted result once the session terminated.
func (m *Machine) Result() *model.PersistedResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// terminate performs the single Active → Terminated transition: stop
// the sampler, release the camera, score, persist, retain the id.
// Guarded by an atomic check-and-set so concurrent verdicts, visibility
// events and submits collapse into exactly one termination.
func (m *Machine) terminate(v *detector.Verdict, reason model.TerminationReason) {
	if !m.terminated.CompareAndSwap(false, true) {
		return
	}
	m.state.Store(int32(StateTerminated))

	m.mu.Lock()
	if m.cancelSampler != nil {
		m.cancelSampler()
		m.cancelSampler = nil
	}
	m.violation = v
	answers := m.answers
	m.mu.Unlock()

	// Release the client's camera and drop any buffered frame.
	m.mailbox.Clear()
	m.onEvent(Event{Type: EventReleaseCamera})

	score := scoring.Score(answers, m.questions)
	batch := scoring.BatchFor(score)

	var violationMsg *string
	if v != nil {
		violationMsg = &v.Message
	}

	record := model.SessionRecord{
		Answers:   answers,
		Score:     score,
		Batch:     batch,
		Violation: violationMsg,
		Meta:      model.SessionMeta{Reason: reason},
	}

	ctx := context.Background()
	persisted := m.persister.Persist(ctx, record, nil)

	m.mu.Lock()
	m.result = &persisted
	m.mu.Unlock()

	if v != nil && m.violations != nil {
		m.violations.Enqueue(ctx, model.ViolationEvent{
			SessionID: m.ID.String(),
			Kind:      string(v.Kind),
			Message:   v.Message,
			Timestamp: time.Now().Unix(),
		})
	}

	m.log.Info().
		Int("score", score).
		Str("batch", string(batch)).
		Str("reason", string(reason)).
		Str("result_id", persisted.ID).
		Bool("fallback", persisted.Fallback).
		Msg("Session terminated")

	m.onEvent(Event{
		Type:    EventTerminated,
		Verdict: v,
		Result:  &persisted,
		Score:   &score,
		Batch:   batch,
	})
}
