package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentbridge/aptitude-backend/internal/detector"
	"github.com/talentbridge/aptitude-backend/internal/model"
)

type fakePersister struct {
	mu      sync.Mutex
	calls   int
	records []model.SessionRecord
}

func (p *fakePersister) Persist(_ context.Context, record model.SessionRecord, _ *model.Attachment) model.PersistedResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.records = append(p.records, record)
	return model.PersistedResult{ID: "8b914f41-0000-0000-0000-000000000001"}
}

func (p *fakePersister) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakePersister) lastRecord() model.SessionRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.records[len(p.records)-1]
}

type fakeViolations struct {
	mu     sync.Mutex
	events []model.ViolationEvent
}

func (f *fakeViolations) Enqueue(_ context.Context, ev model.ViolationEvent) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}

type stubAnalyzer struct {
	warmupErr error
	analysis  model.FrameAnalysis
}

func (a *stubAnalyzer) Warmup(context.Context) error { return a.warmupErr }

func (a *stubAnalyzer) EstimateFaces(context.Context, *model.Frame) (model.FrameAnalysis, error) {
	return a.analysis, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func newTestMachine(t *testing.T, a *stubAnalyzer) (*Machine, *fakePersister, *fakeViolations, *eventRecorder) {
	t.Helper()
	p := &fakePersister{}
	v := &fakeViolations{}
	r := &eventRecorder{}
	m := New(Config{
		Analyzer:      a,
		Persister:     p,
		Violations:    v,
		Questions:     model.DefaultQuestions(),
		SamplePeriod:  10 * time.Millisecond,
		WarmupTimeout: time.Second,
		OnEvent:       r.record,
		Log:           zerolog.Nop(),
	})
	return m, p, v, r
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestLifecycleIdleToActive(t *testing.T) {
	m, _, _, _ := newTestMachine(t, &stubAnalyzer{})

	assert.Equal(t, StateIdle, m.State())
	require.NoError(t, m.CameraGranted(context.Background()))
	assert.Equal(t, StateActive, m.State())

	assert.ErrorIs(t, m.CameraGranted(context.Background()), ErrNotIdle)
	m.Submit()
}

func TestCameraDeniedStaysIdle(t *testing.T) {
	m, p, _, r := newTestMachine(t, &stubAnalyzer{})

	m.CameraDenied()

	assert.Equal(t, StateIdle, m.State())
	assert.Contains(t, r.types(), EventPermissionDenied)
	assert.Zero(t, p.callCount())

	// Denial is recoverable: a later grant still works.
	require.NoError(t, m.CameraGranted(context.Background()))
	m.Submit()
}

func TestSelectAnswerRequiresActive(t *testing.T) {
	m, _, _, _ := newTestMachine(t, &stubAnalyzer{})

	assert.ErrorIs(t, m.SelectAnswer(0, 1), ErrNotActive)

	require.NoError(t, m.CameraGranted(context.Background()))
	require.NoError(t, m.SelectAnswer(0, 1))
	m.Submit()

	assert.ErrorIs(t, m.SelectAnswer(1, 2), ErrNotActive)
}

func TestManualSubmitScoresAndPersists(t *testing.T) {
	m, p, _, r := newTestMachine(t, &stubAnalyzer{})
	require.NoError(t, m.CameraGranted(context.Background()))

	// 4 of 5 correct.
	for i, choice := range []int{1, 2, 1, 3, 3} {
		require.NoError(t, m.SelectAnswer(i, choice))
	}
	m.Submit()

	require.Equal(t, 1, p.callCount())
	record := p.lastRecord()
	assert.Equal(t, 80, record.Score)
	assert.Equal(t, model.BatchHigh, record.Batch)
	assert.Equal(t, model.TerminationManual, record.Meta.Reason)
	assert.Nil(t, record.Violation)

	require.NotNil(t, m.Result())
	assert.NotEmpty(t, m.Result().ID)
	assert.Equal(t, StateTerminated, m.State())

	types := r.types()
	assert.Contains(t, types, EventReleaseCamera)
	assert.Contains(t, types, EventTerminated)
}

func TestTerminationIsIdempotent(t *testing.T) {
	m, p, _, _ := newTestMachine(t, &stubAnalyzer{})
	require.NoError(t, m.CameraGranted(context.Background()))
	require.NoError(t, m.SelectAnswer(0, 1))

	m.Submit()
	first := *m.Result()

	// Later verdicts, visibility losses and submits are no-ops.
	m.HandleVerdict(&detector.Verdict{Kind: detector.KindNoFaceDetected, Message: "No face"})
	m.VisibilityLost()
	m.Submit()

	assert.Equal(t, 1, p.callCount())
	assert.Equal(t, first, *m.Result())
}

func TestVisibilityLossTerminatesWithViolation(t *testing.T) {
	m, p, v, _ := newTestMachine(t, &stubAnalyzer{})
	require.NoError(t, m.CameraGranted(context.Background()))

	m.VisibilityLost()

	record := p.lastRecord()
	require.NotNil(t, record.Violation)
	assert.Equal(t, "Page hidden or switched tab", *record.Violation)
	assert.Equal(t, model.TerminationViolation, record.Meta.Reason)

	waitFor(t, func() bool {
		v.mu.Lock()
		defer v.mu.Unlock()
		return len(v.events) == 1
	})
	v.mu.Lock()
	assert.Equal(t, string(detector.KindTabHidden), v.events[0].Kind)
	assert.Equal(t, m.ID.String(), v.events[0].SessionID)
	v.mu.Unlock()
}

func TestWarmupFailureEmitsDegradedNotice(t *testing.T) {
	m, _, _, r := newTestMachine(t, &stubAnalyzer{warmupErr: errors.New("model load failed")})
	require.NoError(t, m.CameraGranted(context.Background()))

	waitFor(t, func() bool {
		for _, typ := range r.types() {
			if typ == EventMonitoringDegraded {
				return true
			}
		}
		return false
	})

	// Session keeps running despite the failed init.
	assert.Equal(t, StateActive, m.State())
	m.Submit()
}

func TestSamplerVerdictAutoSubmits(t *testing.T) {
	// Analyzer reports zero faces on every frame.
	m, p, _, _ := newTestMachine(t, &stubAnalyzer{})
	require.NoError(t, m.CameraGranted(context.Background()))

	m.Mailbox().Publish(&model.Frame{Data: []byte{1}, MimeType: "image/jpeg", CapturedAt: time.Now()})

	waitFor(t, func() bool { return m.State() == StateTerminated })

	require.Equal(t, 1, p.callCount())
	record := p.lastRecord()
	require.NotNil(t, record.Violation)
	assert.Equal(t, model.TerminationViolation, record.Meta.Reason)
	assert.Equal(t, 0, record.Score)
}
