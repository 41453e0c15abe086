package sampler

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

// scriptedAnalyzer returns canned results in order, then repeats the
// last one. A nil entry means an analysis error.
type scriptedAnalyzer struct {
	mu      sync.Mutex
	results []*model.FrameAnalysis
	calls   int
}

func (a *scriptedAnalyzer) Warmup(context.Context) error { return nil }

func (a *scriptedAnalyzer) EstimateFaces(_ context.Context, _ *model.Frame) (model.FrameAnalysis, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.calls
	a.calls++
	if idx >= len(a.results) {
		idx = len(a.results) - 1
	}
	if a.results[idx] == nil {
		return model.FrameAnalysis{}, errors.New("inference service unavailable")
	}
	return *a.results[idx], nil
}

func (a *scriptedAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type verdictCollector struct {
	mu       sync.Mutex
	verdicts []*detector.Verdict
}

func (c *verdictCollector) sink(v *detector.Verdict) {
	c.mu.Lock()
	c.verdicts = append(c.verdicts, v)
	c.mu.Unlock()
}

func (c *verdictCollector) first() *detector.Verdict {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.verdicts) == 0 {
		return nil
	}
	return c.verdicts[0]
}

func testFrame() *model.Frame {
	return &model.Frame{Data: []byte{0xff, 0xd8}, MimeType: "image/jpeg", CapturedAt: time.Now()}
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

func TestSamplerRaisesVerdict(t *testing.T) {
	a := &scriptedAnalyzer{results: []*model.FrameAnalysis{{}}} // zero faces
	c := &verdictCollector{}
	mb := NewMailbox()
	mb.Publish(testFrame())

	s := New(a, detector.New(), mb, c.sink, 10*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	waitFor(t, func() bool { return c.first() != nil })
	assert.Equal(t, detector.KindNoFaceDetected, c.first().Kind)
}

func TestSamplerSkipsTicksWithoutFrames(t *testing.T) {
	a := &scriptedAnalyzer{results: []*model.FrameAnalysis{{}}}
	mb := NewMailbox()

	s := New(a, detector.New(), mb, func(*detector.Verdict) {}, 5*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	cancel()

	assert.Zero(t, a.callCount(), "no frame published, analyzer must not be called")
}

func TestSamplerSurvivesAnalysisFailure(t *testing.T) {
	// First call fails, second succeeds with no faces.
	a := &scriptedAnalyzer{results: []*model.FrameAnalysis{nil, {}}}
	c := &verdictCollector{}
	mb := NewMailbox()
	mb.Publish(testFrame())

	s := New(a, detector.New(), mb, c.sink, 10*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	waitFor(t, func() bool { return c.first() != nil })
	require.GreaterOrEqual(t, a.callCount(), 2)
	assert.Equal(t, detector.KindNoFaceDetected, c.first().Kind)
}

func TestSamplerStopsOnCancel(t *testing.T) {
	a := &scriptedAnalyzer{results: []*model.FrameAnalysis{{Faces: []model.FaceObservation{{}}}}}
	mb := NewMailbox()
	mb.Publish(testFrame())

	s := New(a, detector.New(), mb, func(*detector.Verdict) {}, 5*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return a.callCount() > 0 })
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sampler did not stop after cancel")
	}

	calls := a.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, a.callCount(), "no analysis calls after stop")
}

func TestMailboxOverwriteAndDrops(t *testing.T) {
	mb := NewMailbox()
	assert.Nil(t, mb.Latest())

	f1 := testFrame()
	f2 := testFrame()
	mb.Publish(f1)
	mb.Publish(f2)

	assert.Equal(t, uint64(1), mb.Drops())
	assert.Same(t, f2, mb.Latest())

	// Consumed frame overwrites do not count as drops.
	mb.Publish(testFrame())
	assert.Equal(t, uint64(1), mb.Drops())

	mb.Clear()
	assert.Nil(t, mb.Latest())
}
