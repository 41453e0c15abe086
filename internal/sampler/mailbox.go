// Package sampler owns the periodic proctoring loop: a latest-frame
// mailbox fed by the client stream and a fixed-period ticker that runs
// each frame through the capability provider and the violation
// detector.
package sampler

import (
	"sync"

	"github.com/talentbridge/aptitude-backend/internal/model"
)

// Mailbox is a single-slot frame buffer with overwrite-on-publish
// semantics: the sampler always sees the most recent frame and stale
// frames are dropped, never queued.
type Mailbox struct {
	mu       sync.Mutex
	frame    *model.Frame
	consumed bool
	drops    uint64
}

// NewMailbox creates an empty Mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{consumed: true}
}

// Publish stores a frame, replacing any unconsumed one. The frame's
// data must not be mutated after publishing.
func (m *Mailbox) Publish(frame *model.Frame) {
	m.mu.Lock()
	if !m.consumed && m.frame != nil {
		m.drops++
	}
	m.frame = frame
	m.consumed = false
	m.mu.Unlock()
}

// Latest returns the current frame, or nil if none has been published.
// The frame stays available for subsequent ticks; only the drop
// accounting treats it as consumed.
func (m *Mailbox) Latest() *model.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumed = true
	return m.frame
}

// Drops reports how many published frames were overwritten before the
// sampler saw them.
func (m *Mailbox) Drops() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drops
}

// Clear empties the mailbox. Called when the frame source is released.
func (m *Mailbox) Clear() {
	m.mu.Lock()
	m.frame = nil
	m.consumed = true
	m.mu.Unlock()
}
