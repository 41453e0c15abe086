package model

import "time"

// PersistedResult is the outcome of a persistence attempt. Fallback
// ids always carry the "local-" prefix; primary ids are UUIDs, so the
// two namespaces never collide.
type PersistedResult struct {
	ID       string `json:"id"`
	Fallback bool   `json:"fallback,omitempty"`
}

// StoredResult is a SessionRecord as retrieved from either store.
type StoredResult struct {
	ID        string        `json:"id"`
	Record    SessionRecord `json:"record"`
	Fallback  bool          `json:"fallback,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Attachment is an optional binary blob (the applicant's resume)
// associated 1:1 with a SessionRecord at write time.
type Attachment struct {
	Name string
	Data []byte
}

// ViolationEvent is one audit-trail entry for a flagged proctoring
// anomaly, queued for asynchronous persistence.
type ViolationEvent struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
