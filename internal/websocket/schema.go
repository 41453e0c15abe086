package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	// ActionCameraGranted reports that the browser obtained the camera
	// stream; the session goes active.
	ActionCameraGranted Action = "camera_granted"
	// ActionCameraDenied reports that the user refused camera access.
	ActionCameraDenied Action = "camera_denied"
	// ActionFrame carries one base64-encoded video frame.
	ActionFrame Action = "frame"
	// ActionVisibilityLost reports a hidden page or a blurred window.
	ActionVisibilityLost Action = "visibility_lost"
	// ActionAnswer records a choice for one question.
	ActionAnswer Action = "answer"
	// ActionSubmit finishes the test manually.
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestPayload is the single client message shape; unused fields are
// omitted per action.
type RequestPayload struct {
	Action Action `json:"action"`
	// Frame fields.
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	// Answer fields.
	Question int `json:"question"`
	Choice   int `json:"choice"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError Event = "error"
	EventState Event = "state"
	EventPong  Event = "pong"
)

// StateResponse acknowledges an action with the session state.
type StateResponse struct {
	Event Event  `json:"event"`
	State string `json:"state"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
