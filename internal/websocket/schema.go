package websocket

import "github.com/cettopper/exam-portal/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventResult Event = "result"
	EventReady  Event = "ready"
	EventPong   Event = "pong"
)

// ResultMessage carries one freshly scored attempt to an admin stream.
type ResultMessage struct {
	Event  Event             `json:"event"`
	Result model.ResultEvent `json:"result"`
}

// ReadyMessage confirms the stream is subscribed.
type ReadyMessage struct {
	Event  Event  `json:"event"`
	Filter string `json:"filter,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
