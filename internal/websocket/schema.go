package websocket

import "encoding/json"

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
	EventSnapshot Event = "snapshot"
	EventProgress Event = "progress"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// SnapshotMessage carries the initial monitor state when an admin attaches.
type SnapshotMessage struct {
	Event    Event  `json:"event"`
	ModuleID string `json:"module_id"`
	Sessions any    `json:"sessions"`
}

// ProgressMessage forwards one live certification event. Payload is the raw
// JSON published on the module's monitor channel.
type ProgressMessage struct {
	Event   Event           `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
