package events

import "time"

// Type represents an emitted event type.
type Type string

const (
	ToolCallStarted  Type = "ToolCallStarted"
	ToolCallFinished Type = "ToolCallFinished"
	ToolCallFailed   Type = "ToolCallFailed"
)

// Event is the common envelope for renderer events.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// ToolCallStartedPayload marks tool call start.
type ToolCallStartedPayload struct {
	CallID    string    `json:"call_id"`
	ToolName  string    `json:"tool_name"`
	Input     string    `json:"input"`
	StartedAt time.Time `json:"started_at"`
}

// ToolCallFinishedPayload marks tool call end. Failed calls carry Status "error".
type ToolCallFinishedPayload struct {
	CallID     string    `json:"call_id"`
	ToolName   string    `json:"tool_name"`
	Status     string    `json:"status"`
	Input      string    `json:"input"`
	Output     string    `json:"output"`
	Preview    string    `json:"preview"`
	LineCount  int       `json:"line_count"`
	ByteCount  int       `json:"byte_count"`
	Truncated  bool      `json:"truncated"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// Emitter receives events. Implementations must be safe for concurrent use.
type Emitter func(Event)
