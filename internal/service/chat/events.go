package chat

import (
	"github.com/zhouzirui/expert-panel/backend/internal/model/chat"
	"github.com/zhouzirui/expert-panel/backend/internal/model/persona"
)

// EventType names a streaming frame.
type EventType string

const (
	EventUserMessage    EventType = "user_message"
	EventExpertStart    EventType = "expert_start"
	EventExpertChunk    EventType = "expert_chunk"
	EventExpertComplete EventType = "expert_complete"
	EventExpertError    EventType = "expert_error"
	EventComplete       EventType = "complete"
	EventError          EventType = "error"
)

// ExpertRef identifies the persona a frame belongs to.
type ExpertRef struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Expertise persona.Expertise `json:"expertise,omitempty"`
	Avatar    string            `json:"avatar,omitempty"`
}

// Event is one frame of a streamed turn. Only the fields relevant to Type are set.
type Event struct {
	Type      EventType     `json:"type"`
	Message   *chat.Message `json:"message,omitempty"`
	SessionID string        `json:"sessionId,omitempty"`
	Expert    *ExpertRef    `json:"expert,omitempty"`
	MessageID string        `json:"messageId,omitempty"`
	Chunk     string        `json:"chunk,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// EventSink receives the frames of a streamed turn in order. An error aborts
// the turn.
type EventSink interface {
	Emit(Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event) error

func (f EventSinkFunc) Emit(e Event) error { return f(e) }

// ErrorEvent is the terminal frame sent when a turn fails after streaming began.
func ErrorEvent() Event {
	return Event{Type: EventError, Error: "Internal server error"}
}
