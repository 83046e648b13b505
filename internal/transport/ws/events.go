package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types - Client → Server. Server → Client event names are owned by the
// chat core (service.Event*); the hub only wraps them in this envelope.
const (
	EventTypeConversationOpen  = "conversation.open"
	EventTypeConversationClose = "conversation.close"
	EventTypePing              = "ping"
)

const (
	EventTypePong  = "pong"
	EventTypeError = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// ConversationPayload marks which conversation the client is viewing.
type ConversationPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
