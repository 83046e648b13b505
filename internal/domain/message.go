package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is immutable once appended. Seq is 1-based insertion order within
// its conversation; insertion order is chronological order.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Seq            int       `json:"-"`
	Body           string    `json:"body"`
	ImageURL       *string   `json:"image,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Window is a consistent snapshot of one slice of a conversation's log:
// the messages, both participant-status rows, the log length, and how many
// messages lie after the window's end. Everything is captured at a single
// point so the pagination math never mixes stale counters with a fresh slice.
type Window struct {
	Messages      []Message
	TotalMessages int
	// NewerCount is the number of messages in the log after the last message
	// of this window. Zero for an initial (tail) window.
	NewerCount int
	Mine       ParticipantStatus
	Other      ParticipantStatus
}
