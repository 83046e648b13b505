package domain

import "github.com/google/uuid"

// ReceiptStatus is the UI-facing receipt state of a message or of a
// participant's unread batch: single tick, double tick, or read.
type ReceiptStatus string

const (
	StatusSent   ReceiptStatus = "sent"
	StatusDouble ReceiptStatus = "double"
	StatusRead   ReceiptStatus = "read"
)

// ParticipantStatus is one participant's read-state ledger row for one
// conversation. TotalCount is the number of messages this participant has not
// acknowledged as read; SingleCount the subset never pushed to a live
// connection. Invariant: 0 <= SingleCount <= TotalCount.
type ParticipantStatus struct {
	ConversationID uuid.UUID     `json:"conversation_id"`
	UserID         uuid.UUID     `json:"user_id"`
	Status         ReceiptStatus `json:"status"`
	TotalCount     int           `json:"total_count"`
	SingleCount    int           `json:"single_count"`
}
