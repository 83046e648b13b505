package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation links exactly two users. User1ID < User2ID (canonical pair
// order) so a pair can only ever own one conversation.
type Conversation struct {
	ID            uuid.UUID  `json:"id"`
	User1ID       uuid.UUID  `json:"user1_id"`
	User2ID       uuid.UUID  `json:"user2_id"`
	LastSeq       int        `json:"-"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID uuid.UUID) uuid.UUID {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// HasParticipant reports whether userID belongs to this conversation.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// ConversationSummary is one entry of a user's conversation list.
type ConversationSummary struct {
	ID          uuid.UUID       `json:"id"`
	Username    string          `json:"username"`
	Name        string          `json:"name"`
	AvatarURL   *string         `json:"avatar,omitempty"`
	About       string          `json:"about"`
	LastMessage *MessagePreview `json:"last_message,omitempty"`
	Unread      int             `json:"unread"`
}

// MessagePreview is the last-message line shown in conversation lists and
// search results. Status is the recipient's receipt state when the requester
// sent the message, nil otherwise.
type MessagePreview struct {
	Content string         `json:"content"`
	Image   *string        `json:"image,omitempty"`
	Date    time.Time      `json:"date"`
	Status  *ReceiptStatus `json:"status,omitempty"`
}
