package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	AvatarURL    *string   `json:"avatar,omitempty"`
	About        string    `json:"about"`
	LastSeen     time.Time `json:"last_seen"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SearchResult is a user matched by a username search, annotated with the
// requester's existing conversation with them, if any.
type SearchResult struct {
	Username       string          `json:"username"`
	Name           string          `json:"name"`
	AvatarURL      *string         `json:"avatar,omitempty"`
	About          string          `json:"about"`
	ConversationID *uuid.UUID      `json:"conversation_id,omitempty"`
	LastMessage    *MessagePreview `json:"last_message,omitempty"`
	Unread         *int            `json:"unread,omitempty"`
}
