package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stipe44/murmur/internal/domain"
)

var (
	// ErrConversationNotFound is returned when an operation references a
	// conversation id that does not exist.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrWatermarkNotFound is returned when a scroll-back watermark does not
	// belong to the given conversation.
	ErrWatermarkNotFound = errors.New("watermark message not found in conversation")
	// ErrConversationExists is returned by Create when the user pair already
	// owns a conversation. Callers resolve it by re-querying.
	ErrConversationExists = errors.New("conversation already exists for this pair")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// Search matches usernames by case-insensitive substring, excluding one id.
	Search(ctx context.Context, term string, exclude uuid.UUID, limit int) ([]domain.User, error)
	// SetAvatar stores or clears (nil) the external asset reference.
	SetAvatar(ctx context.Context, id uuid.UUID, avatarURL *string) error
	TouchLastSeen(ctx context.Context, id uuid.UUID) error
}

type ConversationRepository interface {
	// Create inserts the conversation and both participant-status rows
	// atomically. Returns ErrConversationExists on a duplicate pair.
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	// GetByUsers expects the canonical pair order (user1 < user2).
	GetByUsers(ctx context.Context, user1ID, user2ID uuid.UUID) (*domain.Conversation, error)
	// ListSummaries returns the user's conversation list with peer profile,
	// last-message preview and unread count, most recent activity first.
	ListSummaries(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error)
}

type MessageRepository interface {
	// Append adds a message to the conversation's log and bumps the
	// recipient's ledger row in the same transaction: total_count always,
	// single_count only when delivered is false, and the row status to "sent"
	// while undelivered messages remain, "double" otherwise. The conversation
	// row is locked for the duration so seq assignment and the counter bump
	// are serialized per conversation.
	Append(ctx context.Context, convID, senderID uuid.UUID, body string, imageURL *string, delivered bool) (*domain.Message, error)
	// Window snapshots the tail of the log for requesterID: the last
	// max(minLast, requester's total_count) messages, so an initial page
	// always covers the whole unread span.
	Window(ctx context.Context, convID, requesterID uuid.UUID, minLast int) (*domain.Window, error)
	// WindowBefore snapshots up to pageSize messages strictly older than the
	// watermark message, which must belong to convID (ErrWatermarkNotFound
	// otherwise).
	WindowBefore(ctx context.Context, convID, requesterID, watermark uuid.UUID, pageSize int) (*domain.Window, error)
	// Last returns the newest message of the conversation, nil if empty.
	Last(ctx context.Context, convID uuid.UUID) (*domain.Message, error)
}

type ReceiptRepository interface {
	Get(ctx context.Context, convID, userID uuid.UUID) (*domain.ParticipantStatus, error)
	// ResetRead atomically captures the row's counters, zeroes them and sets
	// status "read", returning the pre-reset values. Safe to call twice; the
	// second call returns (0, 0). A concurrent Append increment is never
	// lost: both operations lock the row.
	ResetRead(ctx context.Context, convID, userID uuid.UUID) (prevTotal, prevSingle int, err error)
}
