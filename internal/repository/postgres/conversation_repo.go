package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stipe44/murmur/internal/domain"
	"github.com/stipe44/murmur/internal/repository"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO conversations (id, user1_id, user2_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		conv.ID, conv.User1ID, conv.User2ID, conv.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrConversationExists
		}
		return err
	}

	// Both ledger rows start at read/0/0.
	for _, userID := range []uuid.UUID{conv.User1ID, conv.User2ID} {
		_, err = tx.Exec(ctx, `
			INSERT INTO participant_status (conversation_id, user_id, status, total_count, single_count)
			VALUES ($1, $2, 'read', 0, 0)`,
			conv.ID, userID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	return r.scanConversation(ctx, `
		SELECT id, user1_id, user2_id, last_seq, last_message_at, created_at
		FROM conversations
		WHERE id = $1`, id)
}

func (r *ConversationRepo) GetByUsers(ctx context.Context, user1ID, user2ID uuid.UUID) (*domain.Conversation, error) {
	return r.scanConversation(ctx, `
		SELECT id, user1_id, user2_id, last_seq, last_message_at, created_at
		FROM conversations
		WHERE user1_id = $1 AND user2_id = $2`, user1ID, user2ID)
}

func (r *ConversationRepo) ListSummaries(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	query := `
		SELECT c.id,
			u.username, u.name, u.avatar_url, u.about,
			mine.total_count,
			peer.status,
			lm.body, lm.image_url, lm.sender_id, lm.created_at
		FROM conversations c
		JOIN users u ON u.id = CASE WHEN c.user1_id = $1 THEN c.user2_id ELSE c.user1_id END
		JOIN participant_status mine ON mine.conversation_id = c.id AND mine.user_id = $1
		JOIN participant_status peer ON peer.conversation_id = c.id AND peer.user_id <> $1
		LEFT JOIN LATERAL (
			SELECT body, image_url, sender_id, created_at
			FROM messages m
			WHERE m.conversation_id = c.id
			ORDER BY m.seq DESC
			LIMIT 1
		) lm ON true
		WHERE c.user1_id = $1 OR c.user2_id = $1
		ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.ConversationSummary
	for rows.Next() {
		var (
			s          domain.ConversationSummary
			peerStatus domain.ReceiptStatus
			body       *string
			image      *string
			senderID   *uuid.UUID
			createdAt  *time.Time
		)
		if err := rows.Scan(
			&s.ID, &s.Username, &s.Name, &s.AvatarURL, &s.About,
			&s.Unread, &peerStatus,
			&body, &image, &senderID, &createdAt,
		); err != nil {
			return nil, err
		}
		if body != nil {
			s.LastMessage = lastMessagePreview(*body, image, *senderID, *createdAt, userID, peerStatus)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *ConversationRepo) scanConversation(ctx context.Context, query string, args ...any) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&conv.ID, &conv.User1ID, &conv.User2ID, &conv.LastSeq, &conv.LastMessageAt, &conv.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// lastMessagePreview attaches the peer's receipt status only to messages the
// requester sent; received messages carry no tick state.
func lastMessagePreview(body string, image *string, senderID uuid.UUID, createdAt time.Time, requesterID uuid.UUID, peerStatus domain.ReceiptStatus) *domain.MessagePreview {
	preview := &domain.MessagePreview{
		Content: body,
		Image:   image,
		Date:    createdAt,
	}
	if senderID == requesterID {
		preview.Status = &peerStatus
	}
	return preview
}
