package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stipe44/murmur/internal/domain"
	"github.com/stipe44/murmur/internal/repository"
	"go.uber.org/zap"
)

const messageColumns = "id, conversation_id, sender_id, seq, body, image_url, created_at"

type MessageRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewMessageRepo(pool *pgxpool.Pool, logger *zap.Logger) *MessageRepo {
	return &MessageRepo{pool: pool, logger: logger}
}

// Append inserts the message and bumps the recipient's ledger row in one
// transaction. The conversation row is locked first, which serializes seq
// assignment and counter updates per conversation without blocking other
// conversations.
func (r *MessageRepo) Append(ctx context.Context, convID, senderID uuid.UUID, body string, imageURL *string, delivered bool) (*domain.Message, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var (
		user1ID, user2ID uuid.UUID
		lastSeq          int
	)
	err = tx.QueryRow(ctx, `
		SELECT user1_id, user2_id, last_seq
		FROM conversations
		WHERE id = $1
		FOR UPDATE`, convID,
	).Scan(&user1ID, &user2ID, &lastSeq)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       senderID,
		Seq:            lastSeq + 1,
		Body:           body,
		ImageURL:       imageURL,
		CreatedAt:      time.Now(),
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Seq, msg.Body, msg.ImageURL, msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE conversations SET last_seq = $1, last_message_at = $2 WHERE id = $3`,
		msg.Seq, msg.CreatedAt, convID,
	)
	if err != nil {
		return nil, err
	}

	recipient := user1ID
	if senderID == user1ID {
		recipient = user2ID
	}

	undeliveredDelta := 1
	if delivered {
		undeliveredDelta = 0
	}
	// Row status tracks the recipient's unread batch: "sent" while any
	// undelivered message remains, "double" once everything reached a live
	// connection.
	_, err = tx.Exec(ctx, `
		UPDATE participant_status
		SET total_count = total_count + 1,
			single_count = single_count + $1,
			status = CASE WHEN single_count + $1 > 0 THEN 'sent' ELSE 'double' END
		WHERE conversation_id = $2 AND user_id = $3`,
		undeliveredDelta, convID, recipient,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	r.logger.Debug("message appended",
		zap.String("conversation_id", convID.String()),
		zap.Int("seq", msg.Seq),
		zap.Bool("delivered", delivered),
	)
	return msg, nil
}

func (r *MessageRepo) Window(ctx context.Context, convID, requesterID uuid.UUID, minLast int) (*domain.Window, error) {
	return r.snapshot(ctx, convID, requesterID, func(ctx context.Context, tx pgx.Tx, win *domain.Window) error {
		// The initial page always spans the requester's whole unread run.
		lastN := minLast
		if win.Mine.TotalCount > lastN {
			lastN = win.Mine.TotalCount
		}

		msgs, err := r.sliceDesc(ctx, tx, `
			SELECT `+messageColumns+`
			FROM messages
			WHERE conversation_id = $1
			ORDER BY seq DESC
			LIMIT $2`, convID, lastN)
		if err != nil {
			return err
		}
		win.Messages = msgs
		win.NewerCount = 0
		return nil
	})
}

func (r *MessageRepo) WindowBefore(ctx context.Context, convID, requesterID, watermark uuid.UUID, pageSize int) (*domain.Window, error) {
	return r.snapshot(ctx, convID, requesterID, func(ctx context.Context, tx pgx.Tx, win *domain.Window) error {
		var seq int
		err := tx.QueryRow(ctx, `
			SELECT seq FROM messages WHERE id = $1 AND conversation_id = $2`,
			watermark, convID,
		).Scan(&seq)
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrWatermarkNotFound
		}
		if err != nil {
			return err
		}

		msgs, err := r.sliceDesc(ctx, tx, `
			SELECT `+messageColumns+`
			FROM messages
			WHERE conversation_id = $1 AND seq < $2
			ORDER BY seq DESC
			LIMIT $3`, convID, seq, pageSize)
		if err != nil {
			return err
		}
		win.Messages = msgs
		// Messages at and after the watermark sit above this window.
		win.NewerCount = win.TotalMessages - (seq - 1)
		return nil
	})
}

func (r *MessageRepo) Last(ctx context.Context, convID uuid.UUID) (*domain.Message, error) {
	var m domain.Message
	err := r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1
		ORDER BY seq DESC
		LIMIT 1`, convID,
	).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Seq, &m.Body, &m.ImageURL, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// snapshot runs fill inside a repeatable-read transaction after loading the
// log length and both ledger rows, so the slice and the counters come from a
// single point in time.
func (r *MessageRepo) snapshot(ctx context.Context, convID, requesterID uuid.UUID, fill func(context.Context, pgx.Tx, *domain.Window) error) (*domain.Window, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	win := &domain.Window{}
	err = tx.QueryRow(ctx, `SELECT last_seq FROM conversations WHERE id = $1`, convID).Scan(&win.TotalMessages)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT conversation_id, user_id, status, total_count, single_count
		FROM participant_status
		WHERE conversation_id = $1`, convID)
	if err != nil {
		return nil, err
	}
	found := false
	for rows.Next() {
		var ps domain.ParticipantStatus
		if err := rows.Scan(&ps.ConversationID, &ps.UserID, &ps.Status, &ps.TotalCount, &ps.SingleCount); err != nil {
			rows.Close()
			return nil, err
		}
		if ps.UserID == requesterID {
			win.Mine = ps
			found = true
		} else {
			win.Other = ps
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, repository.ErrConversationNotFound
	}

	if err := fill(ctx, tx, win); err != nil {
		return nil, err
	}
	return win, tx.Commit(ctx)
}

// sliceDesc runs a seq-descending query and reverses the result back to
// chronological order.
func (r *MessageRepo) sliceDesc(ctx context.Context, tx pgx.Tx, query string, args ...any) ([]domain.Message, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Seq, &m.Body, &m.ImageURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
