package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stipe44/murmur/internal/domain"
	"github.com/stipe44/murmur/internal/repository"
	"go.uber.org/zap"
)

type ReceiptRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewReceiptRepo(pool *pgxpool.Pool, logger *zap.Logger) *ReceiptRepo {
	return &ReceiptRepo{pool: pool, logger: logger}
}

func (r *ReceiptRepo) Get(ctx context.Context, convID, userID uuid.UUID) (*domain.ParticipantStatus, error) {
	var ps domain.ParticipantStatus
	err := r.pool.QueryRow(ctx, `
		SELECT conversation_id, user_id, status, total_count, single_count
		FROM participant_status
		WHERE conversation_id = $1 AND user_id = $2`, convID, userID,
	).Scan(&ps.ConversationID, &ps.UserID, &ps.Status, &ps.TotalCount, &ps.SingleCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ps, nil
}

// ResetRead captures and zeroes the reader's counters in a single row-locked
// statement. An Append bumping the same row waits on the lock, so its
// increment lands on the zeroed row instead of being overwritten.
func (r *ReceiptRepo) ResetRead(ctx context.Context, convID, userID uuid.UUID) (int, int, error) {
	var prevTotal, prevSingle int
	err := r.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT total_count, single_count
			FROM participant_status
			WHERE conversation_id = $1 AND user_id = $2
			FOR UPDATE
		)
		UPDATE participant_status ps
		SET status = 'read', total_count = 0, single_count = 0
		FROM prev
		WHERE ps.conversation_id = $1 AND ps.user_id = $2
		RETURNING prev.total_count, prev.single_count`, convID, userID,
	).Scan(&prevTotal, &prevSingle)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, repository.ErrConversationNotFound
	}
	if err != nil {
		return 0, 0, err
	}

	if prevTotal > 0 {
		r.logger.Debug("read receipt reset",
			zap.String("conversation_id", convID.String()),
			zap.Int("previous_total", prevTotal),
			zap.Int("previous_single", prevSingle),
		)
	}
	return prevTotal, prevSingle, nil
}
