package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/provider-payouts/internal/models"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
)

type outboxRepo struct{ pool *pgxpool.Pool }

const outboxCols = `id, channel, kind, user_id, recipient, payload, status, attempts,
       last_error, next_attempt_at, created_at, delivered_at`

func scanOutbox(row pgx.Row) (models.OutboxMessage, error) {
	var m models.OutboxMessage
	err := row.Scan(&m.ID, &m.Channel, &m.Kind, &m.UserID, &m.Recipient, &m.Payload, &m.Status,
		&m.Attempts, &m.LastError, &m.NextAttemptAt, &m.CreatedAt, &m.DeliveredAt)
	return m, mapErr(err)
}

// insertOutbox writes intents through q so callers can enlist them in their own tx.
// An intent whose id already exists is skipped.
func insertOutbox(ctx context.Context, q querier, msgs []models.OutboxMessage) error {
	for _, m := range msgs {
		next := m.NextAttemptAt
		if next.IsZero() {
			next = time.Now()
		}
		_, err := q.Exec(ctx, `
INSERT INTO notification_outbox(id, channel, kind, user_id, recipient, payload, status, next_attempt_at)
VALUES ($1,$2,$3,$4,$5,$6,'pending',$7)
ON CONFLICT (id) DO NOTHING`,
			m.ID, m.Channel, m.Kind, m.UserID, m.Recipient, m.Payload, next)
		if err != nil {
			return mapErr(err)
		}
	}
	return nil
}

func (r *outboxRepo) Enqueue(ctx context.Context, msgs ...models.OutboxMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		return insertOutbox(ctx, tx, msgs)
	})
}

func (r *outboxRepo) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]models.OutboxMessage, error) {
	rows, err := r.pool.Query(ctx, `
UPDATE notification_outbox
SET status='processing', locked_until=$2
WHERE id IN (
    SELECT id FROM notification_outbox
    WHERE (status='pending' AND next_attempt_at <= $1)
       OR (status='processing' AND locked_until < $1)
    ORDER BY next_attempt_at
    LIMIT $3
    FOR UPDATE SKIP LOCKED
)
RETURNING `+outboxCols, now, now.Add(lease), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.OutboxMessage
	for rows.Next() {
		m, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *outboxRepo) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, `
UPDATE notification_outbox
SET status='delivered', delivered_at=$2, attempts=attempts+1, locked_until=NULL, last_error=NULL
WHERE id=$1`, id, at)
}

func (r *outboxRepo) MarkRetry(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error {
	return r.exec(ctx, `
UPDATE notification_outbox
SET status='pending', attempts=$2, next_attempt_at=$3, last_error=$4, locked_until=NULL
WHERE id=$1`, id, attempts, next, lastErr)
}

func (r *outboxRepo) MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error {
	return r.exec(ctx, `
UPDATE notification_outbox
SET status='failed', attempts=$2, last_error=$3, locked_until=NULL
WHERE id=$1`, id, attempts, lastErr)
}

func (r *outboxRepo) Depth(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM notification_outbox WHERE status IN ('pending','processing')`).Scan(&n)
	return n, err
}

func (r *outboxRepo) exec(ctx context.Context, sql string, args ...any) error {
	ct, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
