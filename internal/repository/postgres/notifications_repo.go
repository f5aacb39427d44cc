package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/provider-payouts/internal/models"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
)

type notificationsRepo struct{ pool *pgxpool.Pool }

const notificationCols = `id, user_id, type, title, message, link, metadata, read, outbox_id, created_at`

func scanNotification(row pgx.Row) (models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Link,
		&n.Metadata, &n.Read, &n.OutboxID, &n.CreatedAt)
	return n, mapErr(err)
}

func (r *notificationsRepo) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.Metadata == nil {
		n.Metadata = map[string]any{}
	}
	out, err := scanNotification(r.pool.QueryRow(ctx, `
INSERT INTO notifications(id, user_id, type, title, message, link, metadata, outbox_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (outbox_id) DO NOTHING
RETURNING `+notificationCols,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.Link, n.Metadata, n.OutboxID))
	if errors.Is(err, repo.ErrNotFound) && n.OutboxID != nil {
		// replayed intent: hand back the row the first delivery wrote
		return scanNotification(r.pool.QueryRow(ctx,
			`SELECT `+notificationCols+` FROM notifications WHERE outbox_id=$1`, *n.OutboxID))
	}
	return out, err
}

func (r *notificationsRepo) GetByID(ctx context.Context, id string) (models.Notification, error) {
	return scanNotification(r.pool.QueryRow(ctx, `SELECT `+notificationCols+` FROM notifications WHERE id=$1`, id))
}

func (r *notificationsRepo) ListByUser(ctx context.Context, userID string, limit, offset int, unreadOnly bool) ([]models.Notification, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
SELECT count(*) FROM notifications WHERE user_id=$1 AND (NOT $2::boolean OR NOT read)`, userID, unreadOnly).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
SELECT `+notificationCols+` FROM notifications
WHERE user_id=$1 AND (NOT $2::boolean OR NOT read)
ORDER BY created_at DESC LIMIT $3 OFFSET $4`, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]models.Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (r *notificationsRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM notifications WHERE user_id=$1 AND NOT read`, userID).Scan(&n)
	return n, err
}

func (r *notificationsRepo) MarkRead(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE notifications SET read=true WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *notificationsRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ct, err := r.pool.Exec(ctx, `UPDATE notifications SET read=true WHERE user_id=$1 AND NOT read`, userID)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
