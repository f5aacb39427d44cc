package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/provider-payouts/internal/models"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
)

type pendingMessagesRepo struct{ pool *pgxpool.Pool }

const pendingCols = `id, conversation_id, message_id, sender_id, recipient_id, message_preview,
       created_at, scheduled_for, status, processed_at, last_error`

func scanPending(row pgx.Row) (models.PendingMessageNotification, error) {
	var p models.PendingMessageNotification
	err := row.Scan(&p.ID, &p.ConversationID, &p.MessageID, &p.SenderID, &p.RecipientID,
		&p.MessagePreview, &p.CreatedAt, &p.ScheduledFor, &p.Status, &p.ProcessedAt, &p.LastError)
	return p, mapErr(err)
}

// Create returns ErrConflict when the message is already tracked.
func (r *pendingMessagesRepo) Create(ctx context.Context, p models.PendingMessageNotification) (models.PendingMessageNotification, error) {
	return scanPending(r.pool.QueryRow(ctx, `
INSERT INTO pending_message_notifications(id, conversation_id, message_id, sender_id, recipient_id,
                                          message_preview, created_at, scheduled_for, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'pending')
RETURNING `+pendingCols,
		p.ID, p.ConversationID, p.MessageID, p.SenderID, p.RecipientID,
		p.MessagePreview, p.CreatedAt, p.ScheduledFor))
}

func (r *pendingMessagesRepo) GetByMessageID(ctx context.Context, messageID string) (models.PendingMessageNotification, error) {
	return scanPending(r.pool.QueryRow(ctx,
		`SELECT `+pendingCols+` FROM pending_message_notifications WHERE message_id=$1`, messageID))
}

func (r *pendingMessagesRepo) CancelPending(ctx context.Context, conversationID, recipientID string, at time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
UPDATE pending_message_notifications
SET status='cancelled', processed_at=$3
WHERE conversation_id=$1 AND recipient_id=$2 AND status='pending'`, conversationID, recipientID, at)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *pendingMessagesRepo) ProcessDue(ctx context.Context, now time.Time, limit int, fn repo.PendingDeliverFunc) ([]models.PendingMessageNotification, error) {
	var out []models.PendingMessageNotification
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
SELECT `+pendingCols+` FROM pending_message_notifications
WHERE status='pending' AND scheduled_for <= $1
ORDER BY scheduled_for
LIMIT $2
FOR UPDATE SKIP LOCKED`, now, limit)
		if err != nil {
			return err
		}
		var due []models.PendingMessageNotification
		for rows.Next() {
			p, err := scanPending(rows)
			if err != nil {
				rows.Close()
				return err
			}
			due = append(due, p)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, p := range due {
			status := models.PendingStatusSent
			var lastErr *string
			if err := fn(ctx, p); err != nil {
				status = models.PendingStatusFailed
				msg := err.Error()
				lastErr = &msg
			}
			if _, err := tx.Exec(ctx, `
UPDATE pending_message_notifications
SET status=$2, processed_at=$3, last_error=$4
WHERE id=$1`, p.ID, status, now, lastErr); err != nil {
				return err
			}
			p.Status, p.ProcessedAt, p.LastError = status, &now, lastErr
			out = append(out, p)
		}
		return nil
	})
	return out, err
}
