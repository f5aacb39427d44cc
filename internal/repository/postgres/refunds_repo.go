package postgres

import (
	"errors"
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/provider-payouts/internal/models"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
)

type refundsRepo struct{ pool *pgxpool.Pool }

const refundCols = `id, order_id, requested_by, amount_cents, currency, status, reason,
       reason_details, admin_notes, refunded_at, created_at`

func scanRefund(row pgx.Row) (models.RefundRequest, error) {
	var rr models.RefundRequest
	err := row.Scan(&rr.ID, &rr.OrderID, &rr.RequestedBy, &rr.AmountCents, &rr.Currency, &rr.Status,
		&rr.Reason, &rr.ReasonDetails, &rr.AdminNotes, &rr.RefundedAt, &rr.CreatedAt)
	return rr, mapErr(err)
}

func collectRefunds(rows pgx.Rows, err error) ([]models.RefundRequest, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.RefundRequest, 0)
	for rows.Next() {
		rr, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

func (r *refundsRepo) Create(ctx context.Context, rr models.RefundRequest) (models.RefundRequest, error) {
	return scanRefund(r.pool.QueryRow(ctx, `
INSERT INTO refund_requests(id, order_id, requested_by, amount_cents, currency, status, reason, reason_details)
VALUES ($1,$2,$3,$4,$5,'pending',$6,$7)
RETURNING `+refundCols,
		rr.ID, rr.OrderID, rr.RequestedBy, rr.AmountCents, rr.Currency, rr.Reason, rr.ReasonDetails))
}

func (r *refundsRepo) GetByID(ctx context.Context, id string) (models.RefundRequest, error) {
	return scanRefund(r.pool.QueryRow(ctx, `SELECT `+refundCols+` FROM refund_requests WHERE id=$1`, id))
}

func (r *refundsRepo) ListByOrder(ctx context.Context, orderID string) ([]models.RefundRequest, error) {
	return collectRefunds(r.pool.Query(ctx,
		`SELECT `+refundCols+` FROM refund_requests WHERE order_id=$1 ORDER BY created_at DESC`, orderID))
}

func (r *refundsRepo) ListByRequester(ctx context.Context, userID string, limit, offset int) ([]models.RefundRequest, error) {
	return collectRefunds(r.pool.Query(ctx, `
SELECT `+refundCols+` FROM refund_requests
WHERE requested_by=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset))
}

func (r *refundsRepo) UpdateStatus(ctx context.Context, id string, from, to models.RefundStatus, notes string, refundedAt *time.Time) (models.RefundRequest, error) {
	rr, err := scanRefund(r.pool.QueryRow(ctx, `
UPDATE refund_requests
SET status=$3,
    admin_notes=CASE WHEN $4::text = '' THEN admin_notes ELSE $4::text END,
    refunded_at=COALESCE($5::timestamptz, refunded_at)
WHERE id=$1 AND status=$2
RETURNING `+refundCols, id, from, to, notes, refundedAt))
	if errors.Is(err, repo.ErrNotFound) {
		// distinguish a missing row from a lost race on status
		if _, gerr := r.GetByID(ctx, id); gerr == nil {
			return models.RefundRequest{}, repo.ErrConflict
		}
	}
	return rr, err
}
