package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/provider-payouts/internal/models"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
)

type withdrawalsRepo struct{ pool *pgxpool.Pool }

const withdrawalCols = `id, provider_id, amount_cents, fee_cents, payment_method_id, fee_percentage,
       status, failure_reason, created_at, updated_at`

func scanWithdrawal(row pgx.Row) (models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := row.Scan(&w.ID, &w.ProviderID, &w.AmountCents, &w.FeeCents, &w.PaymentMethodID,
		&w.FeePercentage, &w.Status, &w.FailureReason, &w.CreatedAt, &w.UpdatedAt)
	return w, mapErr(err)
}

func collectWithdrawals(rows pgx.Rows, err error) ([]models.WithdrawalRequest, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.WithdrawalRequest, 0)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *withdrawalsRepo) Create(ctx context.Context, in repo.NewWithdrawal) (models.WithdrawalRequest, models.Balance, error) {
	var (
		created models.WithdrawalRequest
		bal     models.Balance
	)
	w := in.Request
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			available int64
			frozen    bool
			last      *time.Time
		)
		err := tx.QueryRow(ctx, `
SELECT available_cents, frozen, last_withdrawal_at
FROM provider_balances WHERE provider_id=$1 FOR UPDATE`, w.ProviderID).Scan(&available, &frozen, &last)
		if err != nil {
			return mapErr(err)
		}
		if frozen {
			return repo.ErrBalanceFrozen
		}
		if last != nil && in.Now.Sub(*last) < in.Cooldown {
			return repo.ErrCooldownActive
		}
		var open bool
		if err := tx.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM withdrawal_requests
               WHERE provider_id=$1 AND status IN ('pending','processing'))`, w.ProviderID).Scan(&open); err != nil {
			return err
		}
		if open {
			return repo.ErrCooldownActive
		}
		if available < w.AmountCents {
			return repo.ErrInsufficientFunds
		}

		// payment method must belong to the provider
		var owned bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM payment_methods WHERE id=$1 AND provider_id=$2 AND deleted_at IS NULL)`,
			w.PaymentMethodID, w.ProviderID).Scan(&owned); err != nil {
			return mapErr(err)
		}
		if !owned {
			return repo.ErrNotFound
		}

		created, err = scanWithdrawal(tx.QueryRow(ctx, `
INSERT INTO withdrawal_requests(id, provider_id, amount_cents, fee_cents, payment_method_id, fee_percentage, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
RETURNING `+withdrawalCols,
			w.ID, w.ProviderID, w.AmountCents, w.FeeCents, w.PaymentMethodID, w.FeePercentage,
			models.WithdrawalPending, in.Now))
		if err != nil {
			return err
		}

		bal, err = scanBalance(tx.QueryRow(ctx, `
UPDATE provider_balances
SET available_cents = available_cents - $2, last_withdrawal_at = $3, updated_at = now()
WHERE provider_id=$1
RETURNING `+balanceCols, w.ProviderID, w.AmountCents, in.Now))
		if err != nil {
			return err
		}
		return insertOutbox(ctx, tx, in.Intents)
	})
	if err != nil {
		return models.WithdrawalRequest{}, models.Balance{}, err
	}
	return created, bal, nil
}

func (r *withdrawalsRepo) GetByID(ctx context.Context, id string) (models.WithdrawalRequest, error) {
	return scanWithdrawal(r.pool.QueryRow(ctx, `SELECT `+withdrawalCols+` FROM withdrawal_requests WHERE id=$1`, id))
}

func (r *withdrawalsRepo) ListByProvider(ctx context.Context, providerID string, limit, offset int) ([]models.WithdrawalRequest, error) {
	return collectWithdrawals(r.pool.Query(ctx, `
SELECT `+withdrawalCols+` FROM withdrawal_requests
WHERE provider_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, providerID, limit, offset))
}

func (r *withdrawalsRepo) ListSince(ctx context.Context, providerID string, since time.Time) ([]models.WithdrawalRequest, error) {
	return collectWithdrawals(r.pool.Query(ctx, `
SELECT `+withdrawalCols+` FROM withdrawal_requests
WHERE provider_id=$1 AND created_at >= $2 ORDER BY created_at DESC`, providerID, since))
}

func (r *withdrawalsRepo) HasOpen(ctx context.Context, providerID string) (bool, error) {
	var open bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM withdrawal_requests
               WHERE provider_id=$1 AND status IN ('pending','processing'))`, providerID).Scan(&open)
	return open, err
}

func (r *withdrawalsRepo) Transition(ctx context.Context, id string, to models.WithdrawalStatus, reason string, intents []models.OutboxMessage) (models.WithdrawalRequest, error) {
	var out models.WithdrawalRequest
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		cur, err := scanWithdrawal(tx.QueryRow(ctx,
			`SELECT `+withdrawalCols+` FROM withdrawal_requests WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if !cur.Status.CanTransition(to) {
			return fmt.Errorf("%w: %s -> %s", repo.ErrInvalidTransition, cur.Status, to)
		}
		out, err = scanWithdrawal(tx.QueryRow(ctx, `
UPDATE withdrawal_requests
SET status=$2, failure_reason=NULLIF($3::text, ''), updated_at=now()
WHERE id=$1
RETURNING `+withdrawalCols, id, to, reason))
		if err != nil {
			return err
		}

		switch to {
		case models.WithdrawalCompleted:
			_, err = tx.Exec(ctx, `
UPDATE provider_balances SET withdrawn_cents = withdrawn_cents + $2, updated_at = now()
WHERE provider_id=$1`, cur.ProviderID, cur.AmountCents)
		case models.WithdrawalFailed:
			_, err = tx.Exec(ctx, `
UPDATE provider_balances SET available_cents = available_cents + $2, updated_at = now()
WHERE provider_id=$1`, cur.ProviderID, cur.AmountCents)
		}
		if err != nil {
			return err
		}
		return insertOutbox(ctx, tx, intents)
	})
	return out, err
}
