package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/provider-payouts/internal/models"
)

type balancesRepo struct{ pool *pgxpool.Pool }

const balanceCols = `provider_id, available_cents, pending_cents, total_earned_cents, withdrawn_cents,
       currency, last_withdrawal_at, frozen, updated_at`

func scanBalance(row pgx.Row) (models.Balance, error) {
	var b models.Balance
	err := row.Scan(&b.ProviderID, &b.AvailableCents, &b.PendingCents, &b.TotalEarnedCents,
		&b.WithdrawnCents, &b.Currency, &b.LastWithdrawalAt, &b.Frozen, &b.UpdatedAt)
	return b, mapErr(err)
}

func (r *balancesRepo) Get(ctx context.Context, providerID string) (models.Balance, error) {
	return scanBalance(r.pool.QueryRow(ctx,
		`SELECT `+balanceCols+` FROM provider_balances WHERE provider_id=$1`, providerID))
}

func (r *balancesRepo) GetOrCreate(ctx context.Context, providerID string) (models.Balance, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO provider_balances(provider_id) VALUES($1) ON CONFLICT (provider_id) DO NOTHING`,
		providerID,
	)
	if err != nil {
		return models.Balance{}, mapErr(err)
	}
	return r.Get(ctx, providerID)
}
