package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/baharkarakas/provider-payouts/internal/repository"
)

type Repositories struct {
	Profiles        repo.Profiles
	Balances        repo.Balances
	Settings        repo.Settings
	Withdrawals     repo.Withdrawals
	PaymentMethods  repo.PaymentMethods
	Notifications   repo.Notifications
	DeviceTokens    repo.DeviceTokens
	Outbox          repo.Outbox
	PendingMessages repo.PendingMessages
	Refunds         repo.Refunds
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Profiles:        &profilesRepo{pool},
		Balances:        &balancesRepo{pool},
		Settings:        &settingsRepo{pool},
		Withdrawals:     &withdrawalsRepo{pool},
		PaymentMethods:  &paymentMethodsRepo{pool},
		Notifications:   &notificationsRepo{pool},
		DeviceTokens:    &deviceTokensRepo{pool},
		Outbox:          &outboxRepo{pool},
		PendingMessages: &pendingMessagesRepo{pool},
		Refunds:         &refundsRepo{pool},
	}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadWrite})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// mapErr translates driver errors into repository sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503": // unique_violation, foreign_key_violation
			return repo.ErrConflict
		case "22P02": // invalid_text_representation, e.g. a malformed uuid key
			return repo.ErrNotFound
		}
	}
	return err
}
