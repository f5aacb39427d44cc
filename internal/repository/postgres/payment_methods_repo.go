package postgres

import (
	"context"
	"maps"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/provider-payouts/internal/models"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
)

type paymentMethodsRepo struct{ pool *pgxpool.Pool }

const paymentMethodCols = `id, provider_id, type, label, details, is_default, verified, created_at`

func scanPaymentMethod(row pgx.Row) (models.PaymentMethod, error) {
	var pm models.PaymentMethod
	err := row.Scan(&pm.ID, &pm.ProviderID, &pm.Type, &pm.Label, &pm.Details,
		&pm.IsDefault, &pm.Verified, &pm.CreatedAt)
	return pm, mapErr(err)
}

// Create stores a method; the first method for a provider becomes the default.
func (r *paymentMethodsRepo) Create(ctx context.Context, pm models.PaymentMethod) (models.PaymentMethod, error) {
	if pm.Details == nil {
		pm.Details = map[string]string{}
	}
	var out models.PaymentMethod
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var existing int
		if err := tx.QueryRow(ctx,
			`SELECT count(*) FROM payment_methods WHERE provider_id=$1 AND deleted_at IS NULL`, pm.ProviderID).Scan(&existing); err != nil {
			return err
		}
		if existing == 0 {
			pm.IsDefault = true
		} else if pm.IsDefault {
			if _, err := tx.Exec(ctx,
				`UPDATE payment_methods SET is_default=false WHERE provider_id=$1 AND is_default AND deleted_at IS NULL`, pm.ProviderID); err != nil {
				return err
			}
		}
		var err error
		out, err = scanPaymentMethod(tx.QueryRow(ctx, `
INSERT INTO payment_methods(id, provider_id, type, label, details, is_default, verified)
VALUES ($1,$2,$3,$4,$5,$6,false)
RETURNING `+paymentMethodCols,
			pm.ID, pm.ProviderID, pm.Type, pm.Label, pm.Details, pm.IsDefault))
		return err
	})
	return out, err
}

func (r *paymentMethodsRepo) GetByID(ctx context.Context, id string) (models.PaymentMethod, error) {
	return scanPaymentMethod(r.pool.QueryRow(ctx, `SELECT `+paymentMethodCols+` FROM payment_methods WHERE id=$1 AND deleted_at IS NULL`, id))
}

func (r *paymentMethodsRepo) ListByProvider(ctx context.Context, providerID string) ([]models.PaymentMethod, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+paymentMethodCols+` FROM payment_methods
WHERE provider_id=$1 AND deleted_at IS NULL ORDER BY is_default DESC, created_at ASC`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.PaymentMethod, 0)
	for rows.Next() {
		pm, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pm)
	}
	return out, rows.Err()
}

func (r *paymentMethodsRepo) SetDefault(ctx context.Context, providerID, id string) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE payment_methods SET is_default=false WHERE provider_id=$1 AND is_default AND deleted_at IS NULL`, providerID); err != nil {
			return err
		}
		ct, err := tx.Exec(ctx,
			`UPDATE payment_methods SET is_default=true WHERE id=$1 AND provider_id=$2 AND deleted_at IS NULL`, id, providerID)
		if err != nil {
			return mapErr(err)
		}
		if ct.RowsAffected() == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}

func (r *paymentMethodsRepo) SetVerified(ctx context.Context, id string, verified bool) error {
	ct, err := r.pool.Exec(ctx, `UPDATE payment_methods SET verified=$2, updated_at=now() WHERE id=$1 AND deleted_at IS NULL`, id, verified)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// lockLive locks a live method of the provider and reports whether an open
// withdrawal references it.
func lockLive(ctx context.Context, tx pgx.Tx, providerID, id string) (models.PaymentMethod, bool, error) {
	pm, err := scanPaymentMethod(tx.QueryRow(ctx, `
SELECT `+paymentMethodCols+` FROM payment_methods
WHERE id=$1 AND provider_id=$2 AND deleted_at IS NULL
FOR UPDATE`, id, providerID))
	if err != nil {
		return models.PaymentMethod{}, false, err
	}
	var inUse bool
	if err := tx.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM withdrawal_requests
               WHERE payment_method_id=$1 AND status IN ('pending','processing'))`, id).Scan(&inUse); err != nil {
		return models.PaymentMethod{}, false, err
	}
	return pm, inUse, nil
}

// Update replaces label and details. Changed details drop the verification.
func (r *paymentMethodsRepo) Update(ctx context.Context, providerID, id, label string, details map[string]string) (models.PaymentMethod, error) {
	var out models.PaymentMethod
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		cur, inUse, err := lockLive(ctx, tx, providerID, id)
		if err != nil {
			return err
		}
		if inUse {
			return repo.ErrConflict
		}
		if details == nil {
			details = cur.Details
		}
		verified := cur.Verified && maps.Equal(cur.Details, details)
		out, err = scanPaymentMethod(tx.QueryRow(ctx, `
UPDATE payment_methods SET label=$2, details=$3, verified=$4, updated_at=now()
WHERE id=$1
RETURNING `+paymentMethodCols, id, label, details, verified))
		return err
	})
	return out, err
}

// Delete soft-deletes the method so settled withdrawals keep their
// reference. A removed default passes to the oldest remaining method.
func (r *paymentMethodsRepo) Delete(ctx context.Context, providerID, id string) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		cur, inUse, err := lockLive(ctx, tx, providerID, id)
		if err != nil {
			return err
		}
		if inUse {
			return repo.ErrConflict
		}
		if _, err := tx.Exec(ctx,
			`UPDATE payment_methods SET deleted_at=now(), is_default=false, updated_at=now() WHERE id=$1`, id); err != nil {
			return err
		}
		if !cur.IsDefault {
			return nil
		}
		_, err = tx.Exec(ctx, `
UPDATE payment_methods SET is_default=true, updated_at=now()
WHERE id = (SELECT id FROM payment_methods
            WHERE provider_id=$1 AND deleted_at IS NULL
            ORDER BY created_at ASC LIMIT 1)`, providerID)
		return err
	})
}
