package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/provider-payouts/internal/models"
)

type profilesRepo struct{ pool *pgxpool.Pool }

const profileCols = `id, email, full_name, role, created_at`

func (r *profilesRepo) GetByID(ctx context.Context, id string) (models.Profile, error) {
	var p models.Profile
	err := r.pool.QueryRow(ctx, `SELECT `+profileCols+` FROM profiles WHERE id=$1`, id).
		Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt)
	return p, mapErr(err)
}

func (r *profilesRepo) GetByEmail(ctx context.Context, email string) (models.Profile, error) {
	var p models.Profile
	err := r.pool.QueryRow(ctx, `SELECT `+profileCols+` FROM profiles WHERE lower(email)=lower($1)`, email).
		Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt)
	return p, mapErr(err)
}
