package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type deviceTokensRepo struct{ pool *pgxpool.Pool }

// Register upserts the token; a token moving between accounts follows the latest login.
func (r *deviceTokensRepo) Register(ctx context.Context, userID, token string) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO device_tokens(token, user_id) VALUES ($1,$2)
ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, created_at = now()`, token, userID)
	return mapErr(err)
}

func (r *deviceTokensRepo) ListByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT token FROM device_tokens WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *deviceTokensRepo) Delete(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM device_tokens WHERE token=$1`, token)
	return err
}
