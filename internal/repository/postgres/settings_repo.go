package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/provider-payouts/internal/models"
)

type settingsRepo struct{ pool *pgxpool.Pool }

// Load overlays stored platform_settings rows on top of defaults. Rows that
// fail to parse are ignored so a bad admin edit cannot block withdrawals.
func (r *settingsRepo) Load(ctx context.Context, defaults models.PlatformSettings) (models.PlatformSettings, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM platform_settings WHERE key = ANY($1)`,
		[]string{models.SettingFeePercentage, models.SettingMinWithdrawalCents, models.SettingMaxWithdrawalCents})
	if err != nil {
		return defaults, err
	}
	defer rows.Close()

	s := defaults
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return defaults, err
		}
		switch k {
		case models.SettingFeePercentage:
			if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f < 100 {
				s.FeePercentage = f
			}
		case models.SettingMinWithdrawalCents:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
				s.MinWithdrawalCents = n
			}
		case models.SettingMaxWithdrawalCents:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
				s.MaxWithdrawalCents = n
			}
		}
	}
	return s, rows.Err()
}

func (r *settingsRepo) Save(ctx context.Context, s models.PlatformSettings) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		values := map[string]string{
			models.SettingFeePercentage:      strconv.FormatFloat(s.FeePercentage, 'f', -1, 64),
			models.SettingMinWithdrawalCents: strconv.FormatInt(s.MinWithdrawalCents, 10),
			models.SettingMaxWithdrawalCents: strconv.FormatInt(s.MaxWithdrawalCents, 10),
		}
		for k, v := range values {
			_, err := tx.Exec(ctx, `
INSERT INTO platform_settings(key, value, updated_at) VALUES($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, k, v)
			if err != nil {
				return fmt.Errorf("save setting %s: %w", k, err)
			}
		}
		return nil
	})
}
