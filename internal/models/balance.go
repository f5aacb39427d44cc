package models

import "time"

// Balance is a provider's earnings ledger snapshot. All amounts are cents.
type Balance struct {
	ProviderID       string     `json:"provider_id"`
	AvailableCents   int64      `json:"available_cents"`
	PendingCents     int64      `json:"pending_cents"`
	TotalEarnedCents int64      `json:"total_earned_cents"`
	WithdrawnCents   int64      `json:"withdrawn_cents"`
	Currency         string     `json:"currency"`
	LastWithdrawalAt *time.Time `json:"last_withdrawal_at,omitempty"`
	Frozen           bool       `json:"frozen"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// PlatformSettings are the admin-tunable withdrawal parameters.
type PlatformSettings struct {
	FeePercentage      float64 `json:"fee_percentage"`
	MinWithdrawalCents int64   `json:"min_withdrawal_cents"`
	MaxWithdrawalCents int64   `json:"max_withdrawal_cents"` // 0 means no upper bound
}

const (
	SettingFeePercentage      = "withdrawal_fee_percentage"
	SettingMinWithdrawalCents = "min_withdrawal_cents"
	SettingMaxWithdrawalCents = "max_withdrawal_cents"
)
