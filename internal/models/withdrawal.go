package models

import "time"

type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
	WithdrawalFailed     WithdrawalStatus = "failed"
)

// Open reports whether the request still holds funds and blocks a new one.
func (s WithdrawalStatus) Open() bool {
	return s == WithdrawalPending || s == WithdrawalProcessing
}

// CanTransition encodes pending -> processing -> completed|failed.
func (s WithdrawalStatus) CanTransition(to WithdrawalStatus) bool {
	switch s {
	case WithdrawalPending:
		return to == WithdrawalProcessing
	case WithdrawalProcessing:
		return to == WithdrawalCompleted || to == WithdrawalFailed
	}
	return false
}

type WithdrawalRequest struct {
	ID              string           `json:"id"`
	ProviderID      string           `json:"provider_id"`
	AmountCents     int64            `json:"amount_cents"`
	FeeCents        int64            `json:"fee_cents"`
	PaymentMethodID string           `json:"payment_method_id"`
	FeePercentage   float64          `json:"fee_percentage"`
	Status          WithdrawalStatus `json:"status"`
	FailureReason   *string          `json:"failure_reason,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (w WithdrawalRequest) NetCents() int64 { return w.AmountCents - w.FeeCents }
