package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/provider-payouts/internal/currency"
	"github.com/baharkarakas/provider-payouts/internal/models"
)

type CurrencyConverter interface {
	ConvertFromUSD(ctx context.Context, cents int64, code string) (currency.Conversion, error)
}

type ConvertedEarnings struct {
	Currency  string `json:"currency"`
	Rate      string `json:"rate"`
	Available string `json:"available"`
	Pending   string `json:"pending"`
	Total     string `json:"total"`
}

type EarningsSummary struct {
	Balance                  models.Balance          `json:"balance"`
	Settings                 models.PlatformSettings `json:"settings"`
	CanWithdraw              bool                    `json:"can_withdraw"`
	HasOpenRequest           bool                    `json:"has_open_request"`
	CooldownRemainingSeconds int64                   `json:"cooldown_remaining_seconds"`
	Converted                *ConvertedEarnings      `json:"converted,omitempty"`
}

type EarningsService struct {
	withdrawals *WithdrawalService
	converter   CurrencyConverter
	log         *slog.Logger
	now         func() time.Time
}

func NewEarningsService(w *WithdrawalService, c CurrencyConverter, log *slog.Logger) *EarningsService {
	if log == nil {
		log = slog.Default()
	}
	return &EarningsService{withdrawals: w, converter: c, log: log, now: time.Now}
}

// Summary reports the provider's balance. displayCurrency is advisory; a
// failed conversion is logged and omitted.
func (s *EarningsService) Summary(ctx context.Context, providerID, displayCurrency string) (EarningsSummary, error) {
	bc, err := s.withdrawals.Context(ctx, providerID)
	if err != nil {
		return EarningsSummary{}, err
	}
	now := s.now()
	out := EarningsSummary{
		Balance:                  bc.Balance,
		Settings:                 bc.Settings,
		HasOpenRequest:           bc.HasOpenRequest,
		CanWithdraw:              !bc.Balance.Frozen && !bc.CooldownActive(now) && bc.Available() >= bc.Settings.MinWithdrawalCents && bc.Available() > 0,
		CooldownRemainingSeconds: int64(bc.CooldownRemaining(now).Seconds()),
	}
	if displayCurrency == "" || s.converter == nil {
		return out, nil
	}

	conv, err := s.convert(ctx, bc.Balance, displayCurrency)
	if err != nil {
		s.log.Warn("currency conversion skipped", "currency", displayCurrency, "err", err)
		return out, nil
	}
	out.Converted = conv
	return out, nil
}

func (s *EarningsService) convert(ctx context.Context, b models.Balance, cur string) (*ConvertedEarnings, error) {
	avail, err := s.converter.ConvertFromUSD(ctx, b.AvailableCents, cur)
	if err != nil {
		return nil, err
	}
	// rates are cached after the first lookup
	pending, err := s.converter.ConvertFromUSD(ctx, b.PendingCents, cur)
	if err != nil {
		return nil, err
	}
	total, err := s.converter.ConvertFromUSD(ctx, b.TotalEarnedCents, cur)
	if err != nil {
		return nil, err
	}
	return &ConvertedEarnings{
		Currency:  avail.Currency,
		Rate:      avail.Rate.String(),
		Available: avail.Amount.StringFixed(2),
		Pending:   pending.Amount.StringFixed(2),
		Total:     total.Amount.StringFixed(2),
	}, nil
}
