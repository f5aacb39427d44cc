package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/baharkarakas/provider-payouts/internal/metrics"
	"github.com/baharkarakas/provider-payouts/internal/models"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
)

// ValidateWithdrawal is the pure amount check. A max of 0 means no upper bound.
func ValidateWithdrawal(amount, available, minCents, maxCents int64, paymentMethodSelected bool) error {
	switch {
	case amount <= 0:
		return ErrInvalidAmount
	case amount < minCents:
		return withMessage(ErrBelowMinimum, "minimum withdrawal is "+FormatCents(minCents))
	case maxCents > 0 && amount > maxCents:
		return withMessage(ErrAboveMaximum, "maximum withdrawal is "+FormatCents(maxCents))
	case amount > available:
		return withMessage(ErrInsufficientFunds, "insufficient balance, available "+FormatCents(available))
	case !paymentMethodSelected:
		return ErrNoPaymentMethod
	}
	return nil
}

// ComputeFee returns the fee rounded half-up to the cent and the net payout.
func ComputeFee(amount int64, pct decimal.Decimal) (fee, net int64) {
	if amount <= 0 {
		return 0, 0
	}
	fee = decimal.NewFromInt(amount).Mul(pct).Div(decimal.NewFromInt(100)).Round(0).IntPart()
	return fee, amount - fee
}

// BalanceContext is everything needed to judge a withdrawal for one provider.
type BalanceContext struct {
	Balance        models.Balance
	Settings       models.PlatformSettings
	Cooldown       time.Duration
	HasOpenRequest bool
}

func (b BalanceContext) Available() int64 { return b.Balance.AvailableCents }

// CooldownRemaining is the time left in the window opened by the last withdrawal.
func (b BalanceContext) CooldownRemaining(now time.Time) time.Duration {
	if b.Balance.LastWithdrawalAt == nil {
		return 0
	}
	left := b.Balance.LastWithdrawalAt.Add(b.Cooldown).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func (b BalanceContext) CooldownActive(now time.Time) bool {
	return b.HasOpenRequest || b.CooldownRemaining(now) > 0
}

func (b BalanceContext) Fee(amount int64) (fee, net int64) {
	return ComputeFee(amount, decimal.NewFromFloat(b.Settings.FeePercentage))
}

// Validate applies the frozen and cooldown gates before the amount checks.
func (b BalanceContext) Validate(now time.Time, amount int64, paymentMethodSelected bool) error {
	if b.Balance.Frozen {
		return ErrBalanceFrozen
	}
	if b.HasOpenRequest {
		return withMessage(ErrCooldownActive, "a withdrawal is already in progress")
	}
	if left := b.CooldownRemaining(now); left > 0 {
		return withMessage(ErrCooldownActive, "next withdrawal available in "+left.Round(time.Minute).String())
	}
	return ValidateWithdrawal(amount, b.Available(), b.Settings.MinWithdrawalCents,
		b.Settings.MaxWithdrawalCents, paymentMethodSelected)
}

type WithdrawalConfig struct {
	Defaults models.PlatformSettings
	Cooldown time.Duration
}

type WithdrawalService struct {
	balances    repo.Balances
	settings    repo.Settings
	withdrawals repo.Withdrawals
	methods     repo.PaymentMethods
	dispatcher  *Dispatcher
	cfg         WithdrawalConfig
	log         *slog.Logger
	now         func() time.Time
}

func NewWithdrawalService(b repo.Balances, st repo.Settings, w repo.Withdrawals, pm repo.PaymentMethods,
	d *Dispatcher, cfg WithdrawalConfig, log *slog.Logger) *WithdrawalService {
	if log == nil {
		log = slog.Default()
	}
	return &WithdrawalService{
		balances: b, settings: st, withdrawals: w, methods: pm,
		dispatcher: d, cfg: cfg, log: log, now: time.Now,
	}
}

// Context loads balance, platform settings and open-request state concurrently.
func (s *WithdrawalService) Context(ctx context.Context, providerID string) (BalanceContext, error) {
	bc := BalanceContext{Cooldown: s.cfg.Cooldown}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.balances.GetOrCreate(gctx, providerID)
		bc.Balance = b
		return err
	})
	g.Go(func() error {
		st, err := s.settings.Load(gctx, s.cfg.Defaults)
		bc.Settings = st
		return err
	})
	g.Go(func() error {
		open, err := s.withdrawals.HasOpen(gctx, providerID)
		bc.HasOpenRequest = open
		return err
	})
	if err := g.Wait(); err != nil {
		return BalanceContext{}, persistence(err)
	}
	return bc, nil
}

// Check runs every gate Submit would run without writing anything.
func (s *WithdrawalService) Check(ctx context.Context, providerID string, amount int64, paymentMethodID string) (BalanceContext, error) {
	bc, err := s.Context(ctx, providerID)
	if err != nil {
		return BalanceContext{}, err
	}
	if err := bc.Validate(s.now(), amount, paymentMethodID != ""); err != nil {
		return bc, err
	}
	if _, err := uuid.Parse(paymentMethodID); err != nil {
		return bc, withMessage(ErrNoPaymentMethod, "payment method not found")
	}
	pm, err := s.methods.GetByID(ctx, paymentMethodID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return bc, withMessage(ErrNoPaymentMethod, "payment method not found")
	case err != nil:
		return bc, persistence(err)
	case pm.ProviderID != providerID:
		return bc, withMessage(ErrNoPaymentMethod, "payment method not found")
	case !pm.Verified:
		return bc, ErrUnverifiedMethod
	}
	return bc, nil
}

type SubmitResult struct {
	Request  models.WithdrawalRequest `json:"request"`
	Balance  models.Balance           `json:"balance"`
	FeeCents int64                    `json:"fee_cents"`
	NetCents int64                    `json:"net_cents"`
}

// Submit re-validates server side and persists the request, the balance
// debit and the notification intents in one transaction.
func (s *WithdrawalService) Submit(ctx context.Context, providerID string, amount int64, paymentMethodID string) (SubmitResult, error) {
	bc, err := s.Check(ctx, providerID, amount, paymentMethodID)
	if err != nil {
		s.reject(err)
		return SubmitResult{}, err
	}

	now := s.now()
	fee, net := bc.Fee(amount)
	req := models.WithdrawalRequest{
		ID:              uuid.NewString(),
		ProviderID:      providerID,
		AmountCents:     amount,
		FeeCents:        fee,
		PaymentMethodID: paymentMethodID,
		FeePercentage:   bc.Settings.FeePercentage,
		Status:          models.WithdrawalPending,
	}
	intents := s.intents(ctx, req)

	created, bal, err := s.withdrawals.Create(ctx, repo.NewWithdrawal{
		Request:  req,
		Cooldown: s.cfg.Cooldown,
		Now:      now,
		Intents:  intents,
	})
	if err != nil {
		err = mapWithdrawalRepoErr(err)
		s.reject(err)
		return SubmitResult{}, err
	}

	metrics.WithdrawalsRequested.Inc()
	s.log.Info("withdrawal requested",
		"withdrawal_id", created.ID, "provider_id", providerID,
		"amount_cents", amount, "fee_cents", fee)
	return SubmitResult{Request: created, Balance: bal, FeeCents: fee, NetCents: net}, nil
}

// UpdateStatus is the payout rail callback / admin action.
func (s *WithdrawalService) UpdateStatus(ctx context.Context, id string, to models.WithdrawalStatus, reason string) (models.WithdrawalRequest, error) {
	cur, err := s.withdrawals.GetByID(ctx, id)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	if !cur.Status.CanTransition(to) {
		return models.WithdrawalRequest{}, fmt.Errorf("%w: %s -> %s", repo.ErrInvalidTransition, cur.Status, to)
	}
	next := cur
	next.Status = to
	if reason != "" {
		next.FailureReason = &reason
	}

	out, err := s.withdrawals.Transition(ctx, id, to, reason, s.intents(ctx, next))
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	metrics.WithdrawalTransitions.WithLabelValues(string(to)).Inc()
	s.log.Info("withdrawal status changed", "withdrawal_id", id, "from", cur.Status, "to", to)
	return out, nil
}

func (s *WithdrawalService) List(ctx context.Context, providerID string, limit, offset int) ([]models.WithdrawalRequest, error) {
	return s.withdrawals.ListByProvider(ctx, providerID, limit, offset)
}

// Recent lists requests made inside the cooldown window.
func (s *WithdrawalService) Recent(ctx context.Context, providerID string) ([]models.WithdrawalRequest, error) {
	return s.withdrawals.ListSince(ctx, providerID, s.now().Add(-s.cfg.Cooldown))
}

func (s *WithdrawalService) Settings(ctx context.Context) (models.PlatformSettings, error) {
	return s.settings.Load(ctx, s.cfg.Defaults)
}

var ErrInvalidSettings = errors.New("invalid platform settings")

func (s *WithdrawalService) SaveSettings(ctx context.Context, st models.PlatformSettings) error {
	switch {
	case st.FeePercentage < 0 || st.FeePercentage >= 100:
		return fmt.Errorf("%w: fee percentage must be in [0, 100)", ErrInvalidSettings)
	case st.MinWithdrawalCents < 0 || st.MaxWithdrawalCents < 0:
		return fmt.Errorf("%w: limits must be non-negative", ErrInvalidSettings)
	case st.MaxWithdrawalCents > 0 && st.MaxWithdrawalCents < st.MinWithdrawalCents:
		return fmt.Errorf("%w: maximum below minimum", ErrInvalidSettings)
	}
	return s.settings.Save(ctx, st)
}

// intents builds the withdrawal-status notification. Failure to build it is
// logged and never blocks the withdrawal itself.
func (s *WithdrawalService) intents(ctx context.Context, w models.WithdrawalRequest) []models.OutboxMessage {
	if s.dispatcher == nil {
		return nil
	}
	data := map[string]string{
		"withdrawal_id": w.ID,
		"status":        string(w.Status),
		"amount_cents":  strconv.FormatInt(w.AmountCents, 10),
		"net_cents":     strconv.FormatInt(w.NetCents(), 10),
	}
	if w.FailureReason != nil {
		data["reason"] = *w.FailureReason
	}
	msgs, err := s.dispatcher.Prepare(ctx, Event{
		Kind:   models.KindWithdrawalStatus,
		UserID: w.ProviderID,
		Data:   data,
	})
	if err != nil {
		s.log.Warn("withdrawal notification not prepared", "withdrawal_id", w.ID, "err", err)
		return nil
	}
	return msgs
}

func (s *WithdrawalService) reject(err error) {
	var we *WithdrawalError
	kind := "other"
	if errors.As(err, &we) {
		kind = string(we.Kind)
	}
	metrics.WithdrawalsRejected.WithLabelValues(kind).Inc()
}

func mapWithdrawalRepoErr(err error) error {
	switch {
	case errors.Is(err, repo.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, repo.ErrCooldownActive):
		return ErrCooldownActive
	case errors.Is(err, repo.ErrBalanceFrozen):
		return ErrBalanceFrozen
	case errors.Is(err, repo.ErrNotFound):
		return withMessage(ErrNoPaymentMethod, "payment method not found")
	}
	return persistence(err)
}
