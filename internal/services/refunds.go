package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/provider-payouts/internal/models"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
)

var ErrInvalidRefund = errors.New("invalid refund request")

type NewRefund struct {
	OrderID       string `json:"order_id"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	Reason        string `json:"reason"`
	ReasonDetails string `json:"reason_details"`
}

type RefundService struct {
	r   repo.Refunds
	now func() time.Time
}

func NewRefundService(r repo.Refunds) *RefundService {
	return &RefundService{r: r, now: time.Now}
}

func (s *RefundService) Create(ctx context.Context, requestedBy string, in NewRefund) (models.RefundRequest, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	switch {
	case in.OrderID == "":
		return models.RefundRequest{}, fmt.Errorf("%w: order_id is required", ErrInvalidRefund)
	case uuid.Validate(in.OrderID) != nil:
		return models.RefundRequest{}, fmt.Errorf("%w: order_id must be a uuid", ErrInvalidRefund)
	case in.AmountCents <= 0:
		return models.RefundRequest{}, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidRefund)
	case in.Reason == "":
		return models.RefundRequest{}, fmt.Errorf("%w: reason is required", ErrInvalidRefund)
	}
	if in.Currency == "" {
		in.Currency = "USD"
	}
	return s.r.Create(ctx, models.RefundRequest{
		ID:            uuid.NewString(),
		OrderID:       in.OrderID,
		RequestedBy:   requestedBy,
		AmountCents:   in.AmountCents,
		Currency:      strings.ToUpper(in.Currency),
		Status:        models.RefundPending,
		Reason:        in.Reason,
		ReasonDetails: strings.TrimSpace(in.ReasonDetails),
	})
}

func (s *RefundService) ListByOrder(ctx context.Context, orderID string) ([]models.RefundRequest, error) {
	return s.r.ListByOrder(ctx, orderID)
}

func (s *RefundService) ListMine(ctx context.Context, userID string, limit, offset int) ([]models.RefundRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.r.ListByRequester(ctx, userID, limit, offset)
}

// Transition moves a refund along its lifecycle and appends notes to the
// admin log. completed stamps refunded_at.
func (s *RefundService) Transition(ctx context.Context, id string, to models.RefundStatus, notes string) (models.RefundRequest, error) {
	cur, err := s.r.GetByID(ctx, id)
	if err != nil {
		return models.RefundRequest{}, err
	}
	if !cur.Status.CanTransition(to) {
		return models.RefundRequest{}, fmt.Errorf("%w: %s -> %s", repo.ErrInvalidTransition, cur.Status, to)
	}

	combined := ""
	if notes = strings.TrimSpace(notes); notes != "" {
		entry := fmt.Sprintf("[%s] %s: %s", s.now().UTC().Format(time.RFC3339), to, notes)
		combined = strings.TrimSpace(cur.AdminNotes + "\n" + entry)
	}
	var refundedAt *time.Time
	if to == models.RefundCompleted {
		t := s.now()
		refundedAt = &t
	}
	return s.r.UpdateStatus(ctx, id, cur.Status, to, combined, refundedAt)
}
