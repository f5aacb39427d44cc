package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/baharkarakas/provider-payouts/internal/models"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
)

var (
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrPaymentMethodInUse   = errors.New("payment method is used by an open withdrawal")
)

var paymentMethodTypes = map[string]bool{
	"bank_transfer": true,
	"paypal":        true,
	"wise":          true,
	"payoneer":      true,
}

type NewPaymentMethod struct {
	Type      string            `json:"type"`
	Label     string            `json:"label"`
	Details   map[string]string `json:"details"`
	IsDefault bool              `json:"is_default"`
}

// UpdatePaymentMethod edits a method in place. Nil Details keeps the stored
// details; changed details drop the verified flag.
type UpdatePaymentMethod struct {
	Label   string            `json:"label"`
	Details map[string]string `json:"details"`
}

type PaymentMethodService struct{ r repo.PaymentMethods }

func NewPaymentMethodService(r repo.PaymentMethods) *PaymentMethodService {
	return &PaymentMethodService{r: r}
}

func (s *PaymentMethodService) Create(ctx context.Context, providerID string, in NewPaymentMethod) (models.PaymentMethod, error) {
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.Label = strings.TrimSpace(in.Label)
	if !paymentMethodTypes[in.Type] {
		return models.PaymentMethod{}, fmt.Errorf("%w: unsupported type %q", ErrInvalidPaymentMethod, in.Type)
	}
	if in.Label == "" {
		return models.PaymentMethod{}, fmt.Errorf("%w: label is required", ErrInvalidPaymentMethod)
	}
	return s.r.Create(ctx, models.PaymentMethod{
		ID:         uuid.NewString(),
		ProviderID: providerID,
		Type:       in.Type,
		Label:      in.Label,
		Details:    in.Details,
		IsDefault:  in.IsDefault,
	})
}

func (s *PaymentMethodService) List(ctx context.Context, providerID string) ([]models.PaymentMethod, error) {
	return s.r.ListByProvider(ctx, providerID)
}

func (s *PaymentMethodService) SetDefault(ctx context.Context, providerID, id string) error {
	return s.r.SetDefault(ctx, providerID, id)
}

func (s *PaymentMethodService) Update(ctx context.Context, providerID, id string, in UpdatePaymentMethod) (models.PaymentMethod, error) {
	in.Label = strings.TrimSpace(in.Label)
	if in.Label == "" {
		return models.PaymentMethod{}, fmt.Errorf("%w: label is required", ErrInvalidPaymentMethod)
	}
	pm, err := s.r.Update(ctx, providerID, id, in.Label, in.Details)
	if errors.Is(err, repo.ErrConflict) {
		return models.PaymentMethod{}, ErrPaymentMethodInUse
	}
	return pm, err
}

// Delete hides the method from the provider. Withdrawals that used it keep
// their reference.
func (s *PaymentMethodService) Delete(ctx context.Context, providerID, id string) error {
	err := s.r.Delete(ctx, providerID, id)
	if errors.Is(err, repo.ErrConflict) {
		return ErrPaymentMethodInUse
	}
	return err
}

// Verify is the admin confirmation that payout details are valid.
func (s *PaymentMethodService) Verify(ctx context.Context, id string, verified bool) error {
	return s.r.SetVerified(ctx, id, verified)
}
