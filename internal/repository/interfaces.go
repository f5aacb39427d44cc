package repository

import (
	"context"
	"errors"
	"time"

	"github.com/baharkarakas/provider-payouts/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New("insufficient available balance")
	ErrCooldownActive    = errors.New("withdrawal cooldown active")
	ErrBalanceFrozen     = errors.New("balance frozen")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Profiles interface {
	GetByID(ctx context.Context, id string) (models.Profile, error)
	// GetByEmail is served by the unique index on lower(email).
	GetByEmail(ctx context.Context, email string) (models.Profile, error)
}

type Balances interface {
	Get(ctx context.Context, providerID string) (models.Balance, error)
	GetOrCreate(ctx context.Context, providerID string) (models.Balance, error)
}

type Settings interface {
	Load(ctx context.Context, defaults models.PlatformSettings) (models.PlatformSettings, error)
	Save(ctx context.Context, s models.PlatformSettings) error
}

// NewWithdrawal carries everything Withdrawals.Create needs to re-validate
// and persist a request atomically.
type NewWithdrawal struct {
	Request  models.WithdrawalRequest
	Cooldown time.Duration
	Now      time.Time
	Intents  []models.OutboxMessage
}

type Withdrawals interface {
	// Create locks the balance row, re-checks frozen/cooldown/open/available,
	// debits available_cents, stamps last_withdrawal_at, inserts the request
	// and the outbox intents in one transaction.
	Create(ctx context.Context, in NewWithdrawal) (models.WithdrawalRequest, models.Balance, error)
	GetByID(ctx context.Context, id string) (models.WithdrawalRequest, error)
	ListByProvider(ctx context.Context, providerID string, limit, offset int) ([]models.WithdrawalRequest, error)
	ListSince(ctx context.Context, providerID string, since time.Time) ([]models.WithdrawalRequest, error)
	HasOpen(ctx context.Context, providerID string) (bool, error)
	// Transition moves the request to `to`, settles the balance (completed
	// adds to withdrawn, failed returns to available) and enqueues intents.
	Transition(ctx context.Context, id string, to models.WithdrawalStatus, reason string, intents []models.OutboxMessage) (models.WithdrawalRequest, error)
}

type PaymentMethods interface {
	Create(ctx context.Context, pm models.PaymentMethod) (models.PaymentMethod, error)
	GetByID(ctx context.Context, id string) (models.PaymentMethod, error)
	ListByProvider(ctx context.Context, providerID string) ([]models.PaymentMethod, error)
	SetDefault(ctx context.Context, providerID, id string) error
	SetVerified(ctx context.Context, id string, verified bool) error
	// Update and Delete return ErrConflict while an open withdrawal
	// references the method. Deleted methods are hidden from every read.
	Update(ctx context.Context, providerID, id, label string, details map[string]string) (models.PaymentMethod, error)
	Delete(ctx context.Context, providerID, id string) error
}

type Notifications interface {
	// Create is idempotent on OutboxID: a replayed intent returns the existing row.
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	GetByID(ctx context.Context, id string) (models.Notification, error)
	ListByUser(ctx context.Context, userID string, limit, offset int, unreadOnly bool) ([]models.Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type DeviceTokens interface {
	Register(ctx context.Context, userID, token string) error
	ListByUser(ctx context.Context, userID string) ([]string, error)
	Delete(ctx context.Context, token string) error
}

type Outbox interface {
	// Enqueue skips intents whose id already exists.
	Enqueue(ctx context.Context, msgs ...models.OutboxMessage) error
	// ClaimDue leases up to limit due intents (pending and due, or processing
	// with an expired lease) and marks them processing.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]models.OutboxMessage, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	MarkRetry(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error
	Depth(ctx context.Context) (int64, error)
}

// PendingDeliverFunc sends the email for one due pending message; a non-nil
// error marks the row failed.
type PendingDeliverFunc func(ctx context.Context, p models.PendingMessageNotification) error

type PendingMessages interface {
	Create(ctx context.Context, p models.PendingMessageNotification) (models.PendingMessageNotification, error)
	GetByMessageID(ctx context.Context, messageID string) (models.PendingMessageNotification, error)
	CancelPending(ctx context.Context, conversationID, recipientID string, at time.Time) (int64, error)
	// ProcessDue claims pending rows with scheduled_for <= now inside one
	// transaction, calls fn for each and records sent or failed.
	ProcessDue(ctx context.Context, now time.Time, limit int, fn PendingDeliverFunc) ([]models.PendingMessageNotification, error)
}

type Refunds interface {
	Create(ctx context.Context, r models.RefundRequest) (models.RefundRequest, error)
	GetByID(ctx context.Context, id string) (models.RefundRequest, error)
	ListByOrder(ctx context.Context, orderID string) ([]models.RefundRequest, error)
	ListByRequester(ctx context.Context, userID string, limit, offset int) ([]models.RefundRequest, error)
	// UpdateStatus applies only while the row is still in `from`; otherwise ErrConflict.
	UpdateStatus(ctx context.Context, id string, from, to models.RefundStatus, notes string, refundedAt *time.Time) (models.RefundRequest, error)
}
