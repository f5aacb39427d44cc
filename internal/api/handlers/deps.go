package handlers

import (
	"context"

	"github.com/baharkarakas/provider-payouts/internal/models"
	"github.com/baharkarakas/provider-payouts/internal/services"
)

// The interfaces below are the slices of the services each handler uses.

type Withdrawals interface {
	Check(ctx context.Context, providerID string, amount int64, paymentMethodID string) (services.BalanceContext, error)
	Submit(ctx context.Context, providerID string, amount int64, paymentMethodID string) (services.SubmitResult, error)
	UpdateStatus(ctx context.Context, id string, to models.WithdrawalStatus, reason string) (models.WithdrawalRequest, error)
	List(ctx context.Context, providerID string, limit, offset int) ([]models.WithdrawalRequest, error)
	Recent(ctx context.Context, providerID string) ([]models.WithdrawalRequest, error)
	Settings(ctx context.Context) (models.PlatformSettings, error)
	SaveSettings(ctx context.Context, st models.PlatformSettings) error
}

type Earnings interface {
	Summary(ctx context.Context, providerID, displayCurrency string) (services.EarningsSummary, error)
}

type PaymentMethods interface {
	Create(ctx context.Context, providerID string, in services.NewPaymentMethod) (models.PaymentMethod, error)
	List(ctx context.Context, providerID string) ([]models.PaymentMethod, error)
	Update(ctx context.Context, providerID, id string, in services.UpdatePaymentMethod) (models.PaymentMethod, error)
	SetDefault(ctx context.Context, providerID, id string) error
	Delete(ctx context.Context, providerID, id string) error
	Verify(ctx context.Context, id string, verified bool) error
}

type Notifications interface {
	List(ctx context.Context, userID string, limit, offset int, unreadOnly bool) (services.NotificationPage, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	RegisterDevice(ctx context.Context, userID, token string) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev services.Event) error
}

type Messages interface {
	Track(ctx context.Context, msg services.TrackedMessage) (models.PendingMessageNotification, error)
	CancelPending(ctx context.Context, conversationID, userID string) (int64, error)
	ProcessPending(ctx context.Context) (services.SweepStats, error)
}

type Refunds interface {
	Create(ctx context.Context, requestedBy string, in services.NewRefund) (models.RefundRequest, error)
	ListByOrder(ctx context.Context, orderID string) ([]models.RefundRequest, error)
	ListMine(ctx context.Context, userID string, limit, offset int) ([]models.RefundRequest, error)
	Transition(ctx context.Context, id string, to models.RefundStatus, notes string) (models.RefundRequest, error)
}

type Drainer interface {
	Drain(ctx context.Context) (services.DrainStats, error)
}
