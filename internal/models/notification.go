package models

import "time"

type NotificationKind string

const (
	KindNewOrder          NotificationKind = "new_order"
	KindOrderConfirmation NotificationKind = "order_confirmation"
	KindMessage           NotificationKind = "message"
	KindDelivery          NotificationKind = "delivery"
	KindRevisionRequest   NotificationKind = "revision_request"
	KindCancellation      NotificationKind = "cancellation"
	KindWithdrawalStatus  NotificationKind = "withdrawal_status"
	KindDispute           NotificationKind = "dispute"
)

var NotificationKinds = []NotificationKind{
	KindNewOrder, KindOrderConfirmation, KindMessage, KindDelivery,
	KindRevisionRequest, KindCancellation, KindWithdrawalStatus, KindDispute,
}

func (k NotificationKind) Valid() bool {
	for _, v := range NotificationKinds {
		if v == k {
			return true
		}
	}
	return false
}

// Notification is an in-app notification row.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationKind `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Link      string           `json:"link"`
	Metadata  map[string]any   `json:"metadata"`
	Read      bool             `json:"read"`
	OutboxID  *string          `json:"-"`
	CreatedAt time.Time        `json:"created_at"`
}

type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
