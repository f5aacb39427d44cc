package models

import "time"

type RefundStatus string

const (
	RefundPending    RefundStatus = "pending"
	RefundApproved   RefundStatus = "approved"
	RefundRejected   RefundStatus = "rejected"
	RefundProcessing RefundStatus = "processing"
	RefundCompleted  RefundStatus = "completed"
	RefundFailed     RefundStatus = "failed"
)

var refundTransitions = map[RefundStatus][]RefundStatus{
	RefundPending:    {RefundApproved, RefundRejected},
	RefundApproved:   {RefundProcessing},
	RefundProcessing: {RefundCompleted, RefundFailed},
}

func (s RefundStatus) CanTransition(to RefundStatus) bool {
	for _, v := range refundTransitions[s] {
		if v == to {
			return true
		}
	}
	return false
}

type RefundRequest struct {
	ID            string       `json:"id"`
	OrderID       string       `json:"order_id"`
	RequestedBy   string       `json:"requested_by"`
	AmountCents   int64        `json:"amount_cents"`
	Currency      string       `json:"currency"`
	Status        RefundStatus `json:"status"`
	Reason        string       `json:"reason"`
	ReasonDetails string       `json:"reason_details"`
	AdminNotes    string       `json:"admin_notes"`
	RefundedAt    *time.Time   `json:"refunded_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}
