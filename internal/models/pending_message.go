package models

import "time"

type PendingStatus string

const (
	PendingStatusPending   PendingStatus = "pending"
	PendingStatusSent      PendingStatus = "sent"
	PendingStatusCancelled PendingStatus = "cancelled"
	PendingStatusFailed    PendingStatus = "failed"
)

type PendingMessageNotification struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	MessageID      string        `json:"message_id"`
	SenderID       string        `json:"sender_id"`
	RecipientID    string        `json:"recipient_id"`
	MessagePreview string        `json:"message_preview"`
	CreatedAt      time.Time     `json:"created_at"`
	ScheduledFor   time.Time     `json:"scheduled_for"`
	Status         PendingStatus `json:"status"`
	ProcessedAt    *time.Time    `json:"processed_at,omitempty"`
	LastError      *string       `json:"last_error,omitempty"`
}
