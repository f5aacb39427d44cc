package models

import "time"

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in_app"
	ChannelPush  Channel = "push"
)

type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxDelivered  OutboxStatus = "delivered"
	OutboxFailed     OutboxStatus = "failed"
)

// OutboxMessage is one durable delivery intent for one channel.
type OutboxMessage struct {
	ID            string           `json:"id"`
	Channel       Channel          `json:"channel"`
	Kind          NotificationKind `json:"kind"`
	UserID        string           `json:"user_id"`
	Recipient     string           `json:"recipient"` // email address or device token
	Payload       OutboxPayload    `json:"payload"`
	Status        OutboxStatus     `json:"status"`
	Attempts      int              `json:"attempts"`
	LastError     *string          `json:"last_error,omitempty"`
	NextAttemptAt time.Time        `json:"next_attempt_at"`
	CreatedAt     time.Time        `json:"created_at"`
	DeliveredAt   *time.Time       `json:"delivered_at,omitempty"`
}

// OutboxPayload is the rendered content. Email uses Subject/HTML, in-app and
// push use Title/Message/Link.
type OutboxPayload struct {
	Subject  string         `json:"subject,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Title    string         `json:"title,omitempty"`
	Message  string         `json:"message,omitempty"`
	Link     string         `json:"link,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
