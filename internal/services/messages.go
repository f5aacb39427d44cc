package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/provider-payouts/internal/email"
	"github.com/baharkarakas/provider-payouts/internal/metrics"
	"github.com/baharkarakas/provider-payouts/internal/models"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
)

const previewRunes = 200

var ErrInvalidMessage = errors.New("invalid message")

type TrackedMessage struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
	RecipientID    string `json:"recipient_id"`
	Content        string `json:"content"`
}

type MessageTrackerConfig struct {
	Delay  time.Duration
	Batch  int
	AppURL string
}

type SweepStats struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// MessageTracker emails the recipient of a message only when they have not
// replied within Delay.
type MessageTracker struct {
	pending  repo.PendingMessages
	profiles repo.Profiles
	mailer   email.Sender
	cfg      MessageTrackerConfig
	log      *slog.Logger
	now      func() time.Time
}

func NewMessageTracker(p repo.PendingMessages, pr repo.Profiles, m email.Sender, cfg MessageTrackerConfig, log *slog.Logger) *MessageTracker {
	if log == nil {
		log = slog.Default()
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	return &MessageTracker{pending: p, profiles: pr, mailer: m, cfg: cfg, log: log, now: time.Now}
}

// Track schedules the delayed email. Tracking the same message twice returns
// the existing row.
func (t *MessageTracker) Track(ctx context.Context, msg TrackedMessage) (models.PendingMessageNotification, error) {
	switch {
	case msg.ConversationID == "" || msg.MessageID == "" || msg.SenderID == "" || msg.RecipientID == "":
		return models.PendingMessageNotification{}, fmt.Errorf("%w: ids are required", ErrInvalidMessage)
	case msg.SenderID == msg.RecipientID:
		return models.PendingMessageNotification{}, fmt.Errorf("%w: sender and recipient are the same user", ErrInvalidMessage)
	}

	now := t.now()
	p, err := t.pending.Create(ctx, models.PendingMessageNotification{
		ID:             uuid.NewString(),
		ConversationID: msg.ConversationID,
		MessageID:      msg.MessageID,
		SenderID:       msg.SenderID,
		RecipientID:    msg.RecipientID,
		MessagePreview: truncateRunes(strings.TrimSpace(msg.Content), previewRunes),
		CreatedAt:      now,
		ScheduledFor:   now.Add(t.cfg.Delay),
		Status:         models.PendingStatusPending,
	})
	if errors.Is(err, repo.ErrConflict) {
		return t.pending.GetByMessageID(ctx, msg.MessageID)
	}
	return p, err
}

// CancelPending is called when userID replies in the conversation.
func (t *MessageTracker) CancelPending(ctx context.Context, conversationID, userID string) (int64, error) {
	n, err := t.pending.CancelPending(ctx, conversationID, userID, t.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.PendingMessagesSwept.WithLabelValues(string(models.PendingStatusCancelled)).Add(float64(n))
		t.log.Debug("pending message notifications cancelled", "conversation_id", conversationID, "count", n)
	}
	return n, nil
}

// ProcessPending sends every due pending notification. Rows already sent,
// failed or cancelled are never selected, so repeated runs are no-ops.
func (t *MessageTracker) ProcessPending(ctx context.Context) (SweepStats, error) {
	rows, err := t.pending.ProcessDue(ctx, t.now(), t.cfg.Batch, t.deliver)
	if err != nil {
		return SweepStats{}, fmt.Errorf("process pending messages: %w", err)
	}
	var st SweepStats
	for _, p := range rows {
		switch p.Status {
		case models.PendingStatusSent:
			st.Sent++
		case models.PendingStatusFailed:
			st.Failed++
			t.log.Warn("message notification failed", "message_id", p.MessageID, "err", deref(p.LastError))
		}
		metrics.PendingMessagesSwept.WithLabelValues(string(p.Status)).Inc()
	}
	if len(rows) > 0 {
		t.log.Info("message notification sweep", "sent", st.Sent, "failed", st.Failed)
	}
	return st, nil
}

func (t *MessageTracker) deliver(ctx context.Context, p models.PendingMessageNotification) error {
	recipient, err := t.profiles.GetByID(ctx, p.RecipientID)
	if err != nil {
		return fmt.Errorf("recipient %s: %w", p.RecipientID, err)
	}
	senderName := "Someone"
	if sender, err := t.profiles.GetByID(ctx, p.SenderID); err == nil && sender.FullName != "" {
		senderName = sender.FullName
	}

	html, err := email.Render(email.Message{
		Kind:          models.KindMessage,
		RecipientName: recipient.FullName,
		Title:         "New message from " + senderName,
		Body:          p.MessagePreview,
		ActionURL:     t.cfg.AppURL + "/messages/" + p.ConversationID,
		ActionLabel:   "Reply",
	})
	if err != nil {
		return err
	}
	return t.mailer.Send(ctx, recipient.Email, "New message from "+senderName, html)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
