package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/provider-payouts/internal/email"
	"github.com/baharkarakas/provider-payouts/internal/models"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
)

var (
	ErrUnknownKind      = errors.New("unknown notification kind")
	ErrRecipientUnknown = errors.New("notification recipient could not be resolved")
)

// Event is one business occurrence to fan out. UserID wins over Email when both are set.
type Event struct {
	Kind   models.NotificationKind `json:"kind"`
	UserID string                  `json:"user_id,omitempty"`
	Email  string                  `json:"email,omitempty"`
	Data   map[string]string       `json:"data,omitempty"`
}

type DispatcherConfig struct {
	AppURL      string
	PushEnabled bool
}

// Dispatcher turns events into per-channel outbox intents. It never sends
// anything itself; the Deliverer drains what it writes.
type Dispatcher struct {
	profiles repo.Profiles
	outbox   repo.Outbox
	cfg      DispatcherConfig
	log      *slog.Logger
	now      func() time.Time
}

func NewDispatcher(p repo.Profiles, o repo.Outbox, cfg DispatcherConfig, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	return &Dispatcher{profiles: p, outbox: o, cfg: cfg, log: log, now: time.Now}
}

// ResolveUserID maps an email address to a profile id through the lower(email) index.
func (d *Dispatcher) ResolveUserID(ctx context.Context, addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", ErrRecipientUnknown
	}
	p, err := d.profiles.GetByEmail(ctx, addr)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrRecipientUnknown
	}
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// Prepare renders ev into one intent per enabled channel.
func (d *Dispatcher) Prepare(ctx context.Context, ev Event) ([]models.OutboxMessage, error) {
	if !ev.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, ev.Kind)
	}

	userID := ev.UserID
	if userID == "" {
		id, err := d.ResolveUserID(ctx, ev.Email)
		if err != nil {
			return nil, err
		}
		userID = id
	}

	addr, name := ev.Email, ""
	p, err := d.profiles.GetByID(ctx, userID)
	switch {
	case err == nil:
		addr, name = p.Email, p.FullName
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}

	c := renderContent(ev.Kind, ev.Data)
	link := ""
	if c.Path != "" {
		link = d.cfg.AppURL + c.Path
	}
	meta := make(map[string]any, len(ev.Data))
	for k, v := range ev.Data {
		meta[k] = v
	}

	now := d.now()
	newIntent := func(ch models.Channel, recipient string, payload models.OutboxPayload) models.OutboxMessage {
		return models.OutboxMessage{
			ID:            uuid.NewString(),
			Channel:       ch,
			Kind:          ev.Kind,
			UserID:        userID,
			Recipient:     recipient,
			Payload:       payload,
			Status:        models.OutboxPending,
			NextAttemptAt: now,
		}
	}

	msgs := []models.OutboxMessage{
		newIntent(models.ChannelInApp, "", models.OutboxPayload{
			Title: c.Title, Message: c.Message, Link: link, Metadata: meta,
		}),
	}
	if addr != "" {
		html, err := email.Render(email.Message{
			Kind:          ev.Kind,
			RecipientName: name,
			Title:         c.Title,
			Body:          c.Message,
			Details:       c.Details,
			ActionURL:     link,
			ActionLabel:   c.Action,
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, newIntent(models.ChannelEmail, addr, models.OutboxPayload{
			Subject: c.Subject, HTML: html,
		}))
	} else {
		d.log.Warn("no email address for recipient, skipping email", "kind", ev.Kind, "user_id", userID)
	}
	if d.cfg.PushEnabled {
		msgs = append(msgs, newIntent(models.ChannelPush, "", models.OutboxPayload{
			Title: c.Title, Message: c.Message, Link: link, Metadata: meta,
		}))
	}
	return msgs, nil
}

// Dispatch prepares and enqueues ev. Only a malformed event is returned as an
// error; resolution and storage failures are logged.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	msgs, err := d.Prepare(ctx, ev)
	if errors.Is(err, ErrUnknownKind) {
		return err
	}
	if err != nil {
		d.log.Warn("notification not prepared", "kind", ev.Kind, "user_id", ev.UserID, "err", err)
		return nil
	}
	if err := d.outbox.Enqueue(ctx, msgs...); err != nil {
		d.log.Error("notification not enqueued", "kind", ev.Kind, "err", err)
		return nil
	}
	d.log.Debug("notification enqueued", "kind", ev.Kind, "intents", len(msgs))
	return nil
}

type content struct {
	Subject string
	Title   string
	Message string
	Path    string
	Action  string
	Details []email.Detail
}

func renderContent(kind models.NotificationKind, data map[string]string) content {
	get := func(k, fallback string) string {
		if v := strings.TrimSpace(data[k]); v != "" {
			return v
		}
		return fallback
	}
	money := func(k string) string {
		n, err := strconv.ParseInt(data[k], 10, 64)
		if err != nil {
			return ""
		}
		return FormatCents(n)
	}
	service := get("service_title", "your service")
	orderID := data["order_id"]
	orderPath := ""
	if orderID != "" {
		orderPath = "/orders/" + orderID
	}

	var c content
	switch kind {
	case models.KindNewOrder:
		c = content{
			Subject: "New order: " + service,
			Title:   "New order received",
			Message: fmt.Sprintf("%s ordered %q.", get("buyer_name", "A client"), service),
			Path:    "/provider/orders/" + orderID,
			Action:  "View order",
		}
	case models.KindOrderConfirmation:
		c = content{
			Subject: "Order confirmed: " + service,
			Title:   "Order confirmed",
			Message: fmt.Sprintf("Your order for %q has been placed.", service),
			Path:    orderPath,
			Action:  "View order",
		}
	case models.KindMessage:
		c = content{
			Subject: "New message from " + get("sender_name", "a user"),
			Title:   "New message",
			Message: get("message_preview", "You have a new message."),
			Path:    "/messages/" + data["conversation_id"],
			Action:  "Reply",
		}
	case models.KindDelivery:
		c = content{
			Subject: "Your order has been delivered",
			Title:   "Order delivered",
			Message: fmt.Sprintf("The provider delivered %q. Please review the delivery.", service),
			Path:    orderPath,
			Action:  "Review delivery",
		}
	case models.KindRevisionRequest:
		c = content{
			Subject: "Revision requested: " + service,
			Title:   "Revision requested",
			Message: get("note", "The client asked for changes to the delivery."),
			Path:    "/provider/orders/" + orderID,
			Action:  "View request",
		}
	case models.KindCancellation:
		c = content{
			Subject: "Order cancelled: " + service,
			Title:   "Order cancelled",
			Message: fmt.Sprintf("The order for %q was cancelled. %s", service, get("reason", "")),
			Path:    orderPath,
		}
	case models.KindWithdrawalStatus:
		status := get("status", "updated")
		c = content{
			Subject: "Withdrawal " + status,
			Title:   "Withdrawal " + status,
			Message: withdrawalMessage(status, money("amount_cents"), get("reason", "")),
			Path:    "/provider/earnings",
			Action:  "View earnings",
		}
	case models.KindDispute:
		c = content{
			Subject: "Dispute opened on your order",
			Title:   "Dispute opened",
			Message: get("reason", "A dispute was opened and is under review."),
			Path:    orderPath,
			Action:  "View dispute",
		}
	}
	c.Message = strings.TrimSpace(c.Message)
	if strings.HasSuffix(c.Path, "/") {
		c.Path = ""
	}

	for _, k := range []struct{ key, label string }{
		{"order_id", "Order"},
		{"withdrawal_id", "Withdrawal"},
		{"dispute_id", "Dispute"},
	} {
		if v := data[k.key]; v != "" {
			c.Details = append(c.Details, email.Detail{Label: k.label, Value: v})
		}
	}
	if v := money("amount_cents"); v != "" {
		c.Details = append(c.Details, email.Detail{Label: "Amount", Value: v})
	}
	if v := money("net_cents"); v != "" {
		c.Details = append(c.Details, email.Detail{Label: "You receive", Value: v})
	}
	return c
}

func withdrawalMessage(status, amount, reason string) string {
	if amount == "" {
		amount = "your withdrawal"
	}
	switch models.WithdrawalStatus(status) {
	case models.WithdrawalPending:
		return fmt.Sprintf("We received your request to withdraw %s.", amount)
	case models.WithdrawalProcessing:
		return fmt.Sprintf("Your withdrawal of %s is being processed.", amount)
	case models.WithdrawalCompleted:
		return fmt.Sprintf("Your withdrawal of %s has been sent.", amount)
	case models.WithdrawalFailed:
		msg := fmt.Sprintf("Your withdrawal of %s failed and the funds were returned to your balance.", amount)
		if reason != "" {
			msg += " Reason: " + reason
		}
		return msg
	}
	return "Your withdrawal status changed to " + status + "."
}
