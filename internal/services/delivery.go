package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/provider-payouts/internal/email"
	"github.com/baharkarakas/provider-payouts/internal/metrics"
	"github.com/baharkarakas/provider-payouts/internal/models"
	"github.com/baharkarakas/provider-payouts/internal/push"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
	"github.com/baharkarakas/provider-payouts/internal/worker"
)

const maxBackoff = time.Hour

// errPermanent marks a delivery that retrying cannot fix.
var errPermanent = errors.New("permanent delivery failure")

type DeliveryConfig struct {
	Batch       int
	MaxAttempts int
	BaseBackoff time.Duration
	Lease       time.Duration
}

type DrainStats struct {
	Claimed   int `json:"claimed"`
	Delivered int `json:"delivered"`
	Retried   int `json:"retried"`
	Dead      int `json:"dead"`
}

// Deliverer drains the notification outbox channel by channel.
type Deliverer struct {
	outbox        repo.Outbox
	notifications repo.Notifications
	devices       repo.DeviceTokens
	mailer        email.Sender
	push          push.Sender // nil disables the push channel
	pool          *worker.Pool
	cfg           DeliveryConfig
	log           *slog.Logger
	now           func() time.Time
}

func NewDeliverer(o repo.Outbox, n repo.Notifications, dt repo.DeviceTokens, m email.Sender, ps push.Sender,
	pool *worker.Pool, cfg DeliveryConfig, log *slog.Logger) *Deliverer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 2 * time.Minute
	}
	return &Deliverer{
		outbox: o, notifications: n, devices: dt, mailer: m, push: ps,
		pool: pool, cfg: cfg, log: log, now: time.Now,
	}
}

// Backoff is base·2^(attempts-1), capped at one hour.
func Backoff(base time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func (d *Deliverer) Drain(ctx context.Context) (DrainStats, error) {
	msgs, err := d.outbox.ClaimDue(ctx, d.now(), d.cfg.Lease, d.cfg.Batch)
	if err != nil {
		return DrainStats{}, fmt.Errorf("claim outbox: %w", err)
	}

	var (
		mu    sync.Mutex
		stats = DrainStats{Claimed: len(msgs)}
	)
	jobs := make([]func(), 0, len(msgs))
	for _, m := range msgs {
		m := m
		jobs = append(jobs, func() {
			outcome := d.deliverOne(ctx, m)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case models.OutboxDelivered:
				stats.Delivered++
			case models.OutboxPending:
				stats.Retried++
			case models.OutboxFailed:
				stats.Dead++
			}
		})
	}
	runErr := d.pool.Run(ctx, jobs)

	if depth, err := d.outbox.Depth(ctx); err == nil {
		metrics.OutboxDepth.Set(float64(depth))
	}
	if stats.Claimed > 0 {
		d.log.Info("outbox drained", "claimed", stats.Claimed, "delivered", stats.Delivered,
			"retried", stats.Retried, "dead", stats.Dead)
	}
	return stats, runErr
}

// deliverOne sends m and records the outcome; the returned status is what
// the row was moved to.
func (d *Deliverer) deliverOne(ctx context.Context, m models.OutboxMessage) models.OutboxStatus {
	ch := string(m.Channel)
	sendErr := d.send(ctx, m)
	attempts := m.Attempts + 1

	if sendErr == nil {
		if err := d.outbox.MarkDelivered(ctx, m.ID, d.now()); err != nil {
			d.log.Error("mark delivered failed", "outbox_id", m.ID, "err", err)
		}
		metrics.NotificationsDelivered.WithLabelValues(ch).Inc()
		return models.OutboxDelivered
	}

	if errors.Is(sendErr, errPermanent) || attempts >= d.cfg.MaxAttempts {
		if err := d.outbox.MarkFailed(ctx, m.ID, attempts, sendErr.Error()); err != nil {
			d.log.Error("mark failed failed", "outbox_id", m.ID, "err", err)
		}
		metrics.NotificationsFailed.WithLabelValues(ch, "dead").Inc()
		d.log.Error("notification dead-lettered",
			"outbox_id", m.ID, "channel", ch, "kind", m.Kind, "attempts", attempts, "err", sendErr)
		return models.OutboxFailed
	}

	next := d.now().Add(Backoff(d.cfg.BaseBackoff, attempts))
	if err := d.outbox.MarkRetry(ctx, m.ID, attempts, next, sendErr.Error()); err != nil {
		d.log.Error("mark retry failed", "outbox_id", m.ID, "err", err)
	}
	metrics.NotificationsFailed.WithLabelValues(ch, "retry").Inc()
	d.log.Warn("notification delivery failed, will retry",
		"outbox_id", m.ID, "channel", ch, "attempts", attempts, "next_attempt_at", next, "err", sendErr)
	return models.OutboxPending
}

func (d *Deliverer) send(ctx context.Context, m models.OutboxMessage) error {
	switch m.Channel {
	case models.ChannelEmail:
		return d.mailer.Send(ctx, m.Recipient, m.Payload.Subject, m.Payload.HTML)
	case models.ChannelInApp:
		outboxID := m.ID
		_, err := d.notifications.Create(ctx, models.Notification{
			ID:       uuid.NewString(),
			UserID:   m.UserID,
			Type:     m.Kind,
			Title:    m.Payload.Title,
			Message:  m.Payload.Message,
			Link:     m.Payload.Link,
			Metadata: m.Payload.Metadata,
			OutboxID: &outboxID,
		})
		return err
	case models.ChannelPush:
		return d.sendPush(ctx, m)
	}
	return fmt.Errorf("%w: unknown channel %q", errPermanent, m.Channel)
}

// sendPush delivers to one device. A push intent without a token is the
// per-event intent from Prepare: it is split into one child intent per
// registered device, so a failing device retries alone.
func (d *Deliverer) sendPush(ctx context.Context, m models.OutboxMessage) error {
	if d.push == nil {
		return fmt.Errorf("%w: push channel disabled", errPermanent)
	}
	if m.Recipient == "" {
		return d.fanOutPush(ctx, m)
	}
	data := map[string]string{"kind": string(m.Kind), "link": m.Payload.Link}
	err := d.push.Send(ctx, m.Recipient, m.Payload.Title, m.Payload.Message, data)
	if errors.Is(err, push.ErrInvalidToken) {
		if derr := d.devices.Delete(ctx, m.Recipient); derr != nil {
			d.log.Warn("prune device token failed", "err", derr)
		}
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
	return err
}

// fanOutPush enqueues one intent per device token. Child ids derive from the
// parent id and the token, so a replayed fan-out enqueues nothing new.
func (d *Deliverer) fanOutPush(ctx context.Context, m models.OutboxMessage) error {
	tokens, err := d.devices.ListByUser(ctx, m.UserID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}
	now := d.now()
	children := make([]models.OutboxMessage, 0, len(tokens))
	for _, t := range tokens {
		children = append(children, models.OutboxMessage{
			ID:            pushChildID(m.ID, t),
			Channel:       models.ChannelPush,
			Kind:          m.Kind,
			UserID:        m.UserID,
			Recipient:     t,
			Payload:       m.Payload,
			Status:        models.OutboxPending,
			NextAttemptAt: now,
			CreatedAt:     now,
		})
	}
	return d.outbox.Enqueue(ctx, children...)
}

func pushChildID(parentID, token string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("push:"+parentID+":"+token)).String()
}
