package services

import (
	"context"
	"errors"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/baharkarakas/provider-payouts/internal/models"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
)

// memStore backs every repository interface with maps guarded by one mutex.
type memStore struct {
	mu            sync.Mutex
	profiles      map[string]models.Profile
	balances      map[string]models.Balance
	settings      *models.PlatformSettings
	withdrawals   map[string]models.WithdrawalRequest
	methods       map[string]models.PaymentMethod
	removed       map[string]models.PaymentMethod
	notifications map[string]models.Notification
	devices       map[string]string // token -> user
	outbox        map[string]models.OutboxMessage
	pending       map[string]models.PendingMessageNotification
	refunds       map[string]models.RefundRequest

	failOutbox bool
}

func newMemStore() *memStore {
	return &memStore{
		profiles:      map[string]models.Profile{},
		balances:      map[string]models.Balance{},
		withdrawals:   map[string]models.WithdrawalRequest{},
		methods:       map[string]models.PaymentMethod{},
		removed:       map[string]models.PaymentMethod{},
		notifications: map[string]models.Notification{},
		devices:       map[string]string{},
		outbox:        map[string]models.OutboxMessage{},
		pending:       map[string]models.PendingMessageNotification{},
		refunds:       map[string]models.RefundRequest{},
	}
}

// ---- profiles

type memProfiles struct{ s *memStore }

func (r memProfiles) GetByID(_ context.Context, id string) (models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return models.Profile{}, repo.ErrNotFound
	}
	return p, nil
}

func (r memProfiles) GetByEmail(_ context.Context, addr string) (models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.profiles {
		if strings.EqualFold(p.Email, addr) {
			return p, nil
		}
	}
	return models.Profile{}, repo.ErrNotFound
}

// ---- balances / settings

type memBalances struct{ s *memStore }

func (r memBalances) Get(_ context.Context, id string) (models.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.balances[id]
	if !ok {
		return models.Balance{}, repo.ErrNotFound
	}
	return b, nil
}

func (r memBalances) GetOrCreate(_ context.Context, id string) (models.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.balances[id]
	if !ok {
		b = models.Balance{ProviderID: id, Currency: "USD"}
		r.s.balances[id] = b
	}
	return b, nil
}

type memSettings struct{ s *memStore }

func (r memSettings) Load(_ context.Context, d models.PlatformSettings) (models.PlatformSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.settings != nil {
		return *r.s.settings, nil
	}
	return d, nil
}

func (r memSettings) Save(_ context.Context, st models.PlatformSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.settings = &st
	return nil
}

// ---- withdrawals

type memWithdrawals struct{ s *memStore }

func (r memWithdrawals) hasOpenLocked(providerID string) bool {
	for _, w := range r.s.withdrawals {
		if w.ProviderID == providerID && w.Status.Open() {
			return true
		}
	}
	return false
}

func (r memWithdrawals) Create(_ context.Context, in repo.NewWithdrawal) (models.WithdrawalRequest, models.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w := in.Request
	b, ok := r.s.balances[w.ProviderID]
	if !ok {
		return models.WithdrawalRequest{}, models.Balance{}, repo.ErrNotFound
	}
	switch {
	case b.Frozen:
		return models.WithdrawalRequest{}, models.Balance{}, repo.ErrBalanceFrozen
	case b.LastWithdrawalAt != nil && in.Now.Sub(*b.LastWithdrawalAt) < in.Cooldown, r.hasOpenLocked(w.ProviderID):
		return models.WithdrawalRequest{}, models.Balance{}, repo.ErrCooldownActive
	case b.AvailableCents < w.AmountCents:
		return models.WithdrawalRequest{}, models.Balance{}, repo.ErrInsufficientFunds
	}
	if r.s.failOutbox && len(in.Intents) > 0 {
		return models.WithdrawalRequest{}, models.Balance{}, errors.New("outbox insert failed")
	}
	w.Status = models.WithdrawalPending
	w.CreatedAt, w.UpdatedAt = in.Now, in.Now
	r.s.withdrawals[w.ID] = w
	b.AvailableCents -= w.AmountCents
	now := in.Now
	b.LastWithdrawalAt = &now
	r.s.balances[w.ProviderID] = b
	for _, m := range in.Intents {
		r.s.outbox[m.ID] = m
	}
	return w, b, nil
}

func (r memWithdrawals) GetByID(_ context.Context, id string) (models.WithdrawalRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.withdrawals[id]
	if !ok {
		return models.WithdrawalRequest{}, repo.ErrNotFound
	}
	return w, nil
}

func (r memWithdrawals) list(pred func(models.WithdrawalRequest) bool) []models.WithdrawalRequest {
	out := []models.WithdrawalRequest{}
	for _, w := range r.s.withdrawals {
		if pred(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r memWithdrawals) ListByProvider(_ context.Context, providerID string, limit, offset int) ([]models.WithdrawalRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.list(func(w models.WithdrawalRequest) bool { return w.ProviderID == providerID })
	if offset >= len(all) {
		return []models.WithdrawalRequest{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r memWithdrawals) ListSince(_ context.Context, providerID string, since time.Time) ([]models.WithdrawalRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(w models.WithdrawalRequest) bool {
		return w.ProviderID == providerID && !w.CreatedAt.Before(since)
	}), nil
}

func (r memWithdrawals) HasOpen(_ context.Context, providerID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.hasOpenLocked(providerID), nil
}

func (r memWithdrawals) Transition(_ context.Context, id string, to models.WithdrawalStatus, reason string, intents []models.OutboxMessage) (models.WithdrawalRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.withdrawals[id]
	if !ok {
		return models.WithdrawalRequest{}, repo.ErrNotFound
	}
	if !w.Status.CanTransition(to) {
		return models.WithdrawalRequest{}, repo.ErrInvalidTransition
	}
	w.Status = to
	if reason != "" {
		w.FailureReason = &reason
	}
	r.s.withdrawals[id] = w
	b := r.s.balances[w.ProviderID]
	switch to {
	case models.WithdrawalCompleted:
		b.WithdrawnCents += w.AmountCents
	case models.WithdrawalFailed:
		b.AvailableCents += w.AmountCents
	}
	r.s.balances[w.ProviderID] = b
	for _, m := range intents {
		r.s.outbox[m.ID] = m
	}
	return w, nil
}

// ---- payment methods

type memMethods struct{ s *memStore }

func (r memMethods) Create(_ context.Context, pm models.PaymentMethod) (models.PaymentMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	first := true
	for _, m := range r.s.methods {
		if m.ProviderID == pm.ProviderID {
			first = false
		}
	}
	if first {
		pm.IsDefault = true
	} else if pm.IsDefault {
		r.clearDefaultLocked(pm.ProviderID)
	}
	if pm.CreatedAt.IsZero() {
		pm.CreatedAt = time.Now().Add(time.Duration(len(r.s.methods)+len(r.s.removed)) * time.Millisecond)
	}
	r.s.methods[pm.ID] = pm
	return pm, nil
}

func (r memMethods) clearDefaultLocked(providerID string) {
	for id, m := range r.s.methods {
		if m.ProviderID == providerID && m.IsDefault {
			m.IsDefault = false
			r.s.methods[id] = m
		}
	}
}

func (r memMethods) GetByID(_ context.Context, id string) (models.PaymentMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.methods[id]
	if !ok {
		return models.PaymentMethod{}, repo.ErrNotFound
	}
	return m, nil
}

func (r memMethods) ListByProvider(_ context.Context, providerID string) ([]models.PaymentMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.PaymentMethod{}
	for _, m := range r.s.methods {
		if m.ProviderID == providerID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r memMethods) SetDefault(_ context.Context, providerID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.methods[id]
	if !ok || m.ProviderID != providerID {
		return repo.ErrNotFound
	}
	r.clearDefaultLocked(providerID)
	m.IsDefault = true
	r.s.methods[id] = m
	return nil
}

func (r memMethods) SetVerified(_ context.Context, id string, verified bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.methods[id]
	if !ok {
		return repo.ErrNotFound
	}
	m.Verified = verified
	r.s.methods[id] = m
	return nil
}

func (r memMethods) lockLive(providerID, id string) (models.PaymentMethod, error) {
	m, ok := r.s.methods[id]
	if !ok || m.ProviderID != providerID {
		return models.PaymentMethod{}, repo.ErrNotFound
	}
	for _, w := range r.s.withdrawals {
		if w.PaymentMethodID == id && w.Status.Open() {
			return models.PaymentMethod{}, repo.ErrConflict
		}
	}
	return m, nil
}

func (r memMethods) Update(_ context.Context, providerID, id, label string, details map[string]string) (models.PaymentMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, err := r.lockLive(providerID, id)
	if err != nil {
		return models.PaymentMethod{}, err
	}
	if details != nil {
		if !maps.Equal(m.Details, details) {
			m.Verified = false
		}
		m.Details = details
	}
	m.Label = label
	r.s.methods[id] = m
	return m, nil
}

func (r memMethods) Delete(_ context.Context, providerID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, err := r.lockLive(providerID, id)
	if err != nil {
		return err
	}
	delete(r.s.methods, id)
	m.IsDefault = false
	r.s.removed[id] = m
	if !r.hasDefaultLocked(providerID) {
		var oldest *models.PaymentMethod
		for _, c := range r.s.methods {
			if c.ProviderID == providerID && (oldest == nil || c.CreatedAt.Before(oldest.CreatedAt)) {
				c := c
				oldest = &c
			}
		}
		if oldest != nil {
			oldest.IsDefault = true
			r.s.methods[oldest.ID] = *oldest
		}
	}
	return nil
}

func (r memMethods) hasDefaultLocked(providerID string) bool {
	for _, m := range r.s.methods {
		if m.ProviderID == providerID && m.IsDefault {
			return true
		}
	}
	return false
}

// ---- notifications / devices

type memNotifications struct{ s *memStore }

func (r memNotifications) Create(_ context.Context, n models.Notification) (models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n.OutboxID != nil {
		for _, existing := range r.s.notifications {
			if existing.OutboxID != nil && *existing.OutboxID == *n.OutboxID {
				return existing, nil
			}
		}
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().Add(time.Duration(len(r.s.notifications)) * time.Millisecond)
	}
	r.s.notifications[n.ID] = n
	return n, nil
}

func (r memNotifications) GetByID(_ context.Context, id string) (models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return models.Notification{}, repo.ErrNotFound
	}
	return n, nil
}

func (r memNotifications) ListByUser(_ context.Context, userID string, limit, offset int, unreadOnly bool) ([]models.Notification, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := []models.Notification{}
	for _, n := range r.s.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			all = append(all, n)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return []models.Notification{}, total, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r memNotifications) UnreadCount(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := 0
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.Read {
			c++
		}
	}
	return c, nil
}

func (r memNotifications) MarkRead(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return repo.ErrNotFound
	}
	n.Read = true
	r.s.notifications[id] = n
	return nil
}

func (r memNotifications) MarkAllRead(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var c int64
	for id, n := range r.s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			r.s.notifications[id] = n
			c++
		}
	}
	return c, nil
}

type memDevices struct{ s *memStore }

func (r memDevices) Register(_ context.Context, userID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.devices[token] = userID
	return nil
}

func (r memDevices) ListByUser(_ context.Context, userID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []string
	for t, u := range r.s.devices {
		if u == userID {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r memDevices) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.devices, token)
	return nil
}

// ---- outbox

type memOutbox struct{ s *memStore }

func (r memOutbox) Enqueue(_ context.Context, msgs ...models.OutboxMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failOutbox {
		return errors.New("outbox unavailable")
	}
	for _, m := range msgs {
		if _, ok := r.s.outbox[m.ID]; ok {
			continue
		}
		if m.Status == "" {
			m.Status = models.OutboxPending
		}
		r.s.outbox[m.ID] = m
	}
	return nil
}

func (r memOutbox) ClaimDue(_ context.Context, now time.Time, _ time.Duration, limit int) ([]models.OutboxMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.OutboxMessage
	for id, m := range r.s.outbox {
		if len(out) >= limit {
			break
		}
		if m.Status == models.OutboxPending && !m.NextAttemptAt.After(now) {
			m.Status = models.OutboxProcessing
			r.s.outbox[id] = m
			out = append(out, m)
		}
	}
	return out, nil
}

func (r memOutbox) update(id string, fn func(*models.OutboxMessage)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.outbox[id]
	if !ok {
		return repo.ErrNotFound
	}
	fn(&m)
	r.s.outbox[id] = m
	return nil
}

func (r memOutbox) MarkDelivered(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(m *models.OutboxMessage) {
		m.Status, m.DeliveredAt = models.OutboxDelivered, &at
		m.Attempts++
	})
}

func (r memOutbox) MarkRetry(_ context.Context, id string, attempts int, next time.Time, lastErr string) error {
	return r.update(id, func(m *models.OutboxMessage) {
		m.Status, m.Attempts, m.NextAttemptAt, m.LastError = models.OutboxPending, attempts, next, &lastErr
	})
}

func (r memOutbox) MarkFailed(_ context.Context, id string, attempts int, lastErr string) error {
	return r.update(id, func(m *models.OutboxMessage) {
		m.Status, m.Attempts, m.LastError = models.OutboxFailed, attempts, &lastErr
	})
}

func (r memOutbox) Depth(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, m := range r.s.outbox {
		if m.Status == models.OutboxPending || m.Status == models.OutboxProcessing {
			n++
		}
	}
	return n, nil
}

// ---- pending messages

type memPending struct{ s *memStore }

func (r memPending) Create(_ context.Context, p models.PendingMessageNotification) (models.PendingMessageNotification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.pending {
		if e.MessageID == p.MessageID {
			return models.PendingMessageNotification{}, repo.ErrConflict
		}
	}
	r.s.pending[p.ID] = p
	return p, nil
}

func (r memPending) GetByMessageID(_ context.Context, messageID string) (models.PendingMessageNotification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.pending {
		if e.MessageID == messageID {
			return e, nil
		}
	}
	return models.PendingMessageNotification{}, repo.ErrNotFound
}

func (r memPending) CancelPending(_ context.Context, conversationID, recipientID string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, p := range r.s.pending {
		if p.ConversationID == conversationID && p.RecipientID == recipientID && p.Status == models.PendingStatusPending {
			p.Status, p.ProcessedAt = models.PendingStatusCancelled, &at
			r.s.pending[id] = p
			n++
		}
	}
	return n, nil
}

func (r memPending) ProcessDue(ctx context.Context, now time.Time, limit int, fn repo.PendingDeliverFunc) ([]models.PendingMessageNotification, error) {
	r.s.mu.Lock()
	var due []models.PendingMessageNotification
	for _, p := range r.s.pending {
		if p.Status == models.PendingStatusPending && !p.ScheduledFor.After(now) && len(due) < limit {
			due = append(due, p)
		}
	}
	r.s.mu.Unlock()

	var out []models.PendingMessageNotification
	for _, p := range due {
		status := models.PendingStatusSent
		var lastErr *string
		if err := fn(ctx, p); err != nil {
			status = models.PendingStatusFailed
			msg := err.Error()
			lastErr = &msg
		}
		p.Status, p.ProcessedAt, p.LastError = status, &now, lastErr
		r.s.mu.Lock()
		r.s.pending[p.ID] = p
		r.s.mu.Unlock()
		out = append(out, p)
	}
	return out, nil
}

// ---- refunds

type memRefunds struct{ s *memStore }

func (r memRefunds) Create(_ context.Context, rr models.RefundRequest) (models.RefundRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rr.CreatedAt = time.Now()
	r.s.refunds[rr.ID] = rr
	return rr, nil
}

func (r memRefunds) GetByID(_ context.Context, id string) (models.RefundRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rr, ok := r.s.refunds[id]
	if !ok {
		return models.RefundRequest{}, repo.ErrNotFound
	}
	return rr, nil
}

func (r memRefunds) ListByOrder(_ context.Context, orderID string) ([]models.RefundRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.RefundRequest{}
	for _, rr := range r.s.refunds {
		if rr.OrderID == orderID {
			out = append(out, rr)
		}
	}
	return out, nil
}

func (r memRefunds) ListByRequester(_ context.Context, userID string, limit, offset int) ([]models.RefundRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.RefundRequest{}
	for _, rr := range r.s.refunds {
		if rr.RequestedBy == userID {
			out = append(out, rr)
		}
	}
	return out, nil
}

func (r memRefunds) UpdateStatus(_ context.Context, id string, from, to models.RefundStatus, notes string, refundedAt *time.Time) (models.RefundRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rr, ok := r.s.refunds[id]
	if !ok {
		return models.RefundRequest{}, repo.ErrNotFound
	}
	if rr.Status != from {
		return models.RefundRequest{}, repo.ErrConflict
	}
	rr.Status = to
	if notes != "" {
		rr.AdminNotes = notes
	}
	if refundedAt != nil {
		rr.RefundedAt = refundedAt
	}
	r.s.refunds[id] = rr
	return rr, nil
}
