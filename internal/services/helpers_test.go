package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/provider-payouts/internal/logger"
	"github.com/baharkarakas/provider-payouts/internal/models"
	"github.com/baharkarakas/provider-payouts/internal/push"
	"github.com/baharkarakas/provider-payouts/internal/worker"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type sentMail struct{ To, Subject, HTML string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, html})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakePush struct {
	mu      sync.Mutex
	sent    []string
	invalid map[string]bool
	down    map[string]bool
}

func (p *fakePush) Send(_ context.Context, token, _, _ string, _ map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.invalid[token] {
		return push.ErrInvalidToken
	}
	if p.down[token] {
		return errors.New("fcm unavailable")
	}
	p.sent = append(p.sent, token)
	return nil
}

type testEnv struct {
	store       *memStore
	mailer      *fakeMailer
	pool        *worker.Pool
	dispatcher  *Dispatcher
	withdrawals *WithdrawalService
	methods     *PaymentMethodService
	deliverer   *Deliverer
	tracker     *MessageTracker
	clock       time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := newMemStore()
	env := &testEnv{store: s, mailer: &fakeMailer{}, pool: worker.NewPool(2), clock: t0}
	t.Cleanup(env.pool.Stop)
	log := logger.Discard()
	now := func() time.Time { return env.clock }

	env.dispatcher = NewDispatcher(memProfiles{s}, memOutbox{s},
		DispatcherConfig{AppURL: "https://app.example.com/"}, log)
	env.dispatcher.now = now

	env.withdrawals = NewWithdrawalService(memBalances{s}, memSettings{s}, memWithdrawals{s}, memMethods{s},
		env.dispatcher, WithdrawalConfig{
			Defaults: models.PlatformSettings{FeePercentage: 2.5, MinWithdrawalCents: 2000},
			Cooldown: 24 * time.Hour,
		}, log)
	env.withdrawals.now = now

	env.methods = NewPaymentMethodService(memMethods{s})

	env.deliverer = NewDeliverer(memOutbox{s}, memNotifications{s}, memDevices{s}, env.mailer, nil, env.pool,
		DeliveryConfig{Batch: 50, MaxAttempts: 3, BaseBackoff: 30 * time.Second}, log)
	env.deliverer.now = now

	env.tracker = NewMessageTracker(memPending{s}, memProfiles{s}, env.mailer,
		MessageTrackerConfig{Delay: time.Minute, Batch: 100, AppURL: "https://app.example.com"}, log)
	env.tracker.now = now
	return env
}

func (e *testEnv) advance(d time.Duration) { e.clock = e.clock.Add(d) }

// seedProvider creates a profile, a balance and a verified default payment method.
func (e *testEnv) seedProvider(id, email string, available int64) string {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.profiles[id] = models.Profile{ID: id, Email: email, FullName: "Provider " + id, Role: "provider"}
	e.store.balances[id] = models.Balance{ProviderID: id, AvailableCents: available, TotalEarnedCents: available, Currency: "USD"}
	pmID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("pm-"+id)).String()
	e.store.methods[pmID] = models.PaymentMethod{ID: pmID, ProviderID: id, Type: "paypal", Label: "PayPal", IsDefault: true, Verified: true}
	return pmID
}

func (e *testEnv) outboxByChannel() map[models.Channel]int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	out := map[models.Channel]int{}
	for _, m := range e.store.outbox {
		out[m.Channel]++
	}
	return out
}

func assertKind(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}
