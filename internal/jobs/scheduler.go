package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/baharkarakas/provider-payouts/internal/services"
)

type MessageSweeper interface {
	ProcessPending(ctx context.Context) (services.SweepStats, error)
}

type OutboxDrainer interface {
	Drain(ctx context.Context) (services.DrainStats, error)
}

type Config struct {
	MessageSweepSpec string
	OutboxDrainSpec  string
}

// Scheduler runs the periodic background jobs. A run that is still going when
// its next tick fires is skipped.
type Scheduler struct {
	c      *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger
}

func NewScheduler(cfg Config, sweeper MessageSweeper, drainer OutboxDrainer, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{ctx: ctx, cancel: cancel, log: log.With("component", "scheduler")}
	cl := cronLogger{s.log}
	s.c = cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := s.c.AddFunc(cfg.MessageSweepSpec, s.sweep(sweeper)); err != nil {
		cancel()
		return nil, fmt.Errorf("message sweep spec %q: %w", cfg.MessageSweepSpec, err)
	}
	if _, err := s.c.AddFunc(cfg.OutboxDrainSpec, s.drain(drainer)); err != nil {
		cancel()
		return nil, fmt.Errorf("outbox drain spec %q: %w", cfg.OutboxDrainSpec, err)
	}
	return s, nil
}

func (s *Scheduler) sweep(m MessageSweeper) func() {
	return func() {
		st, err := m.ProcessPending(s.ctx)
		if err != nil {
			s.log.Error("message sweep failed", "err", err)
			return
		}
		if st.Sent+st.Failed > 0 {
			s.log.Info("message sweep", "sent", st.Sent, "failed", st.Failed)
		}
	}
}

func (s *Scheduler) drain(d OutboxDrainer) func() {
	return func() {
		st, err := d.Drain(s.ctx)
		if err != nil {
			s.log.Error("outbox drain failed", "err", err)
			return
		}
		if st.Claimed > 0 {
			s.log.Info("outbox drain", "claimed", st.Claimed, "delivered", st.Delivered,
				"retried", st.Retried, "dead", st.Dead)
		}
	}
}

func (s *Scheduler) Start() { s.c.Start() }

// Stop cancels in-flight runs and waits for them to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	s.cancel()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) { c.l.Debug(msg, kv...) }

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error(msg, append(kv, "err", err)...)
}
