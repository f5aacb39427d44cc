package worker

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/baharkarakas/provider-payouts/internal/metrics"
)

var ErrStopped = errors.New("worker pool stopped")

type task func()

// Pool runs submitted tasks on a fixed number of goroutines.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan task

	mu      sync.RWMutex
	stopped bool
}

func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{jobs: make(chan task, 1024)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Dec()
				runSafe(job)
			}
		}()
	}
	return p
}

// runSafe keeps a panicking task from taking the worker (and the process) down.
func runSafe(job task) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("worker task panic", "err", rec, "stack", string(debug.Stack()))
		}
	}()
	job()
}

// Submit enqueues f, blocking while the queue is full until ctx is done.
func (p *Pool) Submit(ctx context.Context, f func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.jobs <- f:
		metrics.WorkerQueueDepth.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run submits every fn and waits until all submitted ones have returned.
// Functions that could not be submitted are reported through the error.
func (p *Pool) Run(ctx context.Context, fns []func()) error {
	var wg sync.WaitGroup
	var firstErr error
	for _, fn := range fns {
		fn := fn
		wg.Add(1)
		if err := p.Submit(ctx, func() { defer wg.Done(); fn() }); err != nil {
			wg.Done()
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	wg.Wait()
	return firstErr
}

func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
