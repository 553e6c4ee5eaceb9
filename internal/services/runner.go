package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"autonome/internal/log"
)

// Runner drives a Scheduler on a fixed interval until stopped.
type Runner struct {
	scheduler *Scheduler
	interval  time.Duration
	now       func() time.Time
	logger    *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	last    Result
	lastAt  time.Time
}

func NewRunner(scheduler *Scheduler, interval time.Duration, logger *log.Logger) *Runner {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &Runner{
		scheduler: scheduler,
		interval:  interval,
		now:       time.Now,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Start runs one pass immediately and then one per interval.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("recurring runner is already running")
	}
	r.running = true
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	r.stopCh, r.doneCh = stopCh, doneCh
	r.mu.Unlock()

	go r.loop(ctx, stopCh, doneCh)

	r.logger.InfoContext(ctx, "Recurring runner started", "interval", r.interval)
	return nil
}

// Stop signals the loop and waits for the pass in progress to finish. It is
// safe to call concurrently and after the loop exited on its own.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	doneCh := r.doneCh
	if r.stopCh != nil {
		close(r.stopCh)
		r.stopCh = nil
	}
	r.mu.Unlock()
	if doneCh == nil {
		return nil
	}

	select {
	case <-doneCh:
		r.logger.InfoContext(ctx, "Recurring runner stopped")
		return nil
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Recurring runner stop timed out")
		return ctx.Err()
	}
}

func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Last returns the most recent pass result and when it ran.
func (r *Runner) Last() (Result, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.lastAt
}

func (r *Runner) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer func() {
		r.mu.Lock()
		r.running = false
		if r.doneCh == doneCh {
			r.stopCh = nil
		}
		r.mu.Unlock()
		close(doneCh)
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.pass(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pass(ctx)
		}
	}
}

func (r *Runner) pass(ctx context.Context) {
	now := r.now()
	res, err := r.scheduler.Run(ctx, now)
	if err != nil {
		r.logger.ErrorContext(ctx, "Recurring pass failed", log.FieldError, err)
		return
	}
	r.mu.Lock()
	r.last, r.lastAt = res, now
	r.mu.Unlock()
}
