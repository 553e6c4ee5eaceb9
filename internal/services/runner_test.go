package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"autonome/internal/ledger"
	"autonome/internal/log"
	"autonome/internal/storage/memory"
)

func TestRunner_StartRunsImmediatePass(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	mustCreate(t, store, monthlyRent(midnight(2024, 1, 1)))

	runner := NewRunner(newTestScheduler(store, SchedulerConfig{}), time.Hour, log.Nop())
	runner.now = func() time.Time { return midnight(2024, 2, 10) }

	if err := runner.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := runner.Start(ctx); err == nil {
		t.Error("second Start should fail while running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, at := runner.Last(); !at.IsZero() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no pass recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := runner.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if runner.IsRunning() {
		t.Error("runner still running after Stop")
	}

	res, _ := runner.Last()
	if res.Records() != 2 {
		t.Errorf("records = %d, want 2", res.Records())
	}
	expenses, _ := store.ListExpenses(ctx, ledger.Range{})
	if len(expenses) != 2 {
		t.Errorf("expenses = %d, want 2", len(expenses))
	}
}

func TestRunner_StopWhenIdle(t *testing.T) {
	runner := NewRunner(newTestScheduler(memory.New(), SchedulerConfig{}), time.Minute, log.Nop())
	if err := runner.Stop(context.Background()); err != nil {
		t.Errorf("Stop on idle runner: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunner_ContextCancelStopsRunning(t *testing.T) {
	runner := NewRunner(newTestScheduler(memory.New(), SchedulerConfig{}), time.Hour, log.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	if err := runner.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	waitFor(t, func() bool { return !runner.IsRunning() })

	if err := runner.Stop(context.Background()); err != nil {
		t.Errorf("Stop after the loop exited: %v", err)
	}
	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := runner.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestRunner_ConcurrentStop(t *testing.T) {
	runner := NewRunner(newTestScheduler(memory.New(), SchedulerConfig{}), time.Hour, log.Nop())
	if err := runner.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- runner.Stop(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Stop: %v", err)
		}
	}
	if runner.IsRunning() {
		t.Error("runner still running after Stop")
	}
}
