package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"autonome/internal/cache"
	"autonome/internal/core"
	"autonome/internal/ledger"
	"autonome/internal/log"
	"autonome/internal/storage/memory"
)

func TestEngine_SummaryMemoizes(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return clock })

	e, err := store.CreateExpense(ctx, core.Expense{Title: "Vis", Amount: core.Money{Cents: 1500}, Category: "materials", Date: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	eng := NewEngine(store, log.Nop(), EngineConfig{Location: time.UTC, CacheSize: 8, CacheTTL: time.Hour})
	lru := eng.Cache().(*cache.LRUCache[FinancialSummary])
	p := MonthPeriod(2024, time.May)

	first, err := eng.Summary(ctx, p, Params{})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if first.Expense.Cents != 1500 {
		t.Errorf("Expense = %s", first.Expense)
	}
	if _, err := eng.Summary(ctx, p, Params{}); err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if st := lru.Stats(); st.Hits != 1 || st.Misses != 1 {
		t.Errorf("after repeat Stats = %+v, want 1 hit 1 miss", st)
	}

	clock = clock.Add(time.Minute)
	e.Amount = core.Money{Cents: 2500}
	if err := store.UpdateExpense(ctx, e); err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	updated, err := eng.Summary(ctx, p, Params{})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if updated.Expense.Cents != 2500 {
		t.Errorf("Expense after update = %s, stale summary served", updated.Expense)
	}

	if _, err := eng.Summary(ctx, p, Params{EstimatedTaxRate: 0.3}); err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if st := lru.Stats(); st.Misses != 3 {
		t.Errorf("changed params should miss, Stats = %+v", st)
	}

	eng.Invalidate()
	if lru.Size() != 0 {
		t.Errorf("Size after Invalidate = %d", lru.Size())
	}
}

func TestEngine_Day(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ws, err := store.CreateSession(ctx, core.WorkSession{StartTime: time.Date(2024, 3, 15, 9, 0, 0, 0, est), HourlyRate: core.Money{Cents: 2500}})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Stop(time.Date(2024, 3, 15, 17, 0, 0, 0, est)); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateSession(ctx, ws); err != nil {
		t.Fatal(err)
	}

	eng := NewEngine(store, log.Nop(), EngineConfig{Location: est})
	b, ok, err := eng.Day(ctx, time.Date(2024, 3, 15, 12, 0, 0, 0, est))
	if err != nil || !ok {
		t.Fatalf("Day = %v, %v", ok, err)
	}
	if b.TotalEarned.Cents != 20000 || b.TotalDuration != 8*time.Hour {
		t.Errorf("bucket = %s, %v", b.TotalEarned, b.TotalDuration)
	}
}

type brokenSource struct{ *memory.Store }

var errUnavailable = errors.New("store unavailable")

func (brokenSource) ListMileage(context.Context, ledger.Range) ([]core.MileageEntry, error) {
	return nil, errUnavailable
}

func TestEngine_LoadError(t *testing.T) {
	eng := NewEngine(brokenSource{memory.New()}, log.Nop(), EngineConfig{Location: time.UTC})
	_, err := eng.Summary(context.Background(), YearPeriod(2024), Params{})
	if !errors.Is(err, errUnavailable) {
		t.Errorf("Summary error = %v, want errUnavailable", err)
	}
}

func TestFingerprint_TracksInputs(t *testing.T) {
	base := Snapshot{Expenses: []core.Expense{{ID: 1, UpdatedAt: time.Unix(100, 0)}}}
	p := YearPeriod(2024)

	same := Fingerprint(base, p, Params{})
	if same != Fingerprint(base, p, Params{}) {
		t.Error("fingerprint not stable")
	}

	touched := Snapshot{Expenses: []core.Expense{{ID: 1, UpdatedAt: time.Unix(101, 0)}}}
	moved := Snapshot{Incomes: []core.Income{{ID: 1, UpdatedAt: time.Unix(100, 0)}}}
	for name, other := range map[string]string{
		"updated record":   Fingerprint(touched, p, Params{}),
		"other collection": Fingerprint(moved, p, Params{}),
		"other period":     Fingerprint(base, YearPeriod(2023), Params{}),
		"other mapping":    Fingerprint(base, p, Params{Normalizer: core.NewCategoryNormalizer(1)}),
	} {
		if other == same {
			t.Errorf("%s: fingerprint unchanged", name)
		}
	}
}
