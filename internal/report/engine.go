package report

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"autonome/internal/cache"
	"autonome/internal/core"
	"autonome/internal/ledger"
	"autonome/internal/log"
)

// Source is the read side of the record store the engine consumes.
type Source interface {
	ListSessions(ctx context.Context, r ledger.Range) ([]core.WorkSession, error)
	ListExpenses(ctx context.Context, r ledger.Range) ([]core.Expense, error)
	ListIncomes(ctx context.Context, r ledger.Range) ([]core.Income, error)
	ListMileage(ctx context.Context, r ledger.Range) ([]core.MileageEntry, error)
	ListInvoices(ctx context.Context, r ledger.Range) ([]core.Invoice, error)
	ListClients(ctx context.Context) ([]core.Client, error)
	ListProjects(ctx context.Context) ([]core.Project, error)
}

// Engine loads snapshots from a Source and memoizes summaries. A cached
// summary is reused only when the fingerprint of its contributing records
// and parameters is unchanged, so stale entries are never served.
type Engine struct {
	src       Source
	loc       *time.Location
	summaries cache.Cache[FinancialSummary]
	logger    *log.Logger
}

type EngineConfig struct {
	Location  *time.Location
	CacheSize int
	CacheTTL  time.Duration
}

func NewEngine(src Source, logger *log.Logger, cfg EngineConfig) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 64
	}
	if logger == nil {
		logger = log.Default(log.ComponentReport)
	}
	return &Engine{
		src:       src,
		loc:       cfg.Location,
		summaries: cache.NewLRUCache[FinancialSummary](cfg.CacheSize, cfg.CacheTTL),
		logger:    logger.WithComponent(log.ComponentReport),
	}
}

// Location is the day boundary the engine groups by.
func (e *Engine) Location() *time.Location { return e.loc }

// Cache exposes the summary cache for registration with a cache.Manager.
func (e *Engine) Cache() cache.Cache[FinancialSummary] { return e.summaries }

// Load reads every collection in r concurrently.
func (e *Engine) Load(ctx context.Context, r ledger.Range) (Snapshot, error) {
	var s Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.Sessions, err = e.src.ListSessions(ctx, r)
		return wrap("sessions", err)
	})
	g.Go(func() (err error) {
		s.Expenses, err = e.src.ListExpenses(ctx, r)
		return wrap("expenses", err)
	})
	g.Go(func() (err error) {
		s.Incomes, err = e.src.ListIncomes(ctx, r)
		return wrap("incomes", err)
	})
	g.Go(func() (err error) {
		s.Mileage, err = e.src.ListMileage(ctx, r)
		return wrap("mileage", err)
	})
	g.Go(func() (err error) {
		s.Invoices, err = e.src.ListInvoices(ctx, r)
		return wrap("invoices", err)
	})
	g.Go(func() (err error) {
		s.Clients, err = e.src.ListClients(ctx)
		return wrap("clients", err)
	})
	g.Go(func() (err error) {
		s.Projects, err = e.src.ListProjects(ctx)
		return wrap("projects", err)
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func wrap(collection string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", collection, err)
	}
	return nil
}

// Summary returns the financial summary of p, reusing a memoized result
// when no contributing record changed.
func (e *Engine) Summary(ctx context.Context, p Period, params Params) (FinancialSummary, error) {
	snap, err := e.Load(ctx, p.Range(e.loc))
	if err != nil {
		return FinancialSummary{}, err
	}

	key := Fingerprint(snap, p, params)
	if cached, ok := e.summaries.Get(key); ok {
		e.logger.DebugContext(ctx, "Summary served from cache", "period", p.String())
		return cached, nil
	}

	start := time.Now()
	sum := Summarize(snap, p, params, e.loc)
	e.summaries.Set(key, sum)
	e.logger.DebugContext(ctx, "Summary computed",
		"period", p.String(),
		"sessions", len(snap.Sessions),
		"expenses", len(snap.Expenses),
		log.FieldDuration, time.Since(start).Milliseconds())
	return sum, nil
}

// Day returns the bucket of the local day containing day.
func (e *Engine) Day(ctx context.Context, day time.Time) (DayBucket, bool, error) {
	snap, err := e.Load(ctx, DayRange(day, e.loc))
	if err != nil {
		return DayBucket{}, false, err
	}
	b, ok := DaySummary(snap, day, e.loc)
	return b, ok, nil
}

// Days groups every record in r by local day.
func (e *Engine) Days(ctx context.Context, r ledger.Range) ([]DayBucket, error) {
	snap, err := e.Load(ctx, r)
	if err != nil {
		return nil, err
	}
	return GroupByDay(snap, e.loc), nil
}

func (e *Engine) Monthly(ctx context.Context, year int, month time.Month) (MonthReport, error) {
	snap, err := e.Load(ctx, MonthPeriod(year, month).Range(e.loc))
	if err != nil {
		return MonthReport{}, err
	}
	return MonthlyReport(snap, year, month, e.loc), nil
}

// Invalidate drops every memoized summary.
func (e *Engine) Invalidate() {
	e.summaries.Purge()
}

// Fingerprint hashes the ids and modification times of every record in s
// together with the summary parameters.
func Fingerprint(s Snapshot, p Period, params Params) string {
	h := sha256.New()
	fmt.Fprintf(h, "period=%s;goal=%d;tax=%x;", p, params.MonthlyGoal.Cents, math.Float64bits(params.EstimatedTaxRate))
	if params.Normalizer != nil {
		fmt.Fprintf(h, "mapping=%d;", params.Normalizer.Version)
	}

	section(h, "sessions", len(s.Sessions))
	for _, v := range s.Sessions {
		record(h, v.ID, v.UpdatedAt)
	}
	section(h, "expenses", len(s.Expenses))
	for _, v := range s.Expenses {
		record(h, v.ID, v.UpdatedAt)
	}
	section(h, "incomes", len(s.Incomes))
	for _, v := range s.Incomes {
		record(h, v.ID, v.UpdatedAt)
	}
	section(h, "mileage", len(s.Mileage))
	for _, v := range s.Mileage {
		record(h, v.ID, v.UpdatedAt)
	}
	section(h, "invoices", len(s.Invoices))
	for _, v := range s.Invoices {
		record(h, v.ID, v.UpdatedAt)
	}
	section(h, "clients", len(s.Clients))
	for _, v := range s.Clients {
		record(h, v.ID, v.UpdatedAt)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func section(h hash.Hash, name string, n int) {
	fmt.Fprintf(h, "|%s:%d|", name, n)
}

func record(h hash.Hash, id int64, updated time.Time) {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(id))
	binary.BigEndian.PutUint64(buf[8:], uint64(updated.UnixNano()))
	h.Write(buf[:])
}
