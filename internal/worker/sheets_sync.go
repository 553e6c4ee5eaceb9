// Package worker keeps the published Google Sheets summary in step with the
// ledger by consuming the events the API and scheduler forward to AMQP.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"autonome/internal/amqp"
	"autonome/internal/config"
	"autonome/internal/log"
	"autonome/internal/report"
)

// Summarizer computes yearly summaries. *report.Engine implements it.
type Summarizer interface {
	Summary(ctx context.Context, p report.Period, params report.Params) (report.FinancialSummary, error)
	Location() *time.Location
}

// YearPublisher writes one year's summary. *export.SheetsPublisher implements it.
type YearPublisher interface {
	PublishYear(ctx context.Context, year int, sum report.FinancialSummary) error
}

// SettingsLoader supplies the report parameters. *config.SettingsStore implements it.
type SettingsLoader interface {
	Load(ctx context.Context) (config.Settings, error)
}

// SheetsSync marks the years touched by ledger events and republishes them
// in batches, so a burst of events costs one Sheets write per year.
type SheetsSync struct {
	engine   Summarizer
	settings SettingsLoader
	sheets   YearPublisher
	logger   *log.Logger
	now      func() time.Time

	mu    sync.Mutex
	dirty map[int]struct{}
}

func NewSheetsSync(engine Summarizer, settings SettingsLoader, sheets YearPublisher, logger *log.Logger) *SheetsSync {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &SheetsSync{
		engine:   engine,
		settings: settings,
		sheets:   sheets,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
		dirty:    make(map[int]struct{}),
	}
}

// HandleEvent is the AMQP consumer callback. Events without a dated record
// (deletes, scheduler passes) mark the current year.
func (w *SheetsSync) HandleEvent(ctx context.Context, msg *amqp.EventMessage) error {
	rec, ok, err := msg.Record()
	if err != nil {
		return err
	}

	year := w.now().In(w.engine.Location()).Year()
	if ok && !rec.Date.IsZero() {
		year = rec.Date.In(w.engine.Location()).Year()
	}

	w.mu.Lock()
	w.dirty[year] = struct{}{}
	w.mu.Unlock()

	w.logger.DebugContext(ctx, "Ledger event received",
		log.FieldEventType, msg.Type,
		log.FieldYear, year)
	return nil
}

// Pending lists the years waiting to be published, ascending.
func (w *SheetsSync) Pending() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	years := make([]int, 0, len(w.dirty))
	for y := range w.dirty {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Flush publishes every pending year. A year that fails stays pending for the
// next flush.
func (w *SheetsSync) Flush(ctx context.Context) error {
	var errs []error
	for _, year := range w.Pending() {
		if err := w.SyncYear(ctx, year); err != nil {
			errs = append(errs, err)
			continue
		}
		w.mu.Lock()
		delete(w.dirty, year)
		w.mu.Unlock()
	}
	return errors.Join(errs...)
}

// SyncYear recomputes and publishes one year.
func (w *SheetsSync) SyncYear(ctx context.Context, year int) error {
	settings, err := w.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	sum, err := w.engine.Summary(ctx, report.YearPeriod(year), settings.ReportParams())
	if err != nil {
		return fmt.Errorf("summarize %d: %w", year, err)
	}
	if err := w.sheets.PublishYear(ctx, year, sum); err != nil {
		return fmt.Errorf("publish %d: %w", year, err)
	}
	return nil
}

// Run flushes pending years every interval until ctx ends, then makes one
// last attempt with a short deadline.
func (w *SheetsSync) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := w.Flush(final); err != nil {
				w.logger.ErrorContext(final, "Final sheets flush failed", log.FieldError, err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Sheets flush failed", log.FieldError, err)
			}
		}
	}
}
