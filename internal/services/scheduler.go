package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"autonome/internal/core"
	"autonome/internal/events"
	"autonome/internal/ledger"
	"autonome/internal/log"
)

// DefaultMaxCatchUp bounds the periods generated for one item in one pass.
const DefaultMaxCatchUp = 1000

var errNoProgress = errors.New("period advancer did not move the due date forward")

// Generated describes one record created by a pass.
type Generated struct {
	ItemID   int64              `json:"itemId"`
	Type     core.RecurringType `json:"type"`
	RecordID int64              `json:"recordId,omitempty"`
	Date     time.Time          `json:"date"`
	Amount   core.Money         `json:"amount"`
	Title    string             `json:"title"`
	Category string             `json:"category"`
	Recorded bool               `json:"recorded"` // false for income periods that were not materialized
}

// Failure is one item whose transaction rolled back. Its next date is unchanged.
type Failure struct {
	ItemID int64  `json:"itemId"`
	Title  string `json:"title"`
	Err    error  `json:"-"`
	Reason string `json:"reason"`
}

// Result summarizes a scheduler pass.
type Result struct {
	Checked   int         `json:"checked"`
	Advanced  int         `json:"advanced"`
	Skipped   int         `json:"skipped"`
	Generated []Generated `json:"generated"`
	Failures  []Failure   `json:"failures,omitempty"`
	// Truncated lists items that hit the catch-up limit; they continue on
	// the next pass.
	Truncated []int64 `json:"truncated,omitempty"`
}

// Records counts the ledger records a pass wrote.
func (r Result) Records() int {
	n := 0
	for _, g := range r.Generated {
		if g.Recorded {
			n++
		}
	}
	return n
}

type SchedulerConfig struct {
	// MaterializeIncome makes income items write Income records. When false
	// income items only advance their schedule.
	MaterializeIncome bool
	MaxCatchUp        int
	Location          *time.Location
}

// Scheduler turns recurring items into expense and income records for every
// elapsed period.
type Scheduler struct {
	store  ledger.RecurringStore
	events events.Publisher
	logger *log.Logger
	cfg    SchedulerConfig
	group  singleflight.Group
}

func NewScheduler(store ledger.RecurringStore, publisher events.Publisher, logger *log.Logger, cfg SchedulerConfig) *Scheduler {
	if cfg.MaxCatchUp <= 0 {
		cfg.MaxCatchUp = DefaultMaxCatchUp
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		logger = log.Default(log.ComponentScheduler)
	}
	return &Scheduler{
		store:  store,
		events: publisher,
		logger: logger.WithComponent(log.ComponentScheduler),
		cfg:    cfg,
	}
}

// Run executes one pass. Calls that overlap an in-flight pass share its
// result. Per-item failures are reported in Result.Failures; the error is
// non-nil only when the active items cannot be listed.
func (s *Scheduler) Run(ctx context.Context, now time.Time) (Result, error) {
	// The pass is shared by every waiting caller, so one caller going away
	// must not cancel it for the others.
	ch := s.group.DoChan("pass", func() (any, error) {
		return s.run(context.WithoutCancel(ctx), now)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Shared {
			s.logger.DebugContext(ctx, "Joined in-flight recurring pass")
		}
		if r.Err != nil {
			return Result{}, r.Err
		}
		return r.Val.(Result), nil
	}
}

func (s *Scheduler) run(ctx context.Context, now time.Time) (Result, error) {
	items, err := s.store.ActiveRecurringItems(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list active recurring items: %w", err)
	}

	var res Result
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++

		outcome, err := s.processItem(ctx, item.ID, now)
		switch {
		case err == nil:
		case errors.Is(err, ledger.ErrInactive), errors.Is(err, ledger.ErrNotFound):
			res.Skipped++
			continue
		case errors.Is(err, core.ErrInvalidFrequency):
			s.logger.WarnContext(ctx, "Skipping recurring item with unknown frequency",
				log.FieldRecurringID, item.ID,
				log.FieldFrequency, item.Frequency)
			res.Skipped++
			continue
		default:
			s.logger.WarnContext(ctx, "Recurring item rolled back",
				log.FieldRecurringID, item.ID,
				"title", item.Title,
				log.FieldError, err)
			res.Failures = append(res.Failures, Failure{
				ItemID: item.ID,
				Title:  item.Title,
				Err:    err,
				Reason: err.Error(),
			})
			continue
		}

		if len(outcome.generated) > 0 {
			res.Advanced++
		}
		if outcome.truncated {
			s.logger.WarnContext(ctx, "Recurring item hit catch-up limit",
				log.FieldRecurringID, item.ID,
				"limit", s.cfg.MaxCatchUp,
				log.FieldNextDate, outcome.next)
			res.Truncated = append(res.Truncated, item.ID)
		}
		res.Generated = append(res.Generated, outcome.generated...)
		s.publishGenerated(ctx, outcome.generated)
	}

	s.logger.InfoContext(ctx, "Recurring pass complete",
		"checked", res.Checked,
		"advanced", res.Advanced,
		"records", res.Records(),
		"failed", len(res.Failures),
		"now", now.In(s.cfg.Location).Format(time.RFC3339))

	if s.events != nil {
		s.events.Publish(ctx, events.RecurringPass, events.PassPayload{
			Checked:   res.Checked,
			Generated: res.Records(),
			Failed:    len(res.Failures),
		})
	}
	return res, nil
}

type itemOutcome struct {
	generated []Generated
	next      time.Time
	truncated bool
}

// processItem runs one item's whole catch-up loop inside a single store
// transaction. The item is re-read inside the transaction so a pass that
// lost the race to another pass sees the advanced date and writes nothing.
func (s *Scheduler) processItem(ctx context.Context, id int64, now time.Time) (itemOutcome, error) {
	var out itemOutcome
	err := s.store.InRecurringTx(ctx, id, func(tx ledger.RecurringTx) error {
		out = itemOutcome{}

		item, err := tx.Item(ctx)
		if err != nil {
			return err
		}
		if !item.Active {
			return ledger.ErrInactive
		}
		adv, err := GetPeriodAdvancer(item.Frequency)
		if err != nil {
			return err
		}

		next := item.NextDate.In(s.cfg.Location)
		anchor := item.StartDate.In(s.cfg.Location)
		for !next.After(now) {
			if len(out.generated) >= s.cfg.MaxCatchUp {
				out.truncated = true
				break
			}
			g, err := s.materialize(ctx, tx, item, next)
			if err != nil {
				return err
			}
			out.generated = append(out.generated, g)

			following := adv.Next(next, anchor)
			if !following.After(next) {
				return fmt.Errorf("%w: %s", errNoProgress, item.Frequency)
			}
			next = following
		}
		out.next = next

		if len(out.generated) == 0 {
			return nil
		}
		return tx.AdvanceSchedule(ctx, next, now)
	})
	if err != nil {
		return itemOutcome{}, err
	}
	return out, nil
}

// materialize writes the record for the period starting at date.
func (s *Scheduler) materialize(ctx context.Context, tx ledger.RecurringTx, item core.RecurringItem, date time.Time) (Generated, error) {
	g := Generated{
		ItemID:   item.ID,
		Type:     item.Type,
		Date:     date,
		Amount:   item.Amount,
		Title:    item.Title,
		Category: item.Category,
	}
	itemID := item.ID

	switch item.Type {
	case core.RecurringExpense:
		e, err := tx.InsertExpense(ctx, core.Expense{
			Title:           item.Title,
			Amount:          item.Amount,
			Category:        item.Category,
			Date:            date,
			Description:     core.RecurringPrefix + item.Title,
			ProjectID:       item.ProjectID,
			Tags:            []string{core.RecurringTag},
			RecurringItemID: &itemID,
		})
		if err != nil {
			return Generated{}, fmt.Errorf("insert expense for %s: %w", date.Format(time.DateOnly), err)
		}
		g.RecordID, g.Recorded = e.ID, true

	case core.RecurringIncome:
		if !s.cfg.MaterializeIncome {
			return g, nil
		}
		i, err := tx.InsertIncome(ctx, core.Income{
			Title:           item.Title,
			Amount:          item.Amount,
			Category:        item.Category,
			Date:            date,
			Description:     core.RecurringPrefix + item.Title,
			ProjectID:       item.ProjectID,
			Tags:            []string{core.RecurringTag},
			RecurringItemID: &itemID,
		})
		if err != nil {
			return Generated{}, fmt.Errorf("insert income for %s: %w", date.Format(time.DateOnly), err)
		}
		g.RecordID, g.Recorded = i.ID, true

	default:
		return Generated{}, fmt.Errorf("%w: %q", core.ErrInvalidType, item.Type)
	}
	return g, nil
}

func (s *Scheduler) publishGenerated(ctx context.Context, generated []Generated) {
	if s.events == nil {
		return
	}
	for _, g := range generated {
		if !g.Recorded {
			continue
		}
		collection := "expenses"
		if g.Type == core.RecurringIncome {
			collection = "incomes"
		}
		s.events.Publish(ctx, events.RecurringGenerated, events.RecordPayload{
			Collection:      collection,
			RecordID:        g.RecordID,
			AmountCents:     g.Amount.Cents,
			Date:            g.Date,
			RecurringItemID: g.ItemID,
		})
	}
}
