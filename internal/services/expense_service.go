package services

import (
	"context"
	"fmt"
	"strings"

	"autonome/internal/core"
	"autonome/internal/events"
	"autonome/internal/ledger"
	"autonome/internal/log"
)

// ExpenseService stores expenses and announces the change on the event bus.
// The write is the source of truth; publishing never fails the call.
type ExpenseService struct {
	store  ledger.ExpenseStore
	events events.Publisher
	logger *log.Logger
}

func NewExpenseService(store ledger.ExpenseStore, publisher events.Publisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Default(log.ComponentLedger)
	}
	return &ExpenseService{store: store, events: publisher, logger: logger.WithComponent(log.ComponentLedger)}
}

// CreateExpense trims free-form fields, stores e and publishes expense.created.
// Categories are stored as entered; normalization happens when reading.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Title = strings.TrimSpace(e.Title)
	e.Category = strings.TrimSpace(e.Category)
	if e.Category == "" {
		e.Category = core.CategoryOther
	}
	saved, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense created",
		log.NewFields().WithRecord("expense", saved.ID, saved.Amount.Cents, saved.Category).ToSlice()...)
	s.publish(ctx, events.ExpenseCreated, saved.ID, saved)
	return saved, nil
}

// UpdateExpense replaces e. The link to the recurring item that generated
// the expense is kept from the stored record and cannot be set by callers.
func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) error {
	cur, err := s.store.GetExpense(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	e.RecurringItemID = cur.RecurringItemID
	e.Title = strings.TrimSpace(e.Title)
	e.Category = strings.TrimSpace(e.Category)
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	s.publish(ctx, events.RecordChanged, e.ID, e)
	return nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.publish(ctx, events.ExpenseDeleted, id, core.Expense{})
	return nil
}

func (s *ExpenseService) publish(ctx context.Context, typ events.Type, id int64, e core.Expense) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, typ, events.RecordPayload{
		Collection:  "expenses",
		RecordID:    id,
		AmountCents: e.Amount.Cents,
		Date:        e.Date,
	})
}
