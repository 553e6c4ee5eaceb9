package memory

import (
	"context"
	"fmt"
	"time"

	"autonome/internal/core"
	"autonome/internal/ledger"
)

func (s *Store) CreateRecurringItem(_ context.Context, v core.RecurringItem) (core.RecurringItem, error) {
	if err := v.Validate(); err != nil {
		return core.RecurringItem{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recurring.insert(v, s.now()), nil
}

func (s *Store) UpdateRecurringItem(_ context.Context, v core.RecurringItem) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recurring.update(v, s.now())
}

func (s *Store) GetRecurringItem(_ context.Context, id int64) (core.RecurringItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recurring.get(id)
}

func (s *Store) DeleteRecurringItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recurring.delete(id)
}

func (s *Store) ListRecurringItems(_ context.Context) ([]core.RecurringItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recurring.list(ledger.Range{}), nil
}

func (s *Store) ActiveRecurringItems(_ context.Context) ([]core.RecurringItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurringItem
	for _, r := range s.recurring.list(ledger.Range{}) {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

// InRecurringTx holds the store lock for the whole of fn. Writes are staged
// and applied only when fn returns nil. fn must not call other Store methods.
func (s *Store) InRecurringTx(ctx context.Context, id int64, fn func(tx ledger.RecurringTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.recurring.get(id)
	if err != nil {
		return fmt.Errorf("recurring item %d: %w", id, err)
	}
	tx := &recurringTx{
		store:       s,
		item:        item,
		now:         s.now(),
		nextExpense: s.expenses.nextID,
		nextIncome:  s.incomes.nextID,
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type recurringTx struct {
	store *Store
	item  core.RecurringItem
	now   time.Time

	expenses    []core.Expense
	incomes     []core.Income
	nextExpense int64
	nextIncome  int64
	advanced    bool
}

func (tx *recurringTx) Item(context.Context) (core.RecurringItem, error) {
	return tx.item, nil
}

func (tx *recurringTx) InsertExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	tx.nextExpense++
	e.ID, e.CreatedAt, e.UpdatedAt = tx.nextExpense, tx.now, tx.now
	tx.expenses = append(tx.expenses, e)
	return e, nil
}

func (tx *recurringTx) InsertIncome(_ context.Context, i core.Income) (core.Income, error) {
	if err := i.Validate(); err != nil {
		return core.Income{}, err
	}
	tx.nextIncome++
	i.ID, i.CreatedAt, i.UpdatedAt = tx.nextIncome, tx.now, tx.now
	tx.incomes = append(tx.incomes, i)
	return i, nil
}

func (tx *recurringTx) AdvanceSchedule(_ context.Context, next, lastGenerated time.Time) error {
	tx.item.NextDate = next
	tx.item.LastGeneratedDate = &lastGenerated
	tx.item.UpdatedAt = tx.now
	tx.advanced = true
	return nil
}

func (tx *recurringTx) commit() {
	s := tx.store
	for _, e := range tx.expenses {
		s.expenses.rows[e.ID] = e
	}
	s.expenses.nextID = tx.nextExpense
	for _, i := range tx.incomes {
		s.incomes.rows[i.ID] = i
	}
	s.incomes.nextID = tx.nextIncome
	if tx.advanced {
		s.recurring.rows[tx.item.ID] = tx.item
	}
}
