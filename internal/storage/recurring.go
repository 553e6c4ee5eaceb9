package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"autonome/internal/core"
	"autonome/internal/ledger"
)

const recurringColumns = `id, title, type, amount_cents, category, frequency, start_date, next_date,
	last_generated_date, active, project_id, created_at, updated_at`

func scanRecurring(s scanner) (core.RecurringItem, error) {
	var (
		it                       core.RecurringItem
		start, next, created, up int64
		lastGen, projectID       sql.NullInt64
		active                   int
	)
	if err := s.Scan(&it.ID, &it.Title, &it.Type, &it.Amount.Cents, &it.Category, &it.Frequency,
		&start, &next, &lastGen, &active, &projectID, &created, &up); err != nil {
		return core.RecurringItem{}, err
	}
	it.StartDate = fromMillis(start)
	it.NextDate = fromMillis(next)
	it.LastGeneratedDate = timePtr(lastGen)
	it.Active = active != 0
	it.ProjectID = intPtr(projectID)
	it.CreatedAt = fromMillis(created)
	it.UpdatedAt = fromMillis(up)
	return it, nil
}

func (r *SQLiteRepository) CreateRecurringItem(ctx context.Context, it core.RecurringItem) (core.RecurringItem, error) {
	if err := it.Validate(); err != nil {
		return core.RecurringItem{}, err
	}
	now := r.now()
	res, err := r.db.ExecContext(ctx, `INSERT INTO recurring_items
		(title, type, amount_cents, category, frequency, start_date, next_date, last_generated_date,
		 active, project_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.Title, it.Type, it.Amount.Cents, it.Category, it.Frequency, toMillis(it.StartDate),
		toMillis(it.NextDate), nullMillis(it.LastGeneratedDate), bool01(it.Active), nullInt(it.ProjectID),
		toMillis(now), toMillis(now))
	if err != nil {
		return core.RecurringItem{}, fmt.Errorf("insert recurring item: %w", err)
	}
	if it.ID, err = res.LastInsertId(); err != nil {
		return core.RecurringItem{}, fmt.Errorf("recurring item id: %w", err)
	}
	it.CreatedAt, it.UpdatedAt = now, now
	return it, nil
}

func (r *SQLiteRepository) UpdateRecurringItem(ctx context.Context, it core.RecurringItem) error {
	if err := it.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE recurring_items SET
		title = ?, type = ?, amount_cents = ?, category = ?, frequency = ?, start_date = ?,
		next_date = ?, last_generated_date = ?, active = ?, project_id = ?, updated_at = ?
		WHERE id = ?`,
		it.Title, it.Type, it.Amount.Cents, it.Category, it.Frequency, toMillis(it.StartDate),
		toMillis(it.NextDate), nullMillis(it.LastGeneratedDate), bool01(it.Active), nullInt(it.ProjectID),
		toMillis(r.now()), it.ID)
	if err != nil {
		return fmt.Errorf("update recurring item %d: %w", it.ID, err)
	}
	return affected(res)
}

func (r *SQLiteRepository) GetRecurringItem(ctx context.Context, id int64) (core.RecurringItem, error) {
	return getRecurring(ctx, r.db, id)
}

func getRecurring(ctx context.Context, q querier, id int64) (core.RecurringItem, error) {
	row := q.QueryRowContext(ctx, "SELECT "+recurringColumns+" FROM recurring_items WHERE id = ?", id)
	it, err := scanRecurring(row)
	if err != nil {
		return core.RecurringItem{}, fmt.Errorf("get recurring item %d: %w", id, notFound(err))
	}
	return it, nil
}

func (r *SQLiteRepository) DeleteRecurringItem(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "recurring_items", id)
}

func (r *SQLiteRepository) ListRecurringItems(ctx context.Context) ([]core.RecurringItem, error) {
	return r.queryRecurring(ctx, "SELECT "+recurringColumns+" FROM recurring_items ORDER BY next_date, id")
}

func (r *SQLiteRepository) ActiveRecurringItems(ctx context.Context) ([]core.RecurringItem, error) {
	return r.queryRecurring(ctx,
		"SELECT "+recurringColumns+" FROM recurring_items WHERE active = 1 ORDER BY next_date, id")
}

func (r *SQLiteRepository) queryRecurring(ctx context.Context, query string, args ...any) ([]core.RecurringItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring items: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringItem
	for rows.Next() {
		it, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// InRecurringTx opens an immediate write transaction, so the item row read
// inside fn cannot change under it until commit or rollback.
func (r *SQLiteRepository) InRecurringTx(ctx context.Context, id int64, fn func(tx ledger.RecurringTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recurring tx: %w", err)
	}

	rtx := &recurringTx{tx: tx, id: id, now: r.now()}
	if err := fn(rtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back recurring tx",
				"recurring_item_id", id,
				"error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recurring tx for item %d: %w", id, err)
	}
	return nil
}

type recurringTx struct {
	tx  *sql.Tx
	id  int64
	now time.Time
}

func (t *recurringTx) Item(ctx context.Context) (core.RecurringItem, error) {
	return getRecurring(ctx, t.tx, t.id)
}

func (t *recurringTx) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	return insertExpense(ctx, t.tx, e, t.now)
}

func (t *recurringTx) InsertIncome(ctx context.Context, i core.Income) (core.Income, error) {
	return insertIncome(ctx, t.tx, i, t.now)
}

func (t *recurringTx) AdvanceSchedule(ctx context.Context, next, lastGenerated time.Time) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE recurring_items
		SET next_date = ?, last_generated_date = ?, updated_at = ? WHERE id = ?`,
		toMillis(next), toMillis(lastGenerated), toMillis(t.now), t.id)
	if err != nil {
		return fmt.Errorf("advance recurring item %d: %w", t.id, err)
	}
	return affected(res)
}
