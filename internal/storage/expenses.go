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

const expenseColumns = `id, title, amount_cents, category, date, description, project_id,
	tags, receipt, recurring_item_id, created_at, updated_at`

const incomeColumns = `id, title, amount_cents, category, date, description, project_id,
	tags, recurring_item_id, created_at, updated_at`

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e                      core.Expense
		date, created, upd     int64
		projectID, recurringID sql.NullInt64
		tags                   string
	)
	if err := s.Scan(&e.ID, &e.Title, &e.Amount.Cents, &e.Category, &date, &e.Description,
		&projectID, &tags, &e.Receipt, &recurringID, &created, &upd); err != nil {
		return core.Expense{}, err
	}
	var err error
	if e.Tags, err = decodeTags(tags); err != nil {
		return core.Expense{}, err
	}
	e.Date = fromMillis(date)
	e.ProjectID = intPtr(projectID)
	e.RecurringItemID = intPtr(recurringID)
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(upd)
	return e, nil
}

func scanIncome(s scanner) (core.Income, error) {
	var (
		i                      core.Income
		date, created, upd     int64
		projectID, recurringID sql.NullInt64
		tags                   string
	)
	if err := s.Scan(&i.ID, &i.Title, &i.Amount.Cents, &i.Category, &date, &i.Description,
		&projectID, &tags, &recurringID, &created, &upd); err != nil {
		return core.Income{}, err
	}
	var err error
	if i.Tags, err = decodeTags(tags); err != nil {
		return core.Income{}, err
	}
	i.Date = fromMillis(date)
	i.ProjectID = intPtr(projectID)
	i.RecurringItemID = intPtr(recurringID)
	i.CreatedAt = fromMillis(created)
	i.UpdatedAt = fromMillis(upd)
	return i, nil
}

// insertExpense is shared by the plain store path and recurring transactions.
func insertExpense(ctx context.Context, q querier, e core.Expense, now time.Time) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	tags, err := encodeTags(e.Tags)
	if err != nil {
		return core.Expense{}, err
	}
	res, err := q.ExecContext(ctx, `INSERT INTO expenses
		(title, amount_cents, category, date, description, project_id, tags, receipt,
		 recurring_item_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Amount.Cents, e.Category, toMillis(e.Date), e.Description, nullInt(e.ProjectID),
		tags, e.Receipt, nullInt(e.RecurringItemID), toMillis(now), toMillis(now))
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.Expense{}, fmt.Errorf("expense id: %w", err)
	}
	e.CreatedAt, e.UpdatedAt = now, now
	return e, nil
}

func insertIncome(ctx context.Context, q querier, i core.Income, now time.Time) (core.Income, error) {
	if err := i.Validate(); err != nil {
		return core.Income{}, err
	}
	tags, err := encodeTags(i.Tags)
	if err != nil {
		return core.Income{}, err
	}
	res, err := q.ExecContext(ctx, `INSERT INTO incomes
		(title, amount_cents, category, date, description, project_id, tags,
		 recurring_item_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.Title, i.Amount.Cents, i.Category, toMillis(i.Date), i.Description, nullInt(i.ProjectID),
		tags, nullInt(i.RecurringItemID), toMillis(now), toMillis(now))
	if err != nil {
		return core.Income{}, fmt.Errorf("insert income: %w", err)
	}
	if i.ID, err = res.LastInsertId(); err != nil {
		return core.Income{}, fmt.Errorf("income id: %w", err)
	}
	i.CreatedAt, i.UpdatedAt = now, now
	return i, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	saved, err := insertExpense(ctx, r.db, e, r.now())
	if err != nil {
		return core.Expense{}, err
	}
	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", saved.ID,
		"title", saved.Title,
		"amount_cents", saved.Amount.Cents,
		"category", saved.Category)
	return saved, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	tags, err := encodeTags(e.Tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE expenses SET
		title = ?, amount_cents = ?, category = ?, date = ?, description = ?, project_id = ?,
		tags = ?, receipt = ?, recurring_item_id = ?, updated_at = ?
		WHERE id = ?`,
		e.Title, e.Amount.Cents, e.Category, toMillis(e.Date), e.Description, nullInt(e.ProjectID),
		tags, e.Receipt, nullInt(e.RecurringItemID), toMillis(r.now()), e.ID)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	return affected(res)
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, notFound(err))
	}
	return e, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "expenses", id)
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, rg ledger.Range) ([]core.Expense, error) {
	where, args := rangeWhere("date", rg)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses"+where+" ORDER BY date, id", args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListIncomes(ctx context.Context, rg ledger.Range) ([]core.Income, error) {
	where, args := rangeWhere("date", rg)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+incomeColumns+" FROM incomes"+where+" ORDER BY date, id", args...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		i, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "incomes", id)
}
