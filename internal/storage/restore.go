package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"autonome/internal/ledger"
)

// restoreSet is one table's rows in the column order of its *Columns const.
type restoreSet struct {
	table   string
	columns string
	rows    [][]any
}

// ReplaceAll deletes every record and inserts d with its ids in one write
// transaction. Settings are left alone.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, d ledger.Dataset) error {
	if err := d.Validate(); err != nil {
		return err
	}
	sets, err := restoreSets(d, r.now())
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore tx: %w", err)
	}
	if err := restoreInTx(ctx, tx, sets); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back restore tx", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit restore tx: %w", err)
	}
	slog.InfoContext(ctx, "Ledger restored in SQLite", "records", d.Records())
	return nil
}

func restoreInTx(ctx context.Context, q querier, sets []restoreSet) error {
	for _, s := range sets {
		if _, err := q.ExecContext(ctx, "DELETE FROM "+s.table); err != nil {
			return fmt.Errorf("clear %s: %w", s.table, err)
		}
	}
	for _, s := range sets {
		if len(s.rows) == 0 {
			continue
		}
		n := strings.Count(s.columns, ",") + 1
		stmt := "INSERT INTO " + s.table + " (" + s.columns + ") VALUES (" +
			strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
		for _, args := range s.rows {
			if _, err := q.ExecContext(ctx, stmt, args...); err != nil {
				return fmt.Errorf("restore %s id %v: %w", s.table, args[0], err)
			}
		}
	}
	return nil
}

// stampOr returns t in unix milliseconds, or now when t is unset.
func stampOr(t, now time.Time) int64 {
	if t.IsZero() {
		return toMillis(now)
	}
	return toMillis(t)
}

func restoreSets(d ledger.Dataset, now time.Time) ([]restoreSet, error) {
	sets := []restoreSet{
		{table: "clients", columns: clientColumns},
		{table: "projects", columns: projectColumns},
		{table: "work_sessions", columns: sessionColumns},
		{table: "expenses", columns: expenseColumns},
		{table: "incomes", columns: incomeColumns},
		{table: "mileage", columns: mileageColumns},
		{table: "invoices", columns: invoiceColumns},
		{table: "jobs", columns: jobColumns},
		{table: "recurring_items", columns: recurringColumns},
		{table: "documents", columns: documentColumns},
	}

	for _, c := range d.Clients {
		sets[0].rows = append(sets[0].rows, []any{c.ID, c.Name, c.Email, c.Phone, c.Address, c.Notes,
			stampOr(c.CreatedAt, now), stampOr(c.UpdatedAt, now)})
	}
	for _, p := range d.Projects {
		sets[1].rows = append(sets[1].rows, []any{p.ID, p.Name, nullInt(p.ClientID), p.Color,
			nullMoney(p.HourlyRate), p.Status, p.Description, stampOr(p.CreatedAt, now), stampOr(p.UpdatedAt, now)})
	}
	for _, ws := range d.Sessions {
		startLoc, err := encodeCoord(ws.StartLocation)
		if err != nil {
			return nil, err
		}
		endLoc, err := encodeCoord(ws.EndLocation)
		if err != nil {
			return nil, err
		}
		sets[2].rows = append(sets[2].rows, []any{ws.ID, toMillis(ws.StartTime), nullMillis(ws.EndTime),
			ws.HourlyRate.Cents, nullMoney(ws.TotalEarned), nullInt(ws.ClientID), nullInt(ws.ProjectID),
			ws.Notes, startLoc, endLoc, stampOr(ws.CreatedAt, now), stampOr(ws.UpdatedAt, now)})
	}
	for _, e := range d.Expenses {
		tags, err := encodeTags(e.Tags)
		if err != nil {
			return nil, err
		}
		sets[3].rows = append(sets[3].rows, []any{e.ID, e.Title, e.Amount.Cents, e.Category,
			toMillis(e.Date), e.Description, nullInt(e.ProjectID), tags, e.Receipt,
			nullInt(e.RecurringItemID), stampOr(e.CreatedAt, now), stampOr(e.UpdatedAt, now)})
	}
	for _, i := range d.Incomes {
		tags, err := encodeTags(i.Tags)
		if err != nil {
			return nil, err
		}
		sets[4].rows = append(sets[4].rows, []any{i.ID, i.Title, i.Amount.Cents, i.Category,
			toMillis(i.Date), i.Description, nullInt(i.ProjectID), tags, nullInt(i.RecurringItemID),
			stampOr(i.CreatedAt, now), stampOr(i.UpdatedAt, now)})
	}
	for _, m := range d.Mileage {
		startLoc, err := encodeCoord(m.StartLocation)
		if err != nil {
			return nil, err
		}
		endLoc, err := encodeCoord(m.EndLocation)
		if err != nil {
			return nil, err
		}
		sets[5].rows = append(sets[5].rows, []any{m.ID, toMillis(m.Date), m.StartAddress, m.EndAddress,
			m.Distance, m.Purpose, nullMillis(m.StartTime), nullMillis(m.EndTime), startLoc, endLoc,
			stampOr(m.CreatedAt, now), stampOr(m.UpdatedAt, now)})
	}
	for _, inv := range d.Invoices {
		items, err := encodeItems(inv.Items)
		if err != nil {
			return nil, err
		}
		sets[6].rows = append(sets[6].rows, []any{inv.ID, inv.Number, toMillis(inv.Date),
			nullMillis(inv.DueDate), inv.Type, inv.Status, nullInt(inv.ClientID), inv.ClientName, items,
			bool01(inv.IncludeTPS), bool01(inv.IncludeTVQ), inv.Subtotal.Cents, nullMoney(inv.TPS),
			nullMoney(inv.TVQ), inv.Total.Cents, inv.Notes, stampOr(inv.CreatedAt, now), stampOr(inv.UpdatedAt, now)})
	}
	for _, j := range d.Jobs {
		sets[7].rows = append(sets[7].rows, []any{j.ID, nullInt(j.ClientID), j.ClientName, toMillis(j.Date),
			j.Description, j.Address, j.Status, j.Notes, stampOr(j.CreatedAt, now), stampOr(j.UpdatedAt, now)})
	}
	for _, it := range d.Recurring {
		sets[8].rows = append(sets[8].rows, []any{it.ID, it.Title, it.Type, it.Amount.Cents, it.Category,
			it.Frequency, toMillis(it.StartDate), toMillis(it.NextDate), nullMillis(it.LastGeneratedDate),
			bool01(it.Active), nullInt(it.ProjectID), stampOr(it.CreatedAt, now), stampOr(it.UpdatedAt, now)})
	}
	for _, doc := range d.Documents {
		tags, err := encodeTags(doc.Tags)
		if err != nil {
			return nil, err
		}
		sets[9].rows = append(sets[9].rows, []any{doc.ID, doc.Title, doc.Type, doc.MimeType, doc.Data,
			toMillis(doc.Date), tags, stampOr(doc.CreatedAt, now), stampOr(doc.UpdatedAt, now)})
	}
	return sets, nil
}
