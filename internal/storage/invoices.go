package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"autonome/internal/core"
	"autonome/internal/ledger"
)

const invoiceColumns = `id, number, date, due_date, type, status, client_id, client_name, items,
	include_tps, include_tvq, subtotal_cents, tps_cents, tvq_cents, total_cents, notes,
	created_at, updated_at`

func scanInvoice(s scanner) (core.Invoice, error) {
	var (
		inv                core.Invoice
		date, created, upd int64
		due, clientID      sql.NullInt64
		tps, tvq           sql.NullInt64
		items              string
		inclTPS, inclTVQ   int
	)
	if err := s.Scan(&inv.ID, &inv.Number, &date, &due, &inv.Type, &inv.Status, &clientID,
		&inv.ClientName, &items, &inclTPS, &inclTVQ, &inv.Subtotal.Cents, &tps, &tvq,
		&inv.Total.Cents, &inv.Notes, &created, &upd); err != nil {
		return core.Invoice{}, err
	}
	if err := json.Unmarshal([]byte(items), &inv.Items); err != nil {
		return core.Invoice{}, fmt.Errorf("decode line items: %w", err)
	}
	inv.Date = fromMillis(date)
	inv.DueDate = timePtr(due)
	inv.ClientID = intPtr(clientID)
	inv.IncludeTPS = inclTPS != 0
	inv.IncludeTVQ = inclTVQ != 0
	inv.TPS = moneyPtr(tps)
	inv.TVQ = moneyPtr(tvq)
	inv.CreatedAt = fromMillis(created)
	inv.UpdatedAt = fromMillis(upd)
	return inv, nil
}

func encodeItems(items []core.LineItem) (string, error) {
	if items == nil {
		items = []core.LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode line items: %w", err)
	}
	return string(b), nil
}

func (r *SQLiteRepository) CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	items, err := encodeItems(inv.Items)
	if err != nil {
		return core.Invoice{}, err
	}
	now := r.now()
	res, err := r.db.ExecContext(ctx, `INSERT INTO invoices
		(number, date, due_date, type, status, client_id, client_name, items, include_tps,
		 include_tvq, subtotal_cents, tps_cents, tvq_cents, total_cents, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Number, toMillis(inv.Date), nullMillis(inv.DueDate), inv.Type, inv.Status,
		nullInt(inv.ClientID), inv.ClientName, items, bool01(inv.IncludeTPS), bool01(inv.IncludeTVQ),
		inv.Subtotal.Cents, nullMoney(inv.TPS), nullMoney(inv.TVQ), inv.Total.Cents, inv.Notes,
		toMillis(now), toMillis(now))
	if err != nil {
		return core.Invoice{}, fmt.Errorf("insert invoice: %w", err)
	}
	if inv.ID, err = res.LastInsertId(); err != nil {
		return core.Invoice{}, fmt.Errorf("invoice id: %w", err)
	}
	inv.CreatedAt, inv.UpdatedAt = now, now
	return inv, nil
}

func (r *SQLiteRepository) UpdateInvoice(ctx context.Context, inv core.Invoice) error {
	if err := inv.Validate(); err != nil {
		return err
	}
	items, err := encodeItems(inv.Items)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE invoices SET
		number = ?, date = ?, due_date = ?, type = ?, status = ?, client_id = ?, client_name = ?,
		items = ?, include_tps = ?, include_tvq = ?, subtotal_cents = ?, tps_cents = ?,
		tvq_cents = ?, total_cents = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		inv.Number, toMillis(inv.Date), nullMillis(inv.DueDate), inv.Type, inv.Status,
		nullInt(inv.ClientID), inv.ClientName, items, bool01(inv.IncludeTPS), bool01(inv.IncludeTVQ),
		inv.Subtotal.Cents, nullMoney(inv.TPS), nullMoney(inv.TVQ), inv.Total.Cents, inv.Notes,
		toMillis(r.now()), inv.ID)
	if err != nil {
		return fmt.Errorf("update invoice %d: %w", inv.ID, err)
	}
	return affected(res)
}

func (r *SQLiteRepository) GetInvoice(ctx context.Context, id int64) (core.Invoice, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id)
	inv, err := scanInvoice(row)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("get invoice %d: %w", id, notFound(err))
	}
	return inv, nil
}

func (r *SQLiteRepository) DeleteInvoice(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "invoices", id)
}

func (r *SQLiteRepository) ListInvoices(ctx context.Context, rg ledger.Range) ([]core.Invoice, error) {
	where, args := rangeWhere("date", rg)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+invoiceColumns+" FROM invoices"+where+" ORDER BY date, id", args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []core.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
