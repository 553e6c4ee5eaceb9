package storage

import (
	"context"
	"fmt"
	"log/slog"

	"autonome/internal/core"
	"autonome/internal/ledger"
)

const documentColumns = `id, title, type, mime_type, data, date, tags, created_at, updated_at`

func scanDocument(s scanner) (core.Document, error) {
	var (
		d                  core.Document
		date, created, upd int64
		tags               string
	)
	if err := s.Scan(&d.ID, &d.Title, &d.Type, &d.MimeType, &d.Data, &date, &tags, &created, &upd); err != nil {
		return core.Document{}, err
	}
	var err error
	if d.Tags, err = decodeTags(tags); err != nil {
		return core.Document{}, err
	}
	d.Date = fromMillis(date)
	d.CreatedAt = fromMillis(created)
	d.UpdatedAt = fromMillis(upd)
	return d, nil
}

func (r *SQLiteRepository) CreateDocument(ctx context.Context, d core.Document) (core.Document, error) {
	if err := d.Validate(); err != nil {
		return core.Document{}, err
	}
	tags, err := encodeTags(d.Tags)
	if err != nil {
		return core.Document{}, err
	}
	now := r.now()
	res, err := r.db.ExecContext(ctx, `INSERT INTO documents
		(title, type, mime_type, data, date, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Title, d.Type, d.MimeType, d.Data, toMillis(d.Date), tags, toMillis(now), toMillis(now))
	if err != nil {
		return core.Document{}, fmt.Errorf("insert document: %w", err)
	}
	if d.ID, err = res.LastInsertId(); err != nil {
		return core.Document{}, fmt.Errorf("document id: %w", err)
	}
	d.CreatedAt, d.UpdatedAt = now, now
	slog.InfoContext(ctx, "Document saved to SQLite", "id", d.ID, "type", d.Type, "bytes", len(d.Data))
	return d, nil
}

func (r *SQLiteRepository) UpdateDocument(ctx context.Context, d core.Document) error {
	if err := d.Validate(); err != nil {
		return err
	}
	tags, err := encodeTags(d.Tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE documents SET
		title = ?, type = ?, mime_type = ?, data = ?, date = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		d.Title, d.Type, d.MimeType, d.Data, toMillis(d.Date), tags, toMillis(r.now()), d.ID)
	if err != nil {
		return fmt.Errorf("update document %d: %w", d.ID, err)
	}
	return affected(res)
}

func (r *SQLiteRepository) GetDocument(ctx context.Context, id int64) (core.Document, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	d, err := scanDocument(row)
	if err != nil {
		return core.Document{}, fmt.Errorf("get document %d: %w", id, notFound(err))
	}
	return d, nil
}

func (r *SQLiteRepository) DeleteDocument(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "documents", id)
}

func (r *SQLiteRepository) ListDocuments(ctx context.Context, rg ledger.Range) ([]core.Document, error) {
	where, args := rangeWhere("date", rg)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents"+where+" ORDER BY date, id", args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []core.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
