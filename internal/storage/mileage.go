package storage

import (
	"context"
	"database/sql"
	"fmt"

	"autonome/internal/core"
	"autonome/internal/ledger"
)

const mileageColumns = `id, date, start_address, end_address, distance_km, purpose,
	start_time, end_time, start_location, end_location, created_at, updated_at`

func scanMileage(s scanner) (core.MileageEntry, error) {
	var (
		m                  core.MileageEntry
		date, created, upd int64
		start, end         sql.NullInt64
		startLoc, endLoc   sql.NullString
	)
	if err := s.Scan(&m.ID, &date, &m.StartAddress, &m.EndAddress, &m.Distance, &m.Purpose,
		&start, &end, &startLoc, &endLoc, &created, &upd); err != nil {
		return core.MileageEntry{}, err
	}
	var err error
	if m.StartLocation, err = decodeCoord(startLoc); err != nil {
		return core.MileageEntry{}, err
	}
	if m.EndLocation, err = decodeCoord(endLoc); err != nil {
		return core.MileageEntry{}, err
	}
	m.Date = fromMillis(date)
	m.StartTime = timePtr(start)
	m.EndTime = timePtr(end)
	m.CreatedAt = fromMillis(created)
	m.UpdatedAt = fromMillis(upd)
	return m, nil
}

func (r *SQLiteRepository) CreateMileage(ctx context.Context, m core.MileageEntry) (core.MileageEntry, error) {
	if err := m.Validate(); err != nil {
		return core.MileageEntry{}, err
	}
	startLoc, err := encodeCoord(m.StartLocation)
	if err != nil {
		return core.MileageEntry{}, err
	}
	endLoc, err := encodeCoord(m.EndLocation)
	if err != nil {
		return core.MileageEntry{}, err
	}
	now := r.now()
	res, err := r.db.ExecContext(ctx, `INSERT INTO mileage
		(date, start_address, end_address, distance_km, purpose, start_time, end_time,
		 start_location, end_location, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		toMillis(m.Date), m.StartAddress, m.EndAddress, m.Distance, m.Purpose,
		nullMillis(m.StartTime), nullMillis(m.EndTime), startLoc, endLoc, toMillis(now), toMillis(now))
	if err != nil {
		return core.MileageEntry{}, fmt.Errorf("insert mileage: %w", err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return core.MileageEntry{}, fmt.Errorf("mileage id: %w", err)
	}
	m.CreatedAt, m.UpdatedAt = now, now
	return m, nil
}

func (r *SQLiteRepository) UpdateMileage(ctx context.Context, m core.MileageEntry) error {
	if err := m.Validate(); err != nil {
		return err
	}
	startLoc, err := encodeCoord(m.StartLocation)
	if err != nil {
		return err
	}
	endLoc, err := encodeCoord(m.EndLocation)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE mileage SET
		date = ?, start_address = ?, end_address = ?, distance_km = ?, purpose = ?,
		start_time = ?, end_time = ?, start_location = ?, end_location = ?, updated_at = ?
		WHERE id = ?`,
		toMillis(m.Date), m.StartAddress, m.EndAddress, m.Distance, m.Purpose,
		nullMillis(m.StartTime), nullMillis(m.EndTime), startLoc, endLoc, toMillis(r.now()), m.ID)
	if err != nil {
		return fmt.Errorf("update mileage %d: %w", m.ID, err)
	}
	return affected(res)
}

func (r *SQLiteRepository) GetMileage(ctx context.Context, id int64) (core.MileageEntry, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+mileageColumns+" FROM mileage WHERE id = ?", id)
	m, err := scanMileage(row)
	if err != nil {
		return core.MileageEntry{}, fmt.Errorf("get mileage %d: %w", id, notFound(err))
	}
	return m, nil
}

func (r *SQLiteRepository) DeleteMileage(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "mileage", id)
}

func (r *SQLiteRepository) ListMileage(ctx context.Context, rg ledger.Range) ([]core.MileageEntry, error) {
	where, args := rangeWhere("date", rg)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+mileageColumns+" FROM mileage"+where+" ORDER BY date, id", args...)
	if err != nil {
		return nil, fmt.Errorf("list mileage: %w", err)
	}
	defer rows.Close()

	var out []core.MileageEntry
	for rows.Next() {
		m, err := scanMileage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mileage: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
