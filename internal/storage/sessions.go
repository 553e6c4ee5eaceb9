package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"autonome/internal/core"
	"autonome/internal/ledger"
)

const sessionColumns = `id, start_time, end_time, hourly_rate_cents, total_earned_cents,
	client_id, project_id, notes, start_location, end_location, created_at, updated_at`

func scanSession(s scanner) (core.WorkSession, error) {
	var (
		ws                  core.WorkSession
		start, created, upd int64
		end, earned         sql.NullInt64
		clientID, projectID sql.NullInt64
		startLoc, endLoc    sql.NullString
	)
	if err := s.Scan(&ws.ID, &start, &end, &ws.HourlyRate.Cents, &earned,
		&clientID, &projectID, &ws.Notes, &startLoc, &endLoc, &created, &upd); err != nil {
		return core.WorkSession{}, err
	}
	var err error
	if ws.StartLocation, err = decodeCoord(startLoc); err != nil {
		return core.WorkSession{}, err
	}
	if ws.EndLocation, err = decodeCoord(endLoc); err != nil {
		return core.WorkSession{}, err
	}
	ws.StartTime = fromMillis(start)
	ws.EndTime = timePtr(end)
	ws.TotalEarned = moneyPtr(earned)
	ws.ClientID = intPtr(clientID)
	ws.ProjectID = intPtr(projectID)
	ws.CreatedAt = fromMillis(created)
	ws.UpdatedAt = fromMillis(upd)
	return ws, nil
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, ws core.WorkSession) (core.WorkSession, error) {
	if err := ws.Validate(); err != nil {
		return core.WorkSession{}, err
	}
	startLoc, err := encodeCoord(ws.StartLocation)
	if err != nil {
		return core.WorkSession{}, err
	}
	endLoc, err := encodeCoord(ws.EndLocation)
	if err != nil {
		return core.WorkSession{}, err
	}
	now := r.now()
	res, err := r.db.ExecContext(ctx, `INSERT INTO work_sessions
		(start_time, end_time, hourly_rate_cents, total_earned_cents, client_id, project_id,
		 notes, start_location, end_location, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		toMillis(ws.StartTime), nullMillis(ws.EndTime), ws.HourlyRate.Cents, nullMoney(ws.TotalEarned),
		nullInt(ws.ClientID), nullInt(ws.ProjectID), ws.Notes, startLoc, endLoc,
		toMillis(now), toMillis(now))
	if err != nil {
		return core.WorkSession{}, fmt.Errorf("insert work session: %w", err)
	}
	if ws.ID, err = res.LastInsertId(); err != nil {
		return core.WorkSession{}, fmt.Errorf("work session id: %w", err)
	}
	ws.CreatedAt, ws.UpdatedAt = now, now

	slog.DebugContext(ctx, "Work session saved", "id", ws.ID, "start", ws.StartTime)
	return ws, nil
}

func (r *SQLiteRepository) UpdateSession(ctx context.Context, ws core.WorkSession) error {
	if err := ws.Validate(); err != nil {
		return err
	}
	startLoc, err := encodeCoord(ws.StartLocation)
	if err != nil {
		return err
	}
	endLoc, err := encodeCoord(ws.EndLocation)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE work_sessions SET
		start_time = ?, end_time = ?, hourly_rate_cents = ?, total_earned_cents = ?,
		client_id = ?, project_id = ?, notes = ?, start_location = ?, end_location = ?, updated_at = ?
		WHERE id = ?`,
		toMillis(ws.StartTime), nullMillis(ws.EndTime), ws.HourlyRate.Cents, nullMoney(ws.TotalEarned),
		nullInt(ws.ClientID), nullInt(ws.ProjectID), ws.Notes, startLoc, endLoc,
		toMillis(r.now()), ws.ID)
	if err != nil {
		return fmt.Errorf("update work session %d: %w", ws.ID, err)
	}
	return affected(res)
}

func (r *SQLiteRepository) GetSession(ctx context.Context, id int64) (core.WorkSession, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM work_sessions WHERE id = ?", id)
	ws, err := scanSession(row)
	if err != nil {
		return core.WorkSession{}, fmt.Errorf("get work session %d: %w", id, notFound(err))
	}
	return ws, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "work_sessions", id)
}

func (r *SQLiteRepository) ListSessions(ctx context.Context, rg ledger.Range) ([]core.WorkSession, error) {
	where, args := rangeWhere("start_time", rg)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM work_sessions"+where+" ORDER BY start_time, id", args...)
	if err != nil {
		return nil, fmt.Errorf("list work sessions: %w", err)
	}
	defer rows.Close()

	var out []core.WorkSession
	for rows.Next() {
		ws, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work session: %w", err)
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}
