package storage

import (
	"context"
	"database/sql"
	"fmt"

	"autonome/internal/core"
	"autonome/internal/ledger"
)

// Clients

const clientColumns = `id, name, email, phone, address, notes, created_at, updated_at`

func scanClient(s scanner) (core.Client, error) {
	var (
		c            core.Client
		created, upd int64
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &created, &upd); err != nil {
		return core.Client{}, err
	}
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(upd)
	return c, nil
}

func (r *SQLiteRepository) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	if err := c.Validate(); err != nil {
		return core.Client{}, err
	}
	now := r.now()
	res, err := r.db.ExecContext(ctx, `INSERT INTO clients
		(name, email, phone, address, notes, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Email, c.Phone, c.Address, c.Notes, toMillis(now), toMillis(now))
	if err != nil {
		return core.Client{}, fmt.Errorf("insert client: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return core.Client{}, fmt.Errorf("client id: %w", err)
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return c, nil
}

func (r *SQLiteRepository) UpdateClient(ctx context.Context, c core.Client) error {
	if err := c.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE clients SET
		name = ?, email = ?, phone = ?, address = ?, notes = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Email, c.Phone, c.Address, c.Notes, toMillis(r.now()), c.ID)
	if err != nil {
		return fmt.Errorf("update client %d: %w", c.ID, err)
	}
	return affected(res)
}

func (r *SQLiteRepository) GetClient(ctx context.Context, id int64) (core.Client, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = ?", id)
	c, err := scanClient(row)
	if err != nil {
		return core.Client{}, fmt.Errorf("get client %d: %w", id, notFound(err))
	}
	return c, nil
}

func (r *SQLiteRepository) DeleteClient(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "clients", id)
}

func (r *SQLiteRepository) ListClients(ctx context.Context) ([]core.Client, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+clientColumns+" FROM clients ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []core.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Projects

const projectColumns = `id, name, client_id, color, hourly_rate_cents, status, description,
	created_at, updated_at`

func scanProject(s scanner) (core.Project, error) {
	var (
		p              core.Project
		created, upd   int64
		clientID, rate sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.Name, &clientID, &p.Color, &rate, &p.Status, &p.Description,
		&created, &upd); err != nil {
		return core.Project{}, err
	}
	p.ClientID = intPtr(clientID)
	p.HourlyRate = moneyPtr(rate)
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(upd)
	return p, nil
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	now := r.now()
	res, err := r.db.ExecContext(ctx, `INSERT INTO projects
		(name, client_id, color, hourly_rate_cents, status, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, nullInt(p.ClientID), p.Color, nullMoney(p.HourlyRate), p.Status, p.Description,
		toMillis(now), toMillis(now))
	if err != nil {
		return core.Project{}, fmt.Errorf("insert project: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return core.Project{}, fmt.Errorf("project id: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return p, nil
}

func (r *SQLiteRepository) UpdateProject(ctx context.Context, p core.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE projects SET
		name = ?, client_id = ?, color = ?, hourly_rate_cents = ?, status = ?, description = ?,
		updated_at = ? WHERE id = ?`,
		p.Name, nullInt(p.ClientID), p.Color, nullMoney(p.HourlyRate), p.Status, p.Description,
		toMillis(r.now()), p.ID)
	if err != nil {
		return fmt.Errorf("update project %d: %w", p.ID, err)
	}
	return affected(res)
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id int64) (core.Project, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	p, err := scanProject(row)
	if err != nil {
		return core.Project{}, fmt.Errorf("get project %d: %w", id, notFound(err))
	}
	return p, nil
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "projects", id)
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Jobs

const jobColumns = `id, client_id, client_name, date, description, address, status, notes,
	created_at, updated_at`

func scanJob(s scanner) (core.Job, error) {
	var (
		j                  core.Job
		date, created, upd int64
		clientID           sql.NullInt64
	)
	if err := s.Scan(&j.ID, &clientID, &j.ClientName, &date, &j.Description, &j.Address,
		&j.Status, &j.Notes, &created, &upd); err != nil {
		return core.Job{}, err
	}
	j.ClientID = intPtr(clientID)
	j.Date = fromMillis(date)
	j.CreatedAt = fromMillis(created)
	j.UpdatedAt = fromMillis(upd)
	return j, nil
}

func (r *SQLiteRepository) CreateJob(ctx context.Context, j core.Job) (core.Job, error) {
	if err := j.Validate(); err != nil {
		return core.Job{}, err
	}
	now := r.now()
	res, err := r.db.ExecContext(ctx, `INSERT INTO jobs
		(client_id, client_name, date, description, address, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt(j.ClientID), j.ClientName, toMillis(j.Date), j.Description, j.Address, j.Status,
		j.Notes, toMillis(now), toMillis(now))
	if err != nil {
		return core.Job{}, fmt.Errorf("insert job: %w", err)
	}
	if j.ID, err = res.LastInsertId(); err != nil {
		return core.Job{}, fmt.Errorf("job id: %w", err)
	}
	j.CreatedAt, j.UpdatedAt = now, now
	return j, nil
}

func (r *SQLiteRepository) UpdateJob(ctx context.Context, j core.Job) error {
	if err := j.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE jobs SET
		client_id = ?, client_name = ?, date = ?, description = ?, address = ?, status = ?,
		notes = ?, updated_at = ? WHERE id = ?`,
		nullInt(j.ClientID), j.ClientName, toMillis(j.Date), j.Description, j.Address, j.Status,
		j.Notes, toMillis(r.now()), j.ID)
	if err != nil {
		return fmt.Errorf("update job %d: %w", j.ID, err)
	}
	return affected(res)
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id int64) (core.Job, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	j, err := scanJob(row)
	if err != nil {
		return core.Job{}, fmt.Errorf("get job %d: %w", id, notFound(err))
	}
	return j, nil
}

func (r *SQLiteRepository) DeleteJob(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "jobs", id)
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, rg ledger.Range) ([]core.Job, error) {
	where, args := rangeWhere("date", rg)
	return r.queryJobs(ctx, "SELECT "+jobColumns+" FROM jobs"+where+" ORDER BY date, id", args...)
}

func (r *SQLiteRepository) ListJobsByStatus(ctx context.Context, status core.JobStatus) ([]core.Job, error) {
	return r.queryJobs(ctx, "SELECT "+jobColumns+" FROM jobs WHERE status = ? ORDER BY date, id", status)
}

func (r *SQLiteRepository) queryJobs(ctx context.Context, query string, args ...any) ([]core.Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []core.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
