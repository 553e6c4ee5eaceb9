// Package memory is an in-process record store. Data lives only as long as
// the process; it backs tests and the "memory" data backend.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"autonome/internal/core"
	"autonome/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu  sync.Mutex
	now func() time.Time

	sessions  *table[core.WorkSession]
	expenses  *table[core.Expense]
	incomes   *table[core.Income]
	mileage   *table[core.MileageEntry]
	invoices  *table[core.Invoice]
	clients   *table[core.Client]
	projects  *table[core.Project]
	jobs      *table[core.Job]
	documents *table[core.Document]
	recurring *table[core.RecurringItem]
	settings  map[string]string
}

func New() *Store {
	return &Store{
		now: time.Now,
		sessions: newTable(fields[core.WorkSession]{
			id:      func(v core.WorkSession) int64 { return v.ID },
			at:      func(v core.WorkSession) time.Time { return v.StartTime },
			created: func(v core.WorkSession) time.Time { return v.CreatedAt },
			stamp: func(v *core.WorkSession, id int64, c, u time.Time) {
				v.ID, v.CreatedAt, v.UpdatedAt = id, c, u
			},
		}),
		expenses: newTable(fields[core.Expense]{
			id:      func(v core.Expense) int64 { return v.ID },
			at:      func(v core.Expense) time.Time { return v.Date },
			created: func(v core.Expense) time.Time { return v.CreatedAt },
			stamp: func(v *core.Expense, id int64, c, u time.Time) {
				v.ID, v.CreatedAt, v.UpdatedAt = id, c, u
			},
		}),
		incomes: newTable(fields[core.Income]{
			id:      func(v core.Income) int64 { return v.ID },
			at:      func(v core.Income) time.Time { return v.Date },
			created: func(v core.Income) time.Time { return v.CreatedAt },
			stamp: func(v *core.Income, id int64, c, u time.Time) {
				v.ID, v.CreatedAt, v.UpdatedAt = id, c, u
			},
		}),
		mileage: newTable(fields[core.MileageEntry]{
			id:      func(v core.MileageEntry) int64 { return v.ID },
			at:      func(v core.MileageEntry) time.Time { return v.Date },
			created: func(v core.MileageEntry) time.Time { return v.CreatedAt },
			stamp: func(v *core.MileageEntry, id int64, c, u time.Time) {
				v.ID, v.CreatedAt, v.UpdatedAt = id, c, u
			},
		}),
		invoices: newTable(fields[core.Invoice]{
			id:      func(v core.Invoice) int64 { return v.ID },
			at:      func(v core.Invoice) time.Time { return v.Date },
			created: func(v core.Invoice) time.Time { return v.CreatedAt },
			stamp: func(v *core.Invoice, id int64, c, u time.Time) {
				v.ID, v.CreatedAt, v.UpdatedAt = id, c, u
			},
		}),
		clients: newTable(fields[core.Client]{
			id:      func(v core.Client) int64 { return v.ID },
			at:      func(v core.Client) time.Time { return v.CreatedAt },
			created: func(v core.Client) time.Time { return v.CreatedAt },
			stamp: func(v *core.Client, id int64, c, u time.Time) {
				v.ID, v.CreatedAt, v.UpdatedAt = id, c, u
			},
		}),
		projects: newTable(fields[core.Project]{
			id:      func(v core.Project) int64 { return v.ID },
			at:      func(v core.Project) time.Time { return v.CreatedAt },
			created: func(v core.Project) time.Time { return v.CreatedAt },
			stamp: func(v *core.Project, id int64, c, u time.Time) {
				v.ID, v.CreatedAt, v.UpdatedAt = id, c, u
			},
		}),
		jobs: newTable(fields[core.Job]{
			id:      func(v core.Job) int64 { return v.ID },
			at:      func(v core.Job) time.Time { return v.Date },
			created: func(v core.Job) time.Time { return v.CreatedAt },
			stamp: func(v *core.Job, id int64, c, u time.Time) {
				v.ID, v.CreatedAt, v.UpdatedAt = id, c, u
			},
		}),
		documents: newTable(fields[core.Document]{
			id:      func(v core.Document) int64 { return v.ID },
			at:      func(v core.Document) time.Time { return v.Date },
			created: func(v core.Document) time.Time { return v.CreatedAt },
			stamp: func(v *core.Document, id int64, c, u time.Time) {
				v.ID, v.CreatedAt, v.UpdatedAt = id, c, u
			},
		}),
		recurring: newTable(fields[core.RecurringItem]{
			id:      func(v core.RecurringItem) int64 { return v.ID },
			at:      func(v core.RecurringItem) time.Time { return v.NextDate },
			created: func(v core.RecurringItem) time.Time { return v.CreatedAt },
			stamp: func(v *core.RecurringItem, id int64, c, u time.Time) {
				v.ID, v.CreatedAt, v.UpdatedAt = id, c, u
			},
		}),
		settings: make(map[string]string),
	}
}

// SetClock replaces the clock used for CreatedAt/UpdatedAt stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Close() error { return nil }

// Work sessions

func (s *Store) CreateSession(_ context.Context, v core.WorkSession) (core.WorkSession, error) {
	if err := v.Validate(); err != nil {
		return core.WorkSession{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.insert(v, s.now()), nil
}

func (s *Store) UpdateSession(_ context.Context, v core.WorkSession) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.update(v, s.now())
}

func (s *Store) GetSession(_ context.Context, id int64) (core.WorkSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.get(id)
}

func (s *Store) DeleteSession(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.delete(id)
}

func (s *Store) ListSessions(_ context.Context, r ledger.Range) ([]core.WorkSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.list(r), nil
}

// Expenses

func (s *Store) CreateExpense(_ context.Context, v core.Expense) (core.Expense, error) {
	if err := v.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expenses.insert(v, s.now()), nil
}

func (s *Store) UpdateExpense(_ context.Context, v core.Expense) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expenses.update(v, s.now())
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expenses.get(id)
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expenses.delete(id)
}

func (s *Store) ListExpenses(_ context.Context, r ledger.Range) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expenses.list(r), nil
}

// Incomes

func (s *Store) ListIncomes(_ context.Context, r ledger.Range) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incomes.list(r), nil
}

func (s *Store) DeleteIncome(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incomes.delete(id)
}

// Mileage

func (s *Store) CreateMileage(_ context.Context, v core.MileageEntry) (core.MileageEntry, error) {
	if err := v.Validate(); err != nil {
		return core.MileageEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mileage.insert(v, s.now()), nil
}

func (s *Store) UpdateMileage(_ context.Context, v core.MileageEntry) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mileage.update(v, s.now())
}

func (s *Store) GetMileage(_ context.Context, id int64) (core.MileageEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mileage.get(id)
}

func (s *Store) DeleteMileage(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mileage.delete(id)
}

func (s *Store) ListMileage(_ context.Context, r ledger.Range) ([]core.MileageEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mileage.list(r), nil
}

// Invoices

func (s *Store) CreateInvoice(_ context.Context, v core.Invoice) (core.Invoice, error) {
	if err := v.Validate(); err != nil {
		return core.Invoice{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoices.insert(v, s.now()), nil
}

func (s *Store) UpdateInvoice(_ context.Context, v core.Invoice) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoices.update(v, s.now())
}

func (s *Store) GetInvoice(_ context.Context, id int64) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoices.get(id)
}

func (s *Store) DeleteInvoice(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoices.delete(id)
}

func (s *Store) ListInvoices(_ context.Context, r ledger.Range) ([]core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoices.list(r), nil
}

// Clients

func (s *Store) CreateClient(_ context.Context, v core.Client) (core.Client, error) {
	if err := v.Validate(); err != nil {
		return core.Client{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients.insert(v, s.now()), nil
}

func (s *Store) UpdateClient(_ context.Context, v core.Client) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients.update(v, s.now())
}

func (s *Store) GetClient(_ context.Context, id int64) (core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients.get(id)
}

func (s *Store) DeleteClient(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients.delete(id)
}

func (s *Store) ListClients(_ context.Context) ([]core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients.list(ledger.Range{}), nil
}

// Projects

func (s *Store) CreateProject(_ context.Context, v core.Project) (core.Project, error) {
	if err := v.Validate(); err != nil {
		return core.Project{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects.insert(v, s.now()), nil
}

func (s *Store) UpdateProject(_ context.Context, v core.Project) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects.update(v, s.now())
}

func (s *Store) GetProject(_ context.Context, id int64) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects.get(id)
}

func (s *Store) DeleteProject(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects.delete(id)
}

func (s *Store) ListProjects(_ context.Context) ([]core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects.list(ledger.Range{}), nil
}

// Jobs

func (s *Store) CreateJob(_ context.Context, v core.Job) (core.Job, error) {
	if err := v.Validate(); err != nil {
		return core.Job{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs.insert(v, s.now()), nil
}

func (s *Store) UpdateJob(_ context.Context, v core.Job) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs.update(v, s.now())
}

func (s *Store) GetJob(_ context.Context, id int64) (core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs.get(id)
}

func (s *Store) DeleteJob(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs.delete(id)
}

func (s *Store) ListJobs(_ context.Context, r ledger.Range) ([]core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs.list(r), nil
}

func (s *Store) ListJobsByStatus(_ context.Context, status core.JobStatus) ([]core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Job
	for _, j := range s.jobs.list(ledger.Range{}) {
		if j.Status == status {
			out = append(out, j)
		}
	}
	return out, nil
}

// Documents

func (s *Store) CreateDocument(_ context.Context, v core.Document) (core.Document, error) {
	if err := v.Validate(); err != nil {
		return core.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents.insert(v, s.now()), nil
}

func (s *Store) UpdateDocument(_ context.Context, v core.Document) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents.update(v, s.now())
}

func (s *Store) GetDocument(_ context.Context, id int64) (core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents.get(id)
}

func (s *Store) DeleteDocument(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents.delete(id)
}

func (s *Store) ListDocuments(_ context.Context, r ledger.Range) ([]core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents.list(r), nil
}

// ReplaceAll swaps every table for the rows of d under one lock. Settings
// are kept.
func (s *Store) ReplaceAll(_ context.Context, d ledger.Dataset) error {
	if err := d.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sessions = s.sessions.replaced(d.Sessions, now)
	s.expenses = s.expenses.replaced(d.Expenses, now)
	s.incomes = s.incomes.replaced(d.Incomes, now)
	s.mileage = s.mileage.replaced(d.Mileage, now)
	s.invoices = s.invoices.replaced(d.Invoices, now)
	s.clients = s.clients.replaced(d.Clients, now)
	s.projects = s.projects.replaced(d.Projects, now)
	s.jobs = s.jobs.replaced(d.Jobs, now)
	s.documents = s.documents.replaced(d.Documents, now)
	s.recurring = s.recurring.replaced(d.Recurring, now)
	return nil
}

// Settings

func (s *Store) GetSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	return v, ok, nil
}

func (s *Store) SetSetting(_ context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("empty setting key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *Store) Settings(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out, nil
}
