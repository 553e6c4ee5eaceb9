// Package ledger defines the record store ports shared by the storage
// backends, the recurring scheduler and the reporting engine.
package ledger

import (
	"context"
	"errors"
	"time"

	"autonome/internal/core"
)

var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInactive is returned inside a recurring transaction when the item
	// was deactivated after the pass listed it.
	ErrInactive = errors.New("recurring item inactive")
)

// Range is a half-open time interval [From, To). Zero bounds are open.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// Ports for the record store.
type (
	SessionStore interface {
		CreateSession(ctx context.Context, s core.WorkSession) (core.WorkSession, error)
		UpdateSession(ctx context.Context, s core.WorkSession) error
		GetSession(ctx context.Context, id int64) (core.WorkSession, error)
		DeleteSession(ctx context.Context, id int64) error
		ListSessions(ctx context.Context, r Range) ([]core.WorkSession, error)
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) error
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
		DeleteExpense(ctx context.Context, id int64) error
		ListExpenses(ctx context.Context, r Range) ([]core.Expense, error)
	}

	IncomeStore interface {
		ListIncomes(ctx context.Context, r Range) ([]core.Income, error)
		DeleteIncome(ctx context.Context, id int64) error
	}

	MileageStore interface {
		CreateMileage(ctx context.Context, m core.MileageEntry) (core.MileageEntry, error)
		UpdateMileage(ctx context.Context, m core.MileageEntry) error
		GetMileage(ctx context.Context, id int64) (core.MileageEntry, error)
		DeleteMileage(ctx context.Context, id int64) error
		ListMileage(ctx context.Context, r Range) ([]core.MileageEntry, error)
	}

	InvoiceStore interface {
		CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error)
		UpdateInvoice(ctx context.Context, inv core.Invoice) error
		GetInvoice(ctx context.Context, id int64) (core.Invoice, error)
		DeleteInvoice(ctx context.Context, id int64) error
		ListInvoices(ctx context.Context, r Range) ([]core.Invoice, error)
	}

	ClientStore interface {
		CreateClient(ctx context.Context, c core.Client) (core.Client, error)
		UpdateClient(ctx context.Context, c core.Client) error
		GetClient(ctx context.Context, id int64) (core.Client, error)
		DeleteClient(ctx context.Context, id int64) error
		ListClients(ctx context.Context) ([]core.Client, error)
	}

	ProjectStore interface {
		CreateProject(ctx context.Context, p core.Project) (core.Project, error)
		UpdateProject(ctx context.Context, p core.Project) error
		GetProject(ctx context.Context, id int64) (core.Project, error)
		DeleteProject(ctx context.Context, id int64) error
		ListProjects(ctx context.Context) ([]core.Project, error)
	}

	JobStore interface {
		CreateJob(ctx context.Context, j core.Job) (core.Job, error)
		UpdateJob(ctx context.Context, j core.Job) error
		GetJob(ctx context.Context, id int64) (core.Job, error)
		DeleteJob(ctx context.Context, id int64) error
		ListJobs(ctx context.Context, r Range) ([]core.Job, error)
		ListJobsByStatus(ctx context.Context, status core.JobStatus) ([]core.Job, error)
	}

	DocumentStore interface {
		CreateDocument(ctx context.Context, d core.Document) (core.Document, error)
		UpdateDocument(ctx context.Context, d core.Document) error
		GetDocument(ctx context.Context, id int64) (core.Document, error)
		DeleteDocument(ctx context.Context, id int64) error
		ListDocuments(ctx context.Context, r Range) ([]core.Document, error)
	}

	// RecurringTx is the view of the store inside one recurring item's
	// write transaction. Nothing is visible to other readers until commit.
	RecurringTx interface {
		// Item re-reads the recurring item from the store.
		Item(ctx context.Context) (core.RecurringItem, error)
		InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		InsertIncome(ctx context.Context, i core.Income) (core.Income, error)
		AdvanceSchedule(ctx context.Context, next, lastGenerated time.Time) error
	}

	RecurringStore interface {
		CreateRecurringItem(ctx context.Context, r core.RecurringItem) (core.RecurringItem, error)
		UpdateRecurringItem(ctx context.Context, r core.RecurringItem) error
		GetRecurringItem(ctx context.Context, id int64) (core.RecurringItem, error)
		DeleteRecurringItem(ctx context.Context, id int64) error
		ListRecurringItems(ctx context.Context) ([]core.RecurringItem, error)
		ActiveRecurringItems(ctx context.Context) ([]core.RecurringItem, error)
		// InRecurringTx runs fn in a write transaction scoped to item id.
		// The transaction commits when fn returns nil and rolls back otherwise.
		InRecurringTx(ctx context.Context, id int64, fn func(tx RecurringTx) error) error
	}

	// KVStore persists user settings as plain key-value pairs.
	KVStore interface {
		GetSetting(ctx context.Context, key string) (string, bool, error)
		SetSetting(ctx context.Context, key, value string) error
		Settings(ctx context.Context) (map[string]string, error)
	}

	// Restorer swaps the whole ledger for a dataset. Either every
	// collection is replaced or nothing changes. Settings are kept.
	Restorer interface {
		ReplaceAll(ctx context.Context, d Dataset) error
	}

	// Store is the full record store a backend provides.
	Store interface {
		SessionStore
		ExpenseStore
		IncomeStore
		MileageStore
		InvoiceStore
		ClientStore
		ProjectStore
		JobStore
		DocumentStore
		RecurringStore
		KVStore
		Restorer
		Close() error
	}
)
