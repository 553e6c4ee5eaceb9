package export

import (
	"context"
	"fmt"
	"time"

	"autonome/internal/ledger"
)

// Load reads collection from store within r and flattens it into a table.
func Load(ctx context.Context, store ledger.Store, collection string, r ledger.Range, now time.Time) (Table, error) {
	switch collection {
	case "sessions":
		v, err := store.ListSessions(ctx, r)
		return SessionsTable(v), err
	case "expenses":
		v, err := store.ListExpenses(ctx, r)
		return ExpensesTable(v), err
	case "incomes":
		v, err := store.ListIncomes(ctx, r)
		return IncomesTable(v), err
	case "mileage":
		v, err := store.ListMileage(ctx, r)
		return MileageTable(v), err
	case "invoices":
		v, err := store.ListInvoices(ctx, r)
		return InvoicesTable(v, now), err
	case "clients":
		v, err := store.ListClients(ctx)
		return ClientsTable(v), err
	case "jobs":
		v, err := store.ListJobs(ctx, r)
		return JobsTable(v), err
	case "documents":
		v, err := store.ListDocuments(ctx, r)
		return DocumentsTable(v), err
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
}

// LoadBackup reads every collection into a backup document.
func LoadBackup(ctx context.Context, store ledger.Store, now time.Time) (Backup, error) {
	var (
		b   = Backup{Version: BackupVersion, Timestamp: now.UTC()}
		all ledger.Range
		err error
	)
	if b.Sessions, err = store.ListSessions(ctx, all); err != nil {
		return Backup{}, fmt.Errorf("sessions: %w", err)
	}
	if b.Expenses, err = store.ListExpenses(ctx, all); err != nil {
		return Backup{}, fmt.Errorf("expenses: %w", err)
	}
	if b.Incomes, err = store.ListIncomes(ctx, all); err != nil {
		return Backup{}, fmt.Errorf("incomes: %w", err)
	}
	if b.Mileage, err = store.ListMileage(ctx, all); err != nil {
		return Backup{}, fmt.Errorf("mileage: %w", err)
	}
	if b.Invoices, err = store.ListInvoices(ctx, all); err != nil {
		return Backup{}, fmt.Errorf("invoices: %w", err)
	}
	if b.Clients, err = store.ListClients(ctx); err != nil {
		return Backup{}, fmt.Errorf("clients: %w", err)
	}
	if b.Projects, err = store.ListProjects(ctx); err != nil {
		return Backup{}, fmt.Errorf("projects: %w", err)
	}
	if b.Jobs, err = store.ListJobs(ctx, all); err != nil {
		return Backup{}, fmt.Errorf("jobs: %w", err)
	}
	if b.Recurring, err = store.ListRecurringItems(ctx); err != nil {
		return Backup{}, fmt.Errorf("recurring items: %w", err)
	}
	if b.Documents, err = store.ListDocuments(ctx, all); err != nil {
		return Backup{}, fmt.Errorf("documents: %w", err)
	}
	return b, nil
}
