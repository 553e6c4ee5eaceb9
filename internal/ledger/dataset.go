package ledger

import (
	"errors"
	"fmt"

	"autonome/internal/core"
)

// ErrInvalidDataset is returned when a dataset cannot be restored as is.
var ErrInvalidDataset = errors.New("invalid dataset")

// Dataset is every record collection of a ledger, with ids and timestamps
// as stored.
type Dataset struct {
	Sessions  []core.WorkSession
	Expenses  []core.Expense
	Incomes   []core.Income
	Clients   []core.Client
	Projects  []core.Project
	Mileage   []core.MileageEntry
	Jobs      []core.Job
	Invoices  []core.Invoice
	Recurring []core.RecurringItem
	Documents []core.Document
}

// Validate checks every record and requires ids that are positive and
// unique within their collection.
func (d Dataset) Validate() error {
	return errors.Join(
		check("workSessions", d.Sessions, func(v core.WorkSession) int64 { return v.ID }, core.WorkSession.Validate),
		check("expenses", d.Expenses, func(v core.Expense) int64 { return v.ID }, core.Expense.Validate),
		check("incomes", d.Incomes, func(v core.Income) int64 { return v.ID }, core.Income.Validate),
		check("clients", d.Clients, func(v core.Client) int64 { return v.ID }, core.Client.Validate),
		check("projects", d.Projects, func(v core.Project) int64 { return v.ID }, core.Project.Validate),
		check("mileage", d.Mileage, func(v core.MileageEntry) int64 { return v.ID }, core.MileageEntry.Validate),
		check("jobs", d.Jobs, func(v core.Job) int64 { return v.ID }, core.Job.Validate),
		check("invoices", d.Invoices, func(v core.Invoice) int64 { return v.ID }, core.Invoice.Validate),
		check("recurringItems", d.Recurring, func(v core.RecurringItem) int64 { return v.ID }, core.RecurringItem.Validate),
		check("documents", d.Documents, func(v core.Document) int64 { return v.ID }, core.Document.Validate),
	)
}

// Records counts the records across all collections.
func (d Dataset) Records() int {
	return len(d.Sessions) + len(d.Expenses) + len(d.Incomes) + len(d.Clients) +
		len(d.Projects) + len(d.Mileage) + len(d.Jobs) + len(d.Invoices) +
		len(d.Recurring) + len(d.Documents)
}

func check[T any](name string, rows []T, id func(T) int64, validate func(T) error) error {
	seen := make(map[int64]bool, len(rows))
	for i, v := range rows {
		n := id(v)
		if n <= 0 {
			return fmt.Errorf("%w: %s[%d]: id %d", ErrInvalidDataset, name, i, n)
		}
		if seen[n] {
			return fmt.Errorf("%w: %s[%d]: duplicate id %d", ErrInvalidDataset, name, i, n)
		}
		seen[n] = true
		if err := validate(v); err != nil {
			return fmt.Errorf("%w: %s[%d]: %w", ErrInvalidDataset, name, i, err)
		}
	}
	return nil
}
