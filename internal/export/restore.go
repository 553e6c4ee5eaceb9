package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"autonome/internal/core"
	"autonome/internal/ledger"
)

// ErrInvalidBackup is returned for documents that are not a ledger backup.
var ErrInvalidBackup = errors.New("invalid backup file")

// ReadBackup decodes a backup document. Work sessions and expenses must be
// present, even when empty; any version up to BackupVersion is accepted.
func ReadBackup(r io.Reader) (Backup, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Backup{}, fmt.Errorf("%w: read: %v", ErrInvalidBackup, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Backup{}, fmt.Errorf("%w: empty file", ErrInvalidBackup)
	}

	var required struct {
		Sessions json.RawMessage `json:"workSessions"`
		Expenses json.RawMessage `json:"expenses"`
	}
	if err := json.Unmarshal(raw, &required); err != nil {
		return Backup{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if required.Sessions == nil || required.Expenses == nil {
		return Backup{}, fmt.Errorf("%w: workSessions and expenses are required", ErrInvalidBackup)
	}

	var b Backup
	if err := json.Unmarshal(raw, &b); err != nil {
		return Backup{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if b.Version > BackupVersion {
		return Backup{}, fmt.Errorf("%w: version %d is newer than %d", ErrInvalidBackup, b.Version, BackupVersion)
	}
	return b, nil
}

// Dataset returns the records of b. Records without an id are numbered
// after the largest id of their collection.
func (b Backup) Dataset() ledger.Dataset {
	return ledger.Dataset{
		Sessions:  numbered(b.Sessions, func(v *core.WorkSession) *int64 { return &v.ID }),
		Expenses:  numbered(b.Expenses, func(v *core.Expense) *int64 { return &v.ID }),
		Incomes:   numbered(b.Incomes, func(v *core.Income) *int64 { return &v.ID }),
		Clients:   numbered(b.Clients, func(v *core.Client) *int64 { return &v.ID }),
		Projects:  numbered(b.Projects, func(v *core.Project) *int64 { return &v.ID }),
		Mileage:   numbered(b.Mileage, func(v *core.MileageEntry) *int64 { return &v.ID }),
		Jobs:      numbered(b.Jobs, func(v *core.Job) *int64 { return &v.ID }),
		Invoices:  numbered(b.Invoices, func(v *core.Invoice) *int64 { return &v.ID }),
		Recurring: numbered(b.Recurring, func(v *core.RecurringItem) *int64 { return &v.ID }),
		Documents: numbered(b.Documents, func(v *core.Document) *int64 { return &v.ID }),
	}
}

func numbered[T any](rows []T, id func(*T) *int64) []T {
	if len(rows) == 0 {
		return nil
	}
	out := make([]T, len(rows))
	copy(out, rows)
	var top int64
	for i := range out {
		top = max(top, *id(&out[i]))
	}
	for i := range out {
		if p := id(&out[i]); *p == 0 {
			top++
			*p = top
		}
	}
	return out
}

// ImportBackup replaces the whole ledger in store with the records of b and
// returns how many were restored. On error the ledger is unchanged.
func ImportBackup(ctx context.Context, store ledger.Restorer, b Backup) (int, error) {
	d := b.Dataset()
	if err := store.ReplaceAll(ctx, d); err != nil {
		return 0, fmt.Errorf("restore backup: %w", err)
	}
	return d.Records(), nil
}
