package ledger

import (
	"errors"
	"testing"
	"time"

	"autonome/internal/core"
)

func TestDatasetValidate(t *testing.T) {
	day := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	expense := func(id int64) core.Expense {
		return core.Expense{ID: id, Title: "Gaz", Amount: core.Money{Cents: 4500}, Date: day}
	}

	tests := []struct {
		name    string
		d       Dataset
		wantErr error
	}{
		{"empty", Dataset{}, nil},
		{"valid", Dataset{
			Expenses: []core.Expense{expense(1), expense(7)},
			Clients:  []core.Client{{ID: 7, Name: "Roy"}},
		}, nil},
		{"missing id", Dataset{Expenses: []core.Expense{expense(0)}}, ErrInvalidDataset},
		{"duplicate id", Dataset{Expenses: []core.Expense{expense(3), expense(3)}}, ErrInvalidDataset},
		{"invalid record", Dataset{Clients: []core.Client{{ID: 1}}}, core.ErrEmptyName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDatasetRecords(t *testing.T) {
	d := Dataset{
		Sessions:  make([]core.WorkSession, 2),
		Documents: make([]core.Document, 1),
		Recurring: make([]core.RecurringItem, 3),
	}
	if got := d.Records(); got != 6 {
		t.Errorf("Records() = %d, want 6", got)
	}
}
