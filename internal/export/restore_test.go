package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"autonome/internal/core"
	"autonome/internal/ledger"
	"autonome/internal/storage/memory"
)

func TestReadBackup(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   error
		wantCount int
	}{
		{
			name:      "first version file",
			body:      `{"version":1,"timestamp":"2024-03-01T00:00:00Z","workSessions":[],"expenses":[{"id":4,"title":"Gaz","amount":45.5,"category":"fuel","date":"2024-02-10T00:00:00Z","receiptPhoto":{}}],"clients":[],"mileage":[],"jobs":[]}`,
			wantCount: 1,
		},
		{name: "empty file", body: "  ", wantErr: ErrInvalidBackup},
		{name: "not json", body: "travai", wantErr: ErrInvalidBackup},
		{name: "missing sessions", body: `{"version":2,"expenses":[]}`, wantErr: ErrInvalidBackup},
		{name: "newer version", body: `{"version":99,"workSessions":[],"expenses":[]}`, wantErr: ErrInvalidBackup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ReadBackup(strings.NewReader(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadBackup = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadBackup: %v", err)
			}
			if len(b.Expenses) != tt.wantCount || b.Expenses[0].Amount.Cents != 4550 {
				t.Errorf("expenses = %+v", b.Expenses)
			}
		})
	}
}

func TestBackupDatasetNumbersMissingIDs(t *testing.T) {
	b := Backup{Clients: []core.Client{{Name: "A"}, {ID: 9, Name: "B"}, {Name: "C"}}}
	got := b.Dataset().Clients
	want := []int64{10, 9, 11}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("client %d id = %d, want %d", i, got[i].ID, id)
		}
	}
	if b.Clients[0].ID != 0 {
		t.Error("Dataset modified the backup")
	}
}

func TestImportBackupRoundTrip(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	src := memory.New()
	item, err := src.CreateRecurringItem(ctx, core.RecurringItem{
		Title: "Loyer", Type: core.RecurringExpense, Amount: core.Money{Cents: 90000},
		Frequency: core.Monthly, StartDate: day, NextDate: day.AddDate(0, 1, 0), Active: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range sampleExpenses() {
		e.ID = 0
		e.RecurringItemID = &item.ID
		if _, err := src.CreateExpense(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := src.CreateDocument(ctx, core.Document{Title: "bail.pdf", Type: core.DocumentFile, Data: []byte("%PDF-1.7"), Date: day}); err != nil {
		t.Fatal(err)
	}

	b, err := LoadBackup(ctx, src, day)
	if err != nil {
		t.Fatalf("LoadBackup: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteBackup(&buf, b); err != nil {
		t.Fatalf("WriteBackup: %v", err)
	}
	read, err := ReadBackup(&buf)
	if err != nil {
		t.Fatalf("ReadBackup: %v", err)
	}

	dst := memory.New()
	if _, err := dst.CreateClient(ctx, core.Client{Name: "Remplacé"}); err != nil {
		t.Fatal(err)
	}
	n, err := ImportBackup(ctx, dst, read)
	if err != nil {
		t.Fatalf("ImportBackup: %v", err)
	}
	if n != 4 {
		t.Errorf("restored %d records, want 4", n)
	}

	clients, _ := dst.ListClients(ctx)
	if len(clients) != 0 {
		t.Errorf("clients = %d, want 0", len(clients))
	}
	expenses, _ := dst.ListExpenses(ctx, ledger.Range{})
	if len(expenses) != 2 || expenses[0].RecurringItemID == nil || *expenses[0].RecurringItemID != item.ID {
		t.Errorf("expenses = %+v", expenses)
	}
	docs, _ := dst.ListDocuments(ctx, ledger.Range{})
	if len(docs) != 1 || string(docs[0].Data) != "%PDF-1.7" {
		t.Errorf("documents = %+v", docs)
	}
	if _, err := dst.GetRecurringItem(ctx, item.ID); err != nil {
		t.Errorf("recurring item: %v", err)
	}

	bad := read
	bad.Expenses = append(bad.Expenses, core.Expense{ID: 50, Title: "", Amount: core.Money{Cents: 1}, Date: day})
	if _, err := ImportBackup(ctx, dst, bad); !errors.Is(err, core.ErrEmptyTitle) {
		t.Errorf("invalid record: got %v, want ErrEmptyTitle", err)
	}
	if expenses, _ := dst.ListExpenses(ctx, ledger.Range{}); len(expenses) != 2 {
		t.Errorf("failed import changed the ledger: %d expenses", len(expenses))
	}
}
