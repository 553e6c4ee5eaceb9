package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"autonome/internal/core"
	"autonome/internal/ledger"
)

func TestSQLiteRepository_DocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	saved, err := repo.CreateDocument(ctx, core.Document{
		Title:    "recu-quincaillerie.jpg",
		Type:     core.DocumentPhoto,
		MimeType: "image/jpeg",
		Data:     []byte{0xff, 0xd8, 0xff},
		Date:     day(2024, 4, 9),
		Tags:     []string{"reçu"},
	})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	saved.Title = "Reçu quincaillerie"
	if err := repo.UpdateDocument(ctx, saved); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	got, err := repo.GetDocument(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Title != "Reçu quincaillerie" || got.Type != core.DocumentPhoto || len(got.Data) != 3 {
		t.Errorf("unexpected document: %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "reçu" {
		t.Errorf("tags = %v", got.Tags)
	}

	list, err := repo.ListDocuments(ctx, ledger.Range{From: day(2024, 4, 1), To: day(2024, 5, 1)})
	if err != nil || len(list) != 1 {
		t.Fatalf("ListDocuments = %d, %v", len(list), err)
	}

	if _, err := repo.CreateDocument(ctx, core.Document{Title: "vide", Type: core.DocumentFile, Date: day(2024, 4, 9)}); !errors.Is(err, core.ErrEmptyDocument) {
		t.Errorf("empty file: got %v, want ErrEmptyDocument", err)
	}
	if err := repo.DeleteDocument(ctx, saved.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetDocument(ctx, saved.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2023, 11, 2, 8, 0, 0, 0, time.UTC)
	projectID, itemID := int64(40), int64(12)
	last := day(2024, 3, 1)

	restored := ledger.Dataset{
		Clients:  []core.Client{{ID: 5, Name: "Roy", CreatedAt: created, UpdatedAt: created}},
		Projects: []core.Project{{ID: projectID, Name: "Toiture", Status: core.ProjectActive}},
		Expenses: []core.Expense{{
			ID: 90, Title: "Loyer", Amount: core.Money{Cents: 120000}, Date: day(2024, 3, 1),
			ProjectID: &projectID, RecurringItemID: &itemID, Tags: []string{core.RecurringTag},
			CreatedAt: created, UpdatedAt: created,
		}},
		Recurring: []core.RecurringItem{{
			ID: itemID, Title: "Loyer", Type: core.RecurringExpense, Amount: core.Money{Cents: 120000},
			Frequency: core.Monthly, StartDate: day(2024, 1, 1), NextDate: day(2024, 4, 1),
			LastGeneratedDate: &last, Active: true,
		}},
		Documents: []core.Document{{ID: 3, Title: "bail.pdf", Type: core.DocumentFile, Data: []byte("%PDF"), Date: day(2024, 1, 1)}},
	}

	tests := []struct {
		name    string
		data    ledger.Dataset
		wantErr error
		// expenses left in the store afterwards
		wantExpenses int
	}{
		{"replaces every collection", restored, nil, 1},
		{"invalid record keeps current data", ledger.Dataset{
			Expenses: []core.Expense{{ID: 1, Title: "", Amount: core.Money{Cents: 10}, Date: day(2024, 1, 1)}},
		}, core.ErrEmptyTitle, 2},
		{"duplicate ids keep current data", ledger.Dataset{
			Clients: []core.Client{{ID: 1, Name: "A"}, {ID: 1, Name: "B"}},
		}, ledger.ErrInvalidDataset, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepo(t)
			for _, title := range []string{"Gaz", "Bois"} {
				if _, err := repo.CreateExpense(ctx, core.Expense{Title: title, Amount: core.Money{Cents: 500}, Date: day(2024, 2, 2)}); err != nil {
					t.Fatal(err)
				}
			}
			if err := repo.SetSetting(ctx, "hourlyRate", "85"); err != nil {
				t.Fatal(err)
			}

			err := repo.ReplaceAll(ctx, tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReplaceAll = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("ReplaceAll: %v", err)
			}

			expenses, err := repo.ListExpenses(ctx, ledger.Range{})
			if err != nil {
				t.Fatal(err)
			}
			if len(expenses) != tt.wantExpenses {
				t.Fatalf("expenses = %d, want %d", len(expenses), tt.wantExpenses)
			}
			if v, ok, _ := repo.GetSetting(ctx, "hourlyRate"); !ok || v != "85" {
				t.Errorf("settings changed: %q, %v", v, ok)
			}
		})
	}

	t.Run("ids, links and stamps survive", func(t *testing.T) {
		repo := newTestRepo(t)
		if err := repo.ReplaceAll(ctx, restored); err != nil {
			t.Fatalf("ReplaceAll: %v", err)
		}
		e, err := repo.GetExpense(ctx, 90)
		if err != nil {
			t.Fatalf("GetExpense: %v", err)
		}
		if e.RecurringItemID == nil || *e.RecurringItemID != itemID || !e.HasTag(core.RecurringTag) {
			t.Errorf("recurring link lost: %+v", e)
		}
		if !e.CreatedAt.Equal(created) {
			t.Errorf("created at = %v, want %v", e.CreatedAt, created)
		}
		it, err := repo.GetRecurringItem(ctx, itemID)
		if err != nil {
			t.Fatalf("GetRecurringItem: %v", err)
		}
		if !it.NextDate.Equal(day(2024, 4, 1)) || it.LastGeneratedDate == nil {
			t.Errorf("schedule not restored: %+v", it)
		}
		if _, err := repo.GetDocument(ctx, 3); err != nil {
			t.Errorf("GetDocument: %v", err)
		}

		next, err := repo.CreateClient(ctx, core.Client{Name: "Nouveau"})
		if err != nil {
			t.Fatal(err)
		}
		if next.ID <= 5 {
			t.Errorf("new client id %d collides with restored ids", next.ID)
		}
	})
}
