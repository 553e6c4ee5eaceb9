package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"autonome/internal/core"
	"autonome/internal/events"
	"autonome/internal/ledger"
	"autonome/internal/log"
	"autonome/internal/storage/memory"
)

func TestExpenseService_CreateExpense(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus()
	var got []events.Event
	bus.Subscribe(func(_ context.Context, e events.Event) { got = append(got, e) })

	svc := NewExpenseService(memory.New(), bus, log.Nop())

	tests := []struct {
		name         string
		in           core.Expense
		wantCategory string
		wantErr      error
	}{
		{
			name:         "trims fields",
			in:           core.Expense{Title: "  Planches ", Amount: core.Money{Cents: 4599}, Category: " Matériaux ", Date: midnight(2024, 3, 4)},
			wantCategory: "Matériaux",
		},
		{
			name:         "empty category becomes other",
			in:           core.Expense{Title: "Divers", Amount: core.Money{Cents: 100}, Date: midnight(2024, 3, 4)},
			wantCategory: core.CategoryOther,
		},
		{
			name:    "rejects negative amount",
			in:      core.Expense{Title: "Bad", Amount: core.Money{Cents: -1}, Date: midnight(2024, 3, 4)},
			wantErr: core.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved, err := svc.CreateExpense(ctx, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateExpense error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateExpense: %v", err)
			}
			if saved.ID == 0 {
				t.Error("expected assigned id")
			}
			if saved.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", saved.Category, tt.wantCategory)
			}
		})
	}

	if len(got) != 2 {
		t.Fatalf("published %d events, want 2", len(got))
	}
	if got[0].Type != events.ExpenseCreated {
		t.Errorf("event type = %q", got[0].Type)
	}
}

func TestExpenseService_UpdateKeepsRecurringLink(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewExpenseService(store, nil, log.Nop())

	item := int64(7)
	other := int64(8)
	generated, err := store.CreateExpense(ctx, core.Expense{
		Title: "Loyer", Amount: core.Money{Cents: 80000}, Category: "loyer",
		Date: midnight(2024, 2, 1), Tags: []string{core.RecurringTag}, RecurringItemID: &item,
	})
	if err != nil {
		t.Fatal(err)
	}
	manual, err := svc.CreateExpense(ctx, core.Expense{Title: "Café", Amount: core.Money{Cents: 350}, Date: midnight(2024, 2, 2)})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		id   int64
		set  *int64
		want *int64
	}{
		{"generated keeps its item", generated.ID, nil, &item},
		{"generated cannot be relinked", generated.ID, &other, &item},
		{"manual cannot be linked", manual.ID, &other, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := store.GetExpense(ctx, tt.id)
			if err != nil {
				t.Fatal(err)
			}
			e.Amount = core.Money{Cents: e.Amount.Cents + 100}
			e.RecurringItemID = tt.set
			if err := svc.UpdateExpense(ctx, e); err != nil {
				t.Fatalf("UpdateExpense: %v", err)
			}
			got, err := store.GetExpense(ctx, tt.id)
			if err != nil {
				t.Fatal(err)
			}
			if got.Amount != e.Amount {
				t.Errorf("amount = %s, want %s", got.Amount, e.Amount)
			}
			switch {
			case tt.want == nil && got.RecurringItemID != nil:
				t.Errorf("RecurringItemID = %d, want nil", *got.RecurringItemID)
			case tt.want != nil && (got.RecurringItemID == nil || *got.RecurringItemID != *tt.want):
				t.Errorf("RecurringItemID = %v, want %d", got.RecurringItemID, *tt.want)
			}
		})
	}

	if err := svc.UpdateExpense(ctx, core.Expense{ID: 999, Title: "x", Amount: core.Money{Cents: 1}, Date: midnight(2024, 2, 2)}); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("update of missing expense error = %v, want ErrNotFound", err)
	}
}

func TestExpenseService_DeleteExpense(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewExpenseService(store, nil, log.Nop())

	e, err := svc.CreateExpense(ctx, core.Expense{Title: "Essence", Amount: core.Money{Cents: 6000}, Date: midnight(2024, 5, 1)})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if err := svc.DeleteExpense(ctx, e.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if err := svc.DeleteExpense(ctx, e.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestWorkService_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	rate := core.Money{Cents: 4000}
	project, err := store.CreateProject(ctx, core.Project{Name: "Cuisine Tremblay", HourlyRate: &rate, Status: core.ProjectActive})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	svc := NewWorkService(store, events.NewBus(), log.Nop())
	start := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

	ws, err := svc.StartSession(ctx, StartSessionInput{At: start, ProjectID: &project.ID})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if ws.HourlyRate != rate {
		t.Errorf("HourlyRate = %v, want project rate %v", ws.HourlyRate, rate)
	}

	stopped, err := svc.StopSession(ctx, ws.ID, start.Add(8*time.Hour), nil)
	if err != nil {
		t.Fatalf("StopSession: %v", err)
	}
	if got := stopped.Earned().Cents; got != 32000 {
		t.Errorf("Earned = %d, want 32000", got)
	}
	if stopped.Duration() != 8*time.Hour {
		t.Errorf("Duration = %v", stopped.Duration())
	}

	if _, err := svc.StopSession(ctx, ws.ID, start.Add(9*time.Hour), nil); !errors.Is(err, core.ErrSessionStopped) {
		t.Errorf("second stop error = %v, want ErrSessionStopped", err)
	}
}

func TestWorkService_RecordTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewWorkService(memory.New(), nil, log.Nop())

	start := core.Sample{Coordinate: core.Coordinate{Lat: 45.5017, Lng: -73.5673}, Time: time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC)}
	end := core.Sample{Coordinate: core.Coordinate{Lat: 46.8139, Lng: -71.2080}, Time: start.Time.Add(3 * time.Hour)}

	m, err := svc.RecordTrip(ctx, start, end, "Chantier Québec")
	if err != nil {
		t.Fatalf("RecordTrip: %v", err)
	}
	if m.Distance < 230 || m.Distance > 236 {
		t.Errorf("Distance = %.2f km, want about 233", m.Distance)
	}
	if m.Duration() != 3*time.Hour {
		t.Errorf("Duration = %v", m.Duration())
	}

	if _, err := svc.RecordTrip(ctx, end, start, ""); !errors.Is(err, core.ErrInvalidInterval) {
		t.Errorf("reversed trip error = %v", err)
	}
}

type fixedRates core.TaxRates

func (r fixedRates) TaxRates(context.Context) (core.TaxRates, error) { return core.TaxRates(r), nil }

func TestInvoiceService_CreateInvoice(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	client, err := store.CreateClient(ctx, core.Client{Name: "Boulangerie Roy"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	svc := NewInvoiceService(store, fixedRates{TPS: 0.05, TVQ: 0.09975}, log.Nop())
	svc.now = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }

	due := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	inv, err := svc.CreateInvoice(ctx, core.Invoice{
		Date:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		DueDate:    &due,
		ClientID:   &client.ID,
		Items:      []core.LineItem{{Description: "Main-d'oeuvre", Quantity: 2, Price: core.Money{Cents: 5000}}},
		IncludeTPS: true,
		IncludeTVQ: true,
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if inv.ClientName != "Boulangerie Roy" {
		t.Errorf("ClientName = %q", inv.ClientName)
	}
	if inv.Total.Cents != 11498 {
		t.Errorf("Total = %d, want 11498", inv.Total.Cents)
	}
	if inv.Number != "INV-20240601-000" {
		t.Errorf("Number = %q", inv.Number)
	}

	read, err := svc.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if read.Status != core.InvoiceOverdue {
		t.Errorf("Status = %q, want overdue", read.Status)
	}
	stored, _ := store.GetInvoice(ctx, inv.ID)
	if stored.Status != core.InvoiceDraft {
		t.Errorf("stored status = %q, overdue must not be written back", stored.Status)
	}
}
