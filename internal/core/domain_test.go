package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestExpenseValidate(t *testing.T) {
	day := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	good := Expense{Title: "Gas", Amount: Money{Cents: 4000}, Category: "fuel", Date: day}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		e    Expense
		want error
	}{
		{Expense{Title: "a", Amount: Money{Cents: 1}}, ErrZeroDate},
		{Expense{Title: "", Amount: Money{Cents: 1}, Date: day}, ErrEmptyTitle},
		{Expense{Title: "a", Amount: Money{Cents: 0}, Date: day}, ErrInvalidAmount},
	}
	for i, tc := range bads {
		err := tc.e.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
		if !IsValidationError(err) {
			t.Fatalf("case %d expected validation error classification", i)
		}
	}
}

func TestRecurringItemValidate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	item := RecurringItem{
		Title:     "Rent",
		Type:      RecurringExpense,
		Amount:    Money{Cents: 50000},
		Category:  "rent",
		Frequency: Monthly,
		StartDate: start,
		NextDate:  start,
		Active:    true,
	}
	if err := item.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := item
	bad.Frequency = "daily"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}

	bad = item
	bad.Type = "transfer"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestWorkSessionStop(t *testing.T) {
	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	s := WorkSession{StartTime: start, HourlyRate: Money{Cents: 2500}}
	if !s.InProgress() || s.Duration() != 0 {
		t.Fatalf("new session should be in progress with zero duration")
	}

	if err := s.Stop(start.Add(-time.Minute)); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if err := s.Stop(start.Add(8 * time.Hour)); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.Earned().Cents != 20000 {
		t.Fatalf("expected 200.00 earned, got %s", s.Earned())
	}
	if s.Duration() != 8*time.Hour {
		t.Fatalf("expected 8h, got %v", s.Duration())
	}
	if err := s.Stop(start.Add(9 * time.Hour)); !errors.Is(err, ErrSessionStopped) {
		t.Fatalf("expected ErrSessionStopped, got %v", err)
	}
}

func TestEarningsRounding(t *testing.T) {
	cases := []struct {
		d    time.Duration
		rate int64
		want int64
	}{
		{90 * time.Minute, 2500, 3750},
		{20 * time.Minute, 1000, 333}, // 3.333..
		{40 * time.Minute, 1000, 667}, // 6.666..
		{0, 2500, 0},
		{time.Hour, 0, 0},
	}
	for _, tc := range cases {
		if got := Earnings(tc.d, Money{Cents: tc.rate}); got.Cents != tc.want {
			t.Errorf("Earnings(%v, %d) = %d, want %d", tc.d, tc.rate, got.Cents, tc.want)
		}
	}
}

func TestHaversine(t *testing.T) {
	d := Haversine(Coordinate{Lat: 0, Lng: 0}, Coordinate{Lat: 0, Lng: 1})
	if math.Abs(d-111.19) > 0.01 {
		t.Fatalf("expected ~111.19 km, got %f", d)
	}
	if Haversine(Coordinate{Lat: 45.5, Lng: -73.56}, Coordinate{Lat: 45.5, Lng: -73.56}) != 0 {
		t.Fatalf("identical points should be 0 km apart")
	}
}

func TestNewTrip(t *testing.T) {
	t0 := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	start := Sample{Coordinate: Coordinate{Lat: 0, Lng: 0, Address: "A"}, Time: t0}
	end := Sample{Coordinate: Coordinate{Lat: 0, Lng: 1, Address: "B"}, Time: t0.Add(90 * time.Minute)}

	trip, err := NewTrip(start, end, "site visit")
	if err != nil {
		t.Fatalf("new trip: %v", err)
	}
	if trip.Distance != 111.19 {
		t.Fatalf("expected 111.19 km, got %v", trip.Distance)
	}
	if trip.StartAddress != "A" || trip.EndAddress != "B" || trip.Purpose != "site visit" {
		t.Fatalf("unexpected trip %+v", trip)
	}
	if trip.Duration() != 90*time.Minute {
		t.Fatalf("expected 90m trip, got %v", trip.Duration())
	}

	if _, err := NewTrip(end, start, ""); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestInvoiceTotalsAndStatus(t *testing.T) {
	due := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	inv := Invoice{
		Number:     "F-2024-001",
		Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:    &due,
		Type:       InvoiceTypeInvoice,
		Status:     InvoiceSent,
		ClientName: "ACME",
		Items: []LineItem{
			{Description: "Labour", Quantity: 2, Price: Money{Cents: 4000}},
			{Description: "Parts", Quantity: 1, Price: Money{Cents: 2000}},
		},
		IncludeTPS: true,
		IncludeTVQ: true,
	}
	if err := inv.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	inv.ComputeTotals(TaxRates{TPS: 0.05, TVQ: 0.09975})
	if inv.Subtotal.Cents != 10000 {
		t.Fatalf("subtotal = %d", inv.Subtotal.Cents)
	}
	if inv.TPS == nil || inv.TPS.Cents != 500 {
		t.Fatalf("tps = %v", inv.TPS)
	}
	if inv.TVQ == nil || inv.TVQ.Cents != 998 {
		t.Fatalf("tvq = %v", inv.TVQ)
	}
	if inv.Total.Cents != 11498 {
		t.Fatalf("total = %d", inv.Total.Cents)
	}

	inv.IncludeTVQ = false
	inv.ComputeTotals(TaxRates{TPS: 0.05, TVQ: 0.09975})
	if inv.TVQ != nil || inv.Total.Cents != 10500 {
		t.Fatalf("expected tvq disabled, got tvq=%v total=%d", inv.TVQ, inv.Total.Cents)
	}

	tests := []struct {
		status InvoiceStatus
		now    time.Time
		want   InvoiceStatus
	}{
		{InvoiceSent, due.Add(-time.Hour), InvoiceSent},
		{InvoiceSent, due.Add(time.Hour), InvoiceOverdue},
		{InvoiceDraft, due.Add(time.Hour), InvoiceOverdue},
		{InvoicePaid, due.Add(time.Hour), InvoicePaid},
		{InvoiceCancelled, due.Add(time.Hour), InvoiceCancelled},
	}
	for _, tt := range tests {
		inv.Status = tt.status
		if got := inv.EffectiveStatus(tt.now); got != tt.want {
			t.Errorf("EffectiveStatus(%s) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestCategoryNormalizer(t *testing.T) {
	latest := NewCategoryNormalizer(0)
	tests := []struct {
		in   string
		want string
	}{
		{"fuel", "fuel"},
		{"  Fuel ", "fuel"},
		{"Benzină", "fuel"},
		{"chirie", "rent"},
		{"Loyer", "rent"},
		{"", "other"},
		{"Insurance", "Insurance"},
	}
	for _, tt := range tests {
		if got := latest.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	v1 := NewCategoryNormalizer(1)
	if got := v1.Normalize("Loyer"); got != "Loyer" {
		t.Fatalf("v1 normalizer must not apply v2 aliases, got %q", got)
	}
	if got := v1.Normalize("Mâncare"); got != "food" {
		t.Fatalf("v1 normalizer should map legacy names, got %q", got)
	}
}
