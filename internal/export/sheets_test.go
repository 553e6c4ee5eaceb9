package export

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"autonome/internal/core"
	"autonome/internal/log"
	"autonome/internal/report"
)

type fakeSheets struct {
	mu      sync.Mutex
	missing map[string]bool // sheet titles the spreadsheet lacks
	cleared []string
	added   []string
	batch   *gsheet.BatchUpdateValuesRequest
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, ":clear"):
		for title := range f.missing {
			if strings.Contains(r.URL.Path, "'"+title+"'") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":{"code":400,"message":"Unable to parse range: '` + title + `'!A:G","status":"INVALID_ARGUMENT"}}`))
				return
			}
		}
		f.cleared = append(f.cleared, r.URL.Path)
		w.Write([]byte(`{}`))
	case strings.HasSuffix(r.URL.Path, "values:batchUpdate"):
		var req gsheet.BatchUpdateValuesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.batch = &req
		w.Write([]byte(`{"totalUpdatedCells": 45}`))
	case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.added = append(f.added, rq.AddSheet.Properties.Title)
				delete(f.missing, rq.AddSheet.Properties.Title)
			}
		}
		w.Write([]byte(`{}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestPublisher(t *testing.T, fake *fakeSheets) *SheetsPublisher {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	pub, err := NewSheetsPublisher(context.Background(), SheetsConfig{SpreadsheetID: "sheet-id", SheetName: "Résumé"}, log.Nop(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewSheetsPublisher: %v", err)
	}
	return pub
}

func TestSheetsPublisher_PublishYear(t *testing.T) {
	fake := &fakeSheets{}
	pub := newTestPublisher(t, fake)
	ctx := context.Background()

	snap := report.Snapshot{Expenses: []core.Expense{
		{ID: 1, Title: "Essence", Amount: core.Money{Cents: 3000}, Category: "Essence", Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, Title: "Vis", Amount: core.Money{Cents: 1000}, Category: "materials", Date: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)},
	}}
	sum := report.Summarize(snap, report.YearPeriod(2024), report.Params{}, time.UTC)

	if err := pub.PublishYear(ctx, 2024, sum); err != nil {
		t.Fatalf("PublishYear: %v", err)
	}

	if len(fake.cleared) != 1 || !strings.Contains(fake.cleared[0], "'2024 Résumé'!A:G") {
		t.Errorf("cleared = %v", fake.cleared)
	}
	if fake.batch == nil || len(fake.batch.Data) != 2 {
		t.Fatalf("batch = %+v", fake.batch)
	}
	months := fake.batch.Data[0]
	if months.Range != "'2024 Résumé'!A1:C13" || len(months.Values) != 13 {
		t.Errorf("months range = %s, rows = %d", months.Range, len(months.Values))
	}
	cats := fake.batch.Data[1]
	if len(cats.Values) != 3 || cats.Values[1][0] != "fuel" || cats.Values[1][2] != 75.0 {
		t.Errorf("categories = %v", cats.Values)
	}
	if fake.batch.ValueInputOption != "USER_ENTERED" {
		t.Errorf("ValueInputOption = %q", fake.batch.ValueInputOption)
	}
}

func TestSheetsPublisher_AddsMissingYearSheet(t *testing.T) {
	fake := &fakeSheets{missing: map[string]bool{"2019 Résumé": true}}
	pub := newTestPublisher(t, fake)

	sum := report.Summarize(report.Snapshot{}, report.YearPeriod(2019), report.Params{}, time.UTC)
	if err := pub.PublishYear(context.Background(), 2019, sum); err != nil {
		t.Fatalf("PublishYear: %v", err)
	}
	if len(fake.added) != 1 || fake.added[0] != "2019 Résumé" {
		t.Errorf("added sheets = %v", fake.added)
	}
	if fake.batch == nil || fake.batch.Data[0].Range != "'2019 Résumé'!A1:C13" {
		t.Errorf("batch = %+v", fake.batch)
	}
}

func TestSheetsPublisher_ClearFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"The caller does not have permission"}}`, http.StatusForbidden)
	}))
	defer srv.Close()
	pub, err := NewSheetsPublisher(context.Background(), SheetsConfig{SpreadsheetID: "sheet-id"}, log.Nop(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication())
	if err != nil {
		t.Fatal(err)
	}
	sum := report.Summarize(report.Snapshot{}, report.YearPeriod(2024), report.Params{}, time.UTC)
	if err := pub.PublishYear(context.Background(), 2024, sum); err == nil || !strings.Contains(err.Error(), "clear") {
		t.Errorf("error = %v, want clear failure", err)
	}
}

func TestNewSheetsPublisher_MissingSpreadsheet(t *testing.T) {
	if _, err := NewSheetsPublisher(context.Background(), SheetsConfig{}, log.Nop()); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"Résumé", "2024 Résumé"},
		{"2023 Résumé", "2023 Résumé"},
		{" Dashboard ", "2024 Dashboard"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, 2024); got != tt.want {
			t.Errorf("yearPrefixedName(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}
