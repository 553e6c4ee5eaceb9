package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"

	"autonome/internal/core"
	"autonome/internal/events"
	"autonome/internal/log"
	"autonome/internal/report"
	"autonome/internal/services"
	"autonome/internal/storage/memory"
	"autonome/internal/worker"
)

type fakeSheets struct {
	years []int
	sums  []report.FinancialSummary
}

func (f *fakeSheets) PublishYear(_ context.Context, year int, sum report.FinancialSummary) error {
	f.years = append(f.years, year)
	f.sums = append(f.sums, sum)
	return nil
}

func testEnv(t *testing.T, sheets *fakeSheets) (*memory.Store, Opener) {
	t.Helper()
	store := memory.New()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	return store, func(context.Context) (*Env, error) {
		return &Env{
			Store:  store,
			Bus:    events.NewBus(),
			Loc:    time.UTC,
			Logger: log.Nop(),
			Now:    func() time.Time { return now },
			Sheets: func(context.Context) (worker.YearPublisher, error) { return sheets, nil },
		}, nil
	}
}

// execute runs one subcommand with args through a fresh commander.
func execute(t *testing.T, open Opener, args ...string) (subcommands.ExitStatus, string) {
	t.Helper()
	var out bytes.Buffer
	fs := flag.NewFlagSet("autonomectl", flag.ContinueOnError)
	commander := subcommands.NewCommander(fs, "autonomectl")
	for _, c := range Commands(open, &out) {
		commander.Register(c, "")
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return commander.Execute(context.Background()), out.String()
}

func seedRent(t *testing.T, store *memory.Store) core.RecurringItem {
	t.Helper()
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	item, err := store.CreateRecurringItem(context.Background(), core.RecurringItem{
		Title: "Loyer", Type: core.RecurringExpense, Amount: core.Money{Cents: 80000},
		Category: "loyer", Frequency: core.Monthly, StartDate: start, NextDate: start, Active: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return item
}

func TestRecurCommand(t *testing.T) {
	store, open := testEnv(t, nil)
	seedRent(t, store)

	status, out := execute(t, open, "recur", "-at", "2024-03-31")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v", status)
	}
	var res services.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not a pass result: %v\n%s", err, out)
	}
	// Jan 31, Feb 29 and Mar 31.
	if res.Records() != 3 {
		t.Errorf("records = %d, want 3", res.Records())
	}
	want := []string{"2024-01-31", "2024-02-29", "2024-03-31"}
	for i, g := range res.Generated {
		if got := g.Date.Format(time.DateOnly); got != want[i] {
			t.Errorf("generated[%d] = %s, want %s", i, got, want[i])
		}
	}
}

func TestRecurCommand_BadDate(t *testing.T) {
	_, open := testEnv(t, nil)
	if status, _ := execute(t, open, "recur", "-at", "31/03/2024"); status != subcommands.ExitFailure {
		t.Errorf("status = %v, want failure", status)
	}
}

func TestReportCommand(t *testing.T) {
	store, open := testEnv(t, nil)
	ctx := context.Background()
	if _, err := store.CreateExpense(ctx, core.Expense{
		Title: "Outils", Amount: core.Money{Cents: 25000}, Category: "outils",
		Date: time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, out string)
	}{
		{
			name: "year summary",
			args: []string{"report", "-year", "2024"},
			check: func(t *testing.T, out string) {
				var sum report.FinancialSummary
				if err := json.Unmarshal([]byte(out), &sum); err != nil {
					t.Fatal(err)
				}
				if sum.Expense.Cents != 25000 || len(sum.Months) != 12 {
					t.Errorf("summary expense %v with %d months", sum.Expense, len(sum.Months))
				}
			},
		},
		{
			name: "other month is empty",
			args: []string{"report", "-year", "2024", "-month", "3"},
			check: func(t *testing.T, out string) {
				var sum report.FinancialSummary
				if err := json.Unmarshal([]byte(out), &sum); err != nil {
					t.Fatal(err)
				}
				if !sum.Expense.IsZero() {
					t.Errorf("march expense = %v, want 0", sum.Expense)
				}
			},
		},
		{
			name: "monthly report",
			args: []string{"report", "-monthly", "-month", "4"},
			check: func(t *testing.T, out string) {
				var rep report.MonthReport
				if err := json.Unmarshal([]byte(out), &rep); err != nil {
					t.Fatal(err)
				}
				if rep.Year != 2024 || rep.Month != time.April || rep.Expenses.Cents != 25000 {
					t.Errorf("report = %+v", rep)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := execute(t, open, tt.args...)
			if status != subcommands.ExitSuccess {
				t.Fatalf("status = %v", status)
			}
			tt.check(t, out)
		})
	}

	t.Run("invalid month", func(t *testing.T) {
		if status, _ := execute(t, open, "report", "-month", "13"); status != subcommands.ExitUsageError {
			t.Errorf("status = %v, want usage error", status)
		}
	})
}

func TestReportCommand_Project(t *testing.T) {
	store, open := testEnv(t, nil)
	ctx := context.Background()
	p, err := store.CreateProject(ctx, core.Project{Name: "Toiture Roy", Status: core.ProjectActive})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateExpense(ctx, core.Expense{
		Title: "Bardeaux", Amount: core.Money{Cents: 120000}, Category: "matériaux",
		Date: time.Date(2023, 8, 14, 0, 0, 0, 0, time.UTC), ProjectID: &p.ID,
	}); err != nil {
		t.Fatal(err)
	}

	status, out := execute(t, open, "report", "-project", strconv.FormatInt(p.ID, 10))
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v", status)
	}
	var got report.ProjectTotals
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "Toiture Roy" || got.Expense.Cents != 120000 || got.Net.Cents != -120000 {
		t.Errorf("totals = %+v", got)
	}
}

func TestExportCommand(t *testing.T) {
	store, open := testEnv(t, nil)
	if _, err := store.CreateClient(context.Background(), core.Client{Name: "Bouchard, Inc."}); err != nil {
		t.Fatal(err)
	}

	t.Run("csv to stdout", func(t *testing.T) {
		status, out := execute(t, open, "export", "clients")
		if status != subcommands.ExitSuccess {
			t.Fatalf("status = %v", status)
		}
		if !strings.HasPrefix(out, "id,name") || !strings.Contains(out, `"Bouchard, Inc."`) {
			t.Errorf("csv = %q", out)
		}
	})

	t.Run("xlsx to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "summary.xlsx")
		status, _ := execute(t, open, "export", "-format", "xlsx", "-o", path, "summary")
		if status != subcommands.ExitSuccess {
			t.Fatalf("status = %v", status)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.HasPrefix(data, []byte("PK")) {
			t.Error("workbook is not a zip archive")
		}
	})

	t.Run("backup", func(t *testing.T) {
		status, out := execute(t, open, "export", "backup")
		if status != subcommands.ExitSuccess {
			t.Fatalf("status = %v", status)
		}
		var b struct {
			Version int           `json:"version"`
			Clients []core.Client `json:"clients"`
		}
		if err := json.Unmarshal([]byte(out), &b); err != nil || b.Version != 3 || len(b.Clients) != 1 {
			t.Errorf("backup = %+v, %v", b, err)
		}
	})

	t.Run("unknown collection", func(t *testing.T) {
		if status, _ := execute(t, open, "export", "widgets"); status != subcommands.ExitFailure {
			t.Errorf("status = %v, want failure", status)
		}
	})

	t.Run("missing collection", func(t *testing.T) {
		if status, _ := execute(t, open, "export"); status != subcommands.ExitUsageError {
			t.Errorf("status = %v, want usage error", status)
		}
	})
}

func TestRestoreCommand(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backup := filepath.Join(dir, "backup.json")
	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte(`{"version":3,"workSessions":[],"expenses":[{"id":1,"title":"","amount":5,"date":"2024-01-01T00:00:00Z"}]}`), 0o600); err != nil {
		t.Fatal(err)
	}

	src, openSrc := testEnv(t, nil)
	if _, err := src.CreateClient(ctx, core.Client{Name: "Roy"}); err != nil {
		t.Fatal(err)
	}
	if _, err := src.CreateDocument(ctx, core.Document{Title: "bail.pdf", Type: core.DocumentFile, Data: []byte("%PDF"), Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}); err != nil {
		t.Fatal(err)
	}
	if status, _ := execute(t, openSrc, "export", "-o", backup, "backup"); status != subcommands.ExitSuccess {
		t.Fatalf("export backup status = %v", status)
	}

	tests := []struct {
		name       string
		args       []string
		wantStatus subcommands.ExitStatus
		wantOut    restoreResult
		// clients in the target ledger afterwards
		wantClients int
	}{
		{"dry run", []string{"restore", "-dry-run", backup}, subcommands.ExitSuccess, restoreResult{Version: 3, Records: 2}, 0},
		{"invalid record", []string{"restore", broken}, subcommands.ExitFailure, restoreResult{}, 0},
		{"missing file", []string{"restore", filepath.Join(dir, "absent.json")}, subcommands.ExitFailure, restoreResult{}, 0},
		{"no file argument", []string{"restore"}, subcommands.ExitUsageError, restoreResult{}, 0},
		{"restore", []string{"restore", backup}, subcommands.ExitSuccess, restoreResult{Version: 3, Records: 2, Restored: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst, open := testEnv(t, nil)
			if _, err := dst.CreateExpense(ctx, core.Expense{Title: "Avant", Amount: core.Money{Cents: 100}, Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}); err != nil {
				t.Fatal(err)
			}

			status, out := execute(t, open, tt.args...)
			if status != tt.wantStatus {
				t.Fatalf("status = %v, want %v", status, tt.wantStatus)
			}
			if tt.wantStatus == subcommands.ExitSuccess {
				var got restoreResult
				if err := json.Unmarshal([]byte(out), &got); err != nil || got != tt.wantOut {
					t.Errorf("output = %+v (%v), want %+v", got, err, tt.wantOut)
				}
			}
			clients, _ := dst.ListClients(ctx)
			if len(clients) != tt.wantClients {
				t.Errorf("clients = %d, want %d", len(clients), tt.wantClients)
			}
		})
	}
}

func TestSheetsCommand(t *testing.T) {
	sheets := &fakeSheets{}
	store, open := testEnv(t, sheets)
	if _, err := store.CreateExpense(context.Background(), core.Expense{
		Title: "Cellulaire", Amount: core.Money{Cents: 6500}, Category: "telephone",
		Date: time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}

	status, out := execute(t, open, "sheets", "-year", "2023")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v", status)
	}
	if len(sheets.years) != 1 || sheets.years[0] != 2023 || sheets.sums[0].Expense.Cents != 6500 {
		t.Errorf("published %v", sheets.years)
	}
	if strings.TrimSpace(out) != "Published 2023" {
		t.Errorf("output = %q", out)
	}
}

func TestOpenFailure(t *testing.T) {
	open := func(context.Context) (*Env, error) { return nil, errors.New("no database") }
	if status, _ := execute(t, open, "report"); status != subcommands.ExitFailure {
		t.Errorf("status = %v, want failure", status)
	}
}
