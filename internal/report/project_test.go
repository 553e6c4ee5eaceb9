package report

import (
	"testing"
	"time"

	"autonome/internal/core"
)

func TestProjectSummary(t *testing.T) {
	site, other, gone := int64(1), int64(2), int64(9)
	client := int64(4)
	jan := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

	withProject := func(ws core.WorkSession, id int64) core.WorkSession {
		ws.ProjectID = &id
		return ws
	}
	s := Snapshot{
		Sessions: []core.WorkSession{
			withProject(stopped(1, jan, 2*time.Hour, 5000, nil), site),
			withProject(stopped(2, mar, 3*time.Hour, 5000, nil), site),
			withProject(stopped(3, mar, time.Hour, 5000, nil), other),
			withProject(core.WorkSession{ID: 4, StartTime: mar, HourlyRate: core.Money{Cents: 5000}}, site),
			withProject(stopped(5, mar, time.Hour, 4000, nil), gone),
		},
		Expenses: []core.Expense{
			{ID: 1, Amount: core.Money{Cents: 3000}, Category: "outils", Date: jan, ProjectID: &site},
			{ID: 2, Amount: core.Money{Cents: 1000}, Category: "essence", Date: mar, ProjectID: &site},
			{ID: 3, Amount: core.Money{Cents: 9999}, Category: "outils", Date: mar},
			{ID: 4, Amount: core.Money{Cents: 500}, Category: "outils", ProjectID: &site},
		},
		Incomes: []core.Income{
			{ID: 1, Amount: core.Money{Cents: 2000}, Date: mar, ProjectID: &site},
		},
		Projects: []core.Project{
			{ID: site, Name: "Rénovation cuisine", ClientID: &client, Status: core.ProjectActive},
			{ID: other, Name: "Terrasse", Status: core.ProjectCompleted},
		},
		Clients: []core.Client{{ID: client, Name: "Tremblay"}},
	}

	tests := []struct {
		name      string
		project   int64
		wantName  string
		client    string
		hours     float64
		income    int64
		expense   int64
		months    []string
		hasExpend bool
	}{
		{
			name:    "totals across months",
			project: site, wantName: "Rénovation cuisine", client: "Tremblay",
			hours: 5, income: 10000 + 15000 + 2000, expense: 3000 + 1000 + 500,
			months:    []string{"2024-01", "2024-03"},
			hasExpend: true,
		},
		{
			name:    "sessions only",
			project: other, wantName: "Terrasse",
			hours: 1, income: 5000,
			months: []string{"2024-03"},
		},
		{
			name:    "project record deleted",
			project: gone, wantName: UnlabeledProject,
			hours: 1, income: 4000,
			months: []string{"2024-03"},
		},
		{
			name:     "no activity",
			project:  42,
			wantName: UnlabeledProject,
			months:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProjectSummary(s, tt.project, Params{}, time.UTC)
			if got.Name != tt.wantName || got.ClientName != tt.client {
				t.Errorf("name = %q client = %q, want %q %q", got.Name, got.ClientName, tt.wantName, tt.client)
			}
			if got.Hours != tt.hours {
				t.Errorf("hours = %v, want %v", got.Hours, tt.hours)
			}
			if got.Income.Cents != tt.income || got.Expense.Cents != tt.expense {
				t.Errorf("income %d expense %d, want %d %d", got.Income.Cents, got.Expense.Cents, tt.income, tt.expense)
			}
			if got.Net.Cents != tt.income-tt.expense {
				t.Errorf("net = %d, want %d", got.Net.Cents, tt.income-tt.expense)
			}
			if len(got.Months) != len(tt.months) {
				t.Fatalf("months = %+v, want %v", got.Months, tt.months)
			}
			for i, m := range tt.months {
				if got.Months[i].Month != m {
					t.Errorf("months[%d] = %s, want %s", i, got.Months[i].Month, m)
				}
			}
			if got.Categories.HasData != tt.hasExpend {
				t.Errorf("categories hasData = %v", got.Categories.HasData)
			}
		})
	}

	t.Run("undated expense counts in totals only", func(t *testing.T) {
		got := ProjectSummary(s, site, Params{}, time.UTC)
		var monthly int64
		for _, m := range got.Months {
			monthly += m.Expense.Cents
		}
		if monthly != 4000 || got.Expenses != 3 {
			t.Errorf("monthly expense %d over %d expenses, want 4000 over 3", monthly, got.Expenses)
		}
		if got.Sessions != 2 {
			t.Errorf("sessions = %d, want 2 (in-progress excluded)", got.Sessions)
		}
	})
}
