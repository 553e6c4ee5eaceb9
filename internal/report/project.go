package report

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"autonome/internal/core"
	"autonome/internal/ledger"
)

// UnlabeledProject names a project reference whose record no longer exists.
const UnlabeledProject = "unlabeled"

// ProjectTotals is the lifetime activity of one project.
type ProjectTotals struct {
	ProjectID  int64                   `json:"projectId"`
	Name       string                  `json:"name"`
	Status     core.ProjectStatus      `json:"status,omitempty"`
	ClientName string                  `json:"clientName,omitempty"`
	Hours      float64                 `json:"hours"`
	Income     core.Money              `json:"income"`
	Expense    core.Money              `json:"expense"`
	Net        core.Money              `json:"net"`
	Sessions   int                     `json:"sessions"`
	Expenses   int                     `json:"expenses"`
	Months     []MonthPoint            `json:"months"`
	Categories CategoryBreakdownResult `json:"categories"`
}

// ProjectSummary totals every session, income and expense tagged with
// projectID. Months holds only the months with activity, oldest first. A
// project id with no record is named UnlabeledProject.
func ProjectSummary(s Snapshot, projectID int64, params Params, loc *time.Location) ProjectTotals {
	loc = orLocal(loc)
	res := ProjectTotals{ProjectID: projectID, Name: UnlabeledProject, Months: []MonthPoint{}}
	for _, p := range s.Projects {
		if p.ID != projectID {
			continue
		}
		res.Name, res.Status = p.Name, p.Status
		if p.ClientID != nil {
			res.ClientName = UnlabeledClient
			for _, c := range s.Clients {
				if c.ID == *p.ClientID {
					res.ClientName = c.Name
					break
				}
			}
		}
		break
	}

	months := make(map[string]*MonthPoint)
	point := func(t time.Time) *MonthPoint {
		if t.IsZero() {
			return nil
		}
		key := t.In(loc).Format("2006-01")
		if months[key] == nil {
			months[key] = &MonthPoint{Month: key}
		}
		return months[key]
	}
	mine := func(id *int64) bool { return id != nil && *id == projectID }

	var worked time.Duration
	for _, ws := range s.Sessions {
		if !mine(ws.ProjectID) || ws.InProgress() {
			continue
		}
		res.Sessions++
		res.Income = res.Income.Add(ws.Earned())
		worked += ws.Duration()
		if m := point(ws.StartTime); m != nil {
			m.Income = m.Income.Add(ws.Earned())
		}
	}
	for _, inc := range s.Incomes {
		if !mine(inc.ProjectID) {
			continue
		}
		res.Income = res.Income.Add(inc.Amount)
		if m := point(inc.Date); m != nil {
			m.Income = m.Income.Add(inc.Amount)
		}
	}
	var expenses []core.Expense
	for _, e := range s.Expenses {
		if !mine(e.ProjectID) {
			continue
		}
		expenses = append(expenses, e)
		res.Expense = res.Expense.Add(e.Amount)
		if m := point(e.Date); m != nil {
			m.Expense = m.Expense.Add(e.Amount)
		}
	}

	res.Expenses = len(expenses)
	res.Hours = worked.Hours()
	res.Net = res.Income.Sub(res.Expense)
	res.Categories = CategoryBreakdown(expenses, params.Normalizer)
	for _, m := range months {
		res.Months = append(res.Months, *m)
	}
	slices.SortFunc(res.Months, func(a, b MonthPoint) int { return cmp.Compare(a.Month, b.Month) })
	return res
}

// Project summarizes the whole history of one project.
func (e *Engine) Project(ctx context.Context, projectID int64, params Params) (ProjectTotals, error) {
	snap, err := e.Load(ctx, ledger.Range{})
	if err != nil {
		return ProjectTotals{}, fmt.Errorf("project %d: %w", projectID, err)
	}
	return ProjectSummary(snap, projectID, params, e.loc), nil
}
