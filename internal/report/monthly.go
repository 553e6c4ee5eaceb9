package report

import (
	"fmt"
	"slices"
	"time"

	"autonome/internal/core"
)

var monthNamesFR = [...]string{
	"Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
	"Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre",
}

// MonthNameFR returns the French name of m.
func MonthNameFR(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNamesFR[m-1]
}

type SessionRow struct {
	Date   string     `json:"date"`
	Hours  float64    `json:"hours"`
	Earned core.Money `json:"earned"`
}

type ExpenseRow struct {
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Amount      core.Money `json:"amount"`
}

// MonthReport is the content of the printable monthly report.
type MonthReport struct {
	Year         int          `json:"year"`
	Month        time.Month   `json:"month"`
	Title        string       `json:"title"`
	Hours        float64      `json:"hours"`
	Revenue      core.Money   `json:"revenue"`
	Expenses     core.Money   `json:"expenses"`
	Net          core.Money   `json:"net"`
	InvoiceCount int          `json:"invoiceCount"`
	SessionRows  []SessionRow `json:"sessions"`
	ExpenseRows  []ExpenseRow `json:"expenseRows"`
}

// MonthlyReport summarizes one calendar month. Revenue counts session
// earnings only; rows are in chronological order.
func MonthlyReport(s Snapshot, year int, month time.Month, loc *time.Location) MonthReport {
	loc = orLocal(loc)
	in := s.Within(MonthPeriod(year, month).Range(loc))

	r := MonthReport{
		Year:         year,
		Month:        month,
		Title:        fmt.Sprintf("Rapport mensuel %s %d", MonthNameFR(month), year),
		InvoiceCount: len(in.Invoices),
	}

	sessions := slices.Clone(in.Sessions)
	slices.SortFunc(sessions, func(a, b core.WorkSession) int { return byTimeThenID(a.StartTime, b.StartTime, a.ID, b.ID) })
	var worked time.Duration
	for _, ws := range sessions {
		d := ws.Duration()
		worked += d
		r.Revenue = r.Revenue.Add(ws.Earned())
		r.SessionRows = append(r.SessionRows, SessionRow{
			Date:   DayKey(ws.StartTime, loc),
			Hours:  d.Hours(),
			Earned: ws.Earned(),
		})
	}

	expenses := slices.Clone(in.Expenses)
	slices.SortFunc(expenses, func(a, b core.Expense) int { return byTimeThenID(a.Date, b.Date, a.ID, b.ID) })
	for _, e := range expenses {
		r.Expenses = r.Expenses.Add(e.Amount)
		desc := e.Title
		if desc == "" {
			desc = e.Description
		}
		r.ExpenseRows = append(r.ExpenseRows, ExpenseRow{
			Date:        DayKey(e.Date, loc),
			Description: desc,
			Category:    e.Category,
			Amount:      e.Amount,
		})
	}

	r.Hours = worked.Hours()
	r.Net = r.Revenue.Sub(r.Expenses)
	return r
}
