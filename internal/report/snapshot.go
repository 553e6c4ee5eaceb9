// Package report computes read-only summaries over a snapshot of ledger
// records. Every function here is pure: malformed records are skipped or
// zero-defaulted and nothing returns an error.
package report

import (
	"fmt"
	"time"

	"autonome/internal/core"
	"autonome/internal/ledger"
)

// Snapshot is a fully materialized read of the collections a summary needs.
type Snapshot struct {
	Sessions []core.WorkSession
	Expenses []core.Expense
	Incomes  []core.Income
	Mileage  []core.MileageEntry
	Invoices []core.Invoice
	Clients  []core.Client
	Projects []core.Project
}

// Within keeps the dated records that fall inside r. Clients and projects are
// reference data and are kept as is.
func (s Snapshot) Within(r ledger.Range) Snapshot {
	out := Snapshot{Clients: s.Clients, Projects: s.Projects}
	for _, v := range s.Sessions {
		if !v.StartTime.IsZero() && r.Contains(v.StartTime) {
			out.Sessions = append(out.Sessions, v)
		}
	}
	for _, v := range s.Expenses {
		if !v.Date.IsZero() && r.Contains(v.Date) {
			out.Expenses = append(out.Expenses, v)
		}
	}
	for _, v := range s.Incomes {
		if !v.Date.IsZero() && r.Contains(v.Date) {
			out.Incomes = append(out.Incomes, v)
		}
	}
	for _, v := range s.Mileage {
		if !v.Date.IsZero() && r.Contains(v.Date) {
			out.Mileage = append(out.Mileage, v)
		}
	}
	for _, v := range s.Invoices {
		if !v.Date.IsZero() && r.Contains(v.Date) {
			out.Invoices = append(out.Invoices, v)
		}
	}
	return out
}

// Period is a calendar month, or a whole year when Month is zero.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month,omitempty"`
}

func YearPeriod(year int) Period { return Period{Year: year} }

func MonthPeriod(year int, month time.Month) Period { return Period{Year: year, Month: month} }

func (p Period) IsYear() bool { return p.Month == 0 }

// Months is the number of calendar months the period spans.
func (p Period) Months() int {
	if p.IsYear() {
		return 12
	}
	return 1
}

// Range returns the half-open interval of the period in loc.
func (p Period) Range(loc *time.Location) ledger.Range {
	if loc == nil {
		loc = time.Local
	}
	if p.IsYear() {
		from := time.Date(p.Year, time.January, 1, 0, 0, 0, 0, loc)
		return ledger.Range{From: from, To: from.AddDate(1, 0, 0)}
	}
	from := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
	return ledger.Range{From: from, To: from.AddDate(0, 1, 0)}
}

func (p Period) String() string {
	if p.IsYear() {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// DayRange returns the local calendar day containing t.
func DayRange(t time.Time, loc *time.Location) ledger.Range {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return ledger.Range{From: from, To: from.AddDate(0, 0, 1)}
}

// DayKey formats t as YYYY-MM-DD on the local day boundary of loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(time.DateOnly)
}
