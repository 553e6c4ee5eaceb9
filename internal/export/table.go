// Package export renders ledger records and report output as flat tables
// and writes them as CSV, JSON, XLSX or to a Google spreadsheet.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"autonome/internal/core"
	"autonome/internal/report"
)

// Table is a flat record set: one header row and one value per column.
// Cells hold string, int, int64, float64, bool, time.Time, core.Money or nil.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

var ErrUnknownCollection = errors.New("unknown collection")

// Collections that can be exported as tables.
var Collections = []string{"sessions", "expenses", "incomes", "mileage", "invoices", "clients", "jobs", "documents"}

func optTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func optID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func optMoney(m *core.Money) any {
	if m == nil {
		return nil
	}
	return *m
}

func SessionsTable(sessions []core.WorkSession) Table {
	t := Table{Name: "sessions", Header: []string{"id", "startTime", "endTime", "duration", "hourlyRate", "totalEarned", "clientId", "projectId", "notes"}}
	for _, s := range sessions {
		var hours any
		if !s.InProgress() {
			hours = s.Duration().Hours()
		}
		t.Rows = append(t.Rows, []any{s.ID, s.StartTime, optTime(s.EndTime), hours, s.HourlyRate, optMoney(s.TotalEarned), optID(s.ClientID), optID(s.ProjectID), s.Notes})
	}
	return t
}

func ExpensesTable(expenses []core.Expense) Table {
	t := Table{Name: "expenses", Header: []string{"id", "date", "title", "amount", "category", "description", "projectId", "tags", "recurringItemId"}}
	for _, e := range expenses {
		t.Rows = append(t.Rows, []any{e.ID, e.Date, e.Title, e.Amount, e.Category, e.Description, optID(e.ProjectID), strings.Join(e.Tags, ";"), optID(e.RecurringItemID)})
	}
	return t
}

func IncomesTable(incomes []core.Income) Table {
	t := Table{Name: "incomes", Header: []string{"id", "date", "title", "amount", "category", "description", "projectId", "recurringItemId"}}
	for _, i := range incomes {
		t.Rows = append(t.Rows, []any{i.ID, i.Date, i.Title, i.Amount, i.Category, i.Description, optID(i.ProjectID), optID(i.RecurringItemID)})
	}
	return t
}

func MileageTable(entries []core.MileageEntry) Table {
	t := Table{Name: "mileage", Header: []string{"id", "date", "startAddress", "endAddress", "distance", "purpose"}}
	for _, m := range entries {
		t.Rows = append(t.Rows, []any{m.ID, m.Date, m.StartAddress, m.EndAddress, m.Distance, m.Purpose})
	}
	return t
}

// InvoicesTable writes the status as read at now, so overdue shows.
func InvoicesTable(invoices []core.Invoice, now time.Time) Table {
	t := Table{Name: "invoices", Header: []string{"id", "number", "date", "dueDate", "type", "status", "clientName", "subtotal", "tps", "tvq", "total"}}
	for _, inv := range invoices {
		t.Rows = append(t.Rows, []any{inv.ID, inv.Number, inv.Date, optTime(inv.DueDate), string(inv.Type), string(inv.EffectiveStatus(now)), inv.ClientName, inv.Subtotal, optMoney(inv.TPS), optMoney(inv.TVQ), inv.Total})
	}
	return t
}

func ClientsTable(clients []core.Client) Table {
	t := Table{Name: "clients", Header: []string{"id", "name", "email", "phone", "address", "notes"}}
	for _, c := range clients {
		t.Rows = append(t.Rows, []any{c.ID, c.Name, c.Email, c.Phone, c.Address, c.Notes})
	}
	return t
}

func JobsTable(jobs []core.Job) Table {
	t := Table{Name: "jobs", Header: []string{"id", "date", "clientName", "description", "address", "status", "notes"}}
	for _, j := range jobs {
		t.Rows = append(t.Rows, []any{j.ID, j.Date, j.ClientName, j.Description, j.Address, string(j.Status), j.Notes})
	}
	return t
}

// DocumentsTable lists document metadata. File contents stay out of the
// table; the backup carries them.
func DocumentsTable(docs []core.Document) Table {
	t := Table{Name: "documents", Header: []string{"id", "date", "title", "type", "mimeType", "bytes", "tags"}}
	for _, d := range docs {
		t.Rows = append(t.Rows, []any{d.ID, d.Date, d.Title, string(d.Type), d.MimeType, len(d.Data), strings.Join(d.Tags, ", ")})
	}
	return t
}

func MonthlySeriesTable(points []report.MonthPoint) Table {
	t := Table{Name: "months", Header: []string{"month", "income", "expense"}}
	for _, p := range points {
		t.Rows = append(t.Rows, []any{p.Month, p.Income, p.Expense})
	}
	return t
}

func CategoryTable(b report.CategoryBreakdownResult) Table {
	t := Table{Name: "categories", Header: []string{"category", "amount", "percentage"}}
	for _, s := range b.Shares {
		t.Rows = append(t.Rows, []any{s.Category, s.Amount, s.Percentage})
	}
	return t
}

// DaysTable flattens daily buckets into one row per day.
func DaysTable(days []report.DayBucket) Table {
	t := Table{Name: "days", Header: []string{"date", "sessions", "inProgress", "totalEarned", "totalIncome", "totalDuration", "totalExpense", "totalDistance", "netResult"}}
	for _, d := range days {
		t.Rows = append(t.Rows, []any{d.Date, len(d.Sessions), d.InProgress, d.TotalEarned, d.TotalIncome, d.TotalDuration.Hours(), d.TotalExpense, d.TotalDistance, d.NetResult})
	}
	return t
}
