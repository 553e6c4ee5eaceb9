package report

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"autonome/internal/core"
)

// UnlabeledClient names a client reference whose record no longer exists.
const UnlabeledClient = "unlabeled"

// MonthPoint is one month of the yearly income/expense series.
type MonthPoint struct {
	Month   string     `json:"month"` // YYYY-MM
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
}

// CategoryShare is one category's part of total expense.
type CategoryShare struct {
	Category   string     `json:"category"`
	Amount     core.Money `json:"amount"`
	Percentage float64    `json:"percentage"`
}

// CategoryBreakdownResult wraps the shares with the total. HasData is false
// when total expense is zero; every percentage is then zero.
type CategoryBreakdownResult struct {
	Shares  []CategoryShare `json:"shares"`
	Total   core.Money      `json:"total"`
	HasData bool            `json:"hasData"`
}

type ClientTotal struct {
	ClientID int64      `json:"clientId"`
	Name     string     `json:"name"`
	Earned   core.Money `json:"earned"`
}

// Params are the user settings a financial summary depends on.
type Params struct {
	MonthlyGoal      core.Money
	EstimatedTaxRate float64
	Normalizer       *core.CategoryNormalizer
}

type FinancialSummary struct {
	Period            Period                  `json:"period"`
	SessionIncome     core.Money              `json:"sessionIncome"`
	OtherIncome       core.Money              `json:"otherIncome"`
	Income            core.Money              `json:"income"`
	Expense           core.Money              `json:"expense"`
	Net               core.Money              `json:"net"`
	Hours             float64                 `json:"hours"`
	AverageHourlyRate core.Money              `json:"averageHourlyRate"`
	TopClient         *ClientTotal            `json:"topClient,omitempty"`
	Categories        CategoryBreakdownResult `json:"categories"`
	Months            []MonthPoint            `json:"months,omitempty"`
	Distance          float64                 `json:"distance"`
	Goal              core.Money              `json:"goal"`
	GoalProgress      float64                 `json:"goalProgress"`
	EstimatedTax      core.Money              `json:"estimatedTax"`
}

// MonthlySeries returns exactly twelve points for year, January first.
// Session income counts completed sessions by start time.
func MonthlySeries(s Snapshot, year int, loc *time.Location) []MonthPoint {
	points := make([]MonthPoint, 12)
	for i := range points {
		points[i].Month = fmt.Sprintf("%04d-%02d", year, i+1)
	}
	slot := func(t time.Time) int {
		if t.IsZero() {
			return -1
		}
		t = t.In(orLocal(loc))
		if t.Year() != year {
			return -1
		}
		return int(t.Month()) - 1
	}

	for _, ws := range s.Sessions {
		if i := slot(ws.StartTime); i >= 0 && !ws.InProgress() {
			points[i].Income = points[i].Income.Add(ws.Earned())
		}
	}
	for _, inc := range s.Incomes {
		if i := slot(inc.Date); i >= 0 {
			points[i].Income = points[i].Income.Add(inc.Amount)
		}
	}
	for _, e := range s.Expenses {
		if i := slot(e.Date); i >= 0 {
			points[i].Expense = points[i].Expense.Add(e.Amount)
		}
	}
	return points
}

// CategoryBreakdown groups expenses by normalized category, largest first
// with ties by name. A nil normalizer uses the latest mapping.
func CategoryBreakdown(expenses []core.Expense, n *core.CategoryNormalizer) CategoryBreakdownResult {
	if n == nil {
		n = core.NewCategoryNormalizer(0)
	}
	sums := make(map[string]int64)
	var total int64
	for _, e := range expenses {
		if e.Amount.Cents <= 0 {
			continue
		}
		sums[n.Normalize(e.Category)] += e.Amount.Cents
		total += e.Amount.Cents
	}

	res := CategoryBreakdownResult{Total: core.Money{Cents: total}, HasData: total > 0}
	res.Shares = make([]CategoryShare, 0, len(sums))
	for cat, cents := range sums {
		share := CategoryShare{Category: cat, Amount: core.Money{Cents: cents}}
		if total > 0 {
			share.Percentage = float64(cents) / float64(total) * 100
		}
		res.Shares = append(res.Shares, share)
	}
	slices.SortFunc(res.Shares, func(a, b CategoryShare) int {
		if c := cmp.Compare(b.Amount.Cents, a.Amount.Cents); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return res
}

// TopClient returns the client with the greatest earned total. Ties go to
// the lowest client id. Sessions without a client are ignored, and a client
// id with no record is named UnlabeledClient.
func TopClient(sessions []core.WorkSession, clients []core.Client) (ClientTotal, bool) {
	sums := make(map[int64]int64)
	for _, ws := range sessions {
		if ws.ClientID == nil {
			continue
		}
		sums[*ws.ClientID] += ws.Earned().Cents
	}

	var best ClientTotal
	found := false
	for id, cents := range sums {
		if cents <= 0 {
			continue
		}
		if !found || cents > best.Earned.Cents || (cents == best.Earned.Cents && id < best.ClientID) {
			best = ClientTotal{ClientID: id, Earned: core.Money{Cents: cents}}
			found = true
		}
	}
	if !found {
		return ClientTotal{}, false
	}

	best.Name = UnlabeledClient
	for _, c := range clients {
		if c.ID == best.ClientID {
			best.Name = c.Name
			break
		}
	}
	return best, true
}

// AverageHourlyRate is income / hours, zero when no time was worked.
func AverageHourlyRate(income core.Money, hours float64) core.Money {
	if !(hours > 0) || math.IsInf(hours, 0) {
		return core.Money{}
	}
	return core.MoneyFromDecimal(income.Decimal().Div(decimal.NewFromFloat(hours)))
}

// Summarize builds the financial summary of period p.
func Summarize(s Snapshot, p Period, params Params, loc *time.Location) FinancialSummary {
	loc = orLocal(loc)
	in := s.Within(p.Range(loc))

	sum := FinancialSummary{Period: p}
	var worked time.Duration
	for _, ws := range in.Sessions {
		if ws.InProgress() {
			continue
		}
		sum.SessionIncome = sum.SessionIncome.Add(ws.Earned())
		worked += ws.Duration()
	}
	for _, inc := range in.Incomes {
		sum.OtherIncome = sum.OtherIncome.Add(inc.Amount)
	}
	for _, e := range in.Expenses {
		sum.Expense = sum.Expense.Add(e.Amount)
	}
	for _, m := range in.Mileage {
		sum.Distance += distance(m)
	}

	sum.Income = sum.SessionIncome.Add(sum.OtherIncome)
	sum.Net = sum.Income.Sub(sum.Expense)
	sum.Hours = worked.Hours()
	sum.AverageHourlyRate = AverageHourlyRate(sum.Income, sum.Hours)
	if top, ok := TopClient(in.Sessions, in.Clients); ok {
		sum.TopClient = &top
	}
	sum.Categories = CategoryBreakdown(in.Expenses, params.Normalizer)
	if p.IsYear() {
		sum.Months = MonthlySeries(in, p.Year, loc)
	}

	if params.MonthlyGoal.Cents > 0 {
		sum.Goal = core.Money{Cents: params.MonthlyGoal.Cents * int64(p.Months())}
		sum.GoalProgress = float64(sum.Income.Cents) / float64(sum.Goal.Cents) * 100
	}
	if sum.Net.Cents > 0 && params.EstimatedTaxRate > 0 {
		sum.EstimatedTax = core.MoneyFromDecimal(sum.Net.Decimal().Mul(decimal.NewFromFloat(params.EstimatedTaxRate)))
	}
	return sum
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
