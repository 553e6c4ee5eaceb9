package services

import (
	"fmt"
	"time"

	"autonome/internal/core"
)

// PeriodAdvancer moves a due date forward by exactly one period.
// anchor is the item's start date; month-based advancers use its day of month
// so a Jan 31 schedule returns to the 31st after passing through February.
type PeriodAdvancer interface {
	Next(current, anchor time.Time) time.Time
}

type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Next(current, _ time.Time) time.Time {
	return current.AddDate(0, 0, 7)
}

type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Next(current, anchor time.Time) time.Time {
	return addMonthsClamped(current, 1, anchorDay(current, anchor))
}

type YearlyAdvancer struct{}

func (YearlyAdvancer) Next(current, anchor time.Time) time.Time {
	return addMonthsClamped(current, 12, anchorDay(current, anchor))
}

var periodAdvancers = map[core.Frequency]PeriodAdvancer{
	core.Weekly:  WeeklyAdvancer{},
	core.Monthly: MonthlyAdvancer{},
	core.Yearly:  YearlyAdvancer{},
}

// GetPeriodAdvancer returns the advancer registered for frequency.
func GetPeriodAdvancer(frequency core.Frequency) (PeriodAdvancer, error) {
	a, ok := periodAdvancers[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, frequency)
	}
	return a, nil
}

// RegisterPeriodAdvancer adds or replaces the advancer for frequency.
// Not safe for use concurrently with a scheduler pass.
func RegisterPeriodAdvancer(frequency core.Frequency, a PeriodAdvancer) {
	periodAdvancers[frequency] = a
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// anchorDay picks the day of month the schedule should aim for. current is
// trusted over anchor when it is not a clamped form of anchor's day, which
// happens when the next date was edited by hand.
func anchorDay(current, anchor time.Time) int {
	if anchor.IsZero() {
		return current.Day()
	}
	want := anchor.In(current.Location()).Day()
	clamped := min(want, daysIn(current.Year(), current.Month(), current.Location()))
	if current.Day() == clamped {
		return want
	}
	return current.Day()
}

// addMonthsClamped moves t forward by months calendar months, landing on day
// or the last day of the target month, whichever is earlier. Wall-clock time
// is preserved.
func addMonthsClamped(t time.Time, months, day int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	d := min(day, daysIn(first.Year(), first.Month(), t.Location()))
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
