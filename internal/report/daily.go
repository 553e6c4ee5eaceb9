package report

import (
	"cmp"
	"slices"
	"time"

	"autonome/internal/core"
)

// DayBucket holds one local calendar day of activity. Days without records
// have no bucket.
type DayBucket struct {
	Date          string              `json:"date"`
	Sessions      []core.WorkSession  `json:"sessions"`
	InProgress    int                 `json:"inProgress"`
	Expenses      []core.Expense      `json:"expenses"`
	Incomes       []core.Income       `json:"incomes"`
	Mileage       []core.MileageEntry `json:"mileage"`
	TotalEarned   core.Money          `json:"totalEarned"`
	TotalIncome   core.Money          `json:"totalIncome"`
	TotalDuration time.Duration       `json:"totalDuration"`
	TotalExpense  core.Money          `json:"totalExpense"`
	TotalDistance float64             `json:"totalDistance"`
	NetResult     core.Money          `json:"netResult"`
}

// GroupByDay buckets the snapshot's sessions, expenses, incomes and mileage
// by local day. Buckets are sorted newest first and the records inside a
// bucket by (date, id), so the output does not depend on input order.
// Records with a zero date are skipped.
func GroupByDay(s Snapshot, loc *time.Location) []DayBucket {
	buckets := make(map[string]*DayBucket)
	bucket := func(t time.Time) *DayBucket {
		key := DayKey(t, loc)
		b, ok := buckets[key]
		if !ok {
			b = &DayBucket{Date: key}
			buckets[key] = b
		}
		return b
	}

	for _, ws := range s.Sessions {
		if ws.StartTime.IsZero() {
			continue
		}
		b := bucket(ws.StartTime)
		b.Sessions = append(b.Sessions, ws)
	}
	for _, e := range s.Expenses {
		if e.Date.IsZero() {
			continue
		}
		b := bucket(e.Date)
		b.Expenses = append(b.Expenses, e)
	}
	for _, i := range s.Incomes {
		if i.Date.IsZero() {
			continue
		}
		b := bucket(i.Date)
		b.Incomes = append(b.Incomes, i)
	}
	for _, m := range s.Mileage {
		if m.Date.IsZero() {
			continue
		}
		b := bucket(m.Date)
		b.Mileage = append(b.Mileage, m)
	}

	out := make([]DayBucket, 0, len(buckets))
	for _, b := range buckets {
		b.finish()
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b DayBucket) int { return cmp.Compare(b.Date, a.Date) })
	return out
}

// DaySummary returns the bucket for the local day containing day.
func DaySummary(s Snapshot, day time.Time, loc *time.Location) (DayBucket, bool) {
	b := GroupByDay(s.Within(DayRange(day, loc)), loc)
	if len(b) == 0 {
		return DayBucket{Date: DayKey(day, loc)}, false
	}
	return b[0], true
}

func (b *DayBucket) finish() {
	slices.SortFunc(b.Sessions, func(x, y core.WorkSession) int { return byTimeThenID(x.StartTime, y.StartTime, x.ID, y.ID) })
	slices.SortFunc(b.Expenses, func(x, y core.Expense) int { return byTimeThenID(x.Date, y.Date, x.ID, y.ID) })
	slices.SortFunc(b.Incomes, func(x, y core.Income) int { return byTimeThenID(x.Date, y.Date, x.ID, y.ID) })
	slices.SortFunc(b.Mileage, func(x, y core.MileageEntry) int { return byTimeThenID(x.Date, y.Date, x.ID, y.ID) })

	for _, ws := range b.Sessions {
		if ws.InProgress() {
			b.InProgress++
			continue
		}
		b.TotalEarned = b.TotalEarned.Add(ws.Earned())
		b.TotalDuration += ws.Duration()
	}
	for _, e := range b.Expenses {
		b.TotalExpense = b.TotalExpense.Add(e.Amount)
	}
	for _, i := range b.Incomes {
		b.TotalIncome = b.TotalIncome.Add(i.Amount)
	}
	for _, m := range b.Mileage {
		b.TotalDistance += distance(m)
	}
	b.NetResult = b.TotalEarned.Add(b.TotalIncome).Sub(b.TotalExpense)
}

func byTimeThenID(a, b time.Time, ida, idb int64) int {
	if c := a.Compare(b); c != 0 {
		return c
	}
	return cmp.Compare(ida, idb)
}

// distance zero-defaults negative or non-finite entries.
func distance(m core.MileageEntry) float64 {
	if !(m.Distance > 0) || m.Distance > 1e9 {
		return 0
	}
	return m.Distance
}
