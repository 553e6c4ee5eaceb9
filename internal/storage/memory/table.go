package memory

import (
	"sort"
	"time"

	"autonome/internal/ledger"
)

// fields exposes the bookkeeping columns of a record type to table.
type fields[T any] struct {
	id      func(T) int64
	at      func(T) time.Time // indexed date used by range reads
	created func(T) time.Time
	stamp   func(v *T, id int64, created, updated time.Time)
}

// table is an id-keyed collection with an auto-increment counter.
type table[T any] struct {
	rows   map[int64]T
	nextID int64
	f      fields[T]
}

func newTable[T any](f fields[T]) *table[T] {
	return &table[T]{rows: make(map[int64]T), f: f}
}

func (t *table[T]) insert(v T, now time.Time) T {
	t.nextID++
	t.f.stamp(&v, t.nextID, now, now)
	t.rows[t.nextID] = v
	return v
}

// replaced returns a copy of t holding exactly rows, with their ids kept.
// Rows without a creation stamp are stamped now. Ids keep counting from
// the higher of the old counter and the largest restored id.
func (t *table[T]) replaced(rows []T, now time.Time) *table[T] {
	out := &table[T]{rows: make(map[int64]T, len(rows)), nextID: t.nextID, f: t.f}
	for _, v := range rows {
		id := t.f.id(v)
		if t.f.created(v).IsZero() {
			t.f.stamp(&v, id, now, now)
		}
		out.rows[id] = v
		out.nextID = max(out.nextID, id)
	}
	return out
}

func (t *table[T]) update(v T, now time.Time) error {
	id := t.f.id(v)
	old, ok := t.rows[id]
	if !ok {
		return ledger.ErrNotFound
	}
	t.f.stamp(&v, id, t.f.created(old), now)
	t.rows[id] = v
	return nil
}

func (t *table[T]) get(id int64) (T, error) {
	v, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, ledger.ErrNotFound
	}
	return v, nil
}

func (t *table[T]) delete(id int64) error {
	if _, ok := t.rows[id]; !ok {
		return ledger.ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

// list returns rows inside r ordered by (date, id).
func (t *table[T]) list(r ledger.Range) []T {
	out := make([]T, 0, len(t.rows))
	for _, v := range t.rows {
		if r.Contains(t.f.at(v)) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		atI, atJ := t.f.at(out[i]), t.f.at(out[j])
		if !atI.Equal(atJ) {
			return atI.Before(atJ)
		}
		return t.f.id(out[i]) < t.f.id(out[j])
	})
	return out
}
