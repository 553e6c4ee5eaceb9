package ledger

import (
	"testing"
	"time"
)

func TestRangeContains(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		r    Range
		at   time.Time
		want bool
	}{
		{"open range", Range{}, from, true},
		{"at from", Range{From: from, To: to}, from, true},
		{"before from", Range{From: from, To: to}, from.Add(-time.Nanosecond), false},
		{"at to is excluded", Range{From: from, To: to}, to, false},
		{"only lower bound", Range{From: from}, to.AddDate(5, 0, 0), true},
		{"only upper bound", Range{To: to}, from.AddDate(-5, 0, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Contains(tt.at); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}
