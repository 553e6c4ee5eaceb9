package core

import (
	"time"

	"github.com/shopspring/decimal"
)

var msPerHour = decimal.NewFromInt(int64(time.Hour / time.Millisecond))

// InProgress reports whether the session has not been stopped yet.
func (s WorkSession) InProgress() bool {
	return s.EndTime == nil
}

// Duration is EndTime - StartTime, zero while in progress or when the
// interval is inverted.
func (s WorkSession) Duration() time.Duration {
	if s.EndTime == nil || s.StartTime.IsZero() {
		return 0
	}
	d := s.EndTime.Sub(s.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// Earned returns TotalEarned, or zero when the session has none.
func (s WorkSession) Earned() Money {
	if s.TotalEarned == nil {
		return Money{}
	}
	return *s.TotalEarned
}

// Stop closes the session at end and computes TotalEarned from the hourly rate.
func (s *WorkSession) Stop(end time.Time) error {
	if s.EndTime != nil {
		return ErrSessionStopped
	}
	if end.Before(s.StartTime) {
		return ErrInvalidInterval
	}
	s.EndTime = &end
	earned := Earnings(end.Sub(s.StartTime), s.HourlyRate)
	s.TotalEarned = &earned
	return nil
}

// Earnings is hours elapsed x hourly rate, rounded to cents.
func Earnings(d time.Duration, rate Money) Money {
	if d <= 0 || rate.Cents <= 0 {
		return Money{}
	}
	hours := decimal.NewFromInt(d.Milliseconds()).Div(msPerHour)
	return MoneyFromDecimal(hours.Mul(rate.Decimal()))
}
