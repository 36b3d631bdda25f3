package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Plain local calendar date (day granularity, no timezone conversion)
// =============================================================================

// Date is a calendar date with no time-of-day component. All contract math
// operates on Dates; wall-clock time never enters the engine.
type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.normalize().AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.normalize().AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string {
	return d.Time.Format("2006-01-02")
}

// NextBusinessDay rolls a date forward to the next weekday. A date that is
// already a weekday is returned unchanged. No holiday calendar.
func (d Date) NextBusinessDay() Date {
	out := d
	for out.IsWeekend() {
		out = out.AddDays(1)
	}
	return out
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// =============================================================================
// MONTH KEY - A year-month pair (billing periods, index values)
// =============================================================================

type MonthKey struct {
	Year  int
	Month time.Month
}

func MonthOf(d Date) MonthKey {
	return MonthKey{Year: d.Year(), Month: d.Month()}
}

// ParseMonthKey parses a YYYY-MM string. A full YYYY-MM-DD date is accepted
// and truncated to its month.
func ParseMonthKey(s string) (MonthKey, error) {
	if len(s) > 7 {
		s = s[:7]
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return MonthKey{Year: t.Year(), Month: t.Month()}, nil
}

func (m MonthKey) IsZero() bool { return m.Year == 0 }

func (m MonthKey) Next() MonthKey {
	d := NewDate(m.Year, m.Month, 1).AddMonths(1)
	return MonthOf(d)
}

// Date returns the given day within the month, clamped to the month's last day.
func (m MonthKey) Date(day int) Date {
	if last := DaysInMonth(m.Year, m.Month); day > last {
		day = last
	}
	return NewDate(m.Year, m.Month, day)
}

func (m MonthKey) First() Date { return NewDate(m.Year, m.Month, 1) }

func (m MonthKey) Before(other MonthKey) bool {
	return m.Year < other.Year || (m.Year == other.Year && m.Month < other.Month)
}

func (m MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Label is the human-readable form used in composition breakdowns.
func (m MonthKey) Label() string {
	return fmt.Sprintf("%s %d", m.Month.String()[:3], m.Year)
}

// MonthSpan returns the inclusive list of months from the month of `from`
// through the month of `to`. Returns an error when the range is inverted.
func MonthSpan(from, to Date) ([]MonthKey, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, &DateRangeError{From: from, To: to}
	}
	start := MonthOf(from)
	end := MonthOf(to)
	var out []MonthKey
	for m := start; !end.Before(m); m = m.Next() {
		out = append(out, m)
	}
	return out, nil
}
