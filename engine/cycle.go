/*
cycle.go - Anchor-aligned adjustment cycle boundaries

PURPOSE:
  Computes where adjustment cycles start and end. Every boundary aligns to
  the contract's anchor day (the day-of-month of the contract start),
  clamped to the last day of shorter months.

CLAMPING:
  A contract starting on the 31st rolls down to the 30th (or 28th/29th)
  on shorter months. The anchor stays 31: the clamp is applied per
  boundary, never re-derived from a rolled-down date. This is why
  AlignedDateAfter takes the anchor day explicitly instead of reading it
  off the input date.

SEE ALSO:
  - timeline.go: Uses these to propose new adjustment periods
  - status.go: Uses these to locate the current cycle
*/
package engine

import "time"

// AlignedDateAfter advances a date by whole months and lands on the anchor
// day of the resulting month, clamped to that month's last day.
// time.Date normalizes month overflow, so December+2 lands in February of
// the following year.
func AlignedDateAfter(date Date, monthsToAdd int, anchorDay int) Date {
	first := NewDate(date.Year(), date.Month()+time.Month(monthsToAdd), 1)
	day := anchorDay
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

// NextCycleStartAfter walks cycle boundaries forward from the contract start
// until one falls strictly after afterDate, and returns it. The anchor day
// comes from the contract start, so boundaries never drift across short
// months.
func NextCycleStartAfter(contractStart Date, periodMonths PeriodMonths, afterDate Date) Date {
	anchor := contractStart.Day()
	candidate := AlignedDateAfter(contractStart, int(periodMonths), anchor)
	for candidate.BeforeOrEqual(afterDate) {
		candidate = AlignedDateAfter(candidate, int(periodMonths), anchor)
	}
	return candidate
}

// CycleEndFor returns the inclusive end of the cycle beginning at cycleStart:
// the day immediately preceding the next aligned cycle start.
func CycleEndFor(cycleStart Date, periodMonths PeriodMonths, anchorDay int) Date {
	next := AlignedDateAfter(cycleStart, int(periodMonths), anchorDay)
	return next.AddDays(-1)
}
