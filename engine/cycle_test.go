package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rental-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) engine.Date {
	return engine.NewDate(year, month, day)
}

func month(year int, m time.Month) engine.MonthKey {
	return engine.MonthKey{Year: year, Month: m}
}

// =============================================================================
// ALIGNED DATE TESTS
// =============================================================================

func TestAlignedDateAfter_RegularMonth_LandsOnAnchor(t *testing.T) {
	// GIVEN: A mid-month date with anchor day 15
	// WHEN: Advancing 3 months
	// THEN: Result lands on the 15th of the target month

	got := engine.AlignedDateAfter(date(2024, time.January, 15), 3, 15)
	assert.True(t, got.Equal(date(2024, time.April, 15)), "got %s", got)
}

func TestAlignedDateAfter_ShortMonth_ClampsToLastDay(t *testing.T) {
	// GIVEN: Anchor day 31
	// WHEN: Advancing into months with fewer days
	// THEN: The boundary rolls down to the month's last day

	cases := []struct {
		from   engine.Date
		months int
		want   engine.Date
	}{
		{date(2024, time.January, 31), 1, date(2024, time.February, 29)}, // leap year
		{date(2023, time.January, 31), 1, date(2023, time.February, 28)},
		{date(2024, time.March, 31), 1, date(2024, time.April, 30)},
	}
	for _, tc := range cases {
		got := engine.AlignedDateAfter(tc.from, tc.months, 31)
		assert.True(t, got.Equal(tc.want), "from %s +%dm: got %s, want %s", tc.from, tc.months, got, tc.want)
	}
}

func TestAlignedDateAfter_YearOverflow_Normalizes(t *testing.T) {
	// GIVEN: A December date
	// WHEN: Advancing 2 months
	// THEN: The boundary lands in February of the following year

	got := engine.AlignedDateAfter(date(2024, time.December, 10), 2, 10)
	assert.True(t, got.Equal(date(2025, time.February, 10)), "got %s", got)
}

func TestAlignedDateAfter_AnchorSurvivesClampedStep(t *testing.T) {
	// GIVEN: A boundary that was clamped down to Feb 29 with anchor 31
	// WHEN: Advancing again with the original anchor
	// THEN: The boundary climbs back to the 31st, not the 29th

	clamped := engine.AlignedDateAfter(date(2024, time.January, 31), 1, 31)
	require.True(t, clamped.Equal(date(2024, time.February, 29)))

	got := engine.AlignedDateAfter(clamped, 1, 31)
	assert.True(t, got.Equal(date(2024, time.March, 31)), "got %s", got)
}

// =============================================================================
// CYCLE WALK TESTS
// =============================================================================

func TestNextCycleStartAfter_WalksToFirstBoundaryPastReference(t *testing.T) {
	// GIVEN: Contract starting 2024-01-15 with quarterly cycles
	// WHEN: Asking for the next cycle start after various dates
	// THEN: The aligned boundary strictly after the reference is returned

	start := date(2024, time.January, 15)

	cases := []struct {
		after engine.Date
		want  engine.Date
	}{
		{date(2024, time.January, 15), date(2024, time.April, 15)},
		{date(2024, time.April, 14), date(2024, time.April, 15)},
		{date(2024, time.April, 15), date(2024, time.July, 15)}, // strictly after
		{date(2025, time.February, 1), date(2025, time.April, 15)},
	}
	for _, tc := range cases {
		got := engine.NextCycleStartAfter(start, engine.PeriodQuarterly, tc.after)
		assert.True(t, got.Equal(tc.want), "after %s: got %s, want %s", tc.after, got, tc.want)
	}
}

func TestNextCycleStartAfter_NoDriftAcrossShortMonths(t *testing.T) {
	// GIVEN: Contract starting on the 31st with monthly cycles
	// WHEN: Walking boundaries across February and 30-day months
	// THEN: The anchor never decays to an earlier day

	start := date(2024, time.January, 31)
	boundary := start
	want := []engine.Date{
		date(2024, time.February, 29),
		date(2024, time.March, 31),
		date(2024, time.April, 30),
		date(2024, time.May, 31),
		date(2024, time.June, 30),
		date(2024, time.July, 31),
	}
	for _, w := range want {
		boundary = engine.NextCycleStartAfter(start, engine.PeriodMonthly, boundary)
		assert.True(t, boundary.Equal(w), "got %s, want %s", boundary, w)
	}
}

func TestCycleEndFor_DayBeforeNextBoundary(t *testing.T) {
	// GIVEN: A quarterly cycle starting 2024-01-15
	// WHEN: Computing its inclusive end
	// THEN: The end is 2024-04-14, the day before the next aligned start

	got := engine.CycleEndFor(date(2024, time.January, 15), engine.PeriodQuarterly, 15)
	assert.True(t, got.Equal(date(2024, time.April, 14)), "got %s", got)
}

// =============================================================================
// DATE PRIMITIVE TESTS
// =============================================================================

func TestNextBusinessDay_WeekendRollsForward(t *testing.T) {
	// 2024-03-10 is a Sunday
	got := date(2024, time.March, 10).NextBusinessDay()
	assert.True(t, got.Equal(date(2024, time.March, 11)), "got %s", got)

	// A weekday is returned untouched
	wed := date(2024, time.March, 13)
	assert.True(t, wed.NextBusinessDay().Equal(wed))
}

func TestMonthSpan_InclusiveRange(t *testing.T) {
	months, err := engine.MonthSpan(date(2024, time.January, 15), date(2024, time.March, 2))
	require.NoError(t, err)
	require.Len(t, months, 3)
	assert.Equal(t, month(2024, time.January), months[0])
	assert.Equal(t, month(2024, time.March), months[2])
}

func TestMonthSpan_InvertedRange_Rejected(t *testing.T) {
	_, err := engine.MonthSpan(date(2024, time.March, 1), date(2024, time.January, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrInvalidDateRange)
}

func TestParseMonthKey_TruncatesFullDate(t *testing.T) {
	m, err := engine.ParseMonthKey("2024-05-17")
	require.NoError(t, err)
	assert.Equal(t, month(2024, time.May), m)
}
