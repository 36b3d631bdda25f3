package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rental-engine/engine"
)

func payment(id string, m engine.MonthKey, paidOn engine.Date, amount int64) engine.PaymentEntry {
	return engine.PaymentEntry{
		ID:         engine.PaymentID(id),
		ContractID: "c-1",
		Month:      m,
		PaidOn:     paidOn,
		Amount:     money(amount),
		Method:     "transfer",
	}
}

// =============================================================================
// DUE DATE TESTS
// =============================================================================

func TestDueDateForMonth_WeekendRollsForward(t *testing.T) {
	// 2024-03-10 is a Sunday; the due date moves to Monday the 11th.
	got := engine.DueDateForMonth(month(2024, time.March), 10)
	assert.True(t, got.Equal(date(2024, time.March, 11)), "got %s", got)

	// 2024-04-10 is a Wednesday and stays put.
	got = engine.DueDateForMonth(month(2024, time.April), 10)
	assert.True(t, got.Equal(date(2024, time.April, 10)), "got %s", got)
}

func TestDueDateForMonth_ZeroDay_UsesDefault(t *testing.T) {
	got := engine.DueDateForMonth(month(2024, time.April), 0)
	assert.True(t, got.Equal(date(2024, time.April, 10)))
}

// =============================================================================
// STATUS DERIVATION TESTS
// =============================================================================

func TestAggregateMonth_PartialThenPaid(t *testing.T) {
	// GIVEN: A 100000/month contract and a half payment
	// WHEN: Aggregating the month
	// THEN: partial with balance 50000; a second half payment flips it to
	//       paid with zero balance

	c := quarterlyContract(date(2024, time.January, 15), 100000)
	ref := date(2024, time.April, 1)
	m := month(2024, time.March)

	half := []engine.PaymentEntry{payment("p-1", m, date(2024, time.March, 5), 50000)}
	ledger := engine.AggregateMonth(c, nil, m, half, ref)
	assert.Equal(t, engine.PaymentPartial, ledger.Status)
	assert.True(t, ledger.Total.Equal(money(100000)))
	assert.True(t, ledger.Balance.Equal(money(50000)))

	full := append(half, payment("p-2", m, date(2024, time.March, 20), 50000))
	ledger = engine.AggregateMonth(c, nil, m, full, ref)
	assert.Equal(t, engine.PaymentPaid, ledger.Status)
	assert.True(t, ledger.Balance.Equal(decimal.Zero))
	assert.True(t, ledger.Paid.Equal(money(100000)))
}

func TestAggregateMonth_PartialWinsOverOverdue(t *testing.T) {
	// GIVEN: A half-paid month whose due date has long passed
	// WHEN: Aggregating
	// THEN: partial, not overdue

	c := quarterlyContract(date(2024, time.January, 15), 100000)
	m := month(2024, time.March)
	entries := []engine.PaymentEntry{payment("p-1", m, date(2024, time.March, 5), 50000)}

	ledger := engine.AggregateMonth(c, nil, m, entries, date(2024, time.June, 1))
	assert.Equal(t, engine.PaymentPartial, ledger.Status)
}

func TestAggregateMonth_UnpaidPastDue_Overdue(t *testing.T) {
	c := quarterlyContract(date(2024, time.January, 15), 100000)
	m := month(2024, time.March)

	// Due 2024-03-11 (the 10th is a Sunday). One day past due is overdue.
	ledger := engine.AggregateMonth(c, nil, m, nil, date(2024, time.March, 12))
	assert.Equal(t, engine.PaymentOverdue, ledger.Status)

	// On the due date itself it is still pending.
	ledger = engine.AggregateMonth(c, nil, m, nil, date(2024, time.March, 11))
	assert.Equal(t, engine.PaymentPending, ledger.Status)
}

func TestAggregateMonth_OverpaymentClampsBalance(t *testing.T) {
	c := quarterlyContract(date(2024, time.January, 15), 100000)
	m := month(2024, time.March)
	entries := []engine.PaymentEntry{payment("p-1", m, date(2024, time.March, 5), 120000)}

	ledger := engine.AggregateMonth(c, nil, m, entries, date(2024, time.April, 1))
	assert.Equal(t, engine.PaymentPaid, ledger.Status)
	assert.True(t, ledger.Balance.Equal(decimal.Zero))
	assert.True(t, ledger.Paid.Equal(money(120000)))
}

// =============================================================================
// AMOUNT RESOLUTION TESTS
// =============================================================================

func TestAggregateMonth_TotalFollowsPriceTimeline(t *testing.T) {
	// GIVEN: An adjustment effective 2024-04-15
	// WHEN: Aggregating April (due the 10th) and May (due the 10th)
	// THEN: April bills at the old price, May at the new one

	c := quarterlyContract(date(2024, time.January, 15), 100000)
	records := []engine.AdjustmentRecord{
		record(date(2024, time.January, 15), date(2024, time.April, 14), 100000, 108500),
	}
	ref := date(2024, time.June, 1)

	april := engine.AggregateMonth(c, records, month(2024, time.April), nil, ref)
	assert.True(t, april.Total.Equal(money(100000)), "got %s", april.Total)

	may := engine.AggregateMonth(c, records, month(2024, time.May), nil, ref)
	assert.True(t, may.Total.Equal(money(108500)), "got %s", may.Total)
}

func TestAggregateMonth_SnapshotTotalWins(t *testing.T) {
	// GIVEN: An entry carrying the total the month was actually billed at
	// WHEN: Aggregating after a price change that would resolve differently
	// THEN: The snapshot governs the total and the derived status

	c := quarterlyContract(date(2024, time.January, 15), 100000)
	m := month(2024, time.May)
	entry := payment("p-1", m, date(2024, time.May, 5), 95000)
	entry.SnapshotTotal = money(95000)

	ledger := engine.AggregateMonth(c, nil, m, []engine.PaymentEntry{entry}, date(2024, time.June, 1))
	assert.True(t, ledger.Total.Equal(money(95000)))
	assert.Equal(t, engine.PaymentPaid, ledger.Status)
}

// =============================================================================
// MULTI-MONTH AGGREGATION TESTS
// =============================================================================

func TestAggregate_BucketsByMonthAscending(t *testing.T) {
	// GIVEN: Entries scattered across three months, presented out of order
	// WHEN: Aggregating
	// THEN: One ledger per month, ascending, entries sorted by paid-on

	c := quarterlyContract(date(2024, time.January, 15), 100000)
	entries := []engine.PaymentEntry{
		payment("p-3", month(2024, time.March), date(2024, time.March, 8), 100000),
		payment("p-1b", month(2024, time.January), date(2024, time.January, 20), 40000),
		payment("p-2", month(2024, time.February), date(2024, time.February, 9), 100000),
		payment("p-1a", month(2024, time.January), date(2024, time.January, 9), 60000),
	}

	ledgers := engine.Aggregate(c, nil, entries, date(2024, time.April, 1))
	require.Len(t, ledgers, 3)

	assert.Equal(t, month(2024, time.January), ledgers[0].Month)
	assert.Equal(t, month(2024, time.February), ledgers[1].Month)
	assert.Equal(t, month(2024, time.March), ledgers[2].Month)

	require.Len(t, ledgers[0].Entries, 2)
	assert.Equal(t, engine.PaymentID("p-1a"), ledgers[0].Entries[0].ID)
	assert.Equal(t, engine.PaymentID("p-1b"), ledgers[0].Entries[1].ID)
	assert.Equal(t, engine.PaymentPaid, ledgers[0].Status)
}

func TestAggregate_Idempotent(t *testing.T) {
	// Re-running the fold on the same inputs yields the same ledgers.
	c := quarterlyContract(date(2024, time.January, 15), 100000)
	entries := []engine.PaymentEntry{
		payment("p-1", month(2024, time.January), date(2024, time.January, 9), 60000),
		payment("p-2", month(2024, time.February), date(2024, time.February, 9), 100000),
	}
	ref := date(2024, time.April, 1)

	first := engine.Aggregate(c, nil, entries, ref)
	second := engine.Aggregate(c, nil, entries, ref)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Month, second[i].Month)
		assert.True(t, first[i].Total.Equal(second[i].Total))
		assert.True(t, first[i].Paid.Equal(second[i].Paid))
		assert.Equal(t, first[i].Status, second[i].Status)
	}
}

func TestAggregate_SkipsEntriesWithoutMonth(t *testing.T) {
	c := quarterlyContract(date(2024, time.January, 15), 100000)
	entries := []engine.PaymentEntry{
		{ID: "p-x", ContractID: "c-1", Amount: money(100000)},
	}
	ledgers := engine.Aggregate(c, nil, entries, date(2024, time.April, 1))
	assert.Empty(t, ledgers)
}
