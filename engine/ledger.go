/*
ledger.go - Per-billing-month payment aggregation

PURPOSE:
  Folds raw partial-payment entries into per-month buckets with the amount
  due, amount paid, outstanding balance, business-day-adjusted due date,
  and a derived status. The fold is pure: same inputs, same ledger, no
  I/O, no side effects.

AMOUNT DUE:
  Each month's total comes from PriceEffectiveAt at that month's due date,
  unless an entry carries an explicit snapshotted total (months billed
  before a later correction keep the figure they were billed at).
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultDueDay is the day-of-month rent falls due.
const DefaultDueDay = 10

// DueDateForMonth computes the due date within a billing month, advanced to
// the next weekday when it lands on a weekend. No holiday calendar.
func DueDateForMonth(month MonthKey, dueDay int) Date {
	if dueDay <= 0 {
		dueDay = DefaultDueDay
	}
	return month.Date(dueDay).NextBusinessDay()
}

// Aggregate folds raw payment entries into one ledger per billing month,
// ascending by month. A zero referenceDate means today. Months with no
// entries do not appear; callers wanting a full calendar walk the span
// themselves.
func Aggregate(contract *Contract, records []AdjustmentRecord, entries []PaymentEntry, referenceDate Date) []BillingMonthLedger {
	if referenceDate.IsZero() {
		referenceDate = Today()
	}

	buckets := make(map[MonthKey][]PaymentEntry)
	for _, e := range entries {
		if e.Month.IsZero() {
			continue
		}
		buckets[e.Month] = append(buckets[e.Month], e)
	}

	months := make([]MonthKey, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	ledgers := make([]BillingMonthLedger, 0, len(months))
	for _, m := range months {
		ledgers = append(ledgers, aggregateMonth(contract, records, m, buckets[m], referenceDate))
	}
	return ledgers
}

// AggregateMonth builds the ledger for a single billing month, present in
// the entries or not. An empty month yields a pending (or overdue) ledger
// with the resolved total and zero paid.
func AggregateMonth(contract *Contract, records []AdjustmentRecord, month MonthKey, entries []PaymentEntry, referenceDate Date) BillingMonthLedger {
	if referenceDate.IsZero() {
		referenceDate = Today()
	}
	var bucket []PaymentEntry
	for _, e := range entries {
		if e.Month == month {
			bucket = append(bucket, e)
		}
	}
	return aggregateMonth(contract, records, month, bucket, referenceDate)
}

func aggregateMonth(contract *Contract, records []AdjustmentRecord, month MonthKey, bucket []PaymentEntry, referenceDate Date) BillingMonthLedger {
	due := DueDateForMonth(month, DefaultDueDay)

	total := PriceEffectiveAt(contract, records, due)
	paid := decimal.Zero
	for _, e := range bucket {
		// A snapshotted total wins over the resolved price.
		if e.SnapshotTotal.IsPositive() {
			total = e.SnapshotTotal
		}
		paid = paid.Add(e.Amount)
	}

	balance := total.Sub(paid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	sort.SliceStable(bucket, func(i, j int) bool {
		return bucket[i].PaidOn.Before(bucket[j].PaidOn)
	})

	return BillingMonthLedger{
		Month:   month,
		Total:   total,
		Paid:    paid,
		Balance: balance,
		DueDate: due,
		Status:  deriveStatus(total, paid, balance, due, referenceDate),
		Entries: bucket,
	}
}

func deriveStatus(total, paid, balance decimal.Decimal, due, ref Date) PaymentStatus {
	switch {
	case !balance.IsPositive() && total.IsPositive():
		return PaymentPaid
	case paid.IsPositive() && balance.IsPositive():
		return PaymentPartial
	case balance.IsPositive() && due.Before(ref):
		return PaymentOverdue
	default:
		return PaymentPending
	}
}
