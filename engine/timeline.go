/*
timeline.go - Effective price reconstruction from adjustment records

PURPOSE:
  Rebuilds the price that was (or will be) in effect on any date from the
  contract's base price and its adjustment records. Records arrive in
  whatever order the store returns them; sorting is internal and
  defensive, so the result is invariant to input order.

PRICE SEMANTICS:
  A record's price applies from its effective-start date (the day after
  its cycle end). The resolver takes the latest applicable record; it
  makes no monotonicity assumption about the prices themselves.

SEE ALSO:
  - cycle.go: Boundary math used when proposing the next cycle
  - ledger.go: Resolves the amount due for each billing month
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// sortedByEffectiveStart returns the records with a usable effective-start
// date, ascending. Records with no dates at all are skipped.
func sortedByEffectiveStart(records []AdjustmentRecord) []AdjustmentRecord {
	out := make([]AdjustmentRecord, 0, len(records))
	for _, r := range records {
		if r.EffectiveStart().IsZero() {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveStart().Before(out[j].EffectiveStart())
	})
	return out
}

// PriceEffectiveAt returns the contract's price in effect on targetDate.
// Starts from the base price and replays every record whose effective-start
// is on or before the target. Returns the base price unmodified when no
// record applies.
func PriceEffectiveAt(contract *Contract, records []AdjustmentRecord, targetDate Date) decimal.Decimal {
	price := contract.BasePrice
	if targetDate.IsZero() {
		return price
	}
	for _, r := range sortedByEffectiveStart(records) {
		if r.EffectiveStart().After(targetDate) {
			break
		}
		if r.NewPrice.IsPositive() {
			price = r.NewPrice
		}
	}
	return price
}

// EffectiveSinceDate returns the date since which the price reported by
// PriceEffectiveAt(referenceDate) has been in effect: the most recent
// effective-start on or before the reference. Falls back to the contract's
// last manual update date, then to the contract start.
func EffectiveSinceDate(contract *Contract, records []AdjustmentRecord, referenceDate Date) Date {
	sorted := sortedByEffectiveStart(records)
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].EffectiveStart().BeforeOrEqual(referenceDate) {
			return sorted[i].EffectiveStart()
		}
	}
	if !contract.LastManualUpdate.IsZero() {
		return contract.LastManualUpdate
	}
	return contract.Start
}

// =============================================================================
// CYCLE PROPOSAL - Where the next adjustment should go
// =============================================================================

// CycleProposal is the period and base price for a draft adjustment record.
type CycleProposal struct {
	CycleStart Date
	CycleEnd   Date
	BasePrice  decimal.Decimal
}

// ProposeNextCycle derives the next adjustment period for a contract. With
// no prior records the first cycle starts at the contract start; otherwise
// the next aligned boundary after the latest record's cycle end. Rejects
// proposals that run past the contract end.
func ProposeNextCycle(contract *Contract, records []AdjustmentRecord) (CycleProposal, error) {
	period := contract.Period
	if !period.Valid() {
		period = PeriodMonthly
	}
	anchor := contract.AnchorDay()

	base := contract.BasePrice
	var start Date
	if len(records) == 0 {
		start = contract.Start
	} else {
		sorted := append([]AdjustmentRecord(nil), records...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CycleEnd.Before(sorted[j].CycleEnd)
		})
		last := sorted[len(sorted)-1]
		if last.NewPrice.IsPositive() {
			base = last.NewPrice
		}
		start = NextCycleStartAfter(contract.Start, period, last.CycleEnd)
	}
	end := CycleEndFor(start, period, anchor)

	if !contract.End.IsZero() && (start.After(contract.End) || end.After(contract.End)) {
		return CycleProposal{}, &OutOfBoundsError{
			ContractID:    contract.ID,
			CycleStart:    start,
			CycleEnd:      end,
			ContractStart: contract.Start,
			ContractEnd:   contract.End,
		}
	}

	return CycleProposal{CycleStart: start, CycleEnd: end, BasePrice: base}, nil
}
