/*
index.go - Monthly inflation index composition

PURPOSE:
  Composes a sparse map of monthly index percentages over a date range
  into a single percentage, with a defined gap policy:

    - A month present in the map is "confirmed" and added to the total.
    - The FINAL month missing, with at least one prior confirmed value,
      is "estimated": the most recent confirmed value is reused and the
      month is flagged for caller confirmation.
    - Any OTHER missing month blocks the whole computation. Financial
      correctness requires interrupting the flow rather than guessing an
      interior month.

TWO-PHASE CONFIRMATION:
  Estimation is interactive by design. ComposeIndexForRange never commits
  an estimate: the caller inspects NeedsConfirmation(), obtains explicit
  user confirmation, then calls ConfirmEstimate before building a record
  with BuildSystemAdjustment.

ROUNDING:
  Percentages are rounded to 2 decimal places before being stored, so
  repeated recomputation cannot drift.
*/
package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// IndexMap is a sparse mapping of month to that month's index percentage.
type IndexMap map[MonthKey]decimal.Decimal

// MonthContribution is one month's share of a composed percentage.
type MonthContribution struct {
	Month     MonthKey
	Value     decimal.Decimal
	Estimated bool
}

// Composition is the result of composing an index over a range.
type Composition struct {
	From            Date
	To              Date
	Percentage      decimal.Decimal
	Contributions   []MonthContribution
	EstimatedMonths []MonthKey
	Confirmed       bool
}

// NeedsConfirmation reports whether the composition contains a trailing
// estimate the caller has not yet accepted.
func (c Composition) NeedsConfirmation() bool {
	return len(c.EstimatedMonths) > 0 && !c.Confirmed
}

// Breakdown renders the per-month explanation, one line per month.
func (c Composition) Breakdown() string {
	lines := make([]string, len(c.Contributions))
	for i, mc := range c.Contributions {
		suffix := ""
		if mc.Estimated {
			suffix = " (estimated)"
		}
		lines[i] = fmt.Sprintf("%s: %s%%%s", mc.Month.Label(), mc.Value.StringFixed(2), suffix)
	}
	return strings.Join(lines, " | ")
}

// RoundPercent rounds a percentage to 2 decimal places.
func RoundPercent(p decimal.Decimal) decimal.Decimal {
	return p.Round(2)
}

// ComposeIndexForRange sums the monthly index values spanning from..to
// inclusive. Returns a blocking MissingIndexError when an interior month
// (or the final month with no prior value) is absent.
func ComposeIndexForRange(from, to Date, values IndexMap) (Composition, error) {
	months, err := MonthSpan(from, to)
	if err != nil {
		return Composition{}, err
	}

	comp := Composition{From: from, To: to}
	total := decimal.Zero
	var lastConfirmed *decimal.Decimal
	var blocking []MonthKey

	for i, m := range months {
		final := i == len(months)-1
		if v, ok := values[m]; ok {
			total = total.Add(v)
			v := v
			lastConfirmed = &v
			comp.Contributions = append(comp.Contributions, MonthContribution{Month: m, Value: v})
			continue
		}
		if final && lastConfirmed != nil {
			total = total.Add(*lastConfirmed)
			comp.Contributions = append(comp.Contributions, MonthContribution{
				Month: m, Value: *lastConfirmed, Estimated: true,
			})
			comp.EstimatedMonths = append(comp.EstimatedMonths, m)
			continue
		}
		blocking = append(blocking, m)
	}

	if len(blocking) > 0 {
		return Composition{}, &MissingIndexError{Months: blocking, Blocking: true}
	}

	comp.Percentage = RoundPercent(total)
	return comp, nil
}

// ConfirmEstimate marks a trailing-estimate composition as accepted by the
// caller. Fails on compositions that have nothing to confirm.
func ConfirmEstimate(c Composition) (Composition, error) {
	if len(c.EstimatedMonths) == 0 {
		return c, ErrNothingToConfirm
	}
	c.Confirmed = true
	return c, nil
}

// ApplyPercentage returns round(base * (1 + percentage/100)), the resulting
// whole-unit price after an increase.
func ApplyPercentage(base, percentage decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	return base.Mul(one.Add(percentage.Div(hundred))).Round(0)
}

// BuildSystemAdjustment assembles a system-generated draft record from a
// proposed cycle and a composed percentage. A composition still awaiting
// estimate confirmation is rejected.
func BuildSystemAdjustment(contract *Contract, proposal CycleProposal, comp Composition) (AdjustmentRecord, error) {
	if comp.NeedsConfirmation() {
		return AdjustmentRecord{}, ErrNotConfirmed
	}
	if !proposal.BasePrice.IsPositive() {
		return AdjustmentRecord{}, &AmountError{Field: "base price", Value: proposal.BasePrice}
	}

	record := AdjustmentRecord{
		ContractID: contract.ID,
		CycleStart: proposal.CycleStart,
		CycleEnd:   proposal.CycleEnd,
		Percentage: comp.Percentage,
		BasePrice:  proposal.BasePrice,
		NewPrice:   ApplyPercentage(proposal.BasePrice, comp.Percentage),
		Note:       "Generated from index data.\n" + comp.Breakdown(),
		Origin:     SystemOrigin(comp.Contributions),
	}
	return record, nil
}
