/*
validate.go - Business rule validation for contracts, adjustments, payments

PURPOSE:
  All checks run before anything reaches a store. Failures are local
  validation errors (errors.go) returned to the caller for user-facing
  messaging; nothing is retried or silently clamped.
*/
package engine

// ValidateContract checks the contract invariants: positive base price,
// valid period, start before end when an end exists.
func ValidateContract(c *Contract) error {
	if !c.BasePrice.IsPositive() {
		return &AmountError{Field: "base price", Value: c.BasePrice}
	}
	if c.Start.IsZero() {
		return &DateRangeError{From: c.Start, To: c.End}
	}
	if !c.End.IsZero() && c.End.Before(c.Start) {
		return &DateRangeError{From: c.Start, To: c.End}
	}
	if !c.Period.Valid() {
		return &DateRangeError{From: c.Start, To: c.End}
	}
	return nil
}

// ValidateAdjustment checks a proposed or edited adjustment against its
// contract: coherent cycle dates, cycle start at or after the contract
// start, cycle end within the contract end when one exists.
func ValidateAdjustment(c *Contract, r *AdjustmentRecord) error {
	if r.CycleStart.IsZero() || r.CycleEnd.IsZero() || r.CycleEnd.Before(r.CycleStart) {
		return &DateRangeError{From: r.CycleStart, To: r.CycleEnd}
	}
	if !r.BasePrice.IsPositive() || !r.NewPrice.IsPositive() {
		return &AmountError{Field: "adjustment price", Value: r.NewPrice}
	}
	outOfBounds := r.CycleStart.Before(c.Start) ||
		(!c.End.IsZero() && (r.CycleStart.After(c.End) || r.CycleEnd.After(c.End)))
	if outOfBounds {
		return &OutOfBoundsError{
			ContractID:    c.ID,
			CycleStart:    r.CycleStart,
			CycleEnd:      r.CycleEnd,
			ContractStart: c.Start,
			ContractEnd:   c.End,
		}
	}
	return nil
}

// CanModifyAdjustment rejects edits and deletes of an adjustment whose
// effective-start date has been reached. A record effective exactly on the
// reference date is already immutable.
func CanModifyAdjustment(r *AdjustmentRecord, referenceDate Date) error {
	if referenceDate.IsZero() {
		referenceDate = Today()
	}
	es := r.EffectiveStart()
	if !es.IsZero() && es.BeforeOrEqual(referenceDate) {
		return &ImmutableRecordError{ID: r.ID, EffectiveStart: es, Reference: referenceDate}
	}
	return nil
}

// ValidatePayment checks a payment entry: known month, non-negative amount.
func ValidatePayment(p *PaymentEntry) error {
	if p.Month.IsZero() {
		return &DateRangeError{}
	}
	if p.Amount.IsNegative() {
		return &AmountError{Field: "payment amount", Value: p.Amount}
	}
	if p.SnapshotTotal.IsNegative() {
		return &AmountError{Field: "snapshot total", Value: p.SnapshotTotal}
	}
	return nil
}
