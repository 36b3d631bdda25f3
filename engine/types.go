/*
Package engine provides the rent adjustment and billing timeline core.

PURPOSE:
  This package contains the pure domain logic for rental contracts whose
  monthly price changes through periodic, index-linked increases: cycle
  scheduling anchored to the contract start date, price timeline
  reconstruction, inflation index composition, increase status
  classification, and per-month payment ledger aggregation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Contract: A rental agreement with a base price and adjustment period
  - AdjustmentRecord: One price change, covering one cycle
  - PaymentEntry: A (possibly partial) payment against one billing month
  - BillingMonthLedger: Derived per-month totals, never persisted
  - Origin: Tagged manual vs system-generated provenance of an adjustment

DESIGN PRINCIPLES:
  1. Purity: every operation is a deterministic function over its inputs;
     the engine holds no state and performs no I/O
  2. Precision: uses decimal.Decimal to avoid floating-point drift in
     money and percentage math
  3. Reproducibility: re-running any computation on the same inputs yields
     byte-identical results

SEE ALSO:
  - cycle.go: Anchor-aligned cycle boundaries
  - timeline.go: Effective price reconstruction
  - index.go: Index composition with gap policy
  - status.go: Increase status state machine
  - ledger.go: Payment aggregation
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ContractID string
type AdjustmentID string
type PaymentID string

// =============================================================================
// CONTRACT
// =============================================================================

// PeriodMonths is the length of one adjustment cycle in whole months.
type PeriodMonths int

const (
	PeriodMonthly    PeriodMonths = 1
	PeriodBimonthly  PeriodMonths = 2
	PeriodQuarterly  PeriodMonths = 3
	PeriodFourMonth  PeriodMonths = 4
	PeriodSemiannual PeriodMonths = 6
)

func (p PeriodMonths) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodBimonthly, PeriodQuarterly, PeriodFourMonth, PeriodSemiannual:
		return true
	}
	return false
}

// IncreaseBasis identifies what drives price increases. Only index-linked
// contracts are supported.
type IncreaseBasis string

const BasisIndexLinked IncreaseBasis = "index"

type Contract struct {
	ID        ContractID
	Address   string
	Tenant    string
	Contact   string
	Start     Date
	End       Date // zero = open-ended
	BasePrice decimal.Decimal
	Basis     IncreaseBasis
	Period    PeriodMonths
	Notes     string

	// LastManualUpdate is the fallback for EffectiveSinceDate when no
	// adjustment record applies.
	LastManualUpdate Date
}

// AnchorDay is the day-of-month every cycle boundary aligns to. It is fixed
// once, at contract start, and never re-derived from a rolled-down boundary.
func (c *Contract) AnchorDay() int { return c.Start.Day() }

// LifecycleStatus reports where the contract stands relative to its end date.
type LifecycleStatus string

const (
	LifecycleActive     LifecycleStatus = "active"
	LifecycleEndingSoon LifecycleStatus = "ending_soon"
	LifecycleExpired    LifecycleStatus = "expired"
)

// endingSoonDays is how far ahead of the contract end the "ending soon"
// warning kicks in (three months, generously).
const endingSoonDays = 92

// Lifecycle classifies the contract against a reference date. Open-ended
// contracts are always active.
func (c *Contract) Lifecycle(ref Date) LifecycleStatus {
	if c.End.IsZero() {
		return LifecycleActive
	}
	if c.End.Before(ref) {
		return LifecycleExpired
	}
	if c.End.Before(ref.AddDays(endingSoonDays + 1)) {
		return LifecycleEndingSoon
	}
	return LifecycleActive
}

// =============================================================================
// ADJUSTMENT RECORD
// =============================================================================

// OriginKind discriminates manual vs system-generated adjustments.
type OriginKind string

const (
	OriginManual OriginKind = "manual"
	OriginSystem OriginKind = "system"
)

// Origin is the provenance of an adjustment record. System-generated records
// carry the index breakdown they were computed from; manual records cannot.
type Origin struct {
	Kind      OriginKind
	Breakdown []MonthContribution // populated only for OriginSystem
}

func ManualOrigin() Origin { return Origin{Kind: OriginManual} }

func SystemOrigin(breakdown []MonthContribution) Origin {
	return Origin{Kind: OriginSystem, Breakdown: breakdown}
}

// SystemGenerated reports whether the record was produced by the automatic
// index calculation flow (rendered read-only by callers).
func (o Origin) SystemGenerated() bool { return o.Kind == OriginSystem }

// AdjustmentRecord is one price change. The cycle end is inclusive: the new
// price applies from the day after CycleEnd.
type AdjustmentRecord struct {
	ID         AdjustmentID
	ContractID ContractID
	CycleStart Date
	CycleEnd   Date
	Percentage decimal.Decimal
	NewPrice   decimal.Decimal
	BasePrice  decimal.Decimal
	Note       string
	Origin     Origin
}

// EffectiveStart is the first date the record's resulting price applies:
// the day after the stored cycle end, or the cycle start itself when no end
// was recorded. Zero when the record carries no usable dates.
func (r *AdjustmentRecord) EffectiveStart() Date {
	if !r.CycleEnd.IsZero() {
		return r.CycleEnd.AddDays(1)
	}
	return r.CycleStart
}

// EffectivePercentage returns the stored percentage, recomputed from the
// base and new prices when the stored value is malformed or absent.
func (r *AdjustmentRecord) EffectivePercentage() decimal.Decimal {
	if r.Percentage.IsPositive() {
		return RoundPercent(r.Percentage)
	}
	if r.BasePrice.IsPositive() && r.NewPrice.IsPositive() {
		ratio := r.NewPrice.Div(r.BasePrice).Sub(decimal.NewFromInt(1))
		return RoundPercent(ratio.Mul(decimal.NewFromInt(100)))
	}
	return decimal.Zero
}

// =============================================================================
// PAYMENT ENTRY
// =============================================================================

// PaymentEntry is one (possibly partial) payment against a billing month.
// Multiple entries may target the same month.
type PaymentEntry struct {
	ID         PaymentID
	ContractID ContractID
	Month      MonthKey
	PaidOn     Date
	Amount     decimal.Decimal
	Method     string
	Note       string

	// SnapshotTotal, when positive, is the month's billed total captured at
	// entry time. It overrides the resolved price for that month's ledger.
	SnapshotTotal decimal.Decimal
}

// =============================================================================
// BILLING MONTH LEDGER - Derived, recomputed on every read
// =============================================================================

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPending PaymentStatus = "pending"
	PaymentOverdue PaymentStatus = "overdue"
)

type BillingMonthLedger struct {
	Month   MonthKey
	Total   decimal.Decimal
	Paid    decimal.Decimal
	Balance decimal.Decimal
	DueDate Date
	Status  PaymentStatus
	Entries []PaymentEntry
}
