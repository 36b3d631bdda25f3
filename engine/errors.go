/*
errors.go - Centralized error types for the engine

PURPOSE:
  All validation failures live here. Every error is a local validation
  failure returned to the caller for user-facing messaging; none are
  retried by the engine. The engine performs no I/O, so there is no
  transient-failure policy - that belongs to the store and index-source
  collaborators.

ERROR CATEGORIES:
  1. Date errors - malformed or inverted date input
  2. Index errors - missing monthly index data (blocking vs estimate)
  3. Adjustment errors - out-of-bounds or immutable records
  4. Amount errors - non-positive prices, negative payments

USAGE:
  Callers match with errors.Is/errors.As:

    var missing *engine.MissingIndexError
    if errors.As(err, &missing) && !missing.Blocking { ... }
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned for dates that fail to parse.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidDateRange is returned when a range is inverted or incomplete.
	// Ranges are never silently clamped.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrMissingIndexData is returned when the index map lacks a month the
	// composition needs. See MissingIndexError for the blocking distinction.
	ErrMissingIndexData = errors.New("missing index data")

	// ErrAdjustmentOutOfBounds is returned when an adjustment cycle falls
	// outside the contract's start/end dates.
	ErrAdjustmentOutOfBounds = errors.New("adjustment outside contract bounds")

	// ErrImmutableRecord is returned on edit/delete of an adjustment whose
	// effective-start date has already been reached.
	ErrImmutableRecord = errors.New("adjustment already in effect")

	// ErrInvalidAmount is returned for non-positive base prices and negative
	// payment amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNotConfirmed is returned when a trailing-estimate composition is
	// used to build a record without explicit confirmation.
	ErrNotConfirmed = errors.New("estimated months not confirmed")

	// ErrNothingToConfirm is returned when ConfirmEstimate is called on a
	// composition with no estimated months.
	ErrNothingToConfirm = errors.New("composition has no estimated months")

	// ErrNoIndexData is reported by index sources when the queried range has
	// no data at all, as distinct from an empty-but-valid response.
	ErrNoIndexData = errors.New("no index data for range")

	// ErrNotFound is returned by stores for unknown identifiers.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DateRangeError reports an inverted or incomplete date range.
type DateRangeError struct {
	From Date
	To   Date
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("invalid date range: %s .. %s", e.From, e.To)
}

func (e *DateRangeError) Unwrap() error { return ErrInvalidDateRange }

// MissingIndexError reports months absent from the index map.
// Blocking means an interior month is missing and the whole computation is
// aborted. Non-blocking means only the final month is missing: the caller
// may proceed with a trailing estimate after explicit confirmation.
type MissingIndexError struct {
	Months   []MonthKey
	Blocking bool
}

func (e *MissingIndexError) Error() string {
	kind := "trailing estimate"
	if e.Blocking {
		kind = "blocking"
	}
	return fmt.Sprintf("missing index data (%s): %v", kind, e.Months)
}

func (e *MissingIndexError) Unwrap() error { return ErrMissingIndexData }

// OutOfBoundsError reports an adjustment cycle outside its contract.
type OutOfBoundsError struct {
	ContractID    ContractID
	CycleStart    Date
	CycleEnd      Date
	ContractStart Date
	ContractEnd   Date // zero when open-ended
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("adjustment %s..%s outside contract %s bounds",
		e.CycleStart, e.CycleEnd, e.ContractID)
}

func (e *OutOfBoundsError) Unwrap() error { return ErrAdjustmentOutOfBounds }

// ImmutableRecordError reports a modification attempt on an adjustment whose
// price is already in effect.
type ImmutableRecordError struct {
	ID             AdjustmentID
	EffectiveStart Date
	Reference      Date
}

func (e *ImmutableRecordError) Error() string {
	return fmt.Sprintf("adjustment %s effective since %s cannot be modified on %s",
		e.ID, e.EffectiveStart, e.Reference)
}

func (e *ImmutableRecordError) Unwrap() error { return ErrImmutableRecord }

// AmountError reports a money value that violates an invariant.
type AmountError struct {
	Field string
	Value decimal.Decimal
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("invalid amount for %s: %s", e.Field, e.Value)
}

func (e *AmountError) Unwrap() error { return ErrInvalidAmount }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrMissingIndexData) ||
		errors.Is(err, ErrAdjustmentOutOfBounds) ||
		errors.Is(err, ErrImmutableRecord) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNotConfirmed) ||
		errors.Is(err, ErrNothingToConfirm)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
