/*
store.go - Persistence interfaces for contracts, adjustments, payments

PURPOSE:
  Defines the boundary between the engine and its storage collaborators.
  The engine consumes and produces plain records; field layout, transport
  and identifier generation belong to the implementations.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - engine/store: in-memory store for tests and demos

CASCADE:
  Deleting a contract removes its adjustment and payment records. The
  engine never observes orphans.
*/
package engine

import "context"

// ContractStore persists contracts.
type ContractStore interface {
	ListContracts(ctx context.Context) ([]Contract, error)

	// GetContract returns ErrNotFound for unknown identifiers.
	GetContract(ctx context.Context, id ContractID) (*Contract, error)

	// SaveContract creates the contract when its ID is empty (assigning one)
	// and updates it in place otherwise.
	SaveContract(ctx context.Context, c *Contract) error

	// DeleteContract removes the contract and cascades to its adjustment
	// and payment records.
	DeleteContract(ctx context.Context, id ContractID) error
}

// AdjustmentStore persists adjustment records for a contract.
type AdjustmentStore interface {
	// ListAdjustments returns the contract's records ordered by cycle end.
	ListAdjustments(ctx context.Context, contractID ContractID) ([]AdjustmentRecord, error)

	GetAdjustment(ctx context.Context, id AdjustmentID) (*AdjustmentRecord, error)
	SaveAdjustment(ctx context.Context, r *AdjustmentRecord) error
	DeleteAdjustment(ctx context.Context, id AdjustmentID) error
}

// PaymentStore persists raw payment entries for a contract.
type PaymentStore interface {
	ListPayments(ctx context.Context, contractID ContractID) ([]PaymentEntry, error)
	GetPayment(ctx context.Context, id PaymentID) (*PaymentEntry, error)
	SavePayment(ctx context.Context, p *PaymentEntry) error
	DeletePayment(ctx context.Context, id PaymentID) error
}

// Store bundles the three record stores.
type Store interface {
	ContractStore
	AdjustmentStore
	PaymentStore
}

// IndexSource fetches monthly inflation index values for a date range.
// Values are never persisted by the engine; callers refetch per
// calculation.
type IndexSource interface {
	// MonthlyValues returns a sparse map over the months spanning from..to.
	// Reports ErrNoIndexData when the range has no data at all, as distinct
	// from an empty-but-valid response.
	MonthlyValues(ctx context.Context, from, to Date) (IndexMap, error)
}
