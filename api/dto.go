/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers (delegating to engine validators).
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/rental-engine/engine"
)

// =============================================================================
// CONTRACTS
// =============================================================================

// ContractDTO represents a contract in API responses.
type ContractDTO struct {
	ID           string `json:"id"`
	Address      string `json:"address"`
	Tenant       string `json:"tenant"`
	Contact      string `json:"contact,omitempty"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date,omitempty"`
	BasePrice    string `json:"base_price"`
	Basis        string `json:"basis"`
	PeriodMonths int    `json:"period_months"`
	Notes        string `json:"notes,omitempty"`
	Lifecycle    string `json:"lifecycle"`
}

// SaveContractRequest creates or updates a contract.
type SaveContractRequest struct {
	Address      string `json:"address"`
	Tenant       string `json:"tenant"`
	Contact      string `json:"contact"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	BasePrice    string `json:"base_price"`
	PeriodMonths int    `json:"period_months"`
	Notes        string `json:"notes"`
}

// ContractSummaryDTO is the per-contract overview tables render from.
type ContractSummaryDTO struct {
	Contract       ContractDTO        `json:"contract"`
	CurrentPrice   string             `json:"current_price"`
	EffectiveSince string             `json:"effective_since"`
	Increase       IncreaseStatusDTO  `json:"increase"`
	CurrentMonth   *MonthLedgerDTO    `json:"current_month,omitempty"`
}

// IncreaseStatusDTO is the classifier output.
type IncreaseStatusDTO struct {
	State           string `json:"state"`
	CycleStart      string `json:"cycle_start"`
	NextIncrease    string `json:"next_increase"`
	CurrentCycleEnd string `json:"current_cycle_end"`
	FinalMonthStart string `json:"final_month_start"`
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

// AdjustmentDTO represents an adjustment record.
type AdjustmentDTO struct {
	ID             string `json:"id"`
	ContractID     string `json:"contract_id"`
	CycleStart     string `json:"cycle_start"`
	CycleEnd       string `json:"cycle_end"`
	EffectiveFrom  string `json:"effective_from"`
	Percentage     string `json:"percentage"`
	NewPrice       string `json:"new_price"`
	BasePrice      string `json:"base_price"`
	Note           string `json:"note,omitempty"`
	SystemGenerated bool  `json:"system_generated"`
}

// SaveAdjustmentRequest creates or updates a manual adjustment.
type SaveAdjustmentRequest struct {
	CycleStart string `json:"cycle_start"`
	CycleEnd   string `json:"cycle_end"`
	Percentage string `json:"percentage"`
	NewPrice   string `json:"new_price"`
	BasePrice  string `json:"base_price"`
	Note       string `json:"note"`
}

// ProposeAdjustmentRequest drives the two-phase automatic calculation.
// The first call typically omits confirm_estimate; when the response says
// needs_confirmation, the client asks the user and repeats the call with
// confirm_estimate set.
type ProposeAdjustmentRequest struct {
	ConfirmEstimate bool `json:"confirm_estimate"`
	Persist         bool `json:"persist"`
}

// ProposalDTO is the automatic calculation result.
type ProposalDTO struct {
	NeedsConfirmation bool           `json:"needs_confirmation"`
	EstimatedMonths   []string       `json:"estimated_months,omitempty"`
	Percentage        string         `json:"percentage,omitempty"`
	Breakdown         string         `json:"breakdown,omitempty"`
	Draft             *AdjustmentDTO `json:"draft,omitempty"`
}

// =============================================================================
// PAYMENTS & LEDGER
// =============================================================================

// PaymentDTO represents a raw payment entry.
type PaymentDTO struct {
	ID            string `json:"id"`
	ContractID    string `json:"contract_id"`
	Month         string `json:"month"`
	PaidOn        string `json:"paid_on"`
	Amount        string `json:"amount"`
	Method        string `json:"method,omitempty"`
	Note          string `json:"note,omitempty"`
	SnapshotTotal string `json:"snapshot_total,omitempty"`
}

// SavePaymentRequest creates or updates a payment entry.
type SavePaymentRequest struct {
	Month         string `json:"month"`
	PaidOn        string `json:"paid_on"`
	Amount        string `json:"amount"`
	Method        string `json:"method"`
	Note          string `json:"note"`
	SnapshotTotal string `json:"snapshot_total"`
}

// MonthLedgerDTO is one derived billing-month bucket.
type MonthLedgerDTO struct {
	Month    string       `json:"month"`
	Total    string       `json:"total"`
	Paid     string       `json:"paid"`
	Balance  string       `json:"balance"`
	DueDate  string       `json:"due_date"`
	Status   string       `json:"status"`
	Payments []PaymentDTO `json:"payments"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toContractDTO(c *engine.Contract, ref engine.Date) ContractDTO {
	dto := ContractDTO{
		ID:           string(c.ID),
		Address:      c.Address,
		Tenant:       c.Tenant,
		Contact:      c.Contact,
		StartDate:    c.Start.String(),
		BasePrice:    c.BasePrice.String(),
		Basis:        string(c.Basis),
		PeriodMonths: int(c.Period),
		Notes:        c.Notes,
		Lifecycle:    string(c.Lifecycle(ref)),
	}
	if !c.End.IsZero() {
		dto.EndDate = c.End.String()
	}
	return dto
}

func toAdjustmentDTO(r *engine.AdjustmentRecord) AdjustmentDTO {
	return AdjustmentDTO{
		ID:              string(r.ID),
		ContractID:      string(r.ContractID),
		CycleStart:      r.CycleStart.String(),
		CycleEnd:        r.CycleEnd.String(),
		EffectiveFrom:   r.EffectiveStart().String(),
		Percentage:      r.EffectivePercentage().StringFixed(2),
		NewPrice:        r.NewPrice.String(),
		BasePrice:       r.BasePrice.String(),
		Note:            r.Note,
		SystemGenerated: r.Origin.SystemGenerated(),
	}
}

func toPaymentDTO(p *engine.PaymentEntry) PaymentDTO {
	dto := PaymentDTO{
		ID:         string(p.ID),
		ContractID: string(p.ContractID),
		Month:      p.Month.String(),
		PaidOn:     p.PaidOn.String(),
		Amount:     p.Amount.String(),
		Method:     p.Method,
		Note:       p.Note,
	}
	if p.SnapshotTotal.IsPositive() {
		dto.SnapshotTotal = p.SnapshotTotal.String()
	}
	return dto
}

func toMonthLedgerDTO(l *engine.BillingMonthLedger) MonthLedgerDTO {
	payments := make([]PaymentDTO, len(l.Entries))
	for i := range l.Entries {
		payments[i] = toPaymentDTO(&l.Entries[i])
	}
	return MonthLedgerDTO{
		Month:    l.Month.String(),
		Total:    l.Total.String(),
		Paid:     l.Paid.String(),
		Balance:  l.Balance.String(),
		DueDate:  l.DueDate.String(),
		Status:   string(l.Status),
		Payments: payments,
	}
}

func toIncreaseStatusDTO(s engine.IncreaseStatus) IncreaseStatusDTO {
	return IncreaseStatusDTO{
		State:           string(s.State),
		CycleStart:      s.CycleStart.String(),
		NextIncrease:    s.NextIncrease.String(),
		CurrentCycleEnd: s.CurrentCycleEnd.String(),
		FinalMonthStart: s.FinalMonthStart.String(),
	}
}
