/*
handlers.go - HTTP API handlers for the rental contract system

PURPOSE:
  Exposes the rent adjustment and billing engine via REST API. Handles
  HTTP request/response, JSON serialization, and delegates all domain
  decisions to the engine package.

ENDPOINTS:
  Contracts:
    GET    /api/contracts                     List contracts (+ lifecycle)
    POST   /api/contracts                     Create contract
    GET    /api/contracts/{id}                Contract detail
    GET    /api/contracts/{id}/summary        Current price, status, ledger
    PUT    /api/contracts/{id}                Update contract
    DELETE /api/contracts/{id}                Delete (cascades)

  Adjustments:
    GET    /api/contracts/{id}/adjustments    List records
    POST   /api/contracts/{id}/adjustments    Create manual record
    POST   /api/contracts/{id}/adjustments/propose  Automatic calculation
    PUT    /api/adjustments/{id}              Edit (not yet in effect only)
    DELETE /api/adjustments/{id}              Delete (not yet in effect only)

  Payments:
    GET    /api/contracts/{id}/payments       Raw entries
    POST   /api/contracts/{id}/payments       Create entry
    GET    /api/contracts/{id}/ledger         Per-month ledger
    PUT    /api/payments/{id}                 Edit entry
    DELETE /api/payments/{id}                 Delete entry

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown identifiers
  - 409: Immutable record modifications
  - 422: Blocking missing index data
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/rental-engine/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store engine.Store
	Index engine.IndexSource

	// Clock returns "today"; overridable in tests.
	Clock func() engine.Date
}

// NewHandler creates a new handler over a store and an index source.
func NewHandler(store engine.Store, index engine.IndexSource) *Handler {
	return &Handler{Store: store, Index: index, Clock: engine.Today}
}

func (h *Handler) today() engine.Date {
	if h.Clock != nil {
		return h.Clock()
	}
	return engine.Today()
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ListContracts returns all contracts with their lifecycle status.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.Store.ListContracts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contracts", err)
		return
	}

	ref := h.today()
	dtos := make([]ContractDTO, len(contracts))
	for i := range contracts {
		dtos[i] = toContractDTO(&contracts[i], ref)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetContract returns a single contract.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadContract(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, h.today()))
}

// GetContractSummary returns the figures the contract table renders:
// current price, its effective-since date, the increase status, and the
// current month's payment ledger.
func (h *Handler) GetContractSummary(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadContract(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	records, err := h.Store.ListAdjustments(ctx, c.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list adjustments", err)
		return
	}
	payments, err := h.Store.ListPayments(ctx, c.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	ref := h.today()
	since := engine.EffectiveSinceDate(c, records, ref)
	status := engine.ClassifyIncrease(c, since, records, ref)
	month := engine.MonthOf(ref)
	ledger := engine.AggregateMonth(c, records, month, payments, ref)

	currentMonth := toMonthLedgerDTO(&ledger)
	writeJSON(w, http.StatusOK, ContractSummaryDTO{
		Contract:       toContractDTO(c, ref),
		CurrentPrice:   engine.PriceEffectiveAt(c, records, ref).String(),
		EffectiveSince: since.String(),
		Increase:       toIncreaseStatusDTO(status),
		CurrentMonth:   &currentMonth,
	})
}

// CreateContract creates a new contract.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decodeContract(w, r, "")
	if !ok {
		return
	}
	if err := h.Store.SaveContract(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractDTO(c, h.today()))
}

// UpdateContract updates a contract in place.
func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	id := engine.ContractID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetContract(r.Context(), id); err != nil {
		writeStoreError(w, "Contract", err)
		return
	}
	c, ok := h.decodeContract(w, r, id)
	if !ok {
		return
	}
	c.LastManualUpdate = h.today()
	if err := h.Store.SaveContract(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, h.today()))
}

// DeleteContract removes a contract and its dependent records.
func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	id := engine.ContractID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteContract(r.Context(), id); err != nil {
		writeStoreError(w, "Contract", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": string(id)})
}

// =============================================================================
// ADJUSTMENT HANDLERS
// =============================================================================

// ListAdjustments returns a contract's adjustment records.
func (h *Handler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadContract(w, r)
	if !ok {
		return
	}
	records, err := h.Store.ListAdjustments(r.Context(), c.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list adjustments", err)
		return
	}
	dtos := make([]AdjustmentDTO, len(records))
	for i := range records {
		dtos[i] = toAdjustmentDTO(&records[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAdjustment creates a manual adjustment record.
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadContract(w, r)
	if !ok {
		return
	}
	record, ok := h.decodeAdjustment(w, r, c, "")
	if !ok {
		return
	}
	if err := h.Store.SaveAdjustment(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save adjustment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdjustmentDTO(record))
}

// ProposeAdjustment runs the automatic index-based calculation flow:
// derive the next cycle, fetch index values, compose the percentage, and
// return a draft record. Trailing estimates require a second call with
// confirm_estimate set; persist writes the draft through the store.
func (h *Handler) ProposeAdjustment(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadContract(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req ProposeAdjustmentRequest
	if r.Body != nil {
		// An empty body means plain first-phase proposal.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	records, err := h.Store.ListAdjustments(ctx, c.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list adjustments", err)
		return
	}

	proposal, err := engine.ProposeNextCycle(c, records)
	if err != nil {
		writeEngineError(w, "Failed to derive next cycle", err)
		return
	}

	values, err := h.Index.MonthlyValues(ctx, proposal.CycleStart, proposal.CycleEnd)
	if err != nil {
		if errors.Is(err, engine.ErrNoIndexData) {
			writeError(w, http.StatusUnprocessableEntity, "No index data for the proposed period", err)
			return
		}
		writeError(w, http.StatusBadGateway, "Index source unavailable", err)
		return
	}

	comp, err := engine.ComposeIndexForRange(proposal.CycleStart, proposal.CycleEnd, values)
	if err != nil {
		writeEngineError(w, "Index composition failed", err)
		return
	}

	if comp.NeedsConfirmation() && !req.ConfirmEstimate {
		writeJSON(w, http.StatusOK, ProposalDTO{
			NeedsConfirmation: true,
			EstimatedMonths:   monthStrings(comp.EstimatedMonths),
			Percentage:        comp.Percentage.StringFixed(2),
			Breakdown:         comp.Breakdown(),
		})
		return
	}
	if comp.NeedsConfirmation() {
		comp, err = engine.ConfirmEstimate(comp)
		if err != nil {
			writeEngineError(w, "Failed to confirm estimate", err)
			return
		}
	}

	draft, err := engine.BuildSystemAdjustment(c, proposal, comp)
	if err != nil {
		writeEngineError(w, "Failed to build adjustment", err)
		return
	}

	if req.Persist {
		if err := engine.ValidateAdjustment(c, &draft); err != nil {
			writeEngineError(w, "Invalid adjustment", err)
			return
		}
		if err := h.Store.SaveAdjustment(ctx, &draft); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save adjustment", err)
			return
		}
	}

	draftDTO := toAdjustmentDTO(&draft)
	writeJSON(w, http.StatusOK, ProposalDTO{
		EstimatedMonths: monthStrings(comp.EstimatedMonths),
		Percentage:      comp.Percentage.StringFixed(2),
		Breakdown:       comp.Breakdown(),
		Draft:           &draftDTO,
	})
}

// UpdateAdjustment edits a record that is not yet in effect.
func (h *Handler) UpdateAdjustment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := engine.AdjustmentID(chi.URLParam(r, "id"))

	existing, err := h.Store.GetAdjustment(ctx, id)
	if err != nil {
		writeStoreError(w, "Adjustment", err)
		return
	}
	if err := engine.CanModifyAdjustment(existing, h.today()); err != nil {
		writeEngineError(w, "Adjustment cannot be edited", err)
		return
	}

	c, err := h.Store.GetContract(ctx, existing.ContractID)
	if err != nil {
		writeStoreError(w, "Contract", err)
		return
	}

	record, ok := h.decodeAdjustment(w, r, c, id)
	if !ok {
		return
	}
	record.Origin = existing.Origin
	if err := h.Store.SaveAdjustment(ctx, record); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save adjustment", err)
		return
	}
	writeJSON(w, http.StatusOK, toAdjustmentDTO(record))
}

// DeleteAdjustment removes a record that is not yet in effect.
func (h *Handler) DeleteAdjustment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := engine.AdjustmentID(chi.URLParam(r, "id"))

	existing, err := h.Store.GetAdjustment(ctx, id)
	if err != nil {
		writeStoreError(w, "Adjustment", err)
		return
	}
	if err := engine.CanModifyAdjustment(existing, h.today()); err != nil {
		writeEngineError(w, "Adjustment cannot be deleted", err)
		return
	}
	if err := h.Store.DeleteAdjustment(ctx, id); err != nil {
		writeStoreError(w, "Adjustment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": string(id)})
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns a contract's raw payment entries.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadContract(w, r)
	if !ok {
		return
	}
	payments, err := h.Store.ListPayments(r.Context(), c.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	dtos := make([]PaymentDTO, len(payments))
	for i := range payments {
		dtos[i] = toPaymentDTO(&payments[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePayment creates a payment entry.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadContract(w, r)
	if !ok {
		return
	}
	entry, ok := h.decodePayment(w, r, c.ID, "")
	if !ok {
		return
	}
	if err := h.Store.SavePayment(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(entry))
}

// UpdatePayment edits a payment entry.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := engine.PaymentID(chi.URLParam(r, "id"))

	existing, err := h.Store.GetPayment(ctx, id)
	if err != nil {
		writeStoreError(w, "Payment", err)
		return
	}
	entry, ok := h.decodePayment(w, r, existing.ContractID, id)
	if !ok {
		return
	}
	if err := h.Store.SavePayment(ctx, entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(entry))
}

// DeletePayment removes a payment entry.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id := engine.PaymentID(chi.URLParam(r, "id"))
	if err := h.Store.DeletePayment(r.Context(), id); err != nil {
		writeStoreError(w, "Payment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": string(id)})
}

// GetLedger returns the derived per-month payment ledger.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadContract(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	records, err := h.Store.ListAdjustments(ctx, c.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list adjustments", err)
		return
	}
	payments, err := h.Store.ListPayments(ctx, c.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	ledgers := engine.Aggregate(c, records, payments, h.today())
	dtos := make([]MonthLedgerDTO, len(ledgers))
	for i := range ledgers {
		dtos[i] = toMonthLedgerDTO(&ledgers[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DECODING HELPERS
// =============================================================================

func (h *Handler) loadContract(w http.ResponseWriter, r *http.Request) (*engine.Contract, bool) {
	id := engine.ContractID(chi.URLParam(r, "id"))
	c, err := h.Store.GetContract(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Contract", err)
		return nil, false
	}
	return c, true
}

func (h *Handler) decodeContract(w http.ResponseWriter, r *http.Request, id engine.ContractID) (*engine.Contract, bool) {
	var req SaveContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}

	start, err := engine.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return nil, false
	}
	var end engine.Date
	if req.EndDate != "" {
		end, err = engine.ParseDate(req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
			return nil, false
		}
	}
	base, err := decimal.NewFromString(req.BasePrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid base_price", err)
		return nil, false
	}

	c := &engine.Contract{
		ID:        id,
		Address:   req.Address,
		Tenant:    req.Tenant,
		Contact:   req.Contact,
		Start:     start,
		End:       end,
		BasePrice: base,
		Basis:     engine.BasisIndexLinked,
		Period:    engine.PeriodMonths(req.PeriodMonths),
		Notes:     req.Notes,
	}
	if err := engine.ValidateContract(c); err != nil {
		writeEngineError(w, "Invalid contract", err)
		return nil, false
	}
	return c, true
}

func (h *Handler) decodeAdjustment(w http.ResponseWriter, r *http.Request, c *engine.Contract, id engine.AdjustmentID) (*engine.AdjustmentRecord, bool) {
	var req SaveAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}

	cycleStart, err := engine.ParseDate(req.CycleStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cycle_start (use YYYY-MM-DD)", err)
		return nil, false
	}
	cycleEnd, err := engine.ParseDate(req.CycleEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cycle_end (use YYYY-MM-DD)", err)
		return nil, false
	}
	newPrice, err := decimal.NewFromString(req.NewPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid new_price", err)
		return nil, false
	}
	basePrice, err := decimal.NewFromString(req.BasePrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid base_price", err)
		return nil, false
	}
	// Percentage is optional; malformed values are recomputed from the
	// base/new prices on read.
	percentage := decimal.Zero
	if req.Percentage != "" {
		if p, err := decimal.NewFromString(req.Percentage); err == nil {
			percentage = engine.RoundPercent(p)
		}
	}

	record := &engine.AdjustmentRecord{
		ID:         id,
		ContractID: c.ID,
		CycleStart: cycleStart,
		CycleEnd:   cycleEnd,
		Percentage: percentage,
		NewPrice:   newPrice,
		BasePrice:  basePrice,
		Note:       req.Note,
		Origin:     engine.ManualOrigin(),
	}
	if err := engine.ValidateAdjustment(c, record); err != nil {
		writeEngineError(w, "Invalid adjustment", err)
		return nil, false
	}
	return record, true
}

func (h *Handler) decodePayment(w http.ResponseWriter, r *http.Request, contractID engine.ContractID, id engine.PaymentID) (*engine.PaymentEntry, bool) {
	var req SavePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}

	month, err := engine.ParseMonthKey(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return nil, false
	}
	paidOn := h.today()
	if req.PaidOn != "" {
		paidOn, err = engine.ParseDate(req.PaidOn)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid paid_on (use YYYY-MM-DD)", err)
			return nil, false
		}
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return nil, false
	}
	snapshot := decimal.Zero
	if req.SnapshotTotal != "" {
		snapshot, err = decimal.NewFromString(req.SnapshotTotal)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid snapshot_total", err)
			return nil, false
		}
	}

	entry := &engine.PaymentEntry{
		ID:            id,
		ContractID:    contractID,
		Month:         month,
		PaidOn:        paidOn,
		Amount:        amount,
		Method:        req.Method,
		Note:          req.Note,
		SnapshotTotal: snapshot,
	}
	if err := engine.ValidatePayment(entry); err != nil {
		writeEngineError(w, "Invalid payment", err)
		return nil, false
	}
	return entry, true
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func monthStrings(months []engine.MonthKey) []string {
	out := make([]string, len(months))
	for i, m := range months {
		out[i] = m.String()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeStoreError maps store lookups to 404 vs 500.
func writeStoreError(w http.ResponseWriter, what string, err error) {
	if engine.IsNotFound(err) {
		writeError(w, http.StatusNotFound, what+" not found", nil)
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to load "+what, err)
}

// writeEngineError maps engine validation failures to HTTP statuses.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, engine.ErrImmutableRecord):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, engine.ErrMissingIndexData):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
