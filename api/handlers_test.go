/*
handlers_test.go - HTTP-level tests for the API handlers

Exercises the full router with an in-memory store and a fixed index
source: contract CRUD, the summary view, the two-phase propose flow,
adjustment immutability, and the payment ledger.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rental-engine/engine"
	"github.com/warp/rental-engine/engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testApp struct {
	router  http.Handler
	store   *store.Memory
	index   *store.StaticIndex
	handler *Handler
}

func newTestApp(t *testing.T, today engine.Date) *testApp {
	t.Helper()
	mem := store.NewMemory()
	idx := &store.StaticIndex{Values: engine.IndexMap{}}
	h := NewHandler(mem, idx)
	h.Clock = func() engine.Date { return today }
	return &testApp{router: NewRouter(h), store: mem, index: idx, handler: h}
}

func (a *testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func (a *testApp) createContract(t *testing.T) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/contracts", SaveContractRequest{
		Address:      "Av. Santa Fe 2450, 3B",
		Tenant:       "M. Fernandez",
		StartDate:    "2024-01-15",
		BasePrice:    "100000",
		PeriodMonths: 3,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeInto[ContractDTO](t, rec).ID
}

func mk(year int, m time.Month) engine.MonthKey { return engine.MonthKey{Year: year, Month: m} }

// =============================================================================
// CONTRACT ENDPOINT TESTS
// =============================================================================

func TestContractCRUD(t *testing.T) {
	app := newTestApp(t, engine.NewDate(2024, time.February, 1))
	id := app.createContract(t)

	rec := app.do(t, http.MethodGet, "/api/contracts/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeInto[ContractDTO](t, rec)
	assert.Equal(t, "M. Fernandez", got.Tenant)
	assert.Equal(t, "active", got.Lifecycle)

	rec = app.do(t, http.MethodPut, "/api/contracts/"+id, SaveContractRequest{
		Address:      "Av. Santa Fe 2450, 3B",
		Tenant:       "J. Alvarez",
		StartDate:    "2024-01-15",
		EndDate:      "2024-04-30",
		BasePrice:    "100000",
		PeriodMonths: 3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got = decodeInto[ContractDTO](t, rec)
	assert.Equal(t, "J. Alvarez", got.Tenant)
	// Ends within the warning window of the 2024-02-01 clock.
	assert.Equal(t, "ending_soon", got.Lifecycle)

	rec = app.do(t, http.MethodDelete, "/api/contracts/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/contracts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateContract_Invalid_Rejected(t *testing.T) {
	app := newTestApp(t, engine.NewDate(2024, time.February, 1))

	rec := app.do(t, http.MethodPost, "/api/contracts", SaveContractRequest{
		Address:      "Somewhere",
		Tenant:       "T",
		StartDate:    "2024-01-15",
		BasePrice:    "0",
		PeriodMonths: 3,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/contracts", SaveContractRequest{
		Address:      "Somewhere",
		Tenant:       "T",
		StartDate:    "2024-01-15",
		BasePrice:    "100000",
		PeriodMonths: 5, // no such cycle length
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetContractSummary(t *testing.T) {
	// GIVEN: A quarterly contract with one applied adjustment and one
	//        partial payment for the current month
	// WHEN: Fetching the summary on 2024-05-01
	// THEN: Current price reflects the adjustment, increase status and the
	//       current month's ledger ride along

	app := newTestApp(t, engine.NewDate(2024, time.May, 1))
	id := app.createContract(t)

	ctx := context.Background()
	require.NoError(t, app.store.SaveAdjustment(ctx, &engine.AdjustmentRecord{
		ContractID: engine.ContractID(id),
		CycleStart: engine.NewDate(2024, time.January, 15),
		CycleEnd:   engine.NewDate(2024, time.April, 14),
		BasePrice:  decimal.NewFromInt(100000),
		NewPrice:   decimal.NewFromInt(108500),
		Origin:     engine.ManualOrigin(),
	}))
	require.NoError(t, app.store.SavePayment(ctx, &engine.PaymentEntry{
		ContractID: engine.ContractID(id),
		Month:      mk(2024, time.May),
		PaidOn:     engine.NewDate(2024, time.April, 28),
		Amount:     decimal.NewFromInt(50000),
	}))

	rec := app.do(t, http.MethodGet, "/api/contracts/"+id+"/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sum := decodeInto[ContractSummaryDTO](t, rec)

	assert.Equal(t, "108500", sum.CurrentPrice)
	assert.Equal(t, "2024-04-15", sum.EffectiveSince)
	assert.Equal(t, "current", sum.Increase.State)
	assert.Equal(t, "2024-07-15", sum.Increase.NextIncrease)

	require.NotNil(t, sum.CurrentMonth)
	assert.Equal(t, "2024-05", sum.CurrentMonth.Month)
	assert.Equal(t, "108500", sum.CurrentMonth.Total)
	assert.Equal(t, "partial", sum.CurrentMonth.Status)
}

// =============================================================================
// ADJUSTMENT ENDPOINT TESTS
// =============================================================================

func TestCreateAdjustment_Manual(t *testing.T) {
	app := newTestApp(t, engine.NewDate(2024, time.March, 1))
	id := app.createContract(t)

	rec := app.do(t, http.MethodPost, "/api/contracts/"+id+"/adjustments", SaveAdjustmentRequest{
		CycleStart: "2024-01-15",
		CycleEnd:   "2024-04-14",
		BasePrice:  "100000",
		NewPrice:   "108500",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decodeInto[AdjustmentDTO](t, rec)

	assert.Equal(t, "2024-04-15", got.EffectiveFrom)
	assert.Equal(t, "8.50", got.Percentage)
	assert.False(t, got.SystemGenerated)
}

func TestAdjustmentImmutability_OverHTTP(t *testing.T) {
	// GIVEN: A record effective 2024-04-15
	// WHEN: Editing it before, on, and after that date
	// THEN: Allowed before; 409 from the effective date on

	app := newTestApp(t, engine.NewDate(2024, time.April, 14))
	id := app.createContract(t)

	rec := app.do(t, http.MethodPost, "/api/contracts/"+id+"/adjustments", SaveAdjustmentRequest{
		CycleStart: "2024-01-15",
		CycleEnd:   "2024-04-14",
		BasePrice:  "100000",
		NewPrice:   "108500",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	adjID := decodeInto[AdjustmentDTO](t, rec).ID

	edit := SaveAdjustmentRequest{
		CycleStart: "2024-01-15",
		CycleEnd:   "2024-04-14",
		BasePrice:  "100000",
		NewPrice:   "109000",
	}
	rec = app.do(t, http.MethodPut, "/api/adjustments/"+adjID, edit)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Clock advances to the effective date: now immutable.
	app.handler.Clock = func() engine.Date { return engine.NewDate(2024, time.April, 15) }
	rec = app.do(t, http.MethodPut, "/api/adjustments/"+adjID, edit)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodDelete, "/api/adjustments/"+adjID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// =============================================================================
// PROPOSE FLOW TESTS
// =============================================================================

func TestProposeAdjustment_AllDataPresent_ReturnsDraft(t *testing.T) {
	app := newTestApp(t, engine.NewDate(2024, time.April, 1))
	id := app.createContract(t)
	app.index.Values = engine.IndexMap{
		mk(2024, time.January):  decimal.RequireFromString("2.5"),
		mk(2024, time.February): decimal.RequireFromString("3.0"),
		mk(2024, time.March):    decimal.RequireFromString("3.0"),
		mk(2024, time.April):    decimal.RequireFromString("2.0"),
	}

	rec := app.do(t, http.MethodPost, "/api/contracts/"+id+"/adjustments/propose", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	prop := decodeInto[ProposalDTO](t, rec)

	assert.False(t, prop.NeedsConfirmation)
	// First cycle Jan 15 .. Apr 14 spans four calendar months.
	assert.Equal(t, "10.50", prop.Percentage)
	require.NotNil(t, prop.Draft)
	assert.Equal(t, "2024-01-15", prop.Draft.CycleStart)
	assert.Equal(t, "2024-04-14", prop.Draft.CycleEnd)
	assert.Equal(t, "110500", prop.Draft.NewPrice)
	assert.True(t, prop.Draft.SystemGenerated)
	// Not persisted without the persist flag.
	assert.Empty(t, prop.Draft.ID)
}

func TestProposeAdjustment_TrailingEstimate_TwoPhase(t *testing.T) {
	// GIVEN: The cycle's final month not yet published
	// WHEN: Proposing without confirmation, then with it and persist
	// THEN: First call reports needs_confirmation with no draft; second
	//       call builds and stores the record

	app := newTestApp(t, engine.NewDate(2024, time.April, 1))
	id := app.createContract(t)
	app.index.Values = engine.IndexMap{
		mk(2024, time.January):  decimal.RequireFromString("2.5"),
		mk(2024, time.February): decimal.RequireFromString("3.0"),
		mk(2024, time.March):    decimal.RequireFromString("3.0"),
	}

	rec := app.do(t, http.MethodPost, "/api/contracts/"+id+"/adjustments/propose", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	prop := decodeInto[ProposalDTO](t, rec)

	assert.True(t, prop.NeedsConfirmation)
	assert.Equal(t, []string{"2024-04"}, prop.EstimatedMonths)
	assert.Contains(t, prop.Breakdown, "Apr 2024: 3.00% (estimated)")
	assert.Nil(t, prop.Draft)

	rec = app.do(t, http.MethodPost, "/api/contracts/"+id+"/adjustments/propose",
		ProposeAdjustmentRequest{ConfirmEstimate: true, Persist: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	prop = decodeInto[ProposalDTO](t, rec)

	assert.False(t, prop.NeedsConfirmation)
	assert.Equal(t, "11.50", prop.Percentage)
	require.NotNil(t, prop.Draft)
	assert.Equal(t, "111500", prop.Draft.NewPrice)
	assert.NotEmpty(t, prop.Draft.ID)

	// The stored record chains the next proposal off its cycle end.
	records, err := app.store.ListAdjustments(context.Background(), engine.ContractID(id))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Origin.SystemGenerated())
}

func TestProposeAdjustment_InteriorGap_Blocks(t *testing.T) {
	app := newTestApp(t, engine.NewDate(2024, time.April, 1))
	id := app.createContract(t)
	app.index.Values = engine.IndexMap{
		mk(2024, time.January): decimal.RequireFromString("2.5"),
		mk(2024, time.March):   decimal.RequireFromString("3.0"),
		mk(2024, time.April):   decimal.RequireFromString("2.0"),
	}

	rec := app.do(t, http.MethodPost, "/api/contracts/"+id+"/adjustments/propose", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

func TestProposeAdjustment_NoIndexData_Unprocessable(t *testing.T) {
	app := newTestApp(t, engine.NewDate(2024, time.April, 1))
	id := app.createContract(t)
	// StaticIndex with no values reports ErrNoIndexData.

	rec := app.do(t, http.MethodPost, "/api/contracts/"+id+"/adjustments/propose", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

// =============================================================================
// PAYMENT AND LEDGER ENDPOINT TESTS
// =============================================================================

func TestPaymentsAndLedger(t *testing.T) {
	// GIVEN: Two partial payments for March and one full for February
	// WHEN: Fetching the ledger on 2024-04-01
	// THEN: February paid, March paid after both halves, ascending order

	app := newTestApp(t, engine.NewDate(2024, time.April, 1))
	id := app.createContract(t)

	post := func(m, paidOn, amount string) PaymentDTO {
		rec := app.do(t, http.MethodPost, "/api/contracts/"+id+"/payments", SavePaymentRequest{
			Month: m, PaidOn: paidOn, Amount: amount, Method: "transfer",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decodeInto[PaymentDTO](t, rec)
	}
	post("2024-02", "2024-02-09", "100000")
	post("2024-03", "2024-03-05", "60000")
	march := post("2024-03", "2024-03-20", "40000")

	rec := app.do(t, http.MethodGet, "/api/contracts/"+id+"/ledger", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ledger := decodeInto[[]MonthLedgerDTO](t, rec)
	require.Len(t, ledger, 2)

	assert.Equal(t, "2024-02", ledger[0].Month)
	assert.Equal(t, "paid", ledger[0].Status)
	assert.Equal(t, "2024-03", ledger[1].Month)
	assert.Equal(t, "paid", ledger[1].Status)
	assert.Equal(t, "100000", ledger[1].Paid)
	require.Len(t, ledger[1].Payments, 2)
	assert.Equal(t, "2024-03-05", ledger[1].Payments[0].PaidOn)

	// Deleting one March half drops the month back to partial.
	rec = app.do(t, http.MethodDelete, "/api/payments/"+march.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/contracts/"+id+"/ledger", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ledger = decodeInto[[]MonthLedgerDTO](t, rec)
	assert.Equal(t, "partial", ledger[1].Status)
	assert.Equal(t, "40000", ledger[1].Balance)
}

func TestCreatePayment_NegativeAmount_Rejected(t *testing.T) {
	app := newTestApp(t, engine.NewDate(2024, time.April, 1))
	id := app.createContract(t)

	rec := app.do(t, http.MethodPost, "/api/contracts/"+id+"/payments", SavePaymentRequest{
		Month: "2024-03", Amount: "-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownContract_404(t *testing.T) {
	app := newTestApp(t, engine.NewDate(2024, time.April, 1))
	for _, path := range []string{
		"/api/contracts/nope",
		"/api/contracts/nope/summary",
		"/api/contracts/nope/adjustments",
		"/api/contracts/nope/ledger",
	} {
		rec := app.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
