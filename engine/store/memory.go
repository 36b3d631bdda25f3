// Package store provides an in-memory Store implementation.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/rental-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	contracts   map[engine.ContractID]engine.Contract
	adjustments map[engine.AdjustmentID]engine.AdjustmentRecord
	payments    map[engine.PaymentID]engine.PaymentEntry
}

func NewMemory() *Memory {
	return &Memory{
		contracts:   make(map[engine.ContractID]engine.Contract),
		adjustments: make(map[engine.AdjustmentID]engine.AdjustmentRecord),
		payments:    make(map[engine.PaymentID]engine.PaymentEntry),
	}
}

// =============================================================================
// CONTRACTS
// =============================================================================

func (m *Memory) ListContracts(_ context.Context) ([]engine.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]engine.Contract, 0, len(m.contracts))
	for _, c := range m.contracts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetContract(_ context.Context, id engine.ContractID) (*engine.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contracts[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &c, nil
}

func (m *Memory) SaveContract(_ context.Context, c *engine.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = engine.ContractID(uuid.NewString())
	}
	m.contracts[c.ID] = *c
	return nil
}

func (m *Memory) DeleteContract(_ context.Context, id engine.ContractID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contracts[id]; !ok {
		return engine.ErrNotFound
	}
	delete(m.contracts, id)
	for aid, a := range m.adjustments {
		if a.ContractID == id {
			delete(m.adjustments, aid)
		}
	}
	for pid, p := range m.payments {
		if p.ContractID == id {
			delete(m.payments, pid)
		}
	}
	return nil
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

func (m *Memory) ListAdjustments(_ context.Context, contractID engine.ContractID) ([]engine.AdjustmentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []engine.AdjustmentRecord
	for _, a := range m.adjustments {
		if a.ContractID == contractID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CycleEnd.Before(out[j].CycleEnd) })
	return out, nil
}

func (m *Memory) GetAdjustment(_ context.Context, id engine.AdjustmentID) (*engine.AdjustmentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.adjustments[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &a, nil
}

func (m *Memory) SaveAdjustment(_ context.Context, r *engine.AdjustmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = engine.AdjustmentID(uuid.NewString())
	}
	m.adjustments[r.ID] = *r
	return nil
}

func (m *Memory) DeleteAdjustment(_ context.Context, id engine.AdjustmentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.adjustments[id]; !ok {
		return engine.ErrNotFound
	}
	delete(m.adjustments, id)
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) ListPayments(_ context.Context, contractID engine.ContractID) ([]engine.PaymentEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []engine.PaymentEntry
	for _, p := range m.payments {
		if p.ContractID == contractID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month.Before(out[j].Month)
		}
		return out[i].PaidOn.Before(out[j].PaidOn)
	})
	return out, nil
}

func (m *Memory) GetPayment(_ context.Context, id engine.PaymentID) (*engine.PaymentEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.payments[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) SavePayment(_ context.Context, p *engine.PaymentEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = engine.PaymentID(uuid.NewString())
	}
	m.payments[p.ID] = *p
	return nil
}

func (m *Memory) DeletePayment(_ context.Context, id engine.PaymentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.payments[id]; !ok {
		return engine.ErrNotFound
	}
	delete(m.payments, id)
	return nil
}

// =============================================================================
// STATIC INDEX SOURCE - Fixed values for tests and demos
// =============================================================================

// StaticIndex serves a fixed index map. Empty maps report ErrNoIndexData,
// mirroring how the real index service distinguishes "nothing published"
// from a valid sparse response.
type StaticIndex struct {
	Values engine.IndexMap
}

func (s *StaticIndex) MonthlyValues(_ context.Context, from, to engine.Date) (engine.IndexMap, error) {
	if len(s.Values) == 0 {
		return nil, engine.ErrNoIndexData
	}
	months, err := engine.MonthSpan(from, to)
	if err != nil {
		return nil, err
	}
	out := make(engine.IndexMap)
	for _, m := range months {
		if v, ok := s.Values[m]; ok {
			out[m] = v
		}
	}
	return out, nil
}
