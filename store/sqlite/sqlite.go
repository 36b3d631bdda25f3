/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements engine.Store (contracts, adjustments, payments) using SQLite.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  contracts:    Rental contracts
  adjustments:  Price adjustment records, one row per cycle
  payments:     Raw partial-payment entries

CASCADE:
  Foreign keys with ON DELETE CASCADE remove a contract's adjustments and
  payments with it, matching the logical cascade the engine assumes.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL
  (Write-Ahead Logging) so readers do not block each other.

DATES:
  Stored as YYYY-MM-DD text, billing months as YYYY-MM text. Money and
  percentages are stored as decimal strings to keep exact values.

USAGE:
  store, err := sqlite.New("./data/rentals.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/rental-engine/engine"
)

// Store implements engine.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		address TEXT NOT NULL,
		tenant TEXT NOT NULL,
		contact TEXT,
		start_date TEXT NOT NULL,
		end_date TEXT,
		base_price TEXT NOT NULL,
		basis TEXT NOT NULL DEFAULT 'index',
		period_months INTEGER NOT NULL,
		notes TEXT,
		last_manual_update TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS adjustments (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		cycle_start TEXT NOT NULL,
		cycle_end TEXT NOT NULL,
		percentage TEXT NOT NULL,
		new_price TEXT NOT NULL,
		base_price TEXT NOT NULL,
		note TEXT,
		origin TEXT NOT NULL DEFAULT 'manual',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_adjustments_contract
		ON adjustments(contract_id, cycle_end);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		month TEXT NOT NULL,
		paid_on TEXT NOT NULL,
		amount TEXT NOT NULL,
		method TEXT,
		note TEXT,
		snapshot_total TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_contract_month
		ON payments(contract_id, month);
	`

	_, err := s.db.Exec(schema)
	return err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// =============================================================================
// CONTRACT STORE (engine.ContractStore interface)
// =============================================================================

const contractColumns = `id, address, tenant, contact, start_date, end_date,
	base_price, basis, period_months, notes, last_manual_update`

// ListContracts returns all contracts ordered by address.
func (s *Store) ListContracts(ctx context.Context) ([]engine.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+contractColumns+" FROM contracts ORDER BY address, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	var out []engine.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetContract retrieves a contract by ID.
func (s *Store) GetContract(ctx context.Context, id engine.ContractID) (*engine.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+contractColumns+" FROM contracts WHERE id = ?", id)
	c, err := scanContract(row)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveContract inserts or updates a contract, assigning an ID when empty.
func (s *Store) SaveContract(ctx context.Context, c *engine.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = engine.ContractID(uuid.NewString())
	}
	if c.Basis == "" {
		c.Basis = engine.BasisIndexLinked
	}

	query := `
		INSERT INTO contracts
		(id, address, tenant, contact, start_date, end_date, base_price,
		 basis, period_months, notes, last_manual_update, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			address = excluded.address,
			tenant = excluded.tenant,
			contact = excluded.contact,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			base_price = excluded.base_price,
			basis = excluded.basis,
			period_months = excluded.period_months,
			notes = excluded.notes,
			last_manual_update = excluded.last_manual_update,
			updated_at = excluded.updated_at
	`

	ts := now()
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Address, c.Tenant, c.Contact,
		c.Start.String(), dateOrNull(c.End),
		c.BasePrice.String(), string(c.Basis), int(c.Period),
		c.Notes, dateOrNull(c.LastManualUpdate), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}
	return nil
}

// DeleteContract removes a contract; adjustments and payments cascade.
func (s *Store) DeleteContract(ctx context.Context, id engine.ContractID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM contracts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}
	return requireAffected(res)
}

// =============================================================================
// ADJUSTMENT STORE (engine.AdjustmentStore interface)
// =============================================================================

const adjustmentColumns = `id, contract_id, cycle_start, cycle_end,
	percentage, new_price, base_price, note, origin`

// ListAdjustments returns a contract's records ordered by cycle end.
func (s *Store) ListAdjustments(ctx context.Context, contractID engine.ContractID) ([]engine.AdjustmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+adjustmentColumns+" FROM adjustments WHERE contract_id = ? ORDER BY cycle_end",
		contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer rows.Close()

	var out []engine.AdjustmentRecord
	for rows.Next() {
		r, err := scanAdjustment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetAdjustment retrieves an adjustment record by ID.
func (s *Store) GetAdjustment(ctx context.Context, id engine.AdjustmentID) (*engine.AdjustmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+adjustmentColumns+" FROM adjustments WHERE id = ?", id)
	r, err := scanAdjustment(row)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveAdjustment inserts or updates a record, assigning an ID when empty.
func (s *Store) SaveAdjustment(ctx context.Context, r *engine.AdjustmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = engine.AdjustmentID(uuid.NewString())
	}
	if r.Origin.Kind == "" {
		r.Origin = engine.ManualOrigin()
	}

	query := `
		INSERT INTO adjustments
		(id, contract_id, cycle_start, cycle_end, percentage, new_price,
		 base_price, note, origin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cycle_start = excluded.cycle_start,
			cycle_end = excluded.cycle_end,
			percentage = excluded.percentage,
			new_price = excluded.new_price,
			base_price = excluded.base_price,
			note = excluded.note,
			origin = excluded.origin,
			updated_at = excluded.updated_at
	`

	ts := now()
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.ContractID, r.CycleStart.String(), r.CycleEnd.String(),
		r.Percentage.String(), r.NewPrice.String(), r.BasePrice.String(),
		r.Note, string(r.Origin.Kind), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to save adjustment: %w", err)
	}
	return nil
}

// DeleteAdjustment removes an adjustment record.
func (s *Store) DeleteAdjustment(ctx context.Context, id engine.AdjustmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM adjustments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete adjustment: %w", err)
	}
	return requireAffected(res)
}

// =============================================================================
// PAYMENT STORE (engine.PaymentStore interface)
// =============================================================================

const paymentColumns = `id, contract_id, month, paid_on, amount, method, note, snapshot_total`

// ListPayments returns a contract's raw payment entries ordered by month,
// then payment date.
func (s *Store) ListPayments(ctx context.Context, contractID engine.ContractID) ([]engine.PaymentEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE contract_id = ? ORDER BY month, paid_on",
		contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []engine.PaymentEntry
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPayment retrieves a payment entry by ID.
func (s *Store) GetPayment(ctx context.Context, id engine.PaymentID) (*engine.PaymentEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id = ?", id)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePayment inserts or updates a payment entry, assigning an ID when empty.
func (s *Store) SavePayment(ctx context.Context, p *engine.PaymentEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = engine.PaymentID(uuid.NewString())
	}

	query := `
		INSERT INTO payments
		(id, contract_id, month, paid_on, amount, method, note, snapshot_total,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			month = excluded.month,
			paid_on = excluded.paid_on,
			amount = excluded.amount,
			method = excluded.method,
			note = excluded.note,
			snapshot_total = excluded.snapshot_total,
			updated_at = excluded.updated_at
	`

	ts := now()
	var snapshot any
	if p.SnapshotTotal.IsPositive() {
		snapshot = p.SnapshotTotal.String()
	}
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.ContractID, p.Month.String(), p.PaidOn.String(),
		p.Amount.String(), p.Method, p.Note, snapshot, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

// DeletePayment removes a payment entry.
func (s *Store) DeletePayment(ctx context.Context, id engine.PaymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	return requireAffected(res)
}

// =============================================================================
// SCANNING HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (engine.Contract, error) {
	var (
		c                engine.Contract
		contact          sql.NullString
		startDate        string
		endDate          sql.NullString
		basePrice        string
		basis            string
		periodMonths     int
		notes            sql.NullString
		lastManualUpdate sql.NullString
	)
	err := row.Scan(&c.ID, &c.Address, &c.Tenant, &contact, &startDate, &endDate,
		&basePrice, &basis, &periodMonths, &notes, &lastManualUpdate)
	if err != nil {
		if err == sql.ErrNoRows {
			return c, err
		}
		return c, fmt.Errorf("failed to scan contract: %w", err)
	}

	c.Contact = contact.String
	c.Notes = notes.String
	c.Basis = engine.IncreaseBasis(basis)
	c.Period = engine.PeriodMonths(periodMonths)
	c.Start, _ = engine.ParseDate(startDate)
	if endDate.Valid && endDate.String != "" {
		c.End, _ = engine.ParseDate(endDate.String)
	}
	if lastManualUpdate.Valid && lastManualUpdate.String != "" {
		c.LastManualUpdate, _ = engine.ParseDate(lastManualUpdate.String)
	}
	c.BasePrice = parseDecimal(basePrice)
	return c, nil
}

func scanAdjustment(row rowScanner) (engine.AdjustmentRecord, error) {
	var (
		r          engine.AdjustmentRecord
		cycleStart string
		cycleEnd   string
		percentage string
		newPrice   string
		basePrice  string
		note       sql.NullString
		origin     string
	)
	err := row.Scan(&r.ID, &r.ContractID, &cycleStart, &cycleEnd,
		&percentage, &newPrice, &basePrice, &note, &origin)
	if err != nil {
		if err == sql.ErrNoRows {
			return r, err
		}
		return r, fmt.Errorf("failed to scan adjustment: %w", err)
	}

	r.CycleStart, _ = engine.ParseDate(cycleStart)
	r.CycleEnd, _ = engine.ParseDate(cycleEnd)
	r.Percentage = parseDecimal(percentage)
	r.NewPrice = parseDecimal(newPrice)
	r.BasePrice = parseDecimal(basePrice)
	r.Note = note.String
	if engine.OriginKind(origin) == engine.OriginSystem {
		r.Origin = engine.SystemOrigin(nil)
	} else {
		r.Origin = engine.ManualOrigin()
	}
	return r, nil
}

func scanPayment(row rowScanner) (engine.PaymentEntry, error) {
	var (
		p        engine.PaymentEntry
		month    string
		paidOn   string
		amount   string
		method   sql.NullString
		note     sql.NullString
		snapshot sql.NullString
	)
	err := row.Scan(&p.ID, &p.ContractID, &month, &paidOn, &amount,
		&method, &note, &snapshot)
	if err != nil {
		if err == sql.ErrNoRows {
			return p, err
		}
		return p, fmt.Errorf("failed to scan payment: %w", err)
	}

	p.Month, _ = engine.ParseMonthKey(month)
	p.PaidOn, _ = engine.ParseDate(paidOn)
	p.Amount = parseDecimal(amount)
	p.Method = method.String
	p.Note = note.String
	if snapshot.Valid && snapshot.String != "" {
		p.SnapshotTotal = parseDecimal(snapshot.String)
	}
	return p, nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func dateOrNull(d engine.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrNotFound
	}
	return nil
}
