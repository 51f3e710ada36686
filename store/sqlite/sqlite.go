/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

INTERFACES IMPLEMENTED:
  ledger.TxStore:    Transaction persistence with guarded status transitions
  pricing.RuleStore: Catalog rules
  balance.PaymentLog: Append-only staff payment log
  Plus a small staff directory used by the admin API.

AUDIT ENFORCEMENT:
  The transactions table is insert-plus-status-flip only:
  - No DELETE statements on transactions or payments
  - The only UPDATE touches the status column and carries the expected
    current status in its WHERE clause, so lost-update races surface as
    ConflictError instead of silently overwriting
  - A partial unique index on corrected_from_id forbids two corrections of
    the same original (no chain branching)

KEY TABLES:
  transactions:  Session ledger; every field retained forever
  payments:      Fee payouts to staff
  pricing_rules: (location, service, duration) -> (price, staff_fee)
  staff:         Staff directory for the admin UI

CONCURRENCY:
  sync.RWMutex for in-process serialization plus SQLite WAL mode. The
  ledger's correction path additionally runs inside a SQL transaction via
  WithTx.

USAGE:
  store, err := sqlite.New("./data/studio.db")   // ":memory:" for tests
  ledger := ledger.New(store, catalog)

SEE ALSO:
  - ledger/store.go: Interface contracts
  - store/memory: In-memory implementation with the same semantics
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/studio-ledger/balance"
	"github.com/warp/studio-ledger/ledger"
	"github.com/warp/studio-ledger/pricing"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// Every pool connection would otherwise open its own empty database.
		db.SetMaxOpenConns(1)
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

func (s *Store) migrate() error {
	schema := `
	-- Session ledger. Rows are never deleted; only status changes.
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		staff_name TEXT NOT NULL,
		service_name TEXT NOT NULL,
		location TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		payment_method TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		customer_contact TEXT,
		price TEXT NOT NULL,
		staff_fee TEXT NOT NULL,
		status TEXT NOT NULL,
		corrected_from_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_staff_status
		ON transactions(staff_name, status);
	CREATE INDEX IF NOT EXISTS idx_transactions_start_time
		ON transactions(start_time);

	-- CRITICAL: one successor per corrected row (correction chains are
	-- lists, not trees)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_corrected_from
		ON transactions(corrected_from_id)
		WHERE corrected_from_id IS NOT NULL;

	-- Staff fee payouts. Append-only.
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		staff_name TEXT NOT NULL,
		amount TEXT NOT NULL,
		paid_at TEXT NOT NULL,
		method TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_staff
		ON payments(staff_name, paid_at);

	-- Pricing catalog. The key triple is unique.
	CREATE TABLE IF NOT EXISTS pricing_rules (
		id TEXT PRIMARY KEY,
		location TEXT NOT NULL,
		service_name TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		price TEXT NOT NULL,
		staff_fee TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(location, service_name, duration_minutes)
	);

	-- Staff directory (admin UI).
	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		phone TEXT,
		active BOOLEAN DEFAULT TRUE,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTION LEDGER (ledger.Store interface)
// =============================================================================

// Append inserts a new ledger row.
func (s *Store) Append(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendTx(ctx, s.db, tx)
}

func (s *Store) appendTx(ctx context.Context, db execer, tx ledger.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, staff_name, service_name, location, duration_minutes, payment_method,
		 start_time, end_time, customer_contact, price, staff_fee, status,
		 corrected_from_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	// Times are stored as UTC RFC3339 so lexicographic order in SQL matches
	// chronological order. Mixed offsets would break the range filters.
	_, err := db.ExecContext(ctx, query,
		tx.ID,
		tx.StaffName,
		tx.ServiceName,
		tx.Location,
		tx.DurationMinutes,
		tx.PaymentMethod,
		tx.StartTime.UTC().Format(time.RFC3339),
		tx.EndTime.UTC().Format(time.RFC3339),
		nullString(tx.CustomerContact),
		tx.Price.String(),
		tx.StaffFee.String(),
		tx.Status,
		nullString(string(tx.CorrectedFromID)),
		tx.CreatedAt.UTC().Format(time.RFC3339),
	)

	if err != nil {
		if isCorrectedFromConflict(err) {
			// Someone already corrected the same original.
			return &ledger.ConflictError{ID: tx.CorrectedFromID, Status: ledger.StatusSuperseded}
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// UpdateStatus flips status for a row whose current status matches from.
func (s *Store) UpdateStatus(ctx context.Context, id ledger.TransactionID, from, to ledger.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateStatusTx(ctx, s.db, id, from, to)
}

func (s *Store) updateStatusTx(ctx context.Context, db execer, id ledger.TransactionID, from, to ledger.Status) error {
	res, err := db.ExecContext(ctx,
		"UPDATE transactions SET status = ? WHERE id = ? AND status = ?",
		to, id, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Nothing matched: distinguish unknown ID from a status conflict.
	var current ledger.Status
	err = db.QueryRowContext(ctx, "SELECT status FROM transactions WHERE id = ?", id).Scan(&current)
	if err == sql.ErrNoRows {
		return &ledger.NotFoundError{ID: id}
	}
	if err != nil {
		return err
	}
	return &ledger.ConflictError{ID: id, Status: current}
}

// Get returns a row by ID, or nil if absent.
func (s *Store) Get(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectTransactions + " WHERE id = ?"
	txs, err := s.queryTransactions(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return &txs[0], nil
}

// List returns rows matching the filter in creation (ID) order.
func (s *Store) List(ctx context.Context, f ledger.Filter) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		conds []string
		args  []any
	)
	if f.StaffName != "" {
		conds = append(conds, "staff_name = ?")
		args = append(args, f.StaffName)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if !f.From.IsZero() {
		conds = append(conds, "start_time >= ?")
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		conds = append(conds, "start_time <= ?")
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}

	query := selectTransactions
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id ASC"

	return s.queryTransactions(ctx, query, args...)
}

const selectTransactions = `
	SELECT id, staff_name, service_name, location, duration_minutes, payment_method,
	       start_time, end_time, customer_contact, price, staff_fee, status,
	       corrected_from_id, created_at
	FROM transactions`

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(rows *sql.Rows) (ledger.Transaction, error) {
	var (
		tx              ledger.Transaction
		startTime       string
		endTime         string
		customerContact sql.NullString
		price           string
		staffFee        string
		correctedFrom   sql.NullString
		createdAt       string
	)

	err := rows.Scan(
		&tx.ID, &tx.StaffName, &tx.ServiceName, &tx.Location, &tx.DurationMinutes,
		&tx.PaymentMethod, &startTime, &endTime, &customerContact,
		&price, &staffFee, &tx.Status, &correctedFrom, &createdAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if tx.StartTime, err = time.Parse(time.RFC3339, startTime); err != nil {
		return tx, fmt.Errorf("failed to parse start_time %q: %w", startTime, err)
	}
	if tx.EndTime, err = time.Parse(time.RFC3339, endTime); err != nil {
		return tx, fmt.Errorf("failed to parse end_time %q: %w", endTime, err)
	}
	tx.CustomerContact = customerContact.String
	tx.Price = mustDecimal(price)
	tx.StaffFee = mustDecimal(staffFee)
	tx.CorrectedFromID = ledger.TransactionID(correctedFrom.String)
	if tx.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return tx, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
	}

	return tx, nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore runs writes against the open SQL transaction. Reads of rows
// written earlier in the same transaction go through the tx as well.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) Append(ctx context.Context, tx ledger.Transaction) error {
	return ts.parent.appendTx(ctx, ts.tx, tx)
}

func (ts *txStore) UpdateStatus(ctx context.Context, id ledger.TransactionID, from, to ledger.Status) error {
	return ts.parent.updateStatusTx(ctx, ts.tx, id, from, to)
}

func (ts *txStore) Get(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	rows, err := ts.tx.QueryContext(ctx, selectTransactions+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	tx, err := scanTransaction(rows)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (ts *txStore) List(ctx context.Context, f ledger.Filter) ([]ledger.Transaction, error) {
	// Not needed inside the correction transaction; read committed state.
	return ts.parent.listUnlocked(ctx, f)
}

func (s *Store) listUnlocked(ctx context.Context, f ledger.Filter) ([]ledger.Transaction, error) {
	query := selectTransactions + " ORDER BY id ASC"
	txs, err := s.queryTransactions(ctx, query)
	if err != nil {
		return nil, err
	}
	var out []ledger.Transaction
	for _, tx := range txs {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// =============================================================================
// PAYMENT LOG (balance.PaymentLog interface)
// =============================================================================

// AppendPayment inserts a payout record. Append-only.
func (s *Store) AppendPayment(ctx context.Context, p balance.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payments (id, staff_name, amount, paid_at, method, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.StaffName,
		p.Amount.String(),
		p.PaidAt.UTC().Format(time.RFC3339),
		nullString(p.Method),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

// PaymentsByStaff returns all payouts for a staff member, oldest first.
func (s *Store) PaymentsByStaff(ctx context.Context, staffName string) ([]balance.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, staff_name, amount, paid_at, method
		 FROM payments WHERE staff_name = ? ORDER BY paid_at ASC`,
		staffName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []balance.PaymentRecord
	for rows.Next() {
		var (
			p      balance.PaymentRecord
			amount string
			paidAt string
			method sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.StaffName, &amount, &paidAt, &method); err != nil {
			return nil, err
		}
		p.Amount = mustDecimal(amount)
		if p.PaidAt, err = time.Parse(time.RFC3339, paidAt); err != nil {
			return nil, fmt.Errorf("failed to parse paid_at %q: %w", paidAt, err)
		}
		p.Method = method.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// PRICING RULES (pricing.RuleStore interface)
// =============================================================================

// SaveRule inserts or updates a rule; the key triple is the logical key.
func (s *Store) SaveRule(ctx context.Context, rule pricing.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO pricing_rules
		(id, location, service_name, duration_minutes, price, staff_fee, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(location, service_name, duration_minutes) DO UPDATE SET
			price = excluded.price,
			staff_fee = excluded.staff_fee,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		rule.ID, rule.Location, rule.ServiceName, rule.DurationMinutes,
		rule.Price.String(), rule.StaffFee.String(), now, now,
	)
	return err
}

// FindRule returns the rule for an exact key triple, or nil.
func (s *Store) FindRule(ctx context.Context, location, serviceName string, durationMinutes int) (*pricing.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		rule     pricing.Rule
		price    string
		staffFee string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, location, service_name, duration_minutes, price, staff_fee
		 FROM pricing_rules
		 WHERE location = ? AND service_name = ? AND duration_minutes = ?`,
		location, serviceName, durationMinutes,
	).Scan(&rule.ID, &rule.Location, &rule.ServiceName, &rule.DurationMinutes, &price, &staffFee)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rule.Price = mustDecimal(price)
	rule.StaffFee = mustDecimal(staffFee)
	return &rule, nil
}

// ListRules returns all rules ordered by key.
func (s *Store) ListRules(ctx context.Context) ([]pricing.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, location, service_name, duration_minutes, price, staff_fee
		 FROM pricing_rules
		 ORDER BY location, service_name, duration_minutes`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.Rule
	for rows.Next() {
		var (
			rule     pricing.Rule
			price    string
			staffFee string
		)
		if err := rows.Scan(&rule.ID, &rule.Location, &rule.ServiceName,
			&rule.DurationMinutes, &price, &staffFee); err != nil {
			return nil, err
		}
		rule.Price = mustDecimal(price)
		rule.StaffFee = mustDecimal(staffFee)
		out = append(out, rule)
	}
	return out, rows.Err()
}

// DeleteRule removes a rule by ID.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM pricing_rules WHERE id = ?", id)
	return err
}

// =============================================================================
// STAFF DIRECTORY
// =============================================================================

// Staff is one staff member in the directory.
type Staff struct {
	ID        string
	Name      string
	Phone     string
	Active    bool
	CreatedAt time.Time
}

// SaveStaff inserts or updates a staff member (name is the logical key).
func (s *Store) SaveStaff(ctx context.Context, st Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO staff (id, name, phone, active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			phone = excluded.phone,
			active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, query,
		st.ID, st.Name, nullString(st.Phone), st.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListStaff returns the directory ordered by name.
func (s *Store) ListStaff(ctx context.Context) ([]Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, phone, active, created_at FROM staff ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Staff
	for rows.Next() {
		var (
			st        Staff
			phone     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&st.ID, &st.Name, &phone, &st.Active, &createdAt); err != nil {
			return nil, err
		}
		st.Phone = phone.String
		st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, st)
	}
	return out, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (tests/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"transactions", "payments", "pricing_rules", "staff"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func mustDecimal(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SQLite reports the partial unique index violation as
// "UNIQUE constraint failed: transactions.corrected_from_id".
func isCorrectedFromConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "corrected_from_id")
}
