/*
Package sqlite provides a SQLite-backed implementation of loan.TxStore.

PURPOSE:
  Persists ICL accounts and their transactions. The same schema works on
  PostgreSQL with minor dialect changes.

KEY TABLES:
  accounts:     Loan settings plus derived status/overdue/closure
  transactions: Dated cash flows, cascade-deleted with their account

EXACT DECIMALS:
  Rates and amounts are stored as TEXT and parsed back with
  shopspring/decimal. Never REAL: binary floats would break the
  engine's exact-decimal guarantees.

ORDERING:
  transactions.seq is an autoincrement insertion sequence. Transactions()
  returns rows ordered by seq, which the engine's stable date sort uses to
  break same-day ties.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and a single connection so
  ":memory:" databases are shared across calls. WithTx holds the write
  lock for its whole callback.

WAL MODE:
  Opened with WAL (Write-Ahead Logging) and foreign keys on.

USAGE:
  store, err := sqlite.New("./icl.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := loan.NewService(store, engine.New(), logger, metrics)

SEE ALSO:
  - loan/store.go: Interface definitions
  - loan/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/icl-engine/engine"
	"github.com/warp/icl-engine/loan"
)

// Store implements loan.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ loan.TxStore = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

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

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		end_date TEXT,
		annual_rate TEXT NOT NULL,
		tds_rate TEXT NOT NULL,
		penalty_rate TEXT NOT NULL,
		interest_type TEXT NOT NULL,
		frequency TEXT NOT NULL,
		repayment_convention TEXT NOT NULL,
		grace_period_days INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		overdue_days INTEGER NOT NULL DEFAULT 0,
		closure_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_name
		ON accounts(name);
	CREATE INDEX IF NOT EXISTS idx_accounts_status
		ON accounts(status);

	-- seq preserves insertion order for same-day ties
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		paid TEXT NOT NULL DEFAULT '0',
		received TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account_seq
		ON transactions(account_id, seq);
	CREATE INDEX IF NOT EXISTS idx_transactions_account_date
		ON transactions(account_id, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ACCOUNT STORE
// =============================================================================

const accountColumns = `id, name, address, start_date, end_date, annual_rate, tds_rate, penalty_rate,
	interest_type, frequency, repayment_convention, grace_period_days, status, overdue_days, closure_date`

// SaveAccount inserts or replaces an account.
func (s *Store) SaveAccount(ctx context.Context, a engine.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAccount(ctx, s.db, a)
}

func saveAccount(ctx context.Context, db querier, a engine.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			annual_rate = excluded.annual_rate,
			tds_rate = excluded.tds_rate,
			penalty_rate = excluded.penalty_rate,
			interest_type = excluded.interest_type,
			frequency = excluded.frequency,
			repayment_convention = excluded.repayment_convention,
			grace_period_days = excluded.grace_period_days,
			status = excluded.status,
			overdue_days = excluded.overdue_days,
			closure_date = excluded.closure_date,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx, query,
		a.ID, a.Name, a.Address,
		a.StartDate.String(), nullDate(a.EndDate),
		a.AnnualRate.String(), a.TDSRate.String(), a.PenaltyRate.String(),
		string(a.InterestType), string(a.Frequency), string(a.RepaymentConvention),
		a.GracePeriodDays, string(a.Status), a.OverdueDays, nullDate(a.ClosureDate),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (s *Store) GetAccount(ctx context.Context, id string) (engine.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccount(ctx, s.db, id)
}

func getAccount(ctx context.Context, db querier, id string) (engine.Account, error) {
	row := db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Account{}, loan.ErrAccountNotFound
	}
	return a, err
}

// ListAccounts returns all accounts ordered by name.
func (s *Store) ListAccounts(ctx context.Context) ([]engine.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAccounts(ctx, s.db)
}

func listAccounts(ctx context.Context, db querier) ([]engine.Account, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []engine.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes an account; its transactions cascade.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteAccount(ctx, s.db, id)
}

func deleteAccount(ctx context.Context, db querier, id string) error {
	res, err := db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return requireAffected(res, loan.ErrAccountNotFound)
}

// UpdateStatus writes derived status fields only.
func (s *Store) UpdateStatus(ctx context.Context, id string, u loan.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateStatus(ctx, s.db, id, u)
}

func updateStatus(ctx context.Context, db querier, id string, u loan.StatusUpdate) error {
	res, err := db.ExecContext(ctx, `
		UPDATE accounts
		SET status = ?, overdue_days = ?, closure_date = ?, updated_at = ?
		WHERE id = ?`,
		string(u.Status), u.OverdueDays, nullDate(u.ClosureDate),
		time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return requireAffected(res, loan.ErrAccountNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (engine.Account, error) {
	var (
		a                            engine.Account
		startDate                    string
		endDate, closureDate         sql.NullString
		annualRate, tdsRate, penalty string
		interestType, frequency      string
		convention, status           string
	)

	err := row.Scan(
		&a.ID, &a.Name, &a.Address, &startDate, &endDate,
		&annualRate, &tdsRate, &penalty,
		&interestType, &frequency, &convention,
		&a.GracePeriodDays, &status, &a.OverdueDays, &closureDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("failed to scan account: %w", err)
	}

	if a.StartDate, err = engine.ParseDate(startDate); err != nil {
		return a, fmt.Errorf("account %s start_date: %w", a.ID, err)
	}
	if a.EndDate, err = parseNullDate(endDate); err != nil {
		return a, fmt.Errorf("account %s end_date: %w", a.ID, err)
	}
	if a.ClosureDate, err = parseNullDate(closureDate); err != nil {
		return a, fmt.Errorf("account %s closure_date: %w", a.ID, err)
	}
	if a.AnnualRate, err = decimal.NewFromString(annualRate); err != nil {
		return a, fmt.Errorf("account %s annual_rate: %w", a.ID, err)
	}
	if a.TDSRate, err = decimal.NewFromString(tdsRate); err != nil {
		return a, fmt.Errorf("account %s tds_rate: %w", a.ID, err)
	}
	if a.PenaltyRate, err = decimal.NewFromString(penalty); err != nil {
		return a, fmt.Errorf("account %s penalty_rate: %w", a.ID, err)
	}

	a.InterestType = engine.InterestType(interestType)
	a.Frequency = engine.Frequency(frequency)
	a.RepaymentConvention = engine.RepaymentConvention(convention)
	a.Status = engine.Status(status)
	return a, nil
}

// =============================================================================
// TRANSACTION STORE
// =============================================================================

const transactionColumns = `id, account_id, date, description, paid, received, created_at`

// AppendTransaction adds a transaction to an account.
func (s *Store) AppendTransaction(ctx context.Context, accountID string, tx engine.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTransaction(ctx, s.db, accountID, tx)
}

func appendTransaction(ctx context.Context, db querier, accountID string, tx engine.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		tx.ID,
		accountID,
		tx.Date.String(),
		tx.Description,
		tx.Paid.String(),
		tx.Received.String(),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return loan.ErrAccountNotFound
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// Transactions returns an account's transactions in insertion order.
func (s *Store) Transactions(ctx context.Context, accountID string) ([]engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactions(ctx, s.db, accountID)
}

func transactions(ctx context.Context, db querier, accountID string) ([]engine.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = ?
		ORDER BY seq ASC
	`

	recs, err := queryTransactions(ctx, db, query, accountID)
	if err != nil {
		return nil, err
	}
	txs := make([]engine.Transaction, len(recs))
	for i, r := range recs {
		txs[i] = r.Transaction
	}
	return txs, nil
}

// GetTransaction returns a specific transaction by ID.
func (s *Store) GetTransaction(ctx context.Context, id string) (loan.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTransaction(ctx, s.db, id)
}

func getTransaction(ctx context.Context, db querier, id string) (loan.TransactionRecord, error) {
	recs, err := queryTransactions(ctx, db, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	if err != nil {
		return loan.TransactionRecord{}, err
	}
	if len(recs) == 0 {
		return loan.TransactionRecord{}, loan.ErrTransactionNotFound
	}
	return recs[0], nil
}

// RecentTransactions returns the newest transactions across all accounts.
func (s *Store) RecentTransactions(ctx context.Context, limit int) ([]loan.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return recentTransactions(ctx, s.db, limit)
}

func recentTransactions(ctx context.Context, db querier, limit int) ([]loan.TransactionRecord, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		ORDER BY seq DESC
		LIMIT ?
	`
	return queryTransactions(ctx, db, query, limit)
}

// DeleteTransaction removes one transaction.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteTransaction(ctx, s.db, id)
}

func deleteTransaction(ctx context.Context, db querier, id string) error {
	res, err := db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return requireAffected(res, loan.ErrTransactionNotFound)
}

// DeleteTransactions removes every transaction of an account.
func (s *Store) DeleteTransactions(ctx context.Context, accountID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteTransactions(ctx, s.db, accountID)
}

func deleteTransactions(ctx context.Context, db querier, accountID string) (int, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM transactions WHERE account_id = ?", accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func queryTransactions(ctx context.Context, db querier, query string, args ...any) ([]loan.TransactionRecord, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var recs []loan.TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanTransaction(row scanner) (loan.TransactionRecord, error) {
	var (
		rec                  loan.TransactionRecord
		date, paid, received string
		createdAt            string
	)

	err := row.Scan(&rec.ID, &rec.AccountID, &date, &rec.Description, &paid, &received, &createdAt)
	if err != nil {
		return rec, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if rec.Date, err = engine.ParseDate(date); err != nil {
		return rec, fmt.Errorf("transaction %s date: %w", rec.ID, err)
	}
	if rec.Paid, err = decimal.NewFromString(paid); err != nil {
		return rec, fmt.Errorf("transaction %s paid: %w", rec.ID, err)
	}
	if rec.Received, err = decimal.NewFromString(received); err != nil {
		return rec, fmt.Errorf("transaction %s received: %w", rec.ID, err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return rec, fmt.Errorf("transaction %s created_at: %w", rec.ID, err)
	}
	return rec, nil
}

// =============================================================================
// TRANSACTIONAL STORE (loan.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store loan.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore runs every operation on the open sql.Tx. WithTx already holds
// the parent's lock.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveAccount(ctx context.Context, a engine.Account) error {
	return saveAccount(ctx, ts.tx, a)
}

func (ts *txStore) GetAccount(ctx context.Context, id string) (engine.Account, error) {
	return getAccount(ctx, ts.tx, id)
}

func (ts *txStore) ListAccounts(ctx context.Context) ([]engine.Account, error) {
	return listAccounts(ctx, ts.tx)
}

func (ts *txStore) DeleteAccount(ctx context.Context, id string) error {
	return deleteAccount(ctx, ts.tx, id)
}

func (ts *txStore) UpdateStatus(ctx context.Context, id string, u loan.StatusUpdate) error {
	return updateStatus(ctx, ts.tx, id, u)
}

func (ts *txStore) AppendTransaction(ctx context.Context, accountID string, tx engine.Transaction) error {
	return appendTransaction(ctx, ts.tx, accountID, tx)
}

func (ts *txStore) Transactions(ctx context.Context, accountID string) ([]engine.Transaction, error) {
	return transactions(ctx, ts.tx, accountID)
}

func (ts *txStore) GetTransaction(ctx context.Context, id string) (loan.TransactionRecord, error) {
	return getTransaction(ctx, ts.tx, id)
}

func (ts *txStore) RecentTransactions(ctx context.Context, limit int) ([]loan.TransactionRecord, error) {
	return recentTransactions(ctx, ts.tx, limit)
}

func (ts *txStore) DeleteTransaction(ctx context.Context, id string) error {
	return deleteTransaction(ctx, ts.tx, id)
}

func (ts *txStore) DeleteTransactions(ctx context.Context, accountID string) (int, error) {
	return deleteTransactions(ctx, ts.tx, accountID)
}

// =============================================================================
// UTILITIES
// =============================================================================

func nullDate(d *engine.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) (*engine.Date, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := engine.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
