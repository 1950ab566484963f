/*
store.go - Persistence interface for ICL accounts and their transactions

PURPOSE:
  Defines the boundary between the loan service and the database. The engine
  never touches a Store; the service loads an account and its transactions,
  hands them to the engine, and persists only what the engine resolves
  (status, overdue days) or what closure appends.

KEY INTERFACES:
  Store:   Account CRUD, status updates, transaction append/list/delete
  TxStore: Store plus WithTx for atomic closure

ORDERING:
  Transactions returns rows in insertion order. The engine sorts by date
  with a stable sort, so insertion order breaks same-day ties.

IMPLEMENTATIONS:
  - loan/store/memory.go: In-memory for tests and the CLI
  - store/sqlite/sqlite.go: SQLite for the server

SEE ALSO:
  - service.go: The only caller
*/
package loan

import (
	"context"
	"errors"
	"time"

	"github.com/warp/icl-engine/engine"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// IsNotFound returns true if the error is a missing account or transaction.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrTransactionNotFound)
}

// =============================================================================
// RECORDS
// =============================================================================

// TransactionRecord is a stored transaction with its owning account.
type TransactionRecord struct {
	engine.Transaction
	AccountID string
	CreatedAt time.Time
}

// StatusUpdate is the derived state the service writes back.
type StatusUpdate struct {
	Status      engine.Status
	OverdueDays int
	ClosureDate *engine.Date
}

// =============================================================================
// STORE
// =============================================================================

// Store persists accounts and transactions.
type Store interface {
	// SaveAccount inserts or replaces an account's settings.
	SaveAccount(ctx context.Context, a engine.Account) error

	// GetAccount returns ErrAccountNotFound for unknown IDs.
	GetAccount(ctx context.Context, id string) (engine.Account, error)

	// ListAccounts returns all accounts ordered by name.
	ListAccounts(ctx context.Context) ([]engine.Account, error)

	// DeleteAccount removes an account and all its transactions.
	DeleteAccount(ctx context.Context, id string) error

	// UpdateStatus writes derived state only; settings are untouched.
	UpdateStatus(ctx context.Context, id string, u StatusUpdate) error

	// AppendTransaction stores tx under accountID. tx.ID must be set.
	AppendTransaction(ctx context.Context, accountID string, tx engine.Transaction) error

	// Transactions returns an account's transactions in insertion order.
	Transactions(ctx context.Context, accountID string) ([]engine.Transaction, error)

	// GetTransaction returns ErrTransactionNotFound for unknown IDs.
	GetTransaction(ctx context.Context, id string) (TransactionRecord, error)

	// RecentTransactions returns the newest limit transactions across accounts.
	RecentTransactions(ctx context.Context, limit int) ([]TransactionRecord, error)

	// DeleteTransaction removes one transaction.
	DeleteTransaction(ctx context.Context, id string) error

	// DeleteTransactions removes every transaction of an account and
	// returns how many were removed.
	DeleteTransactions(ctx context.Context, accountID string) (int, error)
}

// Pinger is implemented by stores backed by a database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
