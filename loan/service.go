/*
Package loan is the application layer around the ICL engine.

PURPOSE:
  Owns everything the engine deliberately does not: loading accounts and
  transactions, boundary validation, ID assignment, persisting resolved
  status, and the loan-closure command.

STATUS:
  The engine resolves status on every Timeline build. The service compares
  it with the stored status and writes it back only when it changed.
  RefreshStatuses does the same for the whole portfolio in parallel.

CLOSURE:
  CloseLoan runs inside WithTx: compute settlement, append the final
  settlement transaction, mark the account closed. Any failure rolls back
  all three.

SEE ALSO:
  - store.go: Persistence interface
  - engine/: The calculation core
*/
package loan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/icl-engine/engine"
	"github.com/warp/icl-engine/observability"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultRefreshConcurrency bounds RefreshStatuses when none is configured.
const DefaultRefreshConcurrency = 8

// Service implements the ICL account operations.
type Service struct {
	Store   TxStore
	Engine  *engine.Engine
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// RefreshConcurrency bounds parallel status writes.
	RefreshConcurrency int

	// NewID generates account and transaction IDs.
	NewID func() string
}

// NewService wires a service with uuid IDs. logger and metrics may be nil.
func NewService(store TxStore, eng *engine.Engine, logger *zap.Logger, metrics *observability.Metrics) *Service {
	if eng == nil {
		eng = engine.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Store:              store,
		Engine:             eng,
		Logger:             logger,
		Metrics:            metrics,
		RefreshConcurrency: DefaultRefreshConcurrency,
		NewID:              uuid.NewString,
	}
}

// ClosureResult is what CloseLoan committed.
type ClosureResult struct {
	Account     engine.Account
	Settlement  engine.SettlementResult
	Transaction engine.Transaction
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// CreateAccount validates settings, assigns an ID when missing and stores
// the account as active.
func (s *Service) CreateAccount(ctx context.Context, a engine.Account) (engine.Account, error) {
	if err := engine.ValidateAccount(a); err != nil {
		return engine.Account{}, err
	}
	if a.ID == "" {
		a.ID = s.NewID()
	}
	a.Status = engine.StatusActive
	a.ClosureDate = nil
	a.Status, a.OverdueDays = engine.ResolveStatus(a, s.Engine.Today())

	if err := s.Store.SaveAccount(ctx, a); err != nil {
		return engine.Account{}, fmt.Errorf("save account: %w", err)
	}
	s.Logger.Info("account created",
		zap.String("account_id", a.ID),
		zap.String("name", a.Name),
		zap.String("strategy", string(a.InterestType)+"/"+string(a.Frequency)),
	)
	return a, nil
}

// UpdateAccount replaces an account's settings. Derived state is kept and
// re-resolved. Closed accounts are frozen; an end date may not move before
// an existing transaction.
func (s *Service) UpdateAccount(ctx context.Context, id string, a engine.Account) (engine.Account, error) {
	existing, err := s.Store.GetAccount(ctx, id)
	if err != nil {
		return engine.Account{}, err
	}
	if existing.IsClosed() {
		return engine.Account{}, engine.ErrAccountClosed
	}
	if err := engine.ValidateAccount(a); err != nil {
		return engine.Account{}, err
	}

	txs, err := s.Store.Transactions(ctx, id)
	if err != nil {
		return engine.Account{}, fmt.Errorf("load transactions: %w", err)
	}
	a.ID = id
	for _, tx := range txs {
		if err := engine.ValidateTransaction(a, tx); err != nil {
			return engine.Account{}, err
		}
	}

	a.Status = engine.StatusActive
	a.ClosureDate = nil
	a.Status, a.OverdueDays = engine.ResolveStatus(a, s.Engine.Today())
	if err := s.Store.SaveAccount(ctx, a); err != nil {
		return engine.Account{}, fmt.Errorf("save account: %w", err)
	}
	s.Logger.Info("account updated", zap.String("account_id", id))
	return a, nil
}

func (s *Service) GetAccount(ctx context.Context, id string) (engine.Account, error) {
	return s.Store.GetAccount(ctx, id)
}

func (s *Service) ListAccounts(ctx context.Context) ([]engine.Account, error) {
	return s.Store.ListAccounts(ctx)
}

// DeleteAccount removes an account and its transactions.
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	if err := s.Store.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.Logger.Info("account deleted", zap.String("account_id", id))
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// AddTransaction validates and stores a transaction. Dates after the end
// date and writes to closed accounts are rejected.
func (s *Service) AddTransaction(ctx context.Context, accountID string, tx engine.Transaction) (engine.Transaction, error) {
	a, err := s.Store.GetAccount(ctx, accountID)
	if err != nil {
		return engine.Transaction{}, err
	}
	if a.IsClosed() {
		return engine.Transaction{}, engine.ErrAccountClosed
	}
	if err := engine.ValidateTransaction(a, tx); err != nil {
		return engine.Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = s.NewID()
	}
	if err := s.Store.AppendTransaction(ctx, accountID, tx); err != nil {
		return engine.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	s.Logger.Debug("transaction added",
		zap.String("account_id", accountID),
		zap.String("transaction_id", tx.ID),
		zap.String("date", tx.Date.String()),
		zap.String("paid", tx.Paid.String()),
		zap.String("received", tx.Received.String()),
	)
	return tx, nil
}

// Transactions lists an account's transactions in insertion order.
func (s *Service) Transactions(ctx context.Context, accountID string) ([]engine.Transaction, error) {
	if _, err := s.Store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.Store.Transactions(ctx, accountID)
}

// DeleteTransaction removes one transaction from an open account.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	rec, err := s.Store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	a, err := s.Store.GetAccount(ctx, rec.AccountID)
	if err != nil {
		return err
	}
	if a.IsClosed() {
		return engine.ErrAccountClosed
	}
	return s.Store.DeleteTransaction(ctx, id)
}

// DeleteAllTransactions clears an open account's history.
func (s *Service) DeleteAllTransactions(ctx context.Context, accountID string) (int, error) {
	a, err := s.Store.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if a.IsClosed() {
		return 0, engine.ErrAccountClosed
	}
	n, err := s.Store.DeleteTransactions(ctx, accountID)
	if err != nil {
		return 0, err
	}
	s.Logger.Info("transactions cleared", zap.String("account_id", accountID), zap.Int("count", n))
	return n, nil
}

// RecentTransactions returns the newest transactions across all accounts.
func (s *Service) RecentTransactions(ctx context.Context, limit int) ([]TransactionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.Store.RecentTransactions(ctx, limit)
}

// Ping checks the store connection. Stores without one are always healthy.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.Store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// =============================================================================
// CALCULATIONS
// =============================================================================

// Timeline builds the ledger for an account and persists the resolved
// status if it changed. The returned account carries the new status.
func (s *Service) Timeline(ctx context.Context, id string) (engine.Account, engine.Timeline, error) {
	a, txs, err := s.load(ctx, s.Store, id)
	if err != nil {
		return engine.Account{}, engine.Timeline{}, err
	}

	start := time.Now()
	tl, err := s.Engine.Build(a, txs)
	s.Metrics.ObserveCalculation("timeline", time.Since(start))
	if err != nil {
		s.Metrics.IncrError("timeline")
		return engine.Account{}, engine.Timeline{}, fmt.Errorf("build timeline: %w", err)
	}
	s.Metrics.ObserveTimeline(len(tl.Entries))

	a, err = s.syncStatus(ctx, s.Store, a, tl.Status, tl.OverdueDays)
	if err != nil {
		return engine.Account{}, engine.Timeline{}, err
	}
	return a, tl, nil
}

// BalanceAt reports the account position on target.
func (s *Service) BalanceAt(ctx context.Context, id string, target engine.Date) (engine.BalanceResult, error) {
	a, txs, err := s.load(ctx, s.Store, id)
	if err != nil {
		return engine.BalanceResult{}, err
	}
	if err := engine.ValidateQueryDate(a, target); err != nil {
		return engine.BalanceResult{}, err
	}

	start := time.Now()
	res, err := s.Engine.BalanceAt(a, txs, target)
	s.Metrics.ObserveCalculation("balance", time.Since(start))
	if err != nil {
		s.Metrics.IncrError("balance")
		return engine.BalanceResult{}, fmt.Errorf("balance at %s: %w", target, err)
	}
	return res, nil
}

// Settlement quotes the amount needed to close an open loan on closure.
func (s *Service) Settlement(ctx context.Context, id string, closure engine.Date) (engine.SettlementResult, error) {
	a, txs, err := s.load(ctx, s.Store, id)
	if err != nil {
		return engine.SettlementResult{}, err
	}
	return s.settle(a, txs, closure)
}

func (s *Service) settle(a engine.Account, txs []engine.Transaction, closure engine.Date) (engine.SettlementResult, error) {
	if a.IsClosed() {
		return engine.SettlementResult{}, engine.ErrAccountClosed
	}
	if err := engine.ValidateClosureDate(a, txs, closure); err != nil {
		return engine.SettlementResult{}, err
	}

	start := time.Now()
	res, err := s.Engine.Settlement(a, txs, closure)
	s.Metrics.ObserveCalculation("settlement", time.Since(start))
	if err != nil {
		s.Metrics.IncrError("settlement")
		return engine.SettlementResult{}, fmt.Errorf("settlement at %s: %w", closure, err)
	}
	return res, nil
}

// CloseLoan settles the loan on closure atomically: the final settlement
// transaction is appended and the account frozen as closed.
func (s *Service) CloseLoan(ctx context.Context, id string, closure engine.Date) (ClosureResult, error) {
	var result ClosureResult

	err := s.Store.WithTx(ctx, func(store Store) error {
		a, txs, err := s.load(ctx, store, id)
		if err != nil {
			return err
		}
		res, err := s.settle(a, txs, closure)
		if err != nil {
			return err
		}

		tx := res.ClosureTransaction()
		tx.ID = s.NewID()
		if err := store.AppendTransaction(ctx, id, tx); err != nil {
			return fmt.Errorf("append closure transaction: %w", err)
		}

		closed := closure
		update := StatusUpdate{Status: engine.StatusClosed, OverdueDays: 0, ClosureDate: &closed}
		if err := store.UpdateStatus(ctx, id, update); err != nil {
			return fmt.Errorf("mark closed: %w", err)
		}

		a.Status, a.OverdueDays, a.ClosureDate = update.Status, update.OverdueDays, update.ClosureDate
		result = ClosureResult{Account: a, Settlement: res, Transaction: tx}
		return nil
	})
	if err != nil {
		if !engine.IsClientError(err) && !IsNotFound(err) {
			s.Metrics.IncrError("close")
		}
		return ClosureResult{}, err
	}

	s.Metrics.IncrClosure()
	s.Logger.Info("loan closed",
		zap.String("account_id", id),
		zap.String("closure_date", closure.String()),
		zap.String("total_settlement", result.Settlement.TotalSettlement.StringFixed(2)),
		zap.Int("additional_days", result.Settlement.AdditionalDays),
	)
	return result, nil
}

// =============================================================================
// STATUS
// =============================================================================

// RefreshStatuses resolves and persists status for every account in
// parallel and returns the portfolio count per status.
func (s *Service) RefreshStatuses(ctx context.Context) (map[engine.Status]int, error) {
	accounts, err := s.Store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	today := s.Engine.Today()
	limit := s.RefreshConcurrency
	if limit < 1 {
		limit = DefaultRefreshConcurrency
	}

	var (
		mu     sync.Mutex
		counts = make(map[engine.Status]int)
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, a := range accounts {
		a := a
		g.Go(func() error {
			status, overdue := engine.ResolveStatus(a, today)
			if _, err := s.syncStatus(gCtx, s.Store, a, status, overdue); err != nil {
				return fmt.Errorf("account %s: %w", a.ID, err)
			}
			mu.Lock()
			counts[status]++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.Metrics.IncrError("status_refresh")
		return nil, err
	}

	gauge := make(map[string]int, len(counts))
	for status, n := range counts {
		gauge[string(status)] = n
	}
	s.Metrics.SetAccountsByStatus(gauge)
	return counts, nil
}

// syncStatus writes status back when it differs from what is stored.
func (s *Service) syncStatus(ctx context.Context, store Store, a engine.Account, status engine.Status, overdue int) (engine.Account, error) {
	if a.Status == status && a.OverdueDays == overdue {
		return a, nil
	}
	update := StatusUpdate{Status: status, OverdueDays: overdue, ClosureDate: a.ClosureDate}
	if err := store.UpdateStatus(ctx, a.ID, update); err != nil {
		return a, fmt.Errorf("update status: %w", err)
	}
	if a.Status != status {
		s.Logger.Info("account status changed",
			zap.String("account_id", a.ID),
			zap.String("from", string(a.Status)),
			zap.String("to", string(status)),
			zap.Int("overdue_days", overdue),
		)
	}
	a.Status, a.OverdueDays = status, overdue
	return a, nil
}

func (s *Service) load(ctx context.Context, store Store, id string) (engine.Account, []engine.Transaction, error) {
	a, err := store.GetAccount(ctx, id)
	if err != nil {
		return engine.Account{}, nil, err
	}
	txs, err := store.Transactions(ctx, id)
	if err != nil {
		return engine.Account{}, nil, fmt.Errorf("load transactions: %w", err)
	}
	return a, txs, nil
}
