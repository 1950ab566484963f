// Package store provides in-memory loan.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/icl-engine/engine"
	"github.com/warp/icl-engine/loan"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/CLI)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	accounts map[string]engine.Account
	txs      map[string][]storedTx // by account ID
	owner    map[string]string     // transaction ID -> account ID
	seq      uint64
}

type storedTx struct {
	rec loan.TransactionRecord
	seq uint64
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]engine.Account),
		txs:      make(map[string][]storedTx),
		owner:    make(map[string]string),
	}
}

func (m *Memory) SaveAccount(_ context.Context, a engine.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveAccountLocked(a)
	return nil
}

func (m *Memory) saveAccountLocked(a engine.Account) {
	m.accounts[a.ID] = a
}

func (m *Memory) GetAccount(_ context.Context, id string) (engine.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAccountLocked(id)
}

func (m *Memory) getAccountLocked(id string) (engine.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return engine.Account{}, loan.ErrAccountNotFound
	}
	return a, nil
}

func (m *Memory) ListAccounts(_ context.Context) ([]engine.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAccountsLocked(), nil
}

func (m *Memory) listAccountsLocked() []engine.Account {
	out := make([]engine.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) DeleteAccount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteAccountLocked(id)
}

func (m *Memory) deleteAccountLocked(id string) error {
	if _, ok := m.accounts[id]; !ok {
		return loan.ErrAccountNotFound
	}
	m.deleteTransactionsLocked(id)
	delete(m.accounts, id)
	delete(m.txs, id)
	return nil
}

func (m *Memory) UpdateStatus(_ context.Context, id string, u loan.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateStatusLocked(id, u)
}

func (m *Memory) updateStatusLocked(id string, u loan.StatusUpdate) error {
	a, ok := m.accounts[id]
	if !ok {
		return loan.ErrAccountNotFound
	}
	a.Status = u.Status
	a.OverdueDays = u.OverdueDays
	a.ClosureDate = u.ClosureDate
	m.accounts[id] = a
	return nil
}

func (m *Memory) AppendTransaction(_ context.Context, accountID string, tx engine.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(accountID, tx)
}

func (m *Memory) appendLocked(accountID string, tx engine.Transaction) error {
	if _, ok := m.accounts[accountID]; !ok {
		return loan.ErrAccountNotFound
	}
	m.seq++
	rec := loan.TransactionRecord{Transaction: tx, AccountID: accountID, CreatedAt: time.Now().UTC()}
	m.txs[accountID] = append(m.txs[accountID], storedTx{rec: rec, seq: m.seq})
	m.owner[tx.ID] = accountID
	return nil
}

func (m *Memory) Transactions(_ context.Context, accountID string) ([]engine.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactionsLocked(accountID), nil
}

func (m *Memory) transactionsLocked(accountID string) []engine.Transaction {
	stored := m.txs[accountID]
	out := make([]engine.Transaction, len(stored))
	for i, s := range stored {
		out[i] = s.rec.Transaction
	}
	return out
}

func (m *Memory) GetTransaction(_ context.Context, id string) (loan.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getTransactionLocked(id)
}

func (m *Memory) getTransactionLocked(id string) (loan.TransactionRecord, error) {
	accountID, ok := m.owner[id]
	if !ok {
		return loan.TransactionRecord{}, loan.ErrTransactionNotFound
	}
	for _, s := range m.txs[accountID] {
		if s.rec.ID == id {
			return s.rec, nil
		}
	}
	return loan.TransactionRecord{}, loan.ErrTransactionNotFound
}

func (m *Memory) RecentTransactions(_ context.Context, limit int) ([]loan.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.recentLocked(limit), nil
}

func (m *Memory) recentLocked(limit int) []loan.TransactionRecord {
	var all []storedTx
	for _, stored := range m.txs {
		all = append(all, stored...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq > all[j].seq })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	out := make([]loan.TransactionRecord, len(all))
	for i, s := range all {
		out[i] = s.rec
	}
	return out
}

func (m *Memory) DeleteTransaction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteTransactionLocked(id)
}

func (m *Memory) deleteTransactionLocked(id string) error {
	accountID, ok := m.owner[id]
	if !ok {
		return loan.ErrTransactionNotFound
	}
	stored := m.txs[accountID]
	for i, s := range stored {
		if s.rec.ID == id {
			m.txs[accountID] = append(stored[:i:i], stored[i+1:]...)
			delete(m.owner, id)
			return nil
		}
	}
	return loan.ErrTransactionNotFound
}

func (m *Memory) DeleteTransactions(_ context.Context, accountID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteTransactionsLocked(accountID), nil
}

func (m *Memory) deleteTransactionsLocked(accountID string) int {
	stored := m.txs[accountID]
	for _, s := range stored {
		delete(m.owner, s.rec.ID)
	}
	delete(m.txs, accountID)
	return len(stored)
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// Simulated with a snapshot plus rollback on error. The store is locked for
// the whole of fn, so fn must only use the Store it is given.
func (tm *TxMemory) WithTx(_ context.Context, fn func(loan.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm.Memory}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts map[string]engine.Account
	txs      map[string][]storedTx
	owner    map[string]string
	seq      uint64
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		accounts: make(map[string]engine.Account, len(tm.accounts)),
		txs:      make(map[string][]storedTx, len(tm.txs)),
		owner:    make(map[string]string, len(tm.owner)),
		seq:      tm.seq,
	}
	for k, v := range tm.accounts {
		s.accounts[k] = v
	}
	for k, v := range tm.txs {
		s.txs[k] = append([]storedTx{}, v...)
	}
	for k, v := range tm.owner {
		s.owner[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.accounts = s.accounts
	tm.txs = s.txs
	tm.owner = s.owner
	tm.seq = s.seq
}

// txMemoryView is the Store handed to WithTx callbacks: the parent's
// unlocked operations, run under the lock WithTx already holds.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) SaveAccount(_ context.Context, a engine.Account) error {
	tv.parent.saveAccountLocked(a)
	return nil
}

func (tv *txMemoryView) GetAccount(_ context.Context, id string) (engine.Account, error) {
	return tv.parent.getAccountLocked(id)
}

func (tv *txMemoryView) ListAccounts(_ context.Context) ([]engine.Account, error) {
	return tv.parent.listAccountsLocked(), nil
}

func (tv *txMemoryView) DeleteAccount(_ context.Context, id string) error {
	return tv.parent.deleteAccountLocked(id)
}

func (tv *txMemoryView) UpdateStatus(_ context.Context, id string, u loan.StatusUpdate) error {
	return tv.parent.updateStatusLocked(id, u)
}

func (tv *txMemoryView) AppendTransaction(_ context.Context, accountID string, tx engine.Transaction) error {
	return tv.parent.appendLocked(accountID, tx)
}

func (tv *txMemoryView) Transactions(_ context.Context, accountID string) ([]engine.Transaction, error) {
	return tv.parent.transactionsLocked(accountID), nil
}

func (tv *txMemoryView) GetTransaction(_ context.Context, id string) (loan.TransactionRecord, error) {
	return tv.parent.getTransactionLocked(id)
}

func (tv *txMemoryView) RecentTransactions(_ context.Context, limit int) ([]loan.TransactionRecord, error) {
	return tv.parent.recentLocked(limit), nil
}

func (tv *txMemoryView) DeleteTransaction(_ context.Context, id string) error {
	return tv.parent.deleteTransactionLocked(id)
}

func (tv *txMemoryView) DeleteTransactions(_ context.Context, accountID string) (int, error) {
	return tv.parent.deleteTransactionsLocked(accountID), nil
}
