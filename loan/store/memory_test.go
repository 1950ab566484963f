package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/icl-engine/engine"
	"github.com/warp/icl-engine/loan"
	"github.com/warp/icl-engine/loan/store"
)

func account(id, name string) engine.Account {
	return engine.Account{
		ID:                  id,
		Name:                name,
		StartDate:           engine.MustParseDate("2023-01-01"),
		AnnualRate:          decimal.NewFromInt(12),
		TDSRate:             decimal.NewFromInt(10),
		PenaltyRate:         decimal.NewFromInt(2),
		InterestType:        engine.InterestCompound,
		Frequency:           engine.FrequencyQuarterly,
		RepaymentConvention: engine.ConventionExclusive,
		Status:              engine.StatusActive,
	}
}

func tx(id, date string) engine.Transaction {
	return engine.Transaction{ID: id, Date: engine.MustParseDate(date), Paid: decimal.NewFromInt(100)}
}

func TestMemory_AccountsAndTransactions(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.SaveAccount(ctx, account("a2", "Zen")))
	require.NoError(t, m.SaveAccount(ctx, account("a1", "Acme")))

	all, err := m.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Acme", all[0].Name)

	require.NoError(t, m.AppendTransaction(ctx, "a1", tx("t1", "2023-03-01")))
	require.NoError(t, m.AppendTransaction(ctx, "a1", tx("t2", "2023-01-01")))
	require.NoError(t, m.AppendTransaction(ctx, "a2", tx("t3", "2023-02-01")))

	txs, err := m.Transactions(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "t1", txs[0].ID, "insertion order")

	rec, err := m.GetTransaction(ctx, "t3")
	require.NoError(t, err)
	assert.Equal(t, "a2", rec.AccountID)

	recent, err := m.RecentTransactions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "t3", recent[0].ID)
	assert.Equal(t, "t2", recent[1].ID)
}

func TestMemory_Deletes(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveAccount(ctx, account("a1", "Acme")))
	require.NoError(t, m.AppendTransaction(ctx, "a1", tx("t1", "2023-01-01")))
	require.NoError(t, m.AppendTransaction(ctx, "a1", tx("t2", "2023-01-02")))
	require.NoError(t, m.AppendTransaction(ctx, "a1", tx("t3", "2023-01-03")))

	require.NoError(t, m.DeleteTransaction(ctx, "t2"))
	assert.ErrorIs(t, m.DeleteTransaction(ctx, "t2"), loan.ErrTransactionNotFound)

	txs, _ := m.Transactions(ctx, "a1")
	require.Len(t, txs, 2)
	assert.Equal(t, "t3", txs[1].ID)

	n, err := m.DeleteTransactions(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, m.DeleteAccount(ctx, "a1"))
	_, err = m.GetAccount(ctx, "a1")
	assert.ErrorIs(t, err, loan.ErrAccountNotFound)
}

func TestMemory_AppendToUnknownAccount(t *testing.T) {
	err := store.NewMemory().AppendTransaction(context.Background(), "missing", tx("t1", "2023-01-01"))
	assert.ErrorIs(t, err, loan.ErrAccountNotFound)
}

func TestMemory_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveAccount(ctx, account("a1", "Acme")))

	require.NoError(t, m.UpdateStatus(ctx, "a1", loan.StatusUpdate{Status: engine.StatusNPA, OverdueDays: 120}))

	got, err := m.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusNPA, got.Status)
	assert.Equal(t, 120, got.OverdueDays)
	assert.Equal(t, "Acme", got.Name)
}

func TestTxMemory_RollbackOnError(t *testing.T) {
	// GIVEN: A callback that appends, updates status, then fails
	// WHEN: WithTx returns
	// THEN: The store is exactly as before

	ctx := context.Background()
	tm := store.NewTxMemory()
	require.NoError(t, tm.SaveAccount(ctx, account("a1", "Acme")))
	require.NoError(t, tm.AppendTransaction(ctx, "a1", tx("t1", "2023-01-01")))

	boom := errors.New("boom")
	err := tm.WithTx(ctx, func(s loan.Store) error {
		require.NoError(t, s.AppendTransaction(ctx, "a1", tx("t2", "2023-02-01")))
		require.NoError(t, s.UpdateStatus(ctx, "a1", loan.StatusUpdate{Status: engine.StatusClosed}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	txs, _ := tm.Transactions(ctx, "a1")
	assert.Len(t, txs, 1)
	_, err = tm.GetTransaction(ctx, "t2")
	assert.ErrorIs(t, err, loan.ErrTransactionNotFound)

	got, _ := tm.GetAccount(ctx, "a1")
	assert.Equal(t, engine.StatusActive, got.Status)
}

func TestTxMemory_Commit(t *testing.T) {
	ctx := context.Background()
	tm := store.NewTxMemory()
	require.NoError(t, tm.SaveAccount(ctx, account("a1", "Acme")))

	err := tm.WithTx(ctx, func(s loan.Store) error {
		return s.AppendTransaction(ctx, "a1", tx("t1", "2023-01-01"))
	})
	require.NoError(t, err)

	txs, _ := tm.Transactions(ctx, "a1")
	assert.Len(t, txs, 1)
}
