// Package ledgertest runs one behavioral suite against every ledger.Ledger
// implementation so the SQLite and Badger backends cannot drift apart.
package ledgertest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskstore/internal/ir"
	"github.com/roach88/taskstore/internal/ledger"
)

// Opener returns a fresh, empty ledger. The suite closes it.
type Opener func(t *testing.T) ledger.Ledger

var (
	alice   = ir.Identity{0xa1}
	bob     = ir.Identity{0xb0}
	program = ir.ProgramIDFor("ledgertest")
	addr    = ir.Address{0xad}
)

// Run executes the conformance suite.
func Run(t *testing.T, open Opener) {
	t.Run("unknown balance is zero", func(t *testing.T) { testUnknownBalance(t, open(t)) })
	t.Run("credit accumulates", func(t *testing.T) { testCredit(t, open(t)) })
	t.Run("credit overflow", func(t *testing.T) { testCreditOverflow(t, open(t)) })
	t.Run("allocate debits payer", func(t *testing.T) { testAllocate(t, open(t)) })
	t.Run("allocate occupied address", func(t *testing.T) { testAllocateInUse(t, open(t)) })
	t.Run("allocate insufficient funds", func(t *testing.T) { testAllocateInsufficient(t, open(t)) })
	t.Run("write keeps size", func(t *testing.T) { testWrite(t, open(t)) })
	t.Run("close refunds recipient", func(t *testing.T) { testClose(t, open(t)) })
	t.Run("missing account", func(t *testing.T) { testMissing(t, open(t)) })
	t.Run("failed update rolls back", func(t *testing.T) { testRollback(t, open(t)) })
	t.Run("view discards writes", func(t *testing.T) { testViewDiscards(t, open(t)) })
	t.Run("concurrent credits serialize", func(t *testing.T) { testConcurrentCredits(t, open(t)) })
}

func update(t *testing.T, l ledger.Ledger, fn func(ledger.Txn) error) error {
	t.Helper()
	return l.Update(context.Background(), fn)
}

func balance(t *testing.T, l ledger.Ledger, id ir.Identity) uint64 {
	t.Helper()
	var got uint64
	require.NoError(t, l.View(context.Background(), func(tx ledger.Txn) error {
		var err error
		got, err = tx.Balance(id)
		return err
	}))
	return got
}

func fund(t *testing.T, l ledger.Ledger, id ir.Identity, amount uint64) {
	t.Helper()
	require.NoError(t, update(t, l, func(tx ledger.Txn) error { return tx.Credit(id, amount) }))
}

func testUnknownBalance(t *testing.T, l ledger.Ledger) {
	defer l.Close()
	assert.Equal(t, uint64(0), balance(t, l, alice))
}

func testCredit(t *testing.T, l ledger.Ledger) {
	defer l.Close()
	fund(t, l, alice, 100)
	fund(t, l, alice, 50)
	assert.Equal(t, uint64(150), balance(t, l, alice))
	assert.Equal(t, uint64(0), balance(t, l, bob))
}

func testCreditOverflow(t *testing.T, l ledger.Ledger) {
	defer l.Close()
	fund(t, l, alice, ledger.MaxBalance)
	err := update(t, l, func(tx ledger.Txn) error { return tx.Credit(alice, 1) })
	assert.ErrorIs(t, err, ledger.ErrBalanceOverflow)
	assert.Equal(t, uint64(ledger.MaxBalance), balance(t, l, alice))
}

func testAllocate(t *testing.T, l ledger.Ledger) {
	defer l.Close()
	fund(t, l, alice, 1000)

	data := []byte{1, 2, 3, 4}
	require.NoError(t, update(t, l, func(tx ledger.Txn) error {
		return tx.Allocate(addr, program, alice, data, 400)
	}))

	assert.Equal(t, uint64(600), balance(t, l, alice))
	require.NoError(t, l.View(context.Background(), func(tx ledger.Txn) error {
		acct, err := tx.Account(addr)
		require.NoError(t, err)
		assert.Equal(t, addr, acct.Address)
		assert.Equal(t, program, acct.Program)
		assert.Equal(t, alice, acct.Payer)
		assert.Equal(t, data, acct.Data)
		assert.Equal(t, uint64(400), acct.Deposit)
		return nil
	}))
}

func testAllocateInUse(t *testing.T, l ledger.Ledger) {
	defer l.Close()
	fund(t, l, alice, 1000)
	require.NoError(t, update(t, l, func(tx ledger.Txn) error {
		return tx.Allocate(addr, program, alice, []byte{1}, 100)
	}))

	err := update(t, l, func(tx ledger.Txn) error {
		return tx.Allocate(addr, program, alice, []byte{2}, 100)
	})
	assert.ErrorIs(t, err, ledger.ErrAccountInUse)
	assert.Equal(t, uint64(900), balance(t, l, alice), "second allocation must not debit")
}

func testAllocateInsufficient(t *testing.T, l ledger.Ledger) {
	defer l.Close()
	fund(t, l, alice, 99)
	err := update(t, l, func(tx ledger.Txn) error {
		return tx.Allocate(addr, program, alice, []byte{1}, 100)
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, uint64(99), balance(t, l, alice))

	err = l.View(context.Background(), func(tx ledger.Txn) error {
		_, err := tx.Account(addr)
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func testWrite(t *testing.T, l ledger.Ledger) {
	defer l.Close()
	fund(t, l, alice, 100)
	require.NoError(t, update(t, l, func(tx ledger.Txn) error {
		return tx.Allocate(addr, program, alice, []byte{0, 0}, 10)
	}))

	require.NoError(t, update(t, l, func(tx ledger.Txn) error {
		return tx.Write(addr, []byte{7, 8})
	}))
	err := update(t, l, func(tx ledger.Txn) error {
		return tx.Write(addr, []byte{7, 8, 9})
	})
	assert.ErrorIs(t, err, ledger.ErrSizeMismatch)

	err = update(t, l, func(tx ledger.Txn) error {
		return tx.Write(ir.Address{0xee}, []byte{1})
	})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	require.NoError(t, l.View(context.Background(), func(tx ledger.Txn) error {
		acct, err := tx.Account(addr)
		require.NoError(t, err)
		assert.Equal(t, []byte{7, 8}, acct.Data)
		return nil
	}))
}

func testClose(t *testing.T, l ledger.Ledger) {
	defer l.Close()
	fund(t, l, alice, 500)
	require.NoError(t, update(t, l, func(tx ledger.Txn) error {
		return tx.Allocate(addr, program, alice, []byte{1}, 300)
	}))

	var refund uint64
	require.NoError(t, update(t, l, func(tx ledger.Txn) error {
		var err error
		refund, err = tx.Close(addr, alice)
		return err
	}))
	assert.Equal(t, uint64(300), refund)
	assert.Equal(t, uint64(500), balance(t, l, alice), "deposit out, deposit back")

	// The address is free again.
	require.NoError(t, update(t, l, func(tx ledger.Txn) error {
		return tx.Allocate(addr, program, alice, []byte{1}, 300)
	}))
}

func testMissing(t *testing.T, l ledger.Ledger) {
	defer l.Close()
	err := update(t, l, func(tx ledger.Txn) error {
		_, err := tx.Close(addr, alice)
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func testRollback(t *testing.T, l ledger.Ledger) {
	defer l.Close()
	fund(t, l, alice, 500)

	boom := errors.New("boom")
	err := update(t, l, func(tx ledger.Txn) error {
		if err := tx.Allocate(addr, program, alice, []byte{1}, 300); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(500), balance(t, l, alice))

	err = l.View(context.Background(), func(tx ledger.Txn) error {
		_, err := tx.Account(addr)
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func testViewDiscards(t *testing.T, l ledger.Ledger) {
	defer l.Close()
	_ = l.View(context.Background(), func(tx ledger.Txn) error {
		return tx.Credit(alice, 10)
	})
	assert.Equal(t, uint64(0), balance(t, l, alice))
}

func testConcurrentCredits(t *testing.T, l ledger.Ledger) {
	defer l.Close()
	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.Update(context.Background(), func(tx ledger.Txn) error {
				return tx.Credit(bob, 1)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(workers), balance(t, l, bob))
}
