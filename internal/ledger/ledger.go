// Package ledger defines the storage allocation primitive the task program
// runs against.
//
// A Ledger holds two kinds of state:
//   - Balances: funding accounts keyed by identity
//   - Accounts: fixed-size data regions keyed by address, each backed by a
//     deposit debited from a payer at allocation and refunded at close
//
// Every mutation happens inside Update. The callback either returns nil and
// all of its effects commit together, or returns an error and none do.
// Implementations: internal/store (SQLite) and internal/kvstore (Badger).
package ledger

import (
	"context"
	"errors"
	"math"

	"github.com/roach88/taskstore/internal/ir"
)

// Sentinel errors returned by every Txn implementation.
var (
	ErrAccountNotFound   = errors.New("ledger: account not found")
	ErrAccountInUse      = errors.New("ledger: account already in use")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrSizeMismatch      = errors.New("ledger: data size does not match allocation")
	ErrBalanceOverflow   = errors.New("ledger: balance overflow")
)

// MaxBalance is the largest balance any identity may hold.
// Bounded by SQLite's signed 64-bit INTEGER.
const MaxBalance = math.MaxInt64

// Account is an allocated data region.
type Account struct {
	Address ir.Address
	Program ir.Address // program that allocated the region
	Payer   ir.Identity
	Data    []byte
	Deposit uint64
}

// Txn is a single atomic unit of work against a Ledger.
// A Txn must not be used after its callback returns.
type Txn interface {
	// Balance returns the funding balance of id; unknown identities hold 0.
	Balance(id ir.Identity) (uint64, error)

	// Credit adds amount to id's balance.
	Credit(id ir.Identity, amount uint64) error

	// Account loads the region at addr or returns ErrAccountNotFound.
	Account(addr ir.Address) (Account, error)

	// Allocate creates a region at addr holding data, moving deposit from
	// payer's balance into the region. Returns ErrAccountInUse if addr is
	// occupied and ErrInsufficientFunds if payer cannot cover deposit.
	Allocate(addr ir.Address, program ir.Address, payer ir.Identity, data []byte, deposit uint64) error

	// Write replaces the data at addr. The length must equal the allocated
	// length (ErrSizeMismatch otherwise).
	Write(addr ir.Address, data []byte) error

	// Close removes the region at addr and credits its full deposit to
	// recipient, returning the refunded amount.
	Close(addr ir.Address, recipient ir.Identity) (uint64, error)
}

// Ledger runs transactions.
type Ledger interface {
	// Update runs fn in a read-write transaction.
	Update(ctx context.Context, fn func(Txn) error) error

	// View runs fn in a transaction whose writes are discarded.
	View(ctx context.Context, fn func(Txn) error) error

	Close() error
}

// AddBalance returns balance+amount or ErrBalanceOverflow.
func AddBalance(balance, amount uint64) (uint64, error) {
	if amount > MaxBalance || balance > MaxBalance-amount {
		return 0, ErrBalanceOverflow
	}
	return balance + amount, nil
}

// Fund credits amount to id in its own transaction.
func Fund(ctx context.Context, l Ledger, id ir.Identity, amount uint64) error {
	return l.Update(ctx, func(tx Txn) error { return tx.Credit(id, amount) })
}

// BalanceOf reads id's balance in its own transaction.
func BalanceOf(ctx context.Context, l Ledger, id ir.Identity) (uint64, error) {
	var balance uint64
	err := l.View(ctx, func(tx Txn) error {
		var err error
		balance, err = tx.Balance(id)
		return err
	})
	return balance, err
}
