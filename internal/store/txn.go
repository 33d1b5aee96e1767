package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/taskstore/internal/ir"
	"github.com/roach88/taskstore/internal/ledger"
)

// txn implements ledger.Txn over one *sql.Tx.
type txn struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *txn) Balance(id ir.Identity) (uint64, error) {
	var lamports int64
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT lamports FROM balances WHERE identity = ?`, id[:],
	).Scan(&lamports)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return uint64(lamports), nil
}

func (t *txn) setBalance(id ir.Identity, lamports uint64) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO balances (identity, lamports) VALUES (?, ?)
		ON CONFLICT(identity) DO UPDATE SET lamports = excluded.lamports
	`, id[:], int64(lamports))
	if err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}

func (t *txn) Credit(id ir.Identity, amount uint64) error {
	current, err := t.Balance(id)
	if err != nil {
		return err
	}
	next, err := ledger.AddBalance(current, amount)
	if err != nil {
		return err
	}
	return t.setBalance(id, next)
}

func (t *txn) Account(addr ir.Address) (ledger.Account, error) {
	var (
		program, payer, data []byte
		deposit              int64
	)
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT program, payer, data, deposit FROM accounts WHERE address = ?`, addr[:],
	).Scan(&program, &payer, &data, &deposit)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("read account: %w", err)
	}

	acct := ledger.Account{Address: addr, Data: data, Deposit: uint64(deposit)}
	copy(acct.Program[:], program)
	copy(acct.Payer[:], payer)
	return acct, nil
}

func (t *txn) Allocate(addr ir.Address, program ir.Address, payer ir.Identity, data []byte, deposit uint64) error {
	if deposit > ledger.MaxBalance {
		return ledger.ErrBalanceOverflow
	}

	if _, err := t.Account(addr); err == nil {
		return ledger.ErrAccountInUse
	} else if !errors.Is(err, ledger.ErrAccountNotFound) {
		return err
	}

	balance, err := t.Balance(payer)
	if err != nil {
		return err
	}
	if balance < deposit {
		return fmt.Errorf("%w: have %d, need %d", ledger.ErrInsufficientFunds, balance, deposit)
	}
	if err := t.setBalance(payer, balance-deposit); err != nil {
		return err
	}

	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO accounts (address, program, payer, data, deposit)
		VALUES (?, ?, ?, ?, ?)
	`, addr[:], program[:], payer[:], data, int64(deposit))
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (t *txn) Write(addr ir.Address, data []byte) error {
	acct, err := t.Account(addr)
	if err != nil {
		return err
	}
	if len(acct.Data) != len(data) {
		return fmt.Errorf("%w: allocated %d, got %d", ledger.ErrSizeMismatch, len(acct.Data), len(data))
	}

	if _, err := t.tx.ExecContext(t.ctx,
		`UPDATE accounts SET data = ? WHERE address = ?`, data, addr[:],
	); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

func (t *txn) Close(addr ir.Address, recipient ir.Identity) (uint64, error) {
	acct, err := t.Account(addr)
	if err != nil {
		return 0, err
	}

	if _, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM accounts WHERE address = ?`, addr[:],
	); err != nil {
		return 0, fmt.Errorf("delete account: %w", err)
	}

	if err := t.Credit(recipient, acct.Deposit); err != nil {
		return 0, err
	}
	return acct.Deposit, nil
}
