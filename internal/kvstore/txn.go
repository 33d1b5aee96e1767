package kvstore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/taskstore/internal/ir"
	"github.com/roach88/taskstore/internal/ledger"
)

const (
	balancePrefix = "bal/"
	accountPrefix = "acct/"

	// program | payer | deposit
	accountHeaderLen = 32 + 32 + 8
)

func balanceKey(id ir.Identity) []byte {
	return append([]byte(balancePrefix), id[:]...)
}

func accountKey(addr ir.Address) []byte {
	return append([]byte(accountPrefix), addr[:]...)
}

// txn implements ledger.Txn over one *badger.Txn.
type txn struct {
	tx *badger.Txn
}

func (t *txn) Balance(id ir.Identity) (uint64, error) {
	item, err := t.tx.Get(balanceKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("read balance: corrupt value of %d bytes", len(val))
	}
	return binary.LittleEndian.Uint64(val), nil
}

func (t *txn) setBalance(id ir.Identity, lamports uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], lamports)
	if err := t.tx.Set(balanceKey(id), buf[:]); err != nil {
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
	item, err := t.tx.Get(accountKey(addr))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("read account: %w", err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("read account: %w", err)
	}
	if len(val) < accountHeaderLen {
		return ledger.Account{}, fmt.Errorf("read account: corrupt value of %d bytes", len(val))
	}

	acct := ledger.Account{
		Address: addr,
		Deposit: binary.LittleEndian.Uint64(val[64:72]),
		Data:    val[accountHeaderLen:],
	}
	copy(acct.Program[:], val[0:32])
	copy(acct.Payer[:], val[32:64])
	return acct, nil
}

func (t *txn) putAccount(acct ledger.Account) error {
	val := make([]byte, accountHeaderLen, accountHeaderLen+len(acct.Data))
	copy(val[0:32], acct.Program[:])
	copy(val[32:64], acct.Payer[:])
	binary.LittleEndian.PutUint64(val[64:72], acct.Deposit)
	val = append(val, acct.Data...)
	if err := t.tx.Set(accountKey(acct.Address), val); err != nil {
		return fmt.Errorf("write account: %w", err)
	}
	return nil
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

	return t.putAccount(ledger.Account{
		Address: addr,
		Program: program,
		Payer:   payer,
		Data:    append([]byte(nil), data...),
		Deposit: deposit,
	})
}

func (t *txn) Write(addr ir.Address, data []byte) error {
	acct, err := t.Account(addr)
	if err != nil {
		return err
	}
	if len(acct.Data) != len(data) {
		return fmt.Errorf("%w: allocated %d, got %d", ledger.ErrSizeMismatch, len(acct.Data), len(data))
	}
	acct.Data = append([]byte(nil), data...)
	return t.putAccount(acct)
}

func (t *txn) Close(addr ir.Address, recipient ir.Identity) (uint64, error) {
	acct, err := t.Account(addr)
	if err != nil {
		return 0, err
	}
	if err := t.tx.Delete(accountKey(addr)); err != nil {
		return 0, fmt.Errorf("delete account: %w", err)
	}
	if err := t.Credit(recipient, acct.Deposit); err != nil {
		return 0, err
	}
	return acct.Deposit, nil
}
