package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskstore/internal/ir"
	"github.com/roach88/taskstore/internal/ledger"
	"github.com/roach88/taskstore/internal/ledger/ledgertest"
)

func TestLedgerConformance_InMemory(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Ledger {
		s, err := Open(InMemoryConfig())
		require.NoError(t, err)
		return s
	})
}

func TestLedgerConformance_OnDisk(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Ledger {
		cfg := DefaultConfig()
		cfg.Path = filepath.Join(t.TempDir(), "badger")
		cfg.SyncWrites = false
		cfg.GCInterval = 0
		s, err := Open(cfg)
		require.NoError(t, err)
		return s
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestDataSurvivesReopen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "badger")
	cfg.GCInterval = 0

	s, err := Open(cfg)
	require.NoError(t, err)
	owner := ir.Identity{1}
	require.NoError(t, s.Update(context.Background(), func(tx ledger.Txn) error {
		return tx.Credit(owner, 42)
	}))
	require.NoError(t, s.Close())

	s, err = Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.View(context.Background(), func(tx ledger.Txn) error {
		got, err := tx.Balance(owner)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), got)
		return nil
	}))
}

func TestUpdateHonorsCancelledContext(t *testing.T) {
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = s.Update(ctx, func(ledger.Txn) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestGCRunnerStopsOnClose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "badger")
	cfg.SyncWrites = false

	s, err := Open(cfg)
	require.NoError(t, err)
	require.NotNil(t, s.stopGC)
	require.NoError(t, s.Close())
	assert.Nil(t, s.stopGC)
}
