package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskstore/internal/ir"
	"github.com/roach88/taskstore/internal/ledger"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ledger.DefaultRent, cfg.LedgerRent())

	id, err := cfg.Program()
	require.NoError(t, err)
	assert.Equal(t, ir.DefaultProgramID, id)
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load("testdata/badger.yaml")
	require.NoError(t, err)

	assert.Equal(t, BackendBadger, cfg.Backend)
	assert.Equal(t, "./data/ledger", cfg.Path)
	assert.Equal(t, ledger.Rent{LamportsPerByteYear: 1000, ExemptionYears: 1}, cfg.LedgerRent())
	assert.False(t, cfg.Faucet.Enabled)
	assert.Equal(t, 0.5, cfg.Faucet.RatePerSecond)
	assert.Equal(t, 3, cfg.Faucet.Burst)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Badger.SyncWrites)
	assert.Equal(t, 4, cfg.Badger.ConflictRetries)

	id, err := cfg.Program()
	require.NoError(t, err)
	assert.Equal(t, "8f3c0c1d5a9b4e7f2a6d1c0b9e8f7a6d5c4b3a2f1e0d9c8b7a6f5e4d3c2b1a09", id.String())
}

func TestParseKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := Parse(strings.NewReader("path: other.db\n"))
	require.NoError(t, err)

	want := Default()
	want.Path = "other.db"
	assert.Equal(t, want, cfg)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "backnd: sqlite\n", "field backnd not found"},
		{"unknown backend", "backend: postgres\n", "oneof"},
		{"short program id", "program_id: abcd\n", "ProgramID"},
		{"zero rent", "rent:\n  lamports_per_byte_year: 0\n", "LamportsPerByteYear"},
		{"huge rent", "rent:\n  lamports_per_byte_year: 18446744073709551615\n", "LamportsPerByteYear"},
		{"too many exemption years", "rent:\n  exemption_years: 1000\n", "ExemptionYears"},
		{"faucet without cap", "faucet:\n  enabled: true\n  max_lamports: 0\n", "MaxLamports"},
		{"negative faucet rate", "faucet:\n  rate_per_second: -1\n", "RatePerSecond"},
		{"bad addr", "server:\n  addr: nowhere\n", "Addr"},
		{"negative retries", "badger:\n  conflict_retries: -1\n", "ConflictRetries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadMissingDefaultFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestOpenLedgerBackends(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, backend := range []string{BackendSQLite, BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			cfg := Default()
			cfg.Backend = backend
			cfg.Path = MemoryPath

			l, err := cfg.OpenLedger(logger)
			require.NoError(t, err)
			defer l.Close()

			id := ir.Identity{1}
			require.NoError(t, ledger.Fund(context.Background(), l, id, 42))
			got, err := ledger.BalanceOf(context.Background(), l, id)
			require.NoError(t, err)
			assert.Equal(t, uint64(42), got)
		})
	}
}

func TestOpenLedgerOnDisk(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{BackendSQLite, BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			cfg := Default()
			cfg.Backend = backend
			cfg.Path = filepath.Join(dir, backend)
			cfg.Badger.SyncWrites = false

			l, err := cfg.OpenLedger(nil)
			require.NoError(t, err)
			require.NoError(t, ledger.Fund(context.Background(), l, ir.Identity{2}, 7))
			require.NoError(t, l.Close())

			l, err = cfg.OpenLedger(nil)
			require.NoError(t, err)
			defer l.Close()
			got, err := ledger.BalanceOf(context.Background(), l, ir.Identity{2})
			require.NoError(t, err)
			assert.Equal(t, uint64(7), got, "balance survives reopen")
		})
	}
}
