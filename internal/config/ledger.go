package config

import (
	"fmt"
	"log/slog"

	"github.com/roach88/taskstore/internal/kvstore"
	"github.com/roach88/taskstore/internal/ledger"
	"github.com/roach88/taskstore/internal/store"
)

// MemoryPath selects an in-memory ledger for either backend.
const MemoryPath = ":memory:"

// OpenLedger opens the backend named by c.
func (c Config) OpenLedger(logger *slog.Logger) (ledger.Ledger, error) {
	switch c.Backend {
	case BackendSQLite:
		s, err := store.Open(c.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		return s, nil
	case BackendBadger:
		kc := kvstore.DefaultConfig()
		if c.Path == MemoryPath {
			kc = kvstore.InMemoryConfig()
		} else {
			kc.Path = c.Path
			kc.SyncWrites = c.Badger.SyncWrites
		}
		kc.ConflictRetries = c.Badger.ConflictRetries
		kc.Logger = logger
		s, err := kvstore.Open(kc)
		if err != nil {
			return nil, fmt.Errorf("open badger ledger: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", c.Backend)
	}
}
