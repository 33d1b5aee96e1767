// Package config loads taskstore.yaml.
//
// Every key is optional; missing keys keep the values from Default.
// Unknown keys are rejected so a typo never silently falls back to a default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/taskstore/internal/ir"
	"github.com/roach88/taskstore/internal/ledger"
)

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "taskstore.yaml"

// Config is the on-disk configuration.
type Config struct {
	// Backend selects the ledger implementation.
	Backend string `yaml:"backend" validate:"required,oneof=sqlite badger"`

	// Path is the SQLite file or Badger directory. ":memory:" keeps
	// everything in memory for either backend.
	Path string `yaml:"path" validate:"required"`

	// ProgramID is the hex program id. Empty means the default program.
	ProgramID string `yaml:"program_id" validate:"omitempty,hexadecimal,len=64"`

	Rent   RentConfig   `yaml:"rent"`
	Faucet FaucetConfig `yaml:"faucet"`
	Server ServerConfig `yaml:"server"`
	Badger BadgerConfig `yaml:"badger"`
}

// RentConfig prices record deposits. The bounds keep any deposit well
// below the largest balance a ledger holds.
type RentConfig struct {
	LamportsPerByteYear uint64 `yaml:"lamports_per_byte_year" validate:"gt=0,lte=1000000000"`
	ExemptionYears      uint64 `yaml:"exemption_years" validate:"gt=0,lte=100"`
}

// FaucetConfig controls airdrops for local development.
type FaucetConfig struct {
	Enabled bool `yaml:"enabled"`

	// MaxLamports caps a single airdrop.
	MaxLamports uint64 `yaml:"max_lamports" validate:"required_if=Enabled true"`

	// RatePerSecond limits airdrops served over HTTP, allowing Burst at
	// once. Zero disables the limit.
	RatePerSecond float64 `yaml:"rate_per_second" validate:"gte=0"`
	Burst         int     `yaml:"burst" validate:"gte=0"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// BadgerConfig tunes the Badger backend.
type BadgerConfig struct {
	SyncWrites      bool `yaml:"sync_writes"`
	ConflictRetries int  `yaml:"conflict_retries" validate:"gte=0,lte=1000"`
}

var validate = validator.New()

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Backend: BackendSQLite,
		Path:    "taskstore.db",
		Rent: RentConfig{
			LamportsPerByteYear: ledger.DefaultRent.LamportsPerByteYear,
			ExemptionYears:      ledger.DefaultRent.ExemptionYears,
		},
		Faucet: FaucetConfig{
			Enabled:       true,
			MaxLamports:   1_000_000_000,
			RatePerSecond: 5,
			Burst:         10,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8899",
			ShutdownTimeout: 5 * time.Second,
		},
		Badger: BadgerConfig{
			SyncWrites:      true,
			ConflictRetries: 16,
		},
	}
}

// Load reads the config at path.
// A missing file at DefaultPath yields Default; a missing file anywhere
// else is an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultPath {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Program returns the configured program id.
func (c Config) Program() (ir.Address, error) {
	if c.ProgramID == "" {
		return ir.DefaultProgramID, nil
	}
	return ir.ParseAddress(c.ProgramID)
}

// LedgerRent returns the rent schedule.
func (c Config) LedgerRent() ledger.Rent {
	return ledger.Rent{
		LamportsPerByteYear: c.Rent.LamportsPerByteYear,
		ExemptionYears:      c.Rent.ExemptionYears,
	}
}
