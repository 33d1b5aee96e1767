package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/taskstore/internal/identity"
	"github.com/roach88/taskstore/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// ConfigPath is the YAML config file. Empty means taskstore.yaml if present.
	ConfigPath string

	// Backend and Database override the config file when set.
	Backend  string
	Database string

	// KeyFile holds the signing key.
	KeyFile string

	// IDs generates request ids. Nil means UUIDv7 (overridable for testing).
	IDs identity.RequestIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// DefaultKeyFile is where keygen writes and other commands read the key.
const DefaultKeyFile = "taskstore.key"

// NewRootCommand creates the root command for the taskstore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "taskstore",
		Short:   "taskstore - per-user task records with deterministic addresses",
		Long:    "Create, toggle and delete task records stored at addresses derived from owner and content.",
		Version: ir.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default taskstore.yaml if present)")
	flags.StringVar(&opts.Backend, "backend", "", "ledger backend (sqlite|badger), overrides config")
	flags.StringVar(&opts.Database, "db", "", "ledger path, overrides config")
	flags.StringVar(&opts.KeyFile, "keyfile", DefaultKeyFile, "signing key file")

	cmd.AddCommand(NewKeygenCommand(opts))
	cmd.AddCommand(NewDeriveCommand(opts))
	cmd.AddCommand(NewAirdropCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewMarkCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
