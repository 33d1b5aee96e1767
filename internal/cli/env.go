package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/taskstore/internal/config"
	"github.com/roach88/taskstore/internal/identity"
	"github.com/roach88/taskstore/internal/ir"
	"github.com/roach88/taskstore/internal/ledger"
	"github.com/roach88/taskstore/internal/metrics"
	"github.com/roach88/taskstore/internal/task"
)

// env is the runtime a command works against.
type env struct {
	cfg      config.Config
	ledger   ledger.Ledger
	program  *task.Program
	logger   *slog.Logger
	registry *prometheus.Registry
}

// Close releases the ledger.
func (e *env) Close() error {
	return e.ledger.Close()
}

// formatter returns an OutputFormatter writing to cmd's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// newLogger returns a logger writing to w at level, or Debug when verbose.
// JSON output gets JSON logs.
func (o *RootOptions) newLogger(w io.Writer, level slog.Level) *slog.Logger {
	if o.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if o.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// loadConfig reads the config file and applies flag overrides.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.Database != "" {
		cfg.Path = o.Database
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// programFor builds the Program cfg describes over l. With a nil ledger only
// address derivation and deposit pricing work.
func programFor(cfg config.Config, l ledger.Ledger, logger *slog.Logger, m *metrics.Metrics) (*task.Program, error) {
	id, err := cfg.Program()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid program id", err)
	}
	return task.New(l, identity.Ed25519Verifier{}, task.Options{
		ProgramID: id,
		Rent:      cfg.LedgerRent(),
		Logger:    logger,
		Metrics:   m,
	}), nil
}

// openEnv loads config, opens the ledger and builds the program.
// logLevel is the level used when --verbose is off.
func (o *RootOptions) openEnv(cmd *cobra.Command, logLevel slog.Level) (*env, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := o.newLogger(cmd.ErrOrStderr(), logLevel)

	l, err := cfg.OpenLedger(logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}

	reg := prometheus.NewRegistry()
	p, err := programFor(cfg, l, logger, metrics.New(reg))
	if err != nil {
		l.Close()
		return nil, err
	}
	return &env{cfg: cfg, ledger: l, program: p, logger: logger, registry: reg}, nil
}

// loadKey reads the signing key.
func (o *RootOptions) loadKey() (*identity.Keypair, error) {
	kp, err := identity.LoadKeyFile(o.KeyFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load key (run 'taskstore keygen' first)", err)
	}
	return kp, nil
}

// requestIDs returns the request id generator.
func (o *RootOptions) requestIDs() identity.RequestIDGenerator {
	if o.IDs != nil {
		return o.IDs
	}
	return identity.UUIDv7Generator{}
}

// identityArg parses an optional hex identity argument, falling back to the
// key file's identity.
func (o *RootOptions) identityArg(arg string) (ir.Identity, error) {
	if arg != "" {
		id, err := ir.ParseIdentity(arg)
		if err != nil {
			return ir.Identity{}, WrapExitError(ExitCommandError, "invalid identity", err)
		}
		return id, nil
	}
	kp, err := o.loadKey()
	if err != nil {
		return ir.Identity{}, err
	}
	return kp.Identity(), nil
}

// report writes err through the formatter and returns the ExitError the
// command should fail with. Task errors exit with ExitFailure, everything
// else with ExitCommandError.
func (o *RootOptions) report(cmd *cobra.Command, err error) error {
	f := o.formatter(cmd)

	if code := task.CodeOf(err); code != "" {
		_ = f.Error(string(code), err.Error(), nil)
		return &ExitError{Code: ExitFailure, Message: "instruction rejected", Err: err, Reported: true}
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		_ = f.Error("E_COMMAND", exitErr.Error(), nil)
		exitErr.Reported = true
		return exitErr
	}
	_ = f.Error("E_COMMAND", err.Error(), nil)
	return &ExitError{Code: ExitCommandError, Message: "command failed", Err: err, Reported: true}
}

// execute signs req with the key file and runs it.
func (o *RootOptions) execute(cmd *cobra.Command, req ir.Request) error {
	kp, err := o.loadKey()
	if err != nil {
		return o.report(cmd, err)
	}
	e, err := o.openEnv(cmd, slog.LevelWarn)
	if err != nil {
		return o.report(cmd, err)
	}
	defer e.Close()

	req.ID = o.requestIDs().Generate()
	req.ProgramID = e.program.ID()
	signed, err := kp.Sign(req)
	if err != nil {
		return o.report(cmd, err)
	}

	receipt, err := e.program.Execute(cmd.Context(), signed)
	if err != nil {
		return o.report(cmd, err)
	}
	return o.formatter(cmd).Success(receiptView(receipt))
}

// errNoArgs is returned when neither an address nor --content was given.
var errNoArgs = errors.New("an address argument or --content is required")

// taskAddress resolves the target of mark/remove/show: a hex address, or
// the address derived from --content and the key file identity.
func (o *RootOptions) taskAddress(args []string, content string) (ir.Address, error) {
	switch {
	case len(args) == 1 && content != "":
		return ir.Address{}, NewExitError(ExitCommandError, "give either an address or --content, not both")
	case len(args) == 1:
		addr, err := ir.ParseAddress(args[0])
		if err != nil {
			return ir.Address{}, WrapExitError(ExitCommandError, "invalid address", err)
		}
		return addr, nil
	case content != "":
		cfg, err := o.loadConfig()
		if err != nil {
			return ir.Address{}, err
		}
		kp, err := o.loadKey()
		if err != nil {
			return ir.Address{}, err
		}
		p, err := programFor(cfg, nil, nil, nil)
		if err != nil {
			return ir.Address{}, err
		}
		addr, _ := p.Address(kp.Identity(), ir.NormalizeContent(content))
		return addr, nil
	default:
		return ir.Address{}, WrapExitError(ExitCommandError, "missing task", errNoArgs)
	}
}

// receiptView renders a Receipt in text mode.
type receiptView task.Receipt

func (r receiptView) String() string {
	switch r.Instruction {
	case ir.InstructionAddTask:
		return fmt.Sprintf("created %s (deposit %d lamports)", r.Task, r.Lamports)
	case ir.InstructionRemoveTask:
		return fmt.Sprintf("removed %s (refunded %d lamports)", r.Task, r.Lamports)
	default:
		return fmt.Sprintf("toggled %s", r.Task)
	}
}
