package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/roach88/taskstore/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task program over HTTP",
		Long: `Serve the task program over HTTP until interrupted.

Routes:
  POST /v1/transactions                 execute a signed request
  GET  /v1/tasks/:address               read a task
  GET  /v1/accounts/:identity           read a balance
  POST /v1/accounts/:identity/airdrop   fund an identity (faucet.enabled)
  GET  /metrics                         Prometheus metrics

Example:
  taskstore serve --addr 127.0.0.1:8899
  taskstore serve --backend badger --db ./ledger`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func serve(opts *ServeOptions, cmd *cobra.Command) error {
	e, err := opts.openEnv(cmd, slog.LevelInfo)
	if err != nil {
		return opts.report(cmd, err)
	}
	defer func() {
		if closeErr := e.Close(); closeErr != nil {
			e.logger.Error("error closing ledger", "error", closeErr)
		}
	}()

	e.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	addr := e.cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	srv := server.New(e.program, e.ledger, server.Options{
		Faucet:       e.cfg.Faucet.Enabled,
		MaxAirdrop:   e.cfg.Faucet.MaxLamports,
		AirdropRate:  rate.Limit(e.cfg.Faucet.RatePerSecond),
		AirdropBurst: e.cfg.Faucet.Burst,
		Gatherer:     e.registry,
		Logger:       e.logger,
	})

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e.logger.Info("serving",
		"addr", addr,
		"backend", e.cfg.Backend,
		"path", e.cfg.Path,
		"program", e.program.ID(),
		"faucet", e.cfg.Faucet.Enabled,
	)
	if err := srv.ListenAndServe(ctx, addr, e.cfg.Server.ShutdownTimeout); err != nil {
		return opts.report(cmd, WrapExitError(ExitCommandError, "server error", err))
	}
	return nil
}
