package cli

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/taskstore/internal/ir"
	"github.com/roach88/taskstore/internal/ledger"
)

// AccountOptions holds flags for airdrop.
type AccountOptions struct {
	*RootOptions
	To string
}

// NewAirdropCommand creates the airdrop command.
func NewAirdropCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AccountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "airdrop <lamports>",
		Short: "Fund an identity from the local faucet",
		Long: `Credit lamports to an identity. Requires faucet.enabled in the config;
a single airdrop is capped at faucet.max_lamports.

Example:
  taskstore airdrop 10000000
  taskstore airdrop 10000000 --to 9a2b...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return airdrop(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.To, "to", "", "recipient identity (hex), defaults to the key file identity")
	return cmd
}

func airdrop(opts *AccountOptions, amountArg string, cmd *cobra.Command) error {
	amount, err := strconv.ParseUint(amountArg, 10, 64)
	if err != nil || amount == 0 {
		return opts.report(cmd, NewExitError(ExitCommandError, fmt.Sprintf("invalid lamports %q", amountArg)))
	}
	to, err := opts.identityArg(opts.To)
	if err != nil {
		return opts.report(cmd, err)
	}

	e, err := opts.openEnv(cmd, slog.LevelWarn)
	if err != nil {
		return opts.report(cmd, err)
	}
	defer e.Close()

	if !e.cfg.Faucet.Enabled {
		return opts.report(cmd, NewExitError(ExitCommandError, "faucet is disabled"))
	}
	if amount > e.cfg.Faucet.MaxLamports {
		return opts.report(cmd, NewExitError(ExitCommandError,
			fmt.Sprintf("airdrop of %d exceeds faucet limit %d", amount, e.cfg.Faucet.MaxLamports)))
	}

	ctx := cmd.Context()
	if err := ledger.Fund(ctx, e.ledger, to, amount); err != nil {
		return opts.report(cmd, err)
	}
	balance, err := ledger.BalanceOf(ctx, e.ledger, to)
	if err != nil {
		return opts.report(cmd, err)
	}
	return opts.formatter(cmd).Success(balanceView{Identity: to, Balance: balance})
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [identity]",
		Short: "Print an identity's balance",
		Long: `Print the lamport balance of an identity, by default the key file identity.

Example:
  taskstore balance
  taskstore balance 9a2b... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			return showBalance(rootOpts, arg, cmd)
		},
	}
}

func showBalance(opts *RootOptions, arg string, cmd *cobra.Command) error {
	id, err := opts.identityArg(arg)
	if err != nil {
		return opts.report(cmd, err)
	}
	e, err := opts.openEnv(cmd, slog.LevelWarn)
	if err != nil {
		return opts.report(cmd, err)
	}
	defer e.Close()

	balance, err := ledger.BalanceOf(cmd.Context(), e.ledger, id)
	if err != nil {
		return opts.report(cmd, err)
	}
	return opts.formatter(cmd).Success(balanceView{Identity: id, Balance: balance})
}

type balanceView struct {
	Identity ir.Identity `json:"identity"`
	Balance  uint64      `json:"balance"`
}

func (v balanceView) String() string {
	return fmt.Sprintf("%s: %d lamports", v.Identity, v.Balance)
}
