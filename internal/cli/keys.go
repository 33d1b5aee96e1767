package cli

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/taskstore/internal/identity"
	"github.com/roach88/taskstore/internal/ir"
)

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing key",
		Long: `Generate an ed25519 signing key and write it to --keyfile.

An existing key file is never overwritten.

Example:
  taskstore keygen --keyfile ~/.taskstore/alice.key`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateKey(rootOpts, cmd)
		},
	}
}

func generateKey(opts *RootOptions, cmd *cobra.Command) error {
	kp, err := identity.Generate(rand.Reader)
	if err != nil {
		return opts.report(cmd, err)
	}
	if err := kp.SaveKeyFile(opts.KeyFile); err != nil {
		if errors.Is(err, identity.ErrKeyFileExists) {
			return opts.report(cmd, WrapExitError(ExitCommandError, "refusing to overwrite key", err))
		}
		return opts.report(cmd, err)
	}
	return opts.formatter(cmd).Success(keyView{Identity: kp.Identity(), KeyFile: opts.KeyFile})
}

type keyView struct {
	Identity ir.Identity `json:"identity"`
	KeyFile  string      `json:"key_file"`
}

func (v keyView) String() string {
	return fmt.Sprintf("identity %s\nkey written to %s", v.Identity, v.KeyFile)
}

// DeriveOptions holds flags for the derive command.
type DeriveOptions struct {
	*RootOptions
	Owner string
}

// NewDeriveCommand creates the derive command.
func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeriveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "derive <content>",
		Short: "Print the address a task would be stored at",
		Long: `Derive the address of the task with the given owner and content.

Derivation is pure: it does not read the ledger. The owner defaults to
the key file identity.

Example:
  taskstore derive "buy milk" --owner 9a2b...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return deriveAddress(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner identity (hex), defaults to the key file identity")
	return cmd
}

func deriveAddress(opts *DeriveOptions, content string, cmd *cobra.Command) error {
	owner, err := opts.identityArg(opts.Owner)
	if err != nil {
		return opts.report(cmd, err)
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return opts.report(cmd, err)
	}
	p, err := programFor(cfg, nil, nil, nil)
	if err != nil {
		return opts.report(cmd, err)
	}

	content = ir.NormalizeContent(content)
	addr, bump := p.Address(owner, content)
	opts.formatter(cmd).VerboseLog("program %s", p.ID())
	return opts.formatter(cmd).Success(deriveView{
		Address: addr,
		Bump:    bump,
		Owner:   owner,
		Content: content,
		Deposit: p.Deposit(),
	})
}

type deriveView struct {
	Address ir.Address  `json:"address"`
	Bump    uint8       `json:"bump"`
	Owner   ir.Identity `json:"owner"`
	Content string      `json:"content"`
	Deposit uint64      `json:"deposit"`
}

func (v deriveView) String() string {
	return fmt.Sprintf("%s (bump %d)", v.Address, v.Bump)
}
