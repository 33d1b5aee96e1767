package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/taskstore/internal/ir"
	"github.com/roach88/taskstore/internal/task"
)

// TaskOptions holds flags for mark, remove and show.
type TaskOptions struct {
	*RootOptions
	Content string // derive the address from content instead of passing it
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <content>",
		Short: "Create a task",
		Long: `Create a task owned by the key file identity.

The task is stored at an address derived from the owner and the content,
so the same owner cannot hold two tasks with identical content. Creating
a task locks a rent deposit that is refunded when the task is removed.
Content is normalized to Unicode NFC before signing.

Example:
  taskstore add "buy milk"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.execute(cmd, ir.Request{
				Instruction: ir.InstructionAddTask,
				Content:     ir.NormalizeContent(args[0]),
			})
		},
	}
}

// NewMarkCommand creates the mark command.
func NewMarkCommand(rootOpts *RootOptions) *cobra.Command {
	return newTaskInstructionCommand(rootOpts, ir.InstructionMarkTask, &cobra.Command{
		Use:   "mark [address]",
		Short: "Toggle a task's marked flag",
		Long: `Toggle the marked flag of a task you own.

Examples:
  taskstore mark 3f1c...e9
  taskstore mark --content "buy milk"`,
	})
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return newTaskInstructionCommand(rootOpts, ir.InstructionRemoveTask, &cobra.Command{
		Use:   "remove [address]",
		Short: "Delete a task and refund its deposit",
		Long: `Delete a task you own. The full deposit is returned to you and the
same content can be added again.

Examples:
  taskstore remove 3f1c...e9
  taskstore remove --content "buy milk"`,
	})
}

func newTaskInstructionCommand(rootOpts *RootOptions, inst ir.Instruction, cmd *cobra.Command) *cobra.Command {
	opts := &TaskOptions{RootOptions: rootOpts}

	cmd.Args = cobra.MaximumNArgs(1)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		addr, err := opts.taskAddress(args, opts.Content)
		if err != nil {
			return opts.report(cmd, err)
		}
		return opts.execute(cmd, ir.Request{Instruction: inst, Task: addr})
	}
	cmd.Flags().StringVar(&opts.Content, "content", "", "target your task with this content")
	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TaskOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [address]",
		Short: "Print a task",
		Long: `Print the task stored at an address.

Examples:
  taskstore show 3f1c...e9
  taskstore show --content "buy milk" --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showTask(opts, args, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Content, "content", "", "show your task with this content")
	return cmd
}

func showTask(opts *TaskOptions, args []string, cmd *cobra.Command) error {
	addr, err := opts.taskAddress(args, opts.Content)
	if err != nil {
		return opts.report(cmd, err)
	}
	e, err := opts.openEnv(cmd, slog.LevelWarn)
	if err != nil {
		return opts.report(cmd, err)
	}
	defer e.Close()

	rec, err := e.program.Get(cmd.Context(), addr)
	if err != nil {
		return opts.report(cmd, err)
	}
	return opts.formatter(cmd).Success(taskView{Address: addr, Record: rec})
}

// taskView is a record plus its address.
type taskView struct {
	Address ir.Address `json:"address"`
	task.Record
}

func (v taskView) String() string {
	box := "[ ]"
	if v.Marked {
		box = "[x]"
	}
	return fmt.Sprintf("%s %s\n    address: %s\n    owner:   %s", box, v.Content, v.Address, v.Owner)
}
