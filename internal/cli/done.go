package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/grit-vcs/grit/internal/issue"
)

// DoneOptions holds flags for the done command.
type DoneOptions struct {
	*RootOptions
}

// NewDoneCommand creates the done command.
func NewDoneCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DoneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark an issue as done",
		Long: `Mark an issue as done and drop any claim on it. Marking an issue
done twice is an error, so scripts notice when they repeat themselves.

Example:
  grit done 7`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDone(opts, args[0], cmd)
		},
	}

	return cmd
}

func runDone(opts *DoneOptions, arg string, cmd *cobra.Command) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	tr, err := openTracker()
	if err != nil {
		return err
	}
	defer tr.Close()

	info, err := tr.Done(cmd.Context(), id)
	if err != nil {
		return commandError("failed to mark issue done", err)
	}

	out := formatter(opts.RootOptions, cmd)
	return out.Success(viewOf(info), func(w io.Writer) {
		fmt.Fprintf(w, "Marked issue #%d as done\n", info.Issue.ID)
	})
}

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set an issue's status",
		Long: `Set an issue's status directly. Accepts the canonical names and
common synonyms (wip, closed, wontfix, ...).

Examples:
  grit status 7 wont-fix
  grit status 7 open`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runStatus(opts *StatusOptions, arg, statusArg string, cmd *cobra.Command) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	status, err := issue.ParseStatus(statusArg)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid status", err)
	}

	tr, err := openTracker()
	if err != nil {
		return err
	}
	defer tr.Close()

	info, err := tr.SetStatus(cmd.Context(), id, status)
	if err != nil {
		return commandError("failed to set status", err)
	}

	out := formatter(opts.RootOptions, cmd)
	return out.Success(viewOf(info), func(w io.Writer) {
		fmt.Fprintf(w, "Set issue #%d status to %s\n", info.Issue.ID, status)
	})
}
