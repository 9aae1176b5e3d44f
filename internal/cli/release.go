package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ReleaseOptions holds flags for the release command.
type ReleaseOptions struct {
	*RootOptions
}

// NewReleaseCommand creates the release command.
func NewReleaseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReleaseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "release <id>",
		Short: "Release a claimed issue",
		Long: `Release the claim on an issue so someone else can pick it up. The
ledger row is removed and the record's assignee is cleared; the status
is left alone.

Example:
  grit release 7`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(opts, args[0], cmd)
		},
	}

	return cmd
}

func runRelease(opts *ReleaseOptions, arg string, cmd *cobra.Command) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	tr, err := openTracker()
	if err != nil {
		return err
	}
	defer tr.Close()

	info, err := tr.Release(cmd.Context(), id)
	if err != nil {
		return commandError("failed to release issue", err)
	}

	out := formatter(opts.RootOptions, cmd)
	return out.Success(viewOf(info), func(w io.Writer) {
		fmt.Fprintf(w, "Released issue #%d\n", info.Issue.ID)
	})
}
