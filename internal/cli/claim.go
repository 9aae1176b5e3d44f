package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ClaimOptions holds flags for the claim command.
type ClaimOptions struct {
	*RootOptions
	Assignee string
	Session  string
}

// NewClaimCommand creates the claim command.
func NewClaimCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClaimOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "claim <id>",
		Short: "Claim an issue exclusively",
		Long: `Claim an issue for an assignee. The claim is taken atomically in
the local ledger; if someone already holds it the command exits with
code 2. A successful claim sets the assignee on the record, notes the
checked-out branch, and moves an open issue to in-progress.

The assignee defaults to default_assignee from the global config.

Examples:
  grit claim 7 --as agent-1
  grit claim 7 --as agent-1 --session sess-001`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClaim(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Assignee, "as", "", "assignee taking the claim")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session identifier to record")

	return cmd
}

func runClaim(opts *ClaimOptions, arg string, cmd *cobra.Command) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	tr, err := openTracker()
	if err != nil {
		return err
	}
	defer tr.Close()

	assignee := opts.Assignee
	if assignee == "" {
		assignee = tr.Project().Config.DefaultAssignee
	}
	if assignee == "" {
		return NewExitError(ExitFailure, "no assignee: pass --as or set default_assignee in the config")
	}

	info, err := tr.Claim(cmd.Context(), id, assignee, opts.Session)
	if err != nil {
		return commandError("failed to claim issue", err)
	}

	out := formatter(opts.RootOptions, cmd)
	return out.Success(viewOf(info), func(w io.Writer) {
		fmt.Fprintf(w, "Claimed issue #%d for %s\n", info.Issue.ID, assignee)
	})
}
