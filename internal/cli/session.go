package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// SessionOptions holds flags for the session command.
type SessionOptions struct {
	*RootOptions
	Clear bool
}

// NewSessionCommand creates the session command.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "session <id> [session]",
		Short: "Attach a session identifier to an issue",
		Long: `Attach a session identifier to an issue, so agent runs can be traced
back to the work they picked up.

Examples:
  grit session 7 sess-001
  grit session 7 --clear`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "clear the session identifier")

	return cmd
}

func runSession(opts *SessionOptions, args []string, cmd *cobra.Command) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	session := ""
	switch {
	case opts.Clear && len(args) > 1:
		return NewExitError(ExitFailure, "pass a session or --clear, not both")
	case !opts.Clear && len(args) < 2:
		return NewExitError(ExitFailure, "missing session argument (or pass --clear)")
	case len(args) > 1:
		session = args[1]
	}

	tr, err := openTracker()
	if err != nil {
		return err
	}
	defer tr.Close()

	info, err := tr.SetSession(cmd.Context(), id, session)
	if err != nil {
		return commandError("failed to set session", err)
	}

	out := formatter(opts.RootOptions, cmd)
	return out.Success(viewOf(info), func(w io.Writer) {
		if session == "" {
			fmt.Fprintf(w, "Cleared session on issue #%d\n", info.Issue.ID)
		} else {
			fmt.Fprintf(w, "Set session %s on issue #%d\n", session, info.Issue.ID)
		}
	})
}
