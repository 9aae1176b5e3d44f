package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one issue in full",
		Long: `Show the full record for one issue, read from the data branch.

Examples:
  grit show 7
  grit show 7 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	return cmd
}

func runShow(opts *ShowOptions, arg string, cmd *cobra.Command) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	tr, err := openTracker()
	if err != nil {
		return err
	}
	defer tr.Close()

	info, err := tr.Load(id)
	if err != nil {
		return commandError("failed to load issue", err)
	}

	out := formatter(opts.RootOptions, cmd)
	return out.Success(viewOf(info), func(w io.Writer) {
		renderIssueDetail(w, info)
	})
}
