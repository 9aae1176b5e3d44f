package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search issue titles and bodies",
		Long: `Search issue titles and bodies. Matching is case-insensitive with
full Unicode case folding.

Examples:
  grit search "login flow"
  grit search strasse`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(opts, args[0], cmd)
		},
	}

	return cmd
}

func runSearch(opts *SearchOptions, query string, cmd *cobra.Command) error {
	tr, err := openTracker()
	if err != nil {
		return err
	}
	defer tr.Close()

	infos, err := tr.Search(query)
	if err != nil {
		return commandError("failed to search issues", err)
	}

	out := formatter(opts.RootOptions, cmd)
	return out.Success(viewsOf(infos), func(w io.Writer) {
		renderIssueTable(w, infos)
	})
}
