package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/grit-vcs/grit/internal/issue"
	"github.com/grit-vcs/grit/internal/tracker"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Status   string
	Epic     string
	Assignee string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues",
		Long: `List issues from the data branch, in-progress first and wont-fix
last, ties broken by id.

Examples:
  grit list
  grit list --status open
  grit list --epic MVP --assignee agent-1
  grit list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status (open|in-progress|done|wont-fix)")
	cmd.Flags().StringVar(&opts.Epic, "epic", "", "filter by epic")
	cmd.Flags().StringVar(&opts.Assignee, "assignee", "", "filter by assignee")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	filter := tracker.Filter{Epic: opts.Epic, Assignee: opts.Assignee}
	if opts.Status != "" {
		status, err := issue.ParseStatus(opts.Status)
		if err != nil {
			return WrapExitError(ExitFailure, "invalid status filter", err)
		}
		filter.Status = &status
	}

	tr, err := openTracker()
	if err != nil {
		return err
	}
	defer tr.Close()

	infos, err := tr.List(filter)
	if err != nil {
		return commandError("failed to list issues", err)
	}

	out := formatter(opts.RootOptions, cmd)
	return out.Success(viewsOf(infos), func(w io.Writer) {
		renderIssueTable(w, infos)
	})
}

// BoardOptions holds flags for the board command.
type BoardOptions struct {
	*RootOptions
	Epic string
}

// NewBoardCommand creates the board command.
func NewBoardCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BoardOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show issues grouped by status",
		Long: `Show all issues grouped into status columns, the way a kanban
board lays them out.

Examples:
  grit board
  grit board --epic MVP`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Epic, "epic", "", "filter by epic")

	return cmd
}

func runBoard(opts *BoardOptions, cmd *cobra.Command) error {
	tr, err := openTracker()
	if err != nil {
		return err
	}
	defer tr.Close()

	infos, err := tr.List(tracker.Filter{Epic: opts.Epic})
	if err != nil {
		return commandError("failed to list issues", err)
	}

	out := formatter(opts.RootOptions, cmd)
	return out.Success(viewsOf(infos), func(w io.Writer) {
		renderBoard(w, infos)
	})
}
