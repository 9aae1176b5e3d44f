package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/grit-vcs/grit/internal/tracker"
)

// DependOptions holds flags for the depend and undepend commands.
type DependOptions struct {
	*RootOptions
	On []int
}

// NewDependCommand creates the depend command.
func NewDependCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DependOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "depend <id>",
		Short: "Add dependencies to an issue",
		Long: `Record that an issue depends on other issues. Every dependency must
exist; duplicates and self-references are ignored.

Example:
  grit depend 7 --on 2 --on 3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDepend(opts, args[0], cmd, false)
		},
	}

	cmd.Flags().IntSliceVar(&opts.On, "on", nil, "issue ids to depend on (required)")
	_ = cmd.MarkFlagRequired("on")

	return cmd
}

// NewUndependCommand creates the undepend command.
func NewUndependCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DependOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "undepend <id>",
		Short: "Remove dependencies from an issue",
		Long: `Remove entries from an issue's dependency list. Ids that are not
listed are ignored.

Example:
  grit undepend 7 --on 2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDepend(opts, args[0], cmd, true)
		},
	}

	cmd.Flags().IntSliceVar(&opts.On, "on", nil, "issue ids to stop depending on (required)")
	_ = cmd.MarkFlagRequired("on")

	return cmd
}

func runDepend(opts *DependOptions, arg string, cmd *cobra.Command, remove bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	tr, err := openTracker()
	if err != nil {
		return err
	}
	defer tr.Close()

	var info *tracker.IssueInfo
	if remove {
		info, err = tr.Undepend(cmd.Context(), id, opts.On)
	} else {
		info, err = tr.Depend(cmd.Context(), id, opts.On)
	}
	if err != nil {
		return commandError("failed to update dependencies", err)
	}

	out := formatter(opts.RootOptions, cmd)
	return out.Success(viewOf(info), func(w io.Writer) {
		fmt.Fprintf(w, "Issue #%d now depends on %v\n", info.Issue.ID, info.Issue.DependsOn)
	})
}
