package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Body      string
	Epic      string
	DependsOn []int
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a new issue",
		Long: `Create a new issue on the data branch.

The id is allocated atomically by the local ledger, so concurrent
creates from multiple agents never collide.

Examples:
  grit create "Implement login flow"
  grit create "Implement login flow" --body "Details here." --epic MVP
  grit create "Wire sessions" --depends-on 3 --depends-on 4`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Body, "body", "b", "", "issue body text")
	cmd.Flags().StringVar(&opts.Epic, "epic", "", "epic the issue belongs to")
	cmd.Flags().IntSliceVar(&opts.DependsOn, "depends-on", nil, "issue ids this issue depends on")

	return cmd
}

func runCreate(opts *CreateOptions, title string, cmd *cobra.Command) error {
	tr, err := openTracker()
	if err != nil {
		return err
	}
	defer tr.Close()

	info, err := tr.Create(cmd.Context(), title, opts.Body, opts.Epic, opts.DependsOn)
	if err != nil {
		return commandError("failed to create issue", err)
	}

	out := formatter(opts.RootOptions, cmd)
	return out.Success(viewOf(info), func(w io.Writer) {
		fmt.Fprintf(w, "Created issue #%d: %s\n", info.Issue.ID, info.Title)
	})
}
