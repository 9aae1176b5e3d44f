package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/grit-vcs/grit/internal/tracker"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
}

// initResultView is the JSON projection of an init run.
type initResultView struct {
	ProjectID string   `json:"project_id"`
	Created   bool     `json:"created"`
	Migrated  []string `json:"migrated,omitempty"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize issue tracking in this repository",
		Long: `Initialize issue tracking in the enclosing git repository.

Creates .grit/metadata.toml with a stable project id, sets up the
per-project ledger under the global directory, migrates record files
from older layouts, and rebuilds the ledger from the data branch.

Running init again is safe; on a fresh clone it recreates the ledger.

Example:
  grit init
  grit init --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	wd, err := os.Getwd()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to resolve working directory", err)
	}

	tr, result, err := tracker.Init(cmd.Context(), wd, slog.Default())
	if err != nil {
		return commandError("failed to initialize project", err)
	}
	defer tr.Close()

	out := formatter(opts.RootOptions, cmd)
	view := initResultView{
		ProjectID: tr.Project().Metadata.ProjectID,
		Created:   result.Created,
		Migrated:  result.Migrated,
	}
	return out.Success(view, func(w io.Writer) {
		if result.Created {
			fmt.Fprintf(w, "Initialized project %s\n", view.ProjectID)
		} else {
			fmt.Fprintf(w, "Project %s already initialized; ledger repaired\n", view.ProjectID)
		}
		for _, name := range result.Migrated {
			fmt.Fprintf(w, "Migrated %s\n", name)
		}
	})
}
