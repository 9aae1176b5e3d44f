package cli

import (
	"errors"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/grit-vcs/grit/internal/gitstore"
	"github.com/grit-vcs/grit/internal/ledger"
	"github.com/grit-vcs/grit/internal/tracker"
)

// openTracker resolves the project from the working directory.
func openTracker() (*tracker.Tracker, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to resolve working directory", err)
	}
	tr, err := tracker.Open(wd, slog.Default())
	if err != nil {
		return nil, commandError("failed to open project", err)
	}
	return tr, nil
}

// commandError maps domain errors to exit codes: claim, merge and
// cherry-pick conflicts exit 2, everything else 1.
func commandError(message string, err error) error {
	if err == nil {
		return nil
	}
	var claimed *ledger.AlreadyClaimedError
	var conflict *gitstore.MergeConflictError
	if errors.As(err, &claimed) || errors.As(err, &conflict) {
		return WrapExitError(ExitConflict, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}

// formatter builds the output formatter for a command invocation.
func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

// parseID parses a positional issue id argument.
func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitFailure, "invalid issue id "+strconv.Quote(arg))
	}
	return id, nil
}
