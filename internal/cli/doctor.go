package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/grit-vcs/grit/internal/tracker"
)

// DoctorOptions holds flags for the doctor command.
type DoctorOptions struct {
	*RootOptions
	Repair bool
}

// doctorView is the JSON projection of a drift report.
type doctorView struct {
	Healthy       bool  `json:"healthy"`
	SchemaVersion int   `json:"schema_version"`
	Expected      int   `json:"expected_schema_version"`
	Issues        int   `json:"issues"`
	NextIssueID   int   `json:"next_issue_id"`
	MissingClaims []int `json:"missing_claims,omitempty"`
	OrphanClaims  []int `json:"orphan_claims,omitempty"`
	NextIDStale   bool  `json:"next_id_stale"`
	Repaired      bool  `json:"repaired"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DoctorOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the ledger against the data branch",
		Long: `Compare the local ledger with the records on the data branch and
report drift: assigned records without a claim row, claim rows whose
record is gone or unassigned, and a stale id counter.

The ledger is derived state, so --repair rebuilds it in place without
touching any record. Without --repair the command exits with code 1
when drift is found.

Examples:
  grit doctor
  grit doctor --repair`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Repair, "repair", false, "rebuild the ledger from the data branch")

	return cmd
}

func runDoctor(opts *DoctorOptions, cmd *cobra.Command) error {
	tr, err := openTracker()
	if err != nil {
		return err
	}
	defer tr.Close()

	var report *tracker.DriftReport
	if opts.Repair {
		report, err = tr.Repair(cmd.Context())
	} else {
		report, err = tr.Doctor(cmd.Context())
	}
	if err != nil {
		return commandError("failed to check ledger", err)
	}

	view := doctorView{
		Healthy:       report.Healthy(),
		SchemaVersion: report.SchemaVersion,
		Expected:      report.ExpectedVersion,
		Issues:        report.IssueCount,
		NextIssueID:   report.NextIssueID,
		MissingClaims: report.MissingClaims,
		OrphanClaims:  report.OrphanClaims,
		NextIDStale:   report.NextIDStale,
		Repaired:      opts.Repair,
	}

	out := formatter(opts.RootOptions, cmd)
	if err := out.Success(view, func(w io.Writer) {
		renderDriftReport(w, report, opts.Repair)
	}); err != nil {
		return err
	}

	if !report.Healthy() && !opts.Repair {
		return NewExitError(ExitFailure, "ledger drift detected (run 'grit doctor --repair')")
	}
	return nil
}

func renderDriftReport(w io.Writer, report *tracker.DriftReport, repaired bool) {
	fmt.Fprintf(w, "Schema version: %d (expected %d)\n", report.SchemaVersion, report.ExpectedVersion)
	fmt.Fprintf(w, "Issues:         %d\n", report.IssueCount)
	fmt.Fprintf(w, "Next issue id:  %d\n", report.NextIssueID)

	if report.Healthy() {
		fmt.Fprintln(w, "Ledger matches the data branch.")
		return
	}
	if len(report.MissingClaims) > 0 {
		fmt.Fprintf(w, "Missing claims: %v\n", report.MissingClaims)
	}
	if len(report.OrphanClaims) > 0 {
		fmt.Fprintf(w, "Orphan claims:  %v\n", report.OrphanClaims)
	}
	if report.NextIDStale {
		fmt.Fprintln(w, "Next issue id is stale.")
	}
	if repaired {
		fmt.Fprintln(w, "Ledger rebuilt from the data branch.")
	}
}
