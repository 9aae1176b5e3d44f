package tracker

import (
	"context"
	"sort"

	"github.com/grit-vcs/grit/internal/ledger"
)

// DriftReport describes how far the ledger has drifted from the data
// branch. The ledger is a cache; every category here is fixable by
// Repair without touching any record.
type DriftReport struct {
	SchemaVersion   int
	ExpectedVersion int
	IssueCount      int
	NextIssueID     int

	// MissingClaims lists assigned records that have no ledger row.
	MissingClaims []int
	// OrphanClaims lists ledger rows whose record is gone or no
	// longer carries the claimed assignee.
	OrphanClaims []int
	// NextIDStale is set when a record id meets or exceeds the next
	// id the ledger would hand out.
	NextIDStale bool
}

// Healthy reports whether the ledger matches the data branch.
func (r *DriftReport) Healthy() bool {
	return r.SchemaVersion == r.ExpectedVersion &&
		len(r.MissingClaims) == 0 &&
		len(r.OrphanClaims) == 0 &&
		!r.NextIDStale
}

// Doctor compares the ledger against the data branch and reports the
// drift without changing anything.
func (t *Tracker) Doctor(ctx context.Context) (*DriftReport, error) {
	report := &DriftReport{ExpectedVersion: ledger.ExpectedSchemaVersion()}

	version, err := t.db.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	report.SchemaVersion = version

	next, err := t.db.PeekNextIssueID(ctx)
	if err != nil {
		return nil, err
	}
	report.NextIssueID = next

	infos, err := t.scanBranch()
	if err != nil {
		return nil, err
	}
	report.IssueCount = len(infos)

	claims, err := t.db.ListClaims(ctx)
	if err != nil {
		return nil, err
	}
	claimed := make(map[int]ledger.Claim, len(claims))
	for _, c := range claims {
		claimed[c.IssueID] = c
	}

	assignees := make(map[int]string, len(infos))
	for _, info := range infos {
		assignees[info.Issue.ID] = info.Issue.Assignee
		if info.Issue.ID >= next {
			report.NextIDStale = true
		}
		if info.Issue.Assignee == "" {
			continue
		}
		if _, ok := claimed[info.Issue.ID]; !ok {
			report.MissingClaims = append(report.MissingClaims, info.Issue.ID)
		}
	}
	for id := range claimed {
		if assignees[id] == "" {
			report.OrphanClaims = append(report.OrphanClaims, id)
		}
	}
	sort.Ints(report.MissingClaims)
	sort.Ints(report.OrphanClaims)
	return report, nil
}

// Repair reports the drift and then rebuilds the ledger from the data
// branch. The returned report describes the state before the rebuild.
func (t *Tracker) Repair(ctx context.Context) (*DriftReport, error) {
	report, err := t.Doctor(ctx)
	if err != nil {
		return nil, err
	}
	if err := t.db.Repair(ctx); err != nil {
		return nil, err
	}
	return report, nil
}
