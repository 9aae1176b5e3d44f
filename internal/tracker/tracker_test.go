package tracker

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grit-vcs/grit/internal/issue"
	"github.com/grit-vcs/grit/internal/ledger"
	"github.com/grit-vcs/grit/internal/project"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestTracker initializes a project inside a fresh git repository,
// with the global directory redirected to a per-test location.
func newTestTracker(t *testing.T, cfg *project.Config) *Tracker {
	t.Helper()
	t.Setenv("GRIT_HOME", t.TempDir())

	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	if cfg != nil {
		require.NoError(t, project.InitGlobalDir())
		require.NoError(t, project.SaveConfig(*cfg))
	}

	tr, result, err := Init(context.Background(), dir, testLogger())
	require.NoError(t, err)
	require.True(t, result.Created)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func mustCreate(t *testing.T, tr *Tracker, title string) *IssueInfo {
	t.Helper()
	info, err := tr.Create(context.Background(), title, "", "", nil)
	require.NoError(t, err)
	return info
}

func TestInit_CreatesProjectAndLedger(t *testing.T) {
	tr := newTestTracker(t, nil)

	assert.FileExists(t, filepath.Join(tr.Project().Root, project.IssuesDir, "metadata.toml"))
	assert.FileExists(t, tr.Project().DBPath)
	assert.NotEmpty(t, tr.Project().Metadata.ProjectID)
}

func TestInit_Rerun(t *testing.T) {
	tr := newTestTracker(t, nil)
	tr.Close()

	tr2, result, err := Init(context.Background(), tr.Project().Root, testLogger())
	require.NoError(t, err)
	defer tr2.Close()

	assert.False(t, result.Created)
	assert.Equal(t, tr.Project().Metadata.ProjectID, tr2.Project().Metadata.ProjectID)
}

func TestCreate_SequentialIDsAndDatedPaths(t *testing.T) {
	tr := newTestTracker(t, nil)

	first := mustCreate(t, tr, "First issue")
	second := mustCreate(t, tr, "Second issue")

	assert.Equal(t, 1, first.Issue.ID)
	assert.Equal(t, 2, second.Issue.ID)
	assert.Contains(t, first.Path, "-issue-001.md")
	assert.Equal(t, issue.Open, first.Issue.Status)
}

func TestCreate_RoundTripsThroughLoad(t *testing.T) {
	tr := newTestTracker(t, nil)

	created, err := tr.Create(context.Background(), "Implement login", "Details here.", "MVP", []int{3, 2})
	require.NoError(t, err)

	loaded, err := tr.Load(created.Issue.ID)
	require.NoError(t, err)
	assert.Equal(t, "Implement login", loaded.Title)
	assert.Equal(t, "Details here.\n", loaded.Body)
	assert.Equal(t, "MVP", loaded.Issue.Epic)
	assert.Equal(t, []int{2, 3}, loaded.Issue.DependsOn)
	assert.Equal(t, created.Issue.Created, loaded.Issue.Created)
}

func TestCreate_MergeModeMaterializesWorkingFile(t *testing.T) {
	tr := newTestTracker(t, nil)

	info := mustCreate(t, tr, "Visible issue")
	assert.FileExists(t, filepath.Join(tr.Project().Root, filepath.FromSlash(info.Path)))
}

func TestCreate_DataOnlyModeLeavesWorkingCopyClean(t *testing.T) {
	empty := ""
	tr := newTestTracker(t, &project.Config{MergeBranch: &empty})

	info := mustCreate(t, tr, "Hidden issue")
	assert.NoFileExists(t, filepath.Join(tr.Project().Root, filepath.FromSlash(info.Path)))

	loaded, err := tr.Load(info.Issue.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hidden issue", loaded.Title)
}

func TestLoad_UnknownID(t *testing.T) {
	tr := newTestTracker(t, nil)

	_, err := tr.Load(42)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 42, nf.ID)
}

func TestClaim_SetsFieldsAndBumpsStatus(t *testing.T) {
	tr := newTestTracker(t, nil)
	ctx := context.Background()
	created := mustCreate(t, tr, "Claimed issue")

	info, err := tr.Claim(ctx, created.Issue.ID, "agent-1", "sess-9")
	require.NoError(t, err)

	assert.Equal(t, "agent-1", info.Issue.Assignee)
	assert.Equal(t, "sess-9", info.Issue.Session)
	assert.Equal(t, issue.InProgress, info.Issue.Status)
	assert.NotEmpty(t, info.Issue.Branch)

	claim, err := tr.Ledger().GetClaim(ctx, created.Issue.ID)
	require.NoError(t, err)
	require.NotNil(t, claim)
	assert.Equal(t, "agent-1", claim.Assignee)
}

func TestClaim_Exclusive(t *testing.T) {
	tr := newTestTracker(t, nil)
	ctx := context.Background()
	created := mustCreate(t, tr, "Contested issue")

	_, err := tr.Claim(ctx, created.Issue.ID, "agent-1", "")
	require.NoError(t, err)

	_, err = tr.Claim(ctx, created.Issue.ID, "agent-2", "")
	var conflict *ledger.AlreadyClaimedError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "agent-1", conflict.Assignee)
}

func TestRelease_ThenReclaim(t *testing.T) {
	tr := newTestTracker(t, nil)
	ctx := context.Background()
	created := mustCreate(t, tr, "Handover issue")

	_, err := tr.Claim(ctx, created.Issue.ID, "agent-1", "")
	require.NoError(t, err)

	released, err := tr.Release(ctx, created.Issue.ID)
	require.NoError(t, err)
	assert.Empty(t, released.Issue.Assignee)
	// Releasing does not reopen work already in progress.
	assert.Equal(t, issue.InProgress, released.Issue.Status)

	_, err = tr.Claim(ctx, created.Issue.ID, "agent-2", "")
	require.NoError(t, err)
}

func TestRelease_NotClaimed(t *testing.T) {
	tr := newTestTracker(t, nil)
	created := mustCreate(t, tr, "Unclaimed issue")

	_, err := tr.Release(context.Background(), created.Issue.ID)
	var notClaimed *ledger.NotClaimedError
	require.ErrorAs(t, err, &notClaimed)
}

func TestDone_ReleasesClaimAndGuardsRepeat(t *testing.T) {
	tr := newTestTracker(t, nil)
	ctx := context.Background()
	created := mustCreate(t, tr, "Finished issue")

	_, err := tr.Claim(ctx, created.Issue.ID, "agent-1", "")
	require.NoError(t, err)

	done, err := tr.Done(ctx, created.Issue.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.Done, done.Issue.Status)

	claim, err := tr.Ledger().GetClaim(ctx, created.Issue.ID)
	require.NoError(t, err)
	assert.Nil(t, claim)

	_, err = tr.Done(ctx, created.Issue.ID)
	var already *AlreadyDoneError
	require.ErrorAs(t, err, &already)
}

func TestSetStatus(t *testing.T) {
	tr := newTestTracker(t, nil)
	created := mustCreate(t, tr, "Abandoned issue")

	info, err := tr.SetStatus(context.Background(), created.Issue.ID, issue.WontFix)
	require.NoError(t, err)
	assert.Equal(t, issue.WontFix, info.Issue.Status)
}

func TestUpdate_NoOpWhenUnchanged(t *testing.T) {
	tr := newTestTracker(t, nil)
	created := mustCreate(t, tr, "Stable issue")

	_, changed, err := tr.Update(context.Background(), created.Issue.ID, "touch", func(*IssueInfo) error {
		return nil
	})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDepend_Undepend(t *testing.T) {
	tr := newTestTracker(t, nil)
	ctx := context.Background()
	a := mustCreate(t, tr, "Base issue")
	b := mustCreate(t, tr, "Dependent issue")

	info, err := tr.Depend(ctx, b.Issue.ID, []int{a.Issue.ID})
	require.NoError(t, err)
	assert.Equal(t, []int{a.Issue.ID}, info.Issue.DependsOn)

	_, err = tr.Depend(ctx, b.Issue.ID, []int{99})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	info, err = tr.Undepend(ctx, b.Issue.ID, []int{a.Issue.ID})
	require.NoError(t, err)
	assert.Empty(t, info.Issue.DependsOn)
}

func TestSetSession(t *testing.T) {
	tr := newTestTracker(t, nil)
	created := mustCreate(t, tr, "Session issue")

	info, err := tr.SetSession(context.Background(), created.Issue.ID, "sess-42")
	require.NoError(t, err)
	assert.Equal(t, "sess-42", info.Issue.Session)

	info, err = tr.SetSession(context.Background(), created.Issue.ID, "")
	require.NoError(t, err)
	assert.Empty(t, info.Issue.Session)
}

func TestList_OrderAndFilters(t *testing.T) {
	tr := newTestTracker(t, nil)
	ctx := context.Background()

	open := mustCreate(t, tr, "Open issue")
	doneIssue := mustCreate(t, tr, "Done issue")
	active := mustCreate(t, tr, "Active issue")

	_, err := tr.Claim(ctx, active.Issue.ID, "agent-1", "")
	require.NoError(t, err)
	_, err = tr.Done(ctx, doneIssue.Issue.ID)
	require.NoError(t, err)

	all, err := tr.List(Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, active.Issue.ID, all[0].Issue.ID)
	assert.Equal(t, open.Issue.ID, all[1].Issue.ID)
	assert.Equal(t, doneIssue.Issue.ID, all[2].Issue.ID)

	st := issue.Open
	onlyOpen, err := tr.List(Filter{Status: &st})
	require.NoError(t, err)
	require.Len(t, onlyOpen, 1)
	assert.Equal(t, open.Issue.ID, onlyOpen[0].Issue.ID)

	mine, err := tr.List(Filter{Assignee: "agent-1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, active.Issue.ID, mine[0].Issue.ID)
}

func TestSearch_CaseFolding(t *testing.T) {
	tr := newTestTracker(t, nil)

	_, err := tr.Create(context.Background(), "Fix Straße rendering", "Umlauts break layout.", "", nil)
	require.NoError(t, err)
	mustCreate(t, tr, "Unrelated issue")

	hits, err := tr.Search("STRASSE")
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = tr.Search("umlauts")
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = tr.Search("nonexistent")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDoctor_ReportsDriftAndRepairFixesIt(t *testing.T) {
	tr := newTestTracker(t, nil)
	ctx := context.Background()

	// A record that reached the data branch without the ledger seeing
	// it, as when pulling a collaborator's commits into a fresh clone.
	ghost := issue.New(5)
	ghost.Assignee = "ghost"
	ghost.Status = issue.InProgress
	content, err := issue.Encode(ghost, "Ghost issue", "")
	require.NoError(t, err)
	_, _, err = tr.Project().Store.CommitFile(
		tr.Project().Config.ResolvedDataBranch(),
		project.IssuePath(5, ghost.Created), content, "Import issue #5")
	require.NoError(t, err)

	report, err := tr.Doctor(ctx)
	require.NoError(t, err)
	assert.False(t, report.Healthy())
	assert.Equal(t, []int{5}, report.MissingClaims)
	assert.True(t, report.NextIDStale)

	_, err = tr.Repair(ctx)
	require.NoError(t, err)

	after, err := tr.Doctor(ctx)
	require.NoError(t, err)
	assert.True(t, after.Healthy())

	_, err = tr.Claim(ctx, 5, "agent-2", "")
	var conflict *ledger.AlreadyClaimedError
	require.ErrorAs(t, err, &conflict)

	next, err := tr.Ledger().NextIssueID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, next)
}

func TestDoctor_ReportsOrphanClaims(t *testing.T) {
	tr := newTestTracker(t, nil)
	ctx := context.Background()
	created := mustCreate(t, tr, "Orphan issue")

	_, err := tr.Claim(ctx, created.Issue.ID, "agent-1", "")
	require.NoError(t, err)

	// Clear the assignee behind the ledger's back.
	info, err := tr.Load(created.Issue.ID)
	require.NoError(t, err)
	info.Issue.Assignee = ""
	content, err := issue.Encode(info.Issue, info.Title, info.Body)
	require.NoError(t, err)
	_, _, err = tr.Project().Store.CommitFile(
		tr.Project().Config.ResolvedDataBranch(), info.Path, content, "Drop assignee")
	require.NoError(t, err)

	report, err := tr.Doctor(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{created.Issue.ID}, report.OrphanClaims)

	_, err = tr.Repair(ctx)
	require.NoError(t, err)

	_, err = tr.Claim(ctx, created.Issue.ID, "agent-2", "")
	require.NoError(t, err)
}

func TestInit_MigratesLegacyWorkingFiles(t *testing.T) {
	t.Setenv("GRIT_HOME", t.TempDir())
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	legacy := "---\n" +
		"id: 3\n" +
		"title: Old style issue\n" +
		"status: open\n" +
		"created: \"2023-06-01T08:00:00Z\"\n" +
		"---\n\nBody text.\n"
	issuesDir := filepath.Join(dir, project.IssuesDir)
	require.NoError(t, os.MkdirAll(issuesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(issuesDir, "3.md"), []byte(legacy), 0o644))

	tr, result, err := Init(context.Background(), dir, testLogger())
	require.NoError(t, err)
	defer tr.Close()

	require.Contains(t, result.Migrated, "2023-06-01-issue-003.md")
	assert.NoFileExists(t, filepath.Join(issuesDir, "3.md"))
	assert.FileExists(t, filepath.Join(issuesDir, "2023-06-01-issue-003.md"))

	info, err := tr.Load(3)
	require.NoError(t, err)
	assert.Equal(t, "Old style issue", info.Title)
	assert.Equal(t, "Body text.\n", info.Body)

	next, err := tr.Ledger().NextIssueID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, next)
}

func TestScanBranch_SkipsCorruptRecords(t *testing.T) {
	tr := newTestTracker(t, nil)
	mustCreate(t, tr, "Good issue")

	_, _, err := tr.Project().Store.CommitFile(
		tr.Project().Config.ResolvedDataBranch(),
		project.IssuesDir+"/broken.md", []byte("not a record"), "Add broken file")
	require.NoError(t, err)

	infos, err := tr.List(Filter{})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "Good issue", infos[0].Title)
}
