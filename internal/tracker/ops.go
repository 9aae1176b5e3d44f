package tracker

import (
	"context"
	"fmt"

	"github.com/grit-vcs/grit/internal/issue"
	"github.com/grit-vcs/grit/internal/project"
)

// Create allocates the next id, encodes a fresh record and commits it
// to the data branch. In merge mode the record commit is then
// cherry-picked onto the checked-out branch so the new file shows up
// in the working directory immediately.
func (t *Tracker) Create(ctx context.Context, title, body, epic string, deps []int) (*IssueInfo, error) {
	id, err := t.db.NextIssueID(ctx)
	if err != nil {
		return nil, err
	}

	is := issue.New(id)
	is.Epic = epic
	for _, dep := range deps {
		is.AddDependency(dep)
	}

	info := &IssueInfo{
		Issue: is,
		Title: title,
		Body:  body,
		Path:  project.IssuePath(id, is.Created),
	}
	content, err := issue.Encode(is, title, body)
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Create issue #%d: %s", id, title)
	hash, committed, err := t.proj.Store.CommitFile(t.dataBranch(), info.Path, content, message)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("created issue", "id", id, "path", info.Path, "commit", hash)

	if committed {
		if _, ok := t.proj.Config.ResolvedMergeBranch(); ok {
			if err := t.proj.Store.CherryPickToHead(hash, message); err != nil {
				return nil, err
			}
		}
	}
	return info, nil
}

// Update loads the record for id, applies mutate, and commits the
// re-encoded record when it changed. The boolean reports whether a
// commit happened; a mutator that leaves the record byte-identical is
// a no-op end to end.
func (t *Tracker) Update(ctx context.Context, id int, message string, mutate func(*IssueInfo) error) (*IssueInfo, bool, error) {
	info, err := t.Load(id)
	if err != nil {
		return nil, false, err
	}
	if err := mutate(info); err != nil {
		return nil, false, err
	}
	changed, err := t.commitRecord(info, message)
	if err != nil {
		return nil, false, err
	}
	return info, changed, nil
}

// commitRecord encodes info, commits it to the data branch, and
// propagates the change on success.
func (t *Tracker) commitRecord(info *IssueInfo, message string) (bool, error) {
	content, err := issue.Encode(info.Issue, info.Title, info.Body)
	if err != nil {
		return false, err
	}
	hash, committed, err := t.proj.Store.CommitFile(t.dataBranch(), info.Path, content, message)
	if err != nil {
		return false, err
	}
	if !committed {
		return false, nil
	}
	t.logger.Debug("committed record", "id", info.Issue.ID, "commit", hash)
	return true, t.propagate(info.Path)
}

// propagate carries a data-branch mutation outward. In merge mode the
// data branch is merged into the configured branch; in
// data-branch-only mode the working copy is reconciled instead so the
// checkout never accumulates stale record files.
func (t *Tracker) propagate(path string) error {
	if merge, ok := t.proj.Config.ResolvedMergeBranch(); ok {
		if _, err := t.proj.Store.MergeBranches(t.dataBranch(), merge); err != nil {
			return err
		}
		return nil
	}
	return t.proj.Store.SyncWorkingCopy(path)
}

// Claim records an exclusive claim for assignee in the ledger and then
// mirrors it into the record: assignee and session are set, the
// checked-out branch is noted, and an open issue moves to in-progress.
// The ledger row is taken first; if the record commit fails afterwards
// the drift is visible to doctor and fixed by repair.
func (t *Tracker) Claim(ctx context.Context, id int, assignee, session string) (*IssueInfo, error) {
	info, err := t.Load(id)
	if err != nil {
		return nil, err
	}

	if err := t.db.Claim(ctx, id, assignee); err != nil {
		return nil, err
	}

	info.Issue.Assignee = assignee
	if branch := t.proj.Store.CurrentBranch(); branch != "" {
		info.Issue.Branch = branch
	}
	if session != "" {
		info.Issue.Session = session
	}
	if info.Issue.Status == issue.Open {
		info.Issue.Status = issue.InProgress
	}

	message := fmt.Sprintf("Claim issue #%d for %s", id, assignee)
	if _, err := t.commitRecord(info, message); err != nil {
		return nil, err
	}
	return info, nil
}

// Release drops the ledger claim for id and clears the record's
// assignee and session. Status is left alone: releasing half-finished
// work does not make it open again.
func (t *Tracker) Release(ctx context.Context, id int) (*IssueInfo, error) {
	info, err := t.Load(id)
	if err != nil {
		return nil, err
	}

	if err := t.db.Release(ctx, id); err != nil {
		return nil, err
	}

	info.Issue.Assignee = ""
	info.Issue.Session = ""
	message := fmt.Sprintf("Release issue #%d", id)
	if _, err := t.commitRecord(info, message); err != nil {
		return nil, err
	}
	return info, nil
}

// Done marks id completed and releases any claim on it. Completing an
// already-done issue is an error so scripted callers notice repeats.
func (t *Tracker) Done(ctx context.Context, id int) (*IssueInfo, error) {
	info, err := t.Load(id)
	if err != nil {
		return nil, err
	}
	if info.Issue.Status == issue.Done {
		return nil, &AlreadyDoneError{ID: id}
	}

	info.Issue.Status = issue.Done
	message := fmt.Sprintf("Mark issue #%d as done", id)
	if _, err := t.commitRecord(info, message); err != nil {
		return nil, err
	}
	t.releaseClaimIfHeld(ctx, id)
	return info, nil
}

// SetStatus sets an arbitrary status on id.
func (t *Tracker) SetStatus(ctx context.Context, id int, status issue.Status) (*IssueInfo, error) {
	message := fmt.Sprintf("Set issue #%d status to %s", id, status)
	info, _, err := t.Update(ctx, id, message, func(info *IssueInfo) error {
		info.Issue.Status = status
		return nil
	})
	return info, err
}

// Depend records that id depends on each of deps.
func (t *Tracker) Depend(ctx context.Context, id int, deps []int) (*IssueInfo, error) {
	for _, dep := range deps {
		if _, err := t.Load(dep); err != nil {
			return nil, err
		}
	}
	message := fmt.Sprintf("Add dependencies to issue #%d", id)
	info, _, err := t.Update(ctx, id, message, func(info *IssueInfo) error {
		for _, dep := range deps {
			info.Issue.AddDependency(dep)
		}
		return nil
	})
	return info, err
}

// Undepend removes deps from id's dependency list. Unknown entries are
// ignored.
func (t *Tracker) Undepend(ctx context.Context, id int, deps []int) (*IssueInfo, error) {
	message := fmt.Sprintf("Remove dependencies from issue #%d", id)
	info, _, err := t.Update(ctx, id, message, func(info *IssueInfo) error {
		for _, dep := range deps {
			info.Issue.RemoveDependency(dep)
		}
		return nil
	})
	return info, err
}

// SetSession attaches a session identifier to id. An empty session
// clears it.
func (t *Tracker) SetSession(ctx context.Context, id int, session string) (*IssueInfo, error) {
	message := fmt.Sprintf("Set session on issue #%d", id)
	info, _, err := t.Update(ctx, id, message, func(info *IssueInfo) error {
		info.Issue.Session = session
		return nil
	})
	return info, err
}

// SetBody replaces the title and body of id, used by the edit command.
func (t *Tracker) SetBody(ctx context.Context, id int, title, body string) (*IssueInfo, error) {
	message := fmt.Sprintf("Edit issue #%d", id)
	info, _, err := t.Update(ctx, id, message, func(info *IssueInfo) error {
		info.Title = title
		info.Body = body
		return nil
	})
	return info, err
}

// releaseClaimIfHeld drops the ledger row for id if one exists. Done
// succeeds either way; a missing row just means nobody had claimed it.
func (t *Tracker) releaseClaimIfHeld(ctx context.Context, id int) {
	claim, err := t.db.GetClaim(ctx, id)
	if err != nil || claim == nil {
		return
	}
	if err := t.db.Release(ctx, id); err != nil {
		t.logger.Warn("release claim after done", "id", id, "error", err)
	}
}
