package gitstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	gopath "path"
	"sort"

	"github.com/go-git/go-billy/v5/util"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CherryPickToHead applies one commit's changes onto the checked-out
// branch, updating the working directory, the index and the branch
// tip together. On a freshly initialized repository with no commits
// this degrades to "become this commit": the full tree is checked out
// and committed parentless. A conflicting change fails with
// MergeConflictError before any file is touched, leaving the working
// tree clean.
func (s *Store) CherryPickToHead(hash plumbing.Hash, message string) error {
	pick, err := object.GetCommit(s.repo.Storer, hash)
	if err != nil {
		return fmt.Errorf("load commit %s: %w", hash, err)
	}
	pickTree, err := pick.Tree()
	if err != nil {
		return fmt.Errorf("load commit tree: %w", err)
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	head, err := s.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return s.becomeCommit(wt, pickTree, message)
	}
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}

	headCommit, err := object.GetCommit(s.repo.Storer, head.Hash())
	if err != nil {
		return fmt.Errorf("load HEAD commit: %w", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return fmt.Errorf("load HEAD tree: %w", err)
	}

	var parentTree *object.Tree
	if pick.NumParents() > 0 {
		parent, err := pick.Parent(0)
		if err != nil {
			return fmt.Errorf("load commit parent: %w", err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return fmt.Errorf("load parent tree: %w", err)
		}
	}

	from, err := flattenTree(parentTree)
	if err != nil {
		return err
	}
	to, err := flattenTree(pickTree)
	if err != nil {
		return err
	}
	ours, err := flattenTree(headTree)
	if err != nil {
		return err
	}

	type fileChange struct {
		path   string
		entry  object.TreeEntry
		delete bool
	}

	// Detect every conflict before touching the worktree, so a failed
	// pick leaves the tree exactly as it was.
	var applies []fileChange
	var conflicts []string
	for p := range union(from, to) {
		fv, inFrom := from[p]
		tv, inTo := to[p]
		if sameEntry(fv, inFrom, tv, inTo) {
			continue
		}
		hv, inHead := ours[p]

		switch {
		case sameEntry(hv, inHead, tv, inTo):
			// Change already present on HEAD.
		case sameEntry(hv, inHead, fv, inFrom):
			applies = append(applies, fileChange{path: p, entry: tv, delete: !inTo})
		default:
			conflicts = append(conflicts, p)
		}
	}

	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return &MergeConflictError{
			Source: hash.String(),
			Target: s.CurrentBranch(),
			Paths:  conflicts,
		}
	}
	if len(applies) == 0 {
		return nil
	}

	for _, change := range applies {
		if change.delete {
			if _, err := wt.Remove(change.path); err != nil {
				return fmt.Errorf("remove %s: %w", change.path, err)
			}
			continue
		}
		content, err := s.blobContent(change.entry.Hash)
		if err != nil {
			return err
		}
		if err := s.writeWorktreeFile(wt, change.path, content); err != nil {
			return err
		}
		if _, err := wt.Add(change.path); err != nil {
			return fmt.Errorf("stage %s: %w", change.path, err)
		}
	}

	return s.commitWorktree(wt, message)
}

// becomeCommit checks out the full tree and creates the repository's
// first commit from it.
func (s *Store) becomeCommit(wt *git.Worktree, tree *object.Tree, message string) error {
	flat, err := flattenTree(tree)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(flat))
	for p := range flat {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		content, err := s.blobContent(flat[p].Hash)
		if err != nil {
			return err
		}
		if err := s.writeWorktreeFile(wt, p, content); err != nil {
			return err
		}
		if _, err := wt.Add(p); err != nil {
			return fmt.Errorf("stage %s: %w", p, err)
		}
	}

	return s.commitWorktree(wt, message)
}

// SyncWorkingCopy restores path in the working directory to its
// content at the checkout tip, or deletes it when the tip does not
// track it. This keeps the working directory a disposable view after
// data-branch-only mutations.
func (s *Store) SyncWorkingCopy(path string) error {
	wt, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	head, err := s.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return s.removeWorktreeFile(wt, path)
	}
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}

	headCommit, err := object.GetCommit(s.repo.Storer, head.Hash())
	if err != nil {
		return fmt.Errorf("load HEAD commit: %w", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return fmt.Errorf("load HEAD tree: %w", err)
	}

	file, err := headTree.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return s.removeWorktreeFile(wt, path)
	}
	if err != nil {
		return fmt.Errorf("read %s at HEAD: %w", path, err)
	}

	content, err := file.Contents()
	if err != nil {
		return fmt.Errorf("read %s at HEAD: %w", path, err)
	}
	return s.writeWorktreeFile(wt, path, []byte(content))
}

func (s *Store) commitWorktree(wt *git.Worktree, message string) error {
	sig := s.signature()
	_, err := wt.Commit(message, &git.CommitOptions{Author: &sig, Committer: &sig})
	if errors.Is(err, git.ErrEmptyCommit) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("commit to HEAD: %w", err)
	}
	return nil
}

func (s *Store) blobContent(hash plumbing.Hash) ([]byte, error) {
	blob, err := object.GetBlob(s.repo.Storer, hash)
	if err != nil {
		return nil, fmt.Errorf("load blob %s: %w", hash, err)
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", hash, err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", hash, err)
	}
	return content, nil
}

func (s *Store) writeWorktreeFile(wt *git.Worktree, path string, content []byte) error {
	if dir := gopath.Dir(path); dir != "." {
		if err := wt.Filesystem.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := util.WriteFile(wt.Filesystem, path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *Store) removeWorktreeFile(wt *git.Worktree, path string) error {
	err := wt.Filesystem.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func union(maps ...map[string]object.TreeEntry) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range maps {
		for p := range m {
			out[p] = struct{}{}
		}
	}
	return out
}
