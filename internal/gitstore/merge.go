package gitstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// MergeConflictError reports a merge (or cherry-pick) that produced
// conflicting content. No repository state is mutated when it is
// returned.
type MergeConflictError struct {
	Source string
	Target string
	Paths  []string
}

func (e *MergeConflictError) Error() string {
	msg := fmt.Sprintf("merge conflict merging %q into %q", e.Source, e.Target)
	if len(e.Paths) > 0 {
		msg += ": " + strings.Join(e.Paths, ", ")
	}
	return msg
}

// MergeBranches merges source into target at the reference level, with
// no checkout. Cases, in order:
//   - target missing: bootstrap it at source's tip
//   - source already contained in target: no-op
//   - target contained in source: fast-forward, no merge commit
//   - otherwise: three-way tree merge against the merge base; a
//     conflicting entry fails the whole merge with no mutation
//
// Returns the resulting target tip.
func (s *Store) MergeBranches(source, target string) (plumbing.Hash, error) {
	srcTip, _, err := s.branchTip(source)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if srcTip == nil {
		return plumbing.ZeroHash, fmt.Errorf("branch %q: %w", source, ErrBranchNotFound)
	}

	tgtTip, tgtRef, err := s.branchTip(target)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if tgtTip == nil {
		if err := s.advanceBranch(target, srcTip.Hash, nil); err != nil {
			return plumbing.ZeroHash, err
		}
		return srcTip.Hash, nil
	}

	if srcTip.Hash == tgtTip.Hash {
		return tgtTip.Hash, nil
	}

	merged, err := srcTip.IsAncestor(tgtTip)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("ancestry check: %w", err)
	}
	if merged {
		// Already merged.
		return tgtTip.Hash, nil
	}

	canFF, err := tgtTip.IsAncestor(srcTip)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("ancestry check: %w", err)
	}
	if canFF {
		if err := s.advanceBranch(target, srcTip.Hash, tgtRef); err != nil {
			return plumbing.ZeroHash, err
		}
		return srcTip.Hash, nil
	}

	treeHash, err := s.mergeTrees(srcTip, tgtTip, source, target)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	commit, err := s.writeCommit(
		fmt.Sprintf("Merge branch %q into %q", source, target),
		treeHash,
		[]plumbing.Hash{tgtTip.Hash, srcTip.Hash},
	)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if err := s.advanceBranch(target, commit, tgtRef); err != nil {
		return plumbing.ZeroHash, err
	}
	return commit, nil
}

// mergeTrees performs the three-way tree merge of the two tips against
// their merge base and writes the merged tree.
func (s *Store) mergeTrees(srcTip, tgtTip *object.Commit, source, target string) (plumbing.Hash, error) {
	var baseTree *object.Tree
	bases, err := srcTip.MergeBase(tgtTip)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("merge base: %w", err)
	}
	if len(bases) > 0 {
		baseTree, err = bases[0].Tree()
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("load base tree: %w", err)
		}
	}

	srcTree, err := srcTip.Tree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("load source tree: %w", err)
	}
	tgtTree, err := tgtTip.Tree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("load target tree: %w", err)
	}

	base, err := flattenTree(baseTree)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	src, err := flattenTree(srcTree)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	tgt, err := flattenTree(tgtTree)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	paths := make(map[string]struct{}, len(base)+len(src)+len(tgt))
	for p := range base {
		paths[p] = struct{}{}
	}
	for p := range src {
		paths[p] = struct{}{}
	}
	for p := range tgt {
		paths[p] = struct{}{}
	}

	merged := make(map[string]object.TreeEntry, len(paths))
	var conflicts []string
	for p := range paths {
		b, inBase := base[p]
		sv, inSrc := src[p]
		tv, inTgt := tgt[p]

		switch {
		case sameEntry(sv, inSrc, tv, inTgt):
			// Both sides agree (including both deleted).
			if inTgt {
				merged[p] = tv
			}
		case sameEntry(tv, inTgt, b, inBase):
			// Only source changed it: take source's side.
			if inSrc {
				merged[p] = sv
			}
		case sameEntry(sv, inSrc, b, inBase):
			// Only target changed it: keep target's side.
			if inTgt {
				merged[p] = tv
			}
		default:
			conflicts = append(conflicts, p)
		}
	}

	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return plumbing.ZeroHash, &MergeConflictError{Source: source, Target: target, Paths: conflicts}
	}

	return s.buildTree(merged)
}

func sameEntry(a object.TreeEntry, okA bool, b object.TreeEntry, okB bool) bool {
	if okA != okB {
		return false
	}
	if !okA {
		return true
	}
	return a.Hash == b.Hash && a.Mode == b.Mode
}
