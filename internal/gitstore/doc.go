// Package gitstore reads and writes issue data directly against the
// git object graph, without touching the working tree, the index, or
// HEAD.
//
// Writes build the nested tree structure by hand: the target blob is
// written, each tree level along the path is rebuilt bottom-up
// preserving sibling entries, and the branch reference is advanced
// with a compare-and-swap. A write whose resulting tree is identical
// to the current tip is a no-op and produces no commit.
//
// The reconciler half of the package replicates merge, fast-forward
// and cherry-pick semantics over the same primitives:
//   - MergeBranches works purely at the reference level (three-way
//     tree merge, no checkout).
//   - CherryPickToHead is the one operation that deliberately updates
//     the working tree, the index and HEAD together.
//   - SyncWorkingCopy restores a path to its checkout-tip content,
//     keeping the working directory a disposable view in
//     data-branch-only mode.
package gitstore
