// Package tracker implements the issue operations consumed by the
// command layer: create, load, update, claim, release, list, and the
// ledger repair path.
//
// Every operation follows the same shape: coordinate through the
// ledger where a claim or an id is involved, commit the re-encoded
// record to the data branch through the git object store, then
// propagate -- cherry-pick onto the checkout, merge into the
// configured branch, or reconcile the working copy in data-branch-only
// mode. Each operation touches at most one record's path and at most
// one ledger row, so a failure never leaves partial state behind.
package tracker
