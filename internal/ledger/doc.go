// Package ledger provides the SQLite-backed coordination store for
// issue ID allocation and exclusive claims.
//
// The ledger is acceleration structure, not truth: every table is
// re-derivable by rescanning the records on the data branch. The one
// thing lost on a rebuild is the exact historical claim time, which
// is approximated by the record's own creation timestamp.
//
// # Concurrency
//
// Cross-process races are serialized by SQLite itself:
//   - Claim runs in an IMMEDIATE transaction, so concurrent claimants
//     of the same issue queue on the write lock and exactly one wins.
//   - ID allocation is a single UPDATE ... RETURNING statement, so
//     there is no read-then-write window at all.
//   - Rebuild runs in an EXCLUSIVE transaction and re-checks the
//     schema version inside it (another process may have rebuilt
//     first).
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - one connection: SQLite supports a single writer at a time
package ledger
