package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Current schema version. Any other version found on open triggers a
// full rebuild from the data branch.
const schemaVersion = 1

// ErrNotInitialized is returned by Open when the ledger's parent
// directory does not exist, distinguishing "never initialized" from a
// corrupt or unreadable database.
var ErrNotInitialized = errors.New("ledger not initialized")

// AlreadyClaimedError reports a claim attempt on an issue that is
// already held, naming the holder.
type AlreadyClaimedError struct {
	IssueID  int
	Assignee string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("issue %d is already claimed by %s", e.IssueID, e.Assignee)
}

// NotClaimedError reports a release of an issue with no active claim.
// Releasing something not held is always surfaced, never a silent
// no-op.
type NotClaimedError struct {
	IssueID int
}

func (e *NotClaimedError) Error() string {
	return fmt.Sprintf("issue %d is not claimed", e.IssueID)
}

// Claim is one active exclusive assignment.
type Claim struct {
	IssueID   int
	Assignee  string
	ClaimedAt time.Time
}

// ScannedIssue is the slice of a record the rebuild path needs.
type ScannedIssue struct {
	ID       int
	Assignee string
	Created  time.Time
}

// RecordSource supplies the records currently reachable from the data
// branch. Rebuild and Repair re-derive all ledger state from it.
type RecordSource interface {
	ScanIssues() ([]ScannedIssue, error)
}

// Ledger is the SQLite coordination store for one project.
type Ledger struct {
	db  *sql.DB
	src RecordSource
}

// Open opens the ledger at path. The parent directory must already
// exist; use OpenOrCreate during project initialization. A missing or
// stale schema is rebuilt from src before Open returns.
func Open(path string, src RecordSource) (*Ledger, error) {
	if parent := filepath.Dir(path); parent != "." {
		if _, err := os.Stat(parent); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotInitialized)
		}
	}
	return open(path, src)
}

// OpenOrCreate opens the ledger, creating the parent directory if
// needed. Intended for the init path only.
func OpenOrCreate(path string, src RecordSource) (*Ledger, error) {
	if parent := filepath.Dir(path); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}
	return open(path, src)
}

func open(path string, src RecordSource) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to ledger: %w", err)
	}

	// SQLite supports one writer at a time; a single pooled
	// connection avoids SQLITE_BUSY storms.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	l := &Ledger{db: db, src: src}
	if err := l.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// ensureSchema rebuilds the ledger when the schema is absent or its
// version differs from the expected one. This is the only place drift
// handling triggers implicitly; everything else goes through the
// explicit Repair path.
func (l *Ledger) ensureSchema(ctx context.Context) error {
	var count int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("check schema: %w", err)
	}
	if count == 0 {
		return l.Rebuild(ctx)
	}

	var version int
	if err := l.db.QueryRowContext(ctx, "SELECT version FROM schema_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return l.Rebuild(ctx)
	}
	return nil
}

// Rebuild drops and recreates all tables, then re-derives claims and
// the ID counter by scanning the data branch. It no-ops if another
// process already rebuilt to the current version.
func (l *Ledger) Rebuild(ctx context.Context) error {
	return l.withTx(ctx, "EXCLUSIVE", func(conn *sql.Conn) error {
		// Re-check under the exclusive lock: a concurrent rebuild may
		// have finished between our version probe and this point.
		var version int
		err := conn.QueryRowContext(ctx, "SELECT version FROM schema_version").Scan(&version)
		if err == nil && version == schemaVersion {
			return nil
		}
		return l.rebuildLocked(ctx, conn)
	})
}

// Repair unconditionally rebuilds the ledger, regardless of schema
// version. Used by operator-triggered diagnostics to correct drift
// after out-of-band edits to data-branch records.
func (l *Ledger) Repair(ctx context.Context) error {
	return l.withTx(ctx, "EXCLUSIVE", func(conn *sql.Conn) error {
		return l.rebuildLocked(ctx, conn)
	})
}

// rebuildLocked recreates the schema and state inside an already-open
// exclusive transaction.
func (l *Ledger) rebuildLocked(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("recreate schema: %w", err)
	}

	var issues []ScannedIssue
	if l.src != nil {
		var err error
		issues, err = l.src.ScanIssues()
		if err != nil {
			return fmt.Errorf("scan records: %w", err)
		}
	}

	maxID := 0
	for _, is := range issues {
		if is.ID > maxID {
			maxID = is.ID
		}
		if is.Assignee == "" {
			continue
		}
		// Claim time is approximated by the record's creation time:
		// the true claim moment is not stored in the record.
		_, err := conn.ExecContext(ctx,
			"INSERT OR REPLACE INTO claims (issue_id, assignee, claimed_at) VALUES (?, ?, ?)",
			is.ID, is.Assignee, is.Created.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("rebuild claim for issue %d: %w", is.ID, err)
		}
	}

	_, err := conn.ExecContext(ctx,
		"INSERT INTO state (id, next_issue_id) VALUES (1, ?)", maxID+1)
	if err != nil {
		return fmt.Errorf("rebuild counter: %w", err)
	}
	return nil
}

// NextIssueID atomically increments the allocation counter and
// returns the pre-increment value. Single statement: there is no
// read-then-write window for concurrent allocators to race through.
func (l *Ledger) NextIssueID(ctx context.Context) (int, error) {
	var id int
	err := l.db.QueryRowContext(ctx,
		"UPDATE state SET next_issue_id = next_issue_id + 1 WHERE id = 1 RETURNING next_issue_id - 1",
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("allocate issue id: %w", err)
	}
	return id, nil
}

// PeekNextIssueID returns the counter without incrementing it.
func (l *Ledger) PeekNextIssueID(ctx context.Context) (int, error) {
	var id int
	err := l.db.QueryRowContext(ctx,
		"SELECT next_issue_id FROM state WHERE id = 1",
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("peek issue id: %w", err)
	}
	return id, nil
}

// Claim records an exclusive claim of issue id by assignee. The
// IMMEDIATE transaction takes the write lock before reading, so two
// claimants of the same issue serialize and exactly one succeeds; the
// loser gets AlreadyClaimedError naming the winner.
func (l *Ledger) Claim(ctx context.Context, id int, assignee string) error {
	return l.withTx(ctx, "IMMEDIATE", func(conn *sql.Conn) error {
		var existing string
		err := conn.QueryRowContext(ctx,
			"SELECT assignee FROM claims WHERE issue_id = ?", id,
		).Scan(&existing)
		if err == nil {
			return &AlreadyClaimedError{IssueID: id, Assignee: existing}
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check claim: %w", err)
		}

		_, err = conn.ExecContext(ctx,
			"INSERT INTO claims (issue_id, assignee, claimed_at) VALUES (?, ?, ?)",
			id, assignee, time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("insert claim: %w", err)
		}
		return nil
	})
}

// Release deletes the claim on issue id. Zero affected rows is an
// error, not a no-op.
func (l *Ledger) Release(ctx context.Context, id int) error {
	res, err := l.db.ExecContext(ctx, "DELETE FROM claims WHERE issue_id = ?", id)
	if err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	if rows == 0 {
		return &NotClaimedError{IssueID: id}
	}
	return nil
}

// GetClaim returns the active claim on issue id, or nil when there is
// none.
func (l *Ledger) GetClaim(ctx context.Context, id int) (*Claim, error) {
	var c Claim
	var claimedAt string
	err := l.db.QueryRowContext(ctx,
		"SELECT issue_id, assignee, claimed_at FROM claims WHERE issue_id = ?", id,
	).Scan(&c.IssueID, &c.Assignee, &claimedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}

	c.ClaimedAt, err = time.Parse(time.RFC3339, claimedAt)
	if err != nil {
		return nil, fmt.Errorf("bad claimed_at for issue %d: %w", id, err)
	}
	return &c, nil
}

// ListClaims returns all active claims ordered by issue id.
func (l *Ledger) ListClaims(ctx context.Context) ([]Claim, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT issue_id, assignee, claimed_at FROM claims ORDER BY issue_id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []Claim
	for rows.Next() {
		var c Claim
		var claimedAt string
		if err := rows.Scan(&c.IssueID, &c.Assignee, &claimedAt); err != nil {
			return nil, fmt.Errorf("list claims: %w", err)
		}
		c.ClaimedAt, err = time.Parse(time.RFC3339, claimedAt)
		if err != nil {
			return nil, fmt.Errorf("bad claimed_at for issue %d: %w", c.IssueID, err)
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// SchemaVersion reports the version currently stored in the ledger.
func (l *Ledger) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := l.db.QueryRowContext(ctx, "SELECT version FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// ExpectedSchemaVersion is the version this build writes, exposed for
// diagnostics.
func ExpectedSchemaVersion() int {
	return schemaVersion
}

// withTx runs fn inside a transaction opened with the given locking
// behavior (IMMEDIATE or EXCLUSIVE). database/sql cannot express
// SQLite transaction behaviors, so the BEGIN is issued by hand on a
// dedicated connection.
func (l *Ledger) withTx(ctx context.Context, behavior string, fn func(conn *sql.Conn) error) error {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN "+behavior); err != nil {
		return fmt.Errorf("begin %s transaction: %w", behavior, err)
	}

	if err := fn(conn); err != nil {
		if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
