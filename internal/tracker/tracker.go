package tracker

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/grit-vcs/grit/internal/gitstore"
	"github.com/grit-vcs/grit/internal/issue"
	"github.com/grit-vcs/grit/internal/ledger"
	"github.com/grit-vcs/grit/internal/project"
)

// NotFoundError reports a lookup for an id that has no record on the
// data branch.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("issue %d not found", e.ID)
}

// AlreadyDoneError reports an attempt to complete an issue twice.
type AlreadyDoneError struct {
	ID int
}

func (e *AlreadyDoneError) Error() string {
	return fmt.Sprintf("issue %d is already done", e.ID)
}

// IssueInfo bundles a decoded record with its location on the data
// branch. Path is repository-relative with forward slashes.
type IssueInfo struct {
	Issue *issue.Issue
	Title string
	Body  string
	Path  string
}

// Tracker wires the git object store, the claim ledger, and the
// record codec into the operations the commands call.
type Tracker struct {
	proj   *project.Project
	db     *ledger.Ledger
	logger *slog.Logger
}

// Open discovers the project at path and attaches the ledger. The
// ledger must already exist; a fresh clone needs Init first.
func Open(path string, logger *slog.Logger) (*Tracker, error) {
	proj, err := project.Discover(path)
	if err != nil {
		return nil, err
	}
	t := &Tracker{proj: proj, logger: logger}

	db, err := ledger.Open(proj.DBPath, &branchScanner{t: t})
	if err != nil {
		return nil, err
	}
	t.db = db
	return t, nil
}

// Close releases the ledger connection.
func (t *Tracker) Close() error {
	if t.db == nil {
		return nil
	}
	return t.db.Close()
}

// Project returns the discovered project.
func (t *Tracker) Project() *project.Project {
	return t.proj
}

// Ledger exposes the claim ledger for read-only inspection.
func (t *Tracker) Ledger() *ledger.Ledger {
	return t.db
}

func (t *Tracker) dataBranch() string {
	return t.proj.Config.ResolvedDataBranch()
}

// branchScanner feeds the ledger rebuild from the data branch.
// Records that fail to decode are skipped with a warning rather than
// aborting the rebuild; a single corrupt file should not wedge id
// allocation for the whole project.
type branchScanner struct {
	t *Tracker
}

func (s *branchScanner) ScanIssues() ([]ledger.ScannedIssue, error) {
	infos, err := s.t.scanBranch()
	if err != nil {
		return nil, err
	}
	scanned := make([]ledger.ScannedIssue, 0, len(infos))
	for _, info := range infos {
		scanned = append(scanned, ledger.ScannedIssue{
			ID:       info.Issue.ID,
			Assignee: info.Issue.Assignee,
			Created:  info.Issue.Created,
		})
	}
	return scanned, nil
}

// scanBranch decodes every record under the issues directory on the
// data branch.
func (t *Tracker) scanBranch() ([]IssueInfo, error) {
	names, err := t.proj.Store.ListFiles(t.dataBranch(), project.IssuesDir)
	if err != nil {
		return nil, err
	}

	var infos []IssueInfo
	for _, name := range names {
		if !strings.HasSuffix(name, ".md") {
			continue
		}
		path := project.IssuesDir + "/" + name
		content, err := t.proj.Store.ReadFile(t.dataBranch(), path)
		if err != nil {
			return nil, err
		}
		is, title, body, err := issue.Decode(content)
		if err != nil {
			t.logger.Warn("skipping undecodable record", "path", path, "error", err)
			continue
		}
		infos = append(infos, IssueInfo{Issue: is, Title: title, Body: body, Path: path})
	}
	return infos, nil
}

// Load reads the record for id from the data branch.
func (t *Tracker) Load(id int) (*IssueInfo, error) {
	path, err := t.proj.Store.FindBySuffix(
		t.dataBranch(), project.IssuesDir, issue.IDSuffix(id), issue.LegacyFilename(id))
	if err != nil {
		if errors.Is(err, gitstore.ErrFileNotFound) || errors.Is(err, gitstore.ErrBranchNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, err
	}

	content, err := t.proj.Store.ReadFile(t.dataBranch(), path)
	if err != nil {
		return nil, err
	}
	is, title, body, err := issue.Decode(content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &IssueInfo{Issue: is, Title: title, Body: body, Path: path}, nil
}

// Filter narrows List output. Zero-valued fields match everything.
type Filter struct {
	Status   *issue.Status
	Epic     string
	Assignee string
}

func (f Filter) matches(info IssueInfo) bool {
	if f.Status != nil && info.Issue.Status != *f.Status {
		return false
	}
	if f.Epic != "" && info.Issue.Epic != f.Epic {
		return false
	}
	if f.Assignee != "" && info.Issue.Assignee != f.Assignee {
		return false
	}
	return true
}

// List returns the records matching filter, ordered by status
// priority (in-progress first, wont-fix last) and then by id.
func (t *Tracker) List(filter Filter) ([]IssueInfo, error) {
	all, err := t.scanBranch()
	if err != nil {
		return nil, err
	}

	infos := all[:0]
	for _, info := range all {
		if filter.matches(info) {
			infos = append(infos, info)
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		pi, pj := infos[i].Issue.Status.SortPriority(), infos[j].Issue.Status.SortPriority()
		if pi != pj {
			return pi < pj
		}
		return infos[i].Issue.ID < infos[j].Issue.ID
	})
	return infos, nil
}

// Search returns the records whose title, body or epic contains the
// query, compared case-insensitively with full Unicode case folding.
func (t *Tracker) Search(query string) ([]IssueInfo, error) {
	all, err := t.List(Filter{})
	if err != nil {
		return nil, err
	}

	var hits []IssueInfo
	for _, info := range all {
		if containsFold(info.Title, query) ||
			containsFold(info.Body, query) ||
			containsFold(info.Issue.Epic, query) {
			hits = append(hits, info)
		}
	}
	return hits, nil
}
