package project

import (
	"errors"
	"fmt"
	"os"
	gopath "path"
	"path/filepath"
	"time"

	"github.com/grit-vcs/grit/internal/gitstore"
	"github.com/grit-vcs/grit/internal/issue"
)

// IssuesDir is the directory inside the repository holding records,
// as a slash path relative to the repository root.
const IssuesDir = ".grit"

// ErrNotInitialized is returned when the repository has no .grit
// directory or metadata.
var ErrNotInitialized = errors.New("project not initialized (run 'grit init')")

// Project is the resolved context every operation runs against.
type Project struct {
	// Root is the working tree root of the repository.
	Root string
	// DBPath locates the ledger in the global config area.
	DBPath string

	Store    *gitstore.Store
	Metadata Metadata
	Config   Config
}

// Discover resolves the project from path: finds the enclosing git
// repository, loads .grit/metadata.toml and the global config, and
// computes the ledger path.
func Discover(path string) (*Project, error) {
	store, err := gitstore.Discover(path)
	if err != nil {
		return nil, err
	}
	root := store.Root()

	metadataPath := filepath.Join(root, IssuesDir, "metadata.toml")
	if _, err := os.Stat(metadataPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", root, ErrNotInitialized)
	}

	md, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	dbPath, err := DBPathFor(md.ProjectID)
	if err != nil {
		return nil, err
	}

	return &Project{
		Root:     root,
		DBPath:   dbPath,
		Store:    store,
		Metadata: md,
		Config:   cfg,
	}, nil
}

// IsInitialized reports whether root contains a grit project.
func IsInitialized(root string) bool {
	_, err := os.Stat(filepath.Join(root, IssuesDir, "metadata.toml"))
	return err == nil
}

// DBPathFor returns the ledger path for a project id.
func DBPathFor(projectID string) (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, projectID+".db"), nil
}

// IssuePath returns the repository-relative slash path of an issue
// file, e.g. ".grit/2024-01-15-issue-001.md".
func IssuePath(id int, created time.Time) string {
	return gopath.Join(IssuesDir, issue.Filename(id, created))
}
