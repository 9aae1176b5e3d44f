package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/grit-vcs/grit/internal/gitstore"
	"github.com/grit-vcs/grit/internal/issue"
	"github.com/grit-vcs/grit/internal/ledger"
	"github.com/grit-vcs/grit/internal/project"
)

// InitResult summarizes what Init did.
type InitResult struct {
	// Created is true when the project was initialized for the first
	// time, false when Init ran over an existing project.
	Created bool
	// Migrated lists record files brought up to the current layout.
	Migrated []string
	// Report is the ledger drift found before the closing repair.
	Report *DriftReport
}

// Init sets up or refreshes a project: writes .grit/metadata.toml with
// a fresh project id, creates the global directory and the ledger, and
// runs the record migrations before repairing the ledger. Running it
// on an initialized project is safe and doubles as a recovery path for
// fresh clones, whose ledger does not exist yet.
func Init(ctx context.Context, path string, logger *slog.Logger) (*Tracker, *InitResult, error) {
	store, err := gitstore.Discover(path)
	if err != nil {
		return nil, nil, err
	}
	root := store.Root()

	result := &InitResult{Created: !project.IsInitialized(root)}

	issuesDir := filepath.Join(root, project.IssuesDir)
	if err := os.MkdirAll(issuesDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", issuesDir, err)
	}
	metadataPath := filepath.Join(issuesDir, "metadata.toml")
	if _, err := os.Stat(metadataPath); os.IsNotExist(err) {
		if err := project.NewMetadata().Save(metadataPath); err != nil {
			return nil, nil, err
		}
	}
	// Keep stray ledger copies out of version control.
	gitignorePath := filepath.Join(issuesDir, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(gitignorePath, []byte("*.db*\n"), 0o644); err != nil {
			return nil, nil, fmt.Errorf("write %s: %w", gitignorePath, err)
		}
	}
	if err := project.InitGlobalDir(); err != nil {
		return nil, nil, err
	}

	proj, err := project.Discover(path)
	if err != nil {
		return nil, nil, err
	}
	t := &Tracker{proj: proj, logger: logger}

	db, err := ledger.OpenOrCreate(proj.DBPath, &branchScanner{t: t})
	if err != nil {
		return nil, nil, err
	}
	t.db = db

	result.Migrated, err = t.migrateWorkingFiles()
	if err != nil {
		t.Close()
		return nil, nil, err
	}

	result.Report, err = t.Repair(ctx)
	if err != nil {
		t.Close()
		return nil, nil, err
	}
	return t, result, nil
}

// migrateWorkingFiles brings record files in the working directory up
// to the current layout: legacy title-in-front-matter records are
// re-encoded, bare-numeric file names are renamed to the dated form,
// and records missing from the data branch are committed to it.
func (t *Tracker) migrateWorkingFiles() ([]string, error) {
	dir := filepath.Join(t.proj.Root, project.IssuesDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var migrated []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		is, title, body, legacy, err := issue.DecodeLenient(data)
		if err != nil {
			t.logger.Warn("skipping unmigratable record", "file", entry.Name(), "error", err)
			continue
		}

		canonical := issue.Filename(is.ID, is.Created)
		path := project.IssuesDir + "/" + canonical
		content, err := issue.Encode(is, title, body)
		if err != nil {
			return nil, err
		}

		message := fmt.Sprintf("Migrate issue #%d to data branch", is.ID)
		_, committed, err := t.proj.Store.CommitFile(t.dataBranch(), path, content, message)
		if err != nil {
			return nil, err
		}

		changed := committed
		if entry.Name() != canonical {
			// Drop a stale copy stored under the old name.
			if _, _, err := t.proj.Store.RemoveFile(
				t.dataBranch(), project.IssuesDir+"/"+entry.Name(), message); err != nil {
				return nil, err
			}
			if err := os.Rename(filepath.Join(dir, entry.Name()), filepath.Join(dir, canonical)); err != nil {
				return nil, err
			}
			changed = true
		} else if legacy {
			if err := os.WriteFile(filepath.Join(dir, canonical), content, 0o644); err != nil {
				return nil, err
			}
			changed = true
		}
		if changed {
			migrated = append(migrated, canonical)
		}
	}
	return migrated, nil
}
