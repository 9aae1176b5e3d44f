package gitstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var (
	// ErrNotARepository is returned when no git repository can be
	// discovered from the given path.
	ErrNotARepository = errors.New("not a git repository")

	// ErrBranchNotFound is returned by reads against a branch that
	// does not exist. Callers that bootstrap branches treat this as
	// a normal condition, not a failure.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrFileNotFound is returned when a branch exists but the
	// requested path does not.
	ErrFileNotFound = errors.New("file not found")
)

// Signature used when the repository has no configured identity.
const (
	fallbackName  = "grit"
	fallbackEmail = "grit@localhost"
)

// Store provides object-graph access to one repository.
type Store struct {
	repo *git.Repository
	root string
}

// Discover opens the repository containing path, searching upward for
// a .git directory the way the git CLI does.
func Discover(path string) (*Store, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotARepository)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Store{repo: repo, root: wt.Filesystem.Root()}, nil
}

// Root returns the working tree root of the repository.
func (s *Store) Root() string {
	return s.root
}

// CurrentBranch returns the short name of the checked-out branch, or
// "" when HEAD is detached or unborn beyond resolution.
func (s *Store) CurrentBranch() string {
	ref, err := s.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return ""
	}
	if ref.Type() != plumbing.SymbolicReference {
		return ""
	}
	return ref.Target().Short()
}

// branchTip resolves a branch to its tip commit. A missing branch
// returns (nil, nil, nil): absence is a normal bootstrap case.
func (s *Store) branchTip(branch string) (*object.Commit, *plumbing.Reference, error) {
	ref, err := s.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("resolve branch %q: %w", branch, err)
	}

	commit, err := object.GetCommit(s.repo.Storer, ref.Hash())
	if err != nil {
		return nil, nil, fmt.Errorf("load tip of %q: %w", branch, err)
	}
	return commit, ref, nil
}

// signature resolves the committer identity from git config, falling
// back to a fixed tool identity.
func (s *Store) signature() object.Signature {
	now := time.Now()
	cfg, err := s.repo.ConfigScoped(gitconfig.SystemScope)
	if err == nil && cfg.User.Name != "" {
		return object.Signature{Name: cfg.User.Name, Email: cfg.User.Email, When: now}
	}
	return object.Signature{Name: fallbackName, Email: fallbackEmail, When: now}
}

// writeCommit writes a commit object pointing at tree with the given
// parents and returns its hash. The reference is not touched.
func (s *Store) writeCommit(message string, tree plumbing.Hash, parents []plumbing.Hash) (plumbing.Hash, error) {
	sig := s.signature()
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     tree,
		ParentHashes: parents,
	}

	obj := s.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encode commit: %w", err)
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write commit: %w", err)
	}
	return hash, nil
}

// advanceBranch moves a branch reference to hash. When old is
// non-nil the update is a compare-and-swap against it, so a racing
// writer surfaces as an error instead of a silent overwrite.
func (s *Store) advanceBranch(branch string, hash plumbing.Hash, old *plumbing.Reference) error {
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), hash)
	if err := s.repo.Storer.CheckAndSetReference(ref, old); err != nil {
		return fmt.Errorf("advance branch %q: %w", branch, err)
	}
	return nil
}

// CommitFile writes content at path on branch and advances the branch
// to a new commit. A branch that does not exist yet is bootstrapped
// with a parentless commit. Returns committed=false without writing a
// commit when the resulting tree is identical to the current tip.
func (s *Store) CommitFile(branch, path string, content []byte, message string) (plumbing.Hash, bool, error) {
	tip, ref, err := s.branchTip(branch)
	if err != nil {
		return plumbing.ZeroHash, false, err
	}

	blob, err := s.writeBlob(content)
	if err != nil {
		return plumbing.ZeroHash, false, err
	}

	var baseTree *object.Tree
	if tip != nil {
		baseTree, err = tip.Tree()
		if err != nil {
			return plumbing.ZeroHash, false, fmt.Errorf("load tip tree: %w", err)
		}
	}

	treeHash, err := s.upsertPath(baseTree, splitPath(path), blob)
	if err != nil {
		return plumbing.ZeroHash, false, err
	}

	var parents []plumbing.Hash
	if tip != nil {
		if tip.TreeHash == treeHash {
			return plumbing.ZeroHash, false, nil
		}
		parents = []plumbing.Hash{tip.Hash}
	}

	commit, err := s.writeCommit(message, treeHash, parents)
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	if err := s.advanceBranch(branch, commit, ref); err != nil {
		return plumbing.ZeroHash, false, err
	}
	return commit, true, nil
}

// ReadFile returns the content of path at the tip of branch. A
// missing branch and a missing file are distinct conditions:
// ErrBranchNotFound vs ErrFileNotFound.
func (s *Store) ReadFile(branch, path string) ([]byte, error) {
	tip, _, err := s.branchTip(branch)
	if err != nil {
		return nil, err
	}
	if tip == nil {
		return nil, fmt.Errorf("branch %q: %w", branch, ErrBranchNotFound)
	}

	tree, err := tip.Tree()
	if err != nil {
		return nil, fmt.Errorf("load tip tree: %w", err)
	}

	file, err := tree.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%s on %q: %w", path, branch, ErrFileNotFound)
		}
		return nil, fmt.Errorf("read %s on %q: %w", path, branch, err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s on %q: %w", path, branch, err)
	}
	return []byte(content), nil
}

// RemoveFile deletes path on branch, committing the removal. If the
// branch, the path, or an ancestor directory is already absent the
// call is a no-op rather than an error.
func (s *Store) RemoveFile(branch, path, message string) (plumbing.Hash, bool, error) {
	tip, ref, err := s.branchTip(branch)
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	if tip == nil {
		return plumbing.ZeroHash, false, nil
	}

	baseTree, err := tip.Tree()
	if err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("load tip tree: %w", err)
	}

	treeHash, changed, err := s.removePath(baseTree, splitPath(path))
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	if !changed || treeHash == tip.TreeHash {
		return plumbing.ZeroHash, false, nil
	}

	commit, err := s.writeCommit(message, treeHash, []plumbing.Hash{tip.Hash})
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	if err := s.advanceBranch(branch, commit, ref); err != nil {
		return plumbing.ZeroHash, false, err
	}
	return commit, true, nil
}

// ListFiles returns the entry names directly under dir at the tip of
// branch. A missing branch or directory yields an empty list.
func (s *Store) ListFiles(branch, dir string) ([]string, error) {
	tip, _, err := s.branchTip(branch)
	if err != nil {
		return nil, err
	}
	if tip == nil {
		return nil, nil
	}

	tree, err := tip.Tree()
	if err != nil {
		return nil, fmt.Errorf("load tip tree: %w", err)
	}

	sub, err := tree.Tree(dir)
	if err != nil {
		if errors.Is(err, object.ErrDirectoryNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s on %q: %w", dir, branch, err)
	}

	names := make([]string, 0, len(sub.Entries))
	for _, entry := range sub.Entries {
		names = append(names, entry.Name)
	}
	return names, nil
}

// FindBySuffix scans dir on branch for the first file name ending in
// suffix, falling back to an exact legacy name. The scan is linear:
// the object store has no index, and at hundreds of records that is
// an acceptable per-lookup cost.
func (s *Store) FindBySuffix(branch, dir, suffix, legacy string) (string, error) {
	names, err := s.ListFiles(branch, dir)
	if err != nil {
		return "", err
	}

	for _, name := range names {
		if strings.HasSuffix(name, suffix) {
			return dir + "/" + name, nil
		}
	}
	for _, name := range names {
		if name == legacy {
			return dir + "/" + name, nil
		}
	}
	return "", fmt.Errorf("no entry matching %q in %s on %q: %w", suffix, dir, branch, ErrFileNotFound)
}

// splitPath splits a slash-separated repository path into segments.
func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}
