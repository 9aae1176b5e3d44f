package gitstore

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// writeBlob stores content as a blob object. Identical content hashes
// to the identical object, so repeated writes are free.
func (s *Store) writeBlob(content []byte) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write blob: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return plumbing.ZeroHash, fmt.Errorf("write blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write blob: %w", err)
	}

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store blob: %w", err)
	}
	return hash, nil
}

// writeTree stores a tree object with the given entries, sorting them
// into canonical git order first.
func (s *Store) writeTree(entries []object.TreeEntry) (plumbing.Hash, error) {
	sortTreeEntries(entries)

	tree := &object.Tree{Entries: entries}
	obj := s.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encode tree: %w", err)
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store tree: %w", err)
	}
	return hash, nil
}

// sortTreeEntries sorts entries into canonical git tree order, where
// a directory named "a" sorts as "a/".
func sortTreeEntries(entries []object.TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return treeEntrySortKey(entries[i]) < treeEntrySortKey(entries[j])
	})
}

func treeEntrySortKey(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

// upsertPath produces a new tree with the blob placed at the path
// given by segments, rebuilding each tree level bottom-up while
// preserving sibling entries. tree may be nil (empty base).
func (s *Store) upsertPath(tree *object.Tree, segments []string, blob plumbing.Hash) (plumbing.Hash, error) {
	var entries []object.TreeEntry
	if tree != nil {
		entries = append(entries, tree.Entries...)
	}

	name := segments[0]
	if len(segments) == 1 {
		entries = setEntry(entries, object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: blob})
		return s.writeTree(entries)
	}

	var sub *object.Tree
	if tree != nil {
		if existing, ok := findEntry(entries, name); ok && existing.Mode == filemode.Dir {
			var err error
			sub, err = object.GetTree(s.repo.Storer, existing.Hash)
			if err != nil {
				return plumbing.ZeroHash, fmt.Errorf("load subtree %q: %w", name, err)
			}
		}
	}

	subHash, err := s.upsertPath(sub, segments[1:], blob)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	entries = setEntry(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: subHash})
	return s.writeTree(entries)
}

// removePath produces a new tree with the leaf at segments deleted.
// Returns changed=false when the leaf or an ancestor is absent.
func (s *Store) removePath(tree *object.Tree, segments []string) (plumbing.Hash, bool, error) {
	if tree == nil {
		return plumbing.ZeroHash, false, nil
	}

	entries := append([]object.TreeEntry(nil), tree.Entries...)
	name := segments[0]

	existing, ok := findEntry(entries, name)
	if !ok {
		return plumbing.ZeroHash, false, nil
	}

	if len(segments) == 1 {
		entries = deleteEntry(entries, name)
		hash, err := s.writeTree(entries)
		return hash, err == nil, err
	}

	if existing.Mode != filemode.Dir {
		return plumbing.ZeroHash, false, nil
	}
	sub, err := object.GetTree(s.repo.Storer, existing.Hash)
	if err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("load subtree %q: %w", name, err)
	}

	subHash, changed, err := s.removePath(sub, segments[1:])
	if err != nil || !changed {
		return plumbing.ZeroHash, false, err
	}

	entries = setEntry(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: subHash})
	hash, err := s.writeTree(entries)
	return hash, err == nil, err
}

func findEntry(entries []object.TreeEntry, name string) (object.TreeEntry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return object.TreeEntry{}, false
}

func setEntry(entries []object.TreeEntry, entry object.TreeEntry) []object.TreeEntry {
	for i, e := range entries {
		if e.Name == entry.Name {
			entries[i] = entry
			return entries
		}
	}
	return append(entries, entry)
}

func deleteEntry(entries []object.TreeEntry, name string) []object.TreeEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.Name != name {
			out = append(out, e)
		}
	}
	return out
}

// flattenTree maps every leaf under tree to its full slash-separated
// path. A nil tree flattens to an empty map.
func flattenTree(tree *object.Tree) (map[string]object.TreeEntry, error) {
	flat := make(map[string]object.TreeEntry)
	if tree == nil {
		return flat, nil
	}

	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("walk tree: %w", err)
		}
		if entry.Mode == filemode.Dir {
			continue
		}
		flat[name] = entry
	}
	return flat, nil
}

// buildTree writes a nested tree hierarchy from a flat path->entry
// map, composing subtrees bottom-up.
func (s *Store) buildTree(flat map[string]object.TreeEntry) (plumbing.Hash, error) {
	type node struct {
		leaves   map[string]object.TreeEntry
		children map[string]*node
	}
	newNode := func() *node {
		return &node{leaves: map[string]object.TreeEntry{}, children: map[string]*node{}}
	}

	root := newNode()
	for path, entry := range flat {
		segments := strings.Split(path, "/")
		cur := root
		for _, seg := range segments[:len(segments)-1] {
			child, ok := cur.children[seg]
			if !ok {
				child = newNode()
				cur.children[seg] = child
			}
			cur = child
		}
		leaf := entry
		leaf.Name = segments[len(segments)-1]
		cur.leaves[leaf.Name] = leaf
	}

	var write func(n *node) (plumbing.Hash, error)
	write = func(n *node) (plumbing.Hash, error) {
		entries := make([]object.TreeEntry, 0, len(n.leaves)+len(n.children))
		for _, leaf := range n.leaves {
			entries = append(entries, leaf)
		}
		for name, child := range n.children {
			hash, err := write(child)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
		}
		return s.writeTree(entries)
	}
	return write(root)
}
