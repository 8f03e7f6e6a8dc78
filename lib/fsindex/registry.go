// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package fsindex

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/atelier-store/atelier/lib/clock"
)

// Registry hands out DirIndex instances, at most one live instance
// per directory so that every user of a path shares one cache.
// Acquisition is reference counted: each Dir call must be paired
// with a Release. A DirIndex holds a reference on its parent, so
// releasing a child may cascade up the tree.
type Registry struct {
	clock clock.Clock

	mu   sync.Mutex
	dirs map[string]*dirEntry
}

type dirEntry struct {
	index *DirIndex
	refs  int
}

// NewRegistry returns an empty registry using clk for cache
// staleness decisions.
func NewRegistry(clk clock.Clock) *Registry {
	return &Registry{
		clock: clk,
		dirs:  make(map[string]*dirEntry),
	}
}

// Dir acquires the DirIndex for path, creating it if no live
// instance exists. The path is canonicalized to an absolute cleaned
// form so distinct spellings share one instance. The caller must
// Release the returned index.
func (r *Registry) Dir(path string) (*DirIndex, error) {
	canonical, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquireLocked(canonical), nil
}

// Retain acquires an additional reference on an already-acquired
// index.
func (r *Registry) Retain(d *DirIndex) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirs[d.path].refs++
}

// Release frees one reference on d. At zero references the instance
// is dropped from the registry, detached from its parent, and the
// parent reference it held is released in turn.
func (r *Registry) Release(d *DirIndex) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked(d)
}

// Tree acquires the DirIndex for path and wraps it in a TreeIndex
// that pins every index instantiated during searches under it.
func (r *Registry) Tree(path string) (*TreeIndex, error) {
	root, err := r.Dir(path)
	if err != nil {
		return nil, err
	}
	return &TreeIndex{registry: r, root: root}, nil
}

func (r *Registry) acquireLocked(canonical string) *DirIndex {
	if entry, ok := r.dirs[canonical]; ok {
		entry.refs++
		return entry.index
	}

	d := &DirIndex{
		registry: r,
		path:     canonical,
		children: make(map[*DirIndex]struct{}),
	}
	// Register before linking the parent: the parent chain for a
	// deep path is acquired root-first through recursion, and each
	// level must be visible to the next.
	r.dirs[canonical] = &dirEntry{index: d, refs: 1}

	if parentPath := filepath.Dir(canonical); parentPath != canonical {
		d.parent = r.acquireLocked(parentPath)
		d.parent.children[d] = struct{}{}
	}
	return d
}

func (r *Registry) releaseLocked(d *DirIndex) {
	entry, ok := r.dirs[d.path]
	if !ok || entry.index != d {
		return
	}
	entry.refs--
	if entry.refs > 0 {
		return
	}
	delete(r.dirs, d.path)
	if d.parent != nil {
		delete(d.parent.children, d)
		r.releaseLocked(d.parent)
		d.parent = nil
	}
}

// canonicalPath converts path to its absolute cleaned form.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("canonicalizing %q: %w", path, err)
	}
	return filepath.Clean(abs), nil
}
