// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package fsindex

import "sync"

// TreeIndex pins the DirIndex instances touched by searches under a
// root directory, so repeated searches reuse their caches instead of
// re-reading the filesystem. Close releases everything the tree
// acquired.
type TreeIndex struct {
	registry *Registry
	root     *DirIndex

	mu       sync.Mutex
	acquired []*DirIndex
	closed   bool
}

// Root returns the tree's root index. It remains valid until Close.
func (t *TreeIndex) Root() *DirIndex { return t.root }

// Artifacts searches the tree for top-level artifacts. The returned
// indexes stay acquired until the tree is closed; callers must not
// Release them individually.
func (t *TreeIndex) Artifacts() ([]*DirIndex, error) {
	results, err := t.root.Artifacts()
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.acquired = append(t.acquired, results...)
	t.mu.Unlock()
	return results, nil
}

// Close releases the root and every index acquired through the
// tree's searches. Close is idempotent.
func (t *TreeIndex) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for _, d := range t.acquired {
		t.registry.Release(d)
	}
	t.acquired = nil
	t.registry.Release(t.root)
}
