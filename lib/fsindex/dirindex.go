// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package fsindex

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// timestampPadding is the minimum age a file's modification time
// must have, relative to the cache's refresh time, for the cache to
// be trusted. Filesystem timestamps are too coarse to distinguish
// writes within the same instant, so anything younger is re-read.
const timestampPadding = time.Second

// DirIndex caches one directory's entry listing and parsed metadata.
// Instances are shared through a Registry and are safe for
// concurrent use.
//
// Entries are keyed by stem: the file name up to the first dot, so
// "loss.cbor" and "frames.cbor.zst" index as "loss" and "frames".
type DirIndex struct {
	registry *Registry
	path     string

	// parent and children are guarded by registry.mu.
	parent   *DirIndex
	children map[*DirIndex]struct{}

	mu         sync.Mutex
	ino        uint64
	hasIno     bool
	refreshed  time.Time
	entryPaths map[string]string

	metaIno       uint64
	hasMetaIno    bool
	metaRefreshed time.Time
	meta          *Metadata
	metaErr       error
}

// Path returns the directory's canonical path.
func (d *DirIndex) Path() string { return d.path }

// Meta returns the directory's artifact metadata. The result is
// three-way: (meta, nil) when a valid _meta_.json exists, (nil, nil)
// when the file is absent, and (nil, err) when it exists but is
// malformed or unreadable.
func (d *DirIndex) Meta() (*Metadata, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshMetaLocked()
	return d.meta, d.metaErr
}

// EntryNames returns the sorted stems of the directory's entries.
func (d *DirIndex) EntryNames() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.refreshEntriesLocked(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(d.entryPaths))
	for name := range d.entryPaths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// EntryPath returns the path of the entry with the given stem. If
// the cached path no longer exists the directory is re-scanned once
// before giving up.
func (d *DirIndex) EntryPath(name string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	path, ok := d.entryPaths[name]
	if !ok || !lexists(path) {
		if err := d.refreshEntriesLocked(); err != nil {
			return "", false
		}
		path, ok = d.entryPaths[name]
	}
	return path, ok
}

// SetEntryPath records an entry's path without re-scanning the
// directory. Callers use it immediately after creating a file so the
// new entry is visible without paying for a directory listing.
func (d *DirIndex) SetEntryPath(name, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.entryPaths == nil {
		d.entryPaths = make(map[string]string)
	}
	d.entryPaths[name] = path
}

// Artifacts searches the directory tree depth first and returns the
// top-level artifacts: a directory with valid metadata is itself an
// artifact and is not searched beneath, a directory with malformed
// metadata is skipped entirely, and a directory without metadata has
// its subdirectories searched.
//
// Every returned index is acquired on behalf of the caller, who must
// Release each one.
func (d *DirIndex) Artifacts() ([]*DirIndex, error) {
	meta, err := d.Meta()
	if meta != nil {
		d.registry.Retain(d)
		return []*DirIndex{d}, nil
	}
	if err != nil {
		return nil, nil
	}

	d.mu.Lock()
	if err := d.refreshEntriesLocked(); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	paths := make([]string, 0, len(d.entryPaths))
	for _, path := range d.entryPaths {
		paths = append(paths, path)
	}
	d.mu.Unlock()
	sort.Strings(paths)

	var results []*DirIndex
	for _, path := range paths {
		st, err := os.Stat(path)
		if err != nil || !st.IsDir() {
			continue
		}
		child, err := d.registry.Dir(path)
		if err != nil {
			continue
		}
		found, err := child.Artifacts()
		d.registry.Release(child)
		if err != nil {
			releaseAll(d.registry, results)
			releaseAll(d.registry, found)
			return nil, err
		}
		results = append(results, found...)
	}
	return results, nil
}

func releaseAll(r *Registry, dirs []*DirIndex) {
	for _, d := range dirs {
		r.Release(d)
	}
}

// refreshMetaLocked re-reads _meta_.json when its inode changed or
// its modification time is newer than the padded refresh time.
func (d *DirIndex) refreshMetaLocked() {
	metaPath := filepath.Join(d.path, MetaFileName)
	st, err := os.Stat(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			d.hasMetaIno = false
			d.metaRefreshed = d.now().Add(-timestampPadding)
			d.meta, d.metaErr = nil, nil
			return
		}
		d.meta, d.metaErr = nil, fmt.Errorf("statting metadata: %w", err)
		return
	}

	ino, hasIno := inodeOf(st)
	if d.hasMetaIno && hasIno && ino == d.metaIno && !st.ModTime().After(d.metaRefreshed) {
		return
	}
	d.metaIno, d.hasMetaIno = ino, hasIno
	d.metaRefreshed = d.now().Add(-timestampPadding)

	data, err := os.ReadFile(metaPath)
	if err != nil {
		d.meta, d.metaErr = nil, fmt.Errorf("reading metadata: %w", err)
		return
	}
	d.meta, d.metaErr = ParseMetadata(data)
}

// refreshEntriesLocked re-lists the directory when its inode changed
// or its modification time is newer than the padded refresh time.
// Children whose directories disappeared have their caches
// invalidated.
func (d *DirIndex) refreshEntriesLocked() error {
	st, err := os.Stat(d.path)
	if err != nil {
		return fmt.Errorf("statting directory: %w", err)
	}
	ino, hasIno := inodeOf(st)
	if d.hasIno && hasIno && ino == d.ino && !st.ModTime().After(d.refreshed) {
		return nil
	}

	entries, err := os.ReadDir(d.path)
	if err != nil {
		return fmt.Errorf("listing directory: %w", err)
	}
	d.ino, d.hasIno = ino, hasIno
	d.refreshed = d.now().Add(-timestampPadding)
	d.entryPaths = make(map[string]string, len(entries))
	for _, entry := range entries {
		d.entryPaths[stem(entry.Name())] = filepath.Join(d.path, entry.Name())
	}

	for _, child := range d.childrenSnapshot() {
		if st, err := os.Stat(child.path); err != nil || !st.IsDir() {
			child.invalidate()
		}
	}
	return nil
}

// invalidate drops the cached listing and metadata, recursively, so
// the next access re-reads the filesystem.
func (d *DirIndex) invalidate() {
	d.mu.Lock()
	d.hasIno = false
	d.entryPaths = nil
	d.hasMetaIno = false
	d.meta, d.metaErr = nil, nil
	d.mu.Unlock()

	for _, child := range d.childrenSnapshot() {
		child.invalidate()
	}
}

func (d *DirIndex) childrenSnapshot() []*DirIndex {
	d.registry.mu.Lock()
	defer d.registry.mu.Unlock()
	children := make([]*DirIndex, 0, len(d.children))
	for child := range d.children {
		children = append(children, child)
	}
	return children
}

func (d *DirIndex) now() time.Time {
	return d.registry.clock.Now()
}

// stem returns the entry name up to the first dot, or the whole name
// if it contains none. A leading dot does not count, so hidden files
// keep their name.
func stem(name string) string {
	if i := strings.Index(name[1:], "."); i >= 0 {
		return name[:i+1]
	}
	return name
}

// lexists reports whether path exists without following a final
// symlink.
func lexists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
