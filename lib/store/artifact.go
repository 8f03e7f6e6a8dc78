// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atelier-store/atelier/lib/fsindex"
)

// Mode is an artifact's field-access mode.
type Mode int

const (
	// ReadSync blocks field reads until the artifact's build has
	// terminated.
	ReadSync Mode = iota

	// ReadAsync resolves a field as soon as its entry exists, even
	// mid-build.
	ReadAsync

	// Write allows Set and returns proxies for missing fields
	// instead of waiting.
	Write
)

var modeNames = map[Mode]string{
	ReadSync:  "read-sync",
	ReadAsync: "read-async",
	Write:     "write",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// Artifact is a handle on one artifact directory: its path, the
// access mode governing field operations, and a shared directory
// index. Handles must be closed to release the index.
type Artifact struct {
	store *Store
	path  string
	mode  Mode
	index *fsindex.DirIndex
}

// Path returns the artifact's absolute directory path.
func (a *Artifact) Path() string { return a.path }

// Mode returns the handle's access mode.
func (a *Artifact) Mode() Mode { return a.mode }

// Ref returns the artifact's store-root-relative "@/" reference,
// suitable for embedding in other specs.
func (a *Artifact) Ref() string { return encodePath(a.path, a.store.root) }

// Meta returns the artifact's metadata, as DirIndex.Meta.
func (a *Artifact) Meta() (*fsindex.Metadata, error) { return a.index.Meta() }

// Close releases the handle's directory index. Fields obtained from
// the handle remain valid.
func (a *Artifact) Close() error {
	a.store.dirs.Release(a.index)
	return nil
}

// Fields returns the artifact's public field names: entry stems not
// starting with a dot or underscore, sorted.
func (a *Artifact) Fields() ([]string, error) {
	names, err := a.index.EntryNames()
	if err != nil {
		return nil, err
	}
	public := names[:0]
	for _, name := range names {
		if !strings.HasPrefix(name, ".") && !strings.HasPrefix(name, "_") {
			public = append(public, name)
		}
	}
	return public, nil
}

// Has reports whether an entry with the given name currently exists.
func (a *Artifact) Has(name string) bool {
	_, ok := a.index.EntryPath(name)
	return ok
}

// Get reads the field with the given name according to the access
// mode. ReadSync waits for the build to terminate first. ReadAsync
// waits until the field's entry exists or the build terminates.
// Write does not wait: a missing field yields Kind FieldMissing, and
// At can then materialize it.
//
// A missing field in either read mode is ErrFieldNotFound. A wait
// that exceeds the store's StallTimeout is ErrBuildStalled.
func (a *Artifact) Get(name string) (Field, error) {
	var entryPath string
	var ok bool

	switch a.mode {
	case ReadSync:
		if err := a.waitWhile(func() bool { return a.building() }); err != nil {
			return Field{}, err
		}
		entryPath, ok = a.index.EntryPath(name)
		if !ok {
			return Field{}, fmt.Errorf("%w: %s", ErrFieldNotFound, name)
		}

	case ReadAsync:
		err := a.waitWhile(func() bool {
			entryPath, ok = a.index.EntryPath(name)
			return !ok && a.building()
		})
		if err != nil {
			return Field{}, err
		}
		if !ok {
			return Field{}, fmt.Errorf("%w: %s", ErrFieldNotFound, name)
		}

	case Write:
		entryPath, ok = a.index.EntryPath(name)
		if !ok {
			return Field{Kind: FieldMissing}, nil
		}
	}

	return a.readField(entryPath)
}

// Set writes value to the field with the given name, choosing the
// file representation from the value's type. Only Write-mode handles
// may Set. The file is written outside the directory and renamed
// into place, so concurrent readers never see a partial field.
func (a *Artifact) Set(name string, value any) error {
	if a.mode != Write {
		return fmt.Errorf("%w: cannot set %q", ErrReadOnlyMode, name)
	}
	if err := checkFieldName(name); err != nil {
		return err
	}
	return a.writeField(name, value)
}

// Delete removes every entry whose stem is name; directories are
// removed recursively. Only Write-mode handles may Delete.
func (a *Artifact) Delete(name string) error {
	if a.mode != Write {
		return fmt.Errorf("%w: cannot delete %q", ErrReadOnlyMode, name)
	}
	entries, err := os.ReadDir(a.path)
	if err != nil {
		return fmt.Errorf("store: listing %s: %w", a.path, err)
	}
	for _, entry := range entries {
		if stemOf(entry.Name()) != name {
			continue
		}
		if err := os.RemoveAll(filepath.Join(a.path, entry.Name())); err != nil {
			return fmt.Errorf("store: deleting %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// building reports whether the artifact has a Start event with no
// terminating Success or Failure. Malformed or absent metadata
// counts as not building.
func (a *Artifact) building() bool {
	meta, err := a.index.Meta()
	if err != nil || meta == nil {
		return false
	}
	return meta.Building()
}

// waitWhile polls at the store's poll interval until cond goes
// false. With a stall timeout configured, a wait exceeding it
// returns ErrBuildStalled.
func (a *Artifact) waitWhile(cond func() bool) error {
	if !cond() {
		return nil
	}
	// A nil deadline channel never fires, so the no-timeout case
	// waits indefinitely.
	var deadline <-chan time.Time
	if timeout := a.store.opts.StallTimeout; timeout > 0 {
		deadline = a.store.clock.After(timeout)
	}
	for {
		select {
		case <-deadline:
			return fmt.Errorf("%w: %s", ErrBuildStalled, a.path)
		default:
		}
		a.store.clock.Sleep(a.store.opts.PollInterval)
		if !cond() {
			return nil
		}
	}
}

// checkFieldName rejects names that would escape the directory or
// collide with the stem convention.
func checkFieldName(name string) error {
	if name == "" || strings.ContainsAny(name, "./\\") {
		return fmt.Errorf("store: invalid field name %q", name)
	}
	return nil
}

// stemOf returns a file name's stem: everything before the first
// dot.
func stemOf(name string) string {
	if i := strings.Index(name[1:], "."); i >= 0 {
		return name[:i+1]
	}
	return name
}
