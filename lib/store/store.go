// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/atelier-store/atelier/lib/clock"
	"github.com/atelier-store/atelier/lib/fsindex"
)

// Options configures a Store. The zero value is usable.
type Options struct {
	// PollInterval is the sleep between checks while a read waits on
	// a running build. Defaults to 1ms.
	PollInterval time.Duration

	// StallTimeout bounds how long a read waits on a build that
	// shows no terminal event. Zero means wait without bound, which
	// is correct only when building processes are guaranteed to log
	// Success or Failure before dying.
	StallTimeout time.Duration

	// Compression controls transparent zstd compression of generic
	// field values.
	Compression CompressionOptions

	// Clock injects time for polling and cache staleness. Defaults
	// to the real clock.
	Clock clock.Clock

	// Logger receives build lifecycle logs. Defaults to slog's
	// default logger.
	Logger *slog.Logger
}

// CompressionOptions controls the generic-value write path. Growable
// list and array files are never compressed: compression would make
// their headers unaddressable.
type CompressionOptions struct {
	// Enabled turns compression on.
	Enabled bool

	// MinSize is the smallest encoded size, in bytes, worth
	// compressing. Defaults to 4096.
	MinSize int
}

const (
	defaultPollInterval = time.Millisecond
	defaultCompressMin  = 4096
)

// Store resolves specs to artifact directories under a root.
type Store struct {
	root   string
	types  *TypeRegistry
	dirs   *fsindex.Registry
	clock  clock.Clock
	logger *slog.Logger
	opts   Options
}

// New opens a store rooted at root, creating the directory if
// needed.
func New(root string, types *TypeRegistry, opts Options) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("store: resolving root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating root: %w", err)
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Compression.MinSize <= 0 {
		opts.Compression.MinSize = defaultCompressMin
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Store{
		root:   abs,
		types:  types,
		dirs:   fsindex.NewRegistry(opts.Clock),
		clock:  opts.Clock,
		logger: opts.Logger,
		opts:   opts,
	}, nil
}

// Root returns the store's absolute root directory.
func (s *Store) Root() string { return s.root }

// Types returns the store's type registry.
func (s *Store) Types() *TypeRegistry { return s.types }

// Build resolves spec to an artifact, building one if no existing
// artifact matches. The returned artifact uses the given access
// mode.
//
// When the builder fails, Build returns both the artifact handle and
// an error wrapping ErrBuildFailed: the directory persists with a
// Failure event for postmortem inspection and is excluded from
// future matches.
func (s *Store) Build(spec Spec, mode Mode) (*Artifact, error) {
	info, ok := s.types.Lookup(spec.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, spec.Type)
	}
	canonical, err := spec.canonical(s.root)
	if err != nil {
		return nil, err
	}
	print, err := fingerprint(canonical)
	if err != nil {
		return nil, err
	}

	if path, found, err := s.findMatch(spec, canonical, print); err != nil {
		return nil, err
	} else if found {
		s.logger.Debug("artifact resolved", "type", spec.Type, "path", path)
		return s.open(path, mode)
	}

	path, err := s.makeStub(spec, canonical, print)
	if err != nil {
		return nil, err
	}
	s.logger.Info("building artifact", "type", spec.Type, "path", path)

	buildErr := s.runBuilder(info, spec, path)

	artifact, err := s.open(path, mode)
	if err != nil {
		return nil, err
	}
	if buildErr != nil {
		return artifact, errors.Join(ErrBuildFailed, buildErr)
	}
	return artifact, nil
}

// Recover opens an existing artifact directory without matching it
// against a spec. The path may be root-relative ("@/...").
func (s *Store) Recover(path string, mode Mode) (*Artifact, error) {
	return s.open(resolveRef(path, s.root), mode)
}

// RecoverAs opens an existing artifact and checks that its recorded
// type is typeName or one of its subtypes.
func (s *Store) RecoverAs(typeName, path string, mode Mode) (*Artifact, error) {
	artifact, err := s.Recover(path, mode)
	if err != nil {
		return nil, err
	}
	meta, err := artifact.Meta()
	if err != nil || meta == nil {
		artifact.Close()
		return nil, fmt.Errorf("%w: %s has no valid metadata", ErrTypeMismatch, artifact.Path())
	}
	recorded, _ := meta.Spec["type"].(string)
	if !s.types.IsSubtype(recorded, typeName) {
		artifact.Close()
		return nil, fmt.Errorf("%w: %s records type %q, want %q", ErrTypeMismatch, artifact.Path(), recorded, typeName)
	}
	return artifact, nil
}

// findMatch returns the path of an existing artifact whose recorded
// spec equals canonical and whose build never failed. With an
// explicit spec path only that directory is considered; otherwise
// the root is searched depth first and the first match wins.
func (s *Store) findMatch(spec Spec, canonical map[string]any, print string) (string, bool, error) {
	if spec.Path != "" {
		target := resolveRef(spec.Path, s.root)
		d, err := s.dirs.Dir(target)
		if err != nil {
			return "", false, err
		}
		defer s.dirs.Release(d)
		return target, s.matches(d, canonical, print), nil
	}

	tree, err := s.dirs.Tree(s.root)
	if err != nil {
		return "", false, err
	}
	defer tree.Close()

	artifacts, err := tree.Artifacts()
	if err != nil {
		return "", false, err
	}
	for _, d := range artifacts {
		if s.matches(d, canonical, print) {
			return d.Path(), true, nil
		}
	}
	return "", false, nil
}

// matches reports whether d's metadata records canonical and has no
// failure. A stored fingerprint that differs from print rules the
// candidate out without the deep comparison.
func (s *Store) matches(d *fsindex.DirIndex, canonical map[string]any, print string) bool {
	meta, err := d.Meta()
	if err != nil || meta == nil {
		return false
	}
	if meta.Failed() {
		return false
	}
	if meta.Fingerprint != "" && meta.Fingerprint != print {
		return false
	}
	return specsEqual(meta.Spec, canonical)
}

// makeStub allocates the artifact's directory and writes its initial
// metadata. Without an explicit path, generated names of the form
// {type}_{counter} are tried until a mkdir succeeds; the counter is
// hex, so artifacts of one type list in creation order. An explicit
// path that already exists is an error: the store cannot tell
// whether the occupant is a half-made artifact or unrelated files.
func (s *Store) makeStub(spec Spec, canonical map[string]any, print string) (string, error) {
	meta := &fsindex.Metadata{Spec: canonical, Fingerprint: print, Events: []fsindex.Event{}}

	if spec.Path != "" {
		path := resolveRef(spec.Path, s.root)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("store: creating parent directories: %w", err)
		}
		if err := os.Mkdir(path, 0o755); err != nil {
			if os.IsExist(err) {
				return "", fmt.Errorf("%w: %s", ErrPathOccupied, path)
			}
			return "", fmt.Errorf("store: creating artifact directory: %w", err)
		}
		if err := fsindex.WriteMetadata(path, meta); err != nil {
			return "", err
		}
		return path, nil
	}

	for i := 0; ; i++ {
		path := filepath.Join(s.root, fmt.Sprintf("%s_%04x", spec.Type, i))
		err := os.Mkdir(path, 0o755)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("store: creating artifact directory: %w", err)
		}
		if err := fsindex.WriteMetadata(path, meta); err != nil {
			return "", err
		}
		return path, nil
	}
}

// runBuilder executes the type's builder against a Write-mode handle
// on path, bracketed by Start and Success or Failure events.
func (s *Store) runBuilder(info TypeInfo, spec Spec, path string) error {
	artifact, err := s.open(path, Write)
	if err != nil {
		return err
	}
	defer artifact.Close()

	if err := fsindex.AppendEvent(path, fsindex.NewEvent(s.clock, fsindex.EventStart, "")); err != nil {
		return err
	}
	if err := info.Build(artifact, spec); err != nil {
		s.logger.Warn("build failed", "type", spec.Type, "path", path, "error", err)
		if logErr := fsindex.AppendEvent(path, fsindex.NewEvent(s.clock, fsindex.EventFailure, err.Error())); logErr != nil {
			return errors.Join(err, logErr)
		}
		return err
	}
	return fsindex.AppendEvent(path, fsindex.NewEvent(s.clock, fsindex.EventSuccess, ""))
}

// open acquires an index for path and wraps it in a handle.
func (s *Store) open(path string, mode Mode) (*Artifact, error) {
	d, err := s.dirs.Dir(path)
	if err != nil {
		return nil, err
	}
	return &Artifact{store: s, path: d.Path(), mode: mode, index: d}, nil
}

// ArtifactInfo summarizes one artifact for listings.
type ArtifactInfo struct {
	Path     string
	Type     string
	Building bool
	Failed   bool
	Built    bool
	LastTime string
}

// List returns a summary of every artifact under the store root, in
// depth-first search order.
func (s *Store) List() ([]ArtifactInfo, error) {
	tree, err := s.dirs.Tree(s.root)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	artifacts, err := tree.Artifacts()
	if err != nil {
		return nil, err
	}
	infos := make([]ArtifactInfo, 0, len(artifacts))
	for _, d := range artifacts {
		meta, err := d.Meta()
		if err != nil || meta == nil {
			continue
		}
		info := ArtifactInfo{
			Path:     d.Path(),
			Building: meta.Building(),
			Failed:   meta.Failed(),
			Built:    meta.Built(),
		}
		info.Type, _ = meta.Spec["type"].(string)
		if last, ok := meta.LastEvent(); ok {
			info.LastTime = last.Timestamp
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// CleanFailed deletes every artifact directory whose build failed
// and returns the removed paths.
func (s *Store) CleanFailed() ([]string, error) {
	return s.clean(func(meta *fsindex.Metadata) bool {
		return meta.Failed()
	})
}

// CleanStalled deletes every artifact directory that has been in the
// building state with no new events for longer than age, and returns
// the removed paths. Builds abandoned by a dead process are the
// intended target; age must comfortably exceed the longest expected
// gap between a live builder's events.
func (s *Store) CleanStalled(age time.Duration) ([]string, error) {
	cutoff := s.clock.Now().Add(-age)
	return s.clean(func(meta *fsindex.Metadata) bool {
		if !meta.Building() {
			return false
		}
		last, ok := meta.LastEvent()
		if !ok {
			return false
		}
		stamp, err := time.Parse(time.RFC3339Nano, last.Timestamp)
		if err != nil {
			return false
		}
		return stamp.Before(cutoff)
	})
}

func (s *Store) clean(condemn func(*fsindex.Metadata) bool) ([]string, error) {
	tree, err := s.dirs.Tree(s.root)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	artifacts, err := tree.Artifacts()
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, d := range artifacts {
		meta, err := d.Meta()
		if err != nil || meta == nil {
			continue
		}
		if !condemn(meta) {
			continue
		}
		if err := os.RemoveAll(d.Path()); err != nil {
			return removed, fmt.Errorf("store: removing %s: %w", d.Path(), err)
		}
		s.logger.Info("removed artifact", "path", d.Path())
		removed = append(removed, d.Path())
	}
	return removed, nil
}
