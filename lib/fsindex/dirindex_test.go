// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package fsindex

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/atelier-store/atelier/lib/clock"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func validMeta(specType string) string {
	return `{"spec": {"type": "` + specType + `"}, "events": []}`
}

func TestRegistrySharesInstances(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(clock.Real())

	first, err := r.Dir(dir)
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	second, err := r.Dir(dir + string(os.PathSeparator))
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if first != second {
		t.Fatal("two acquisitions of one directory returned distinct instances")
	}
	r.Release(second)
	r.Release(first)

	if len(r.dirs) != 0 {
		t.Fatalf("registry still holds %d entries after full release", len(r.dirs))
	}
}

func TestEntryNamesUseStems(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "loss.cbor"), "x")
	writeFile(t, filepath.Join(dir, "frames.cbor.zst"), "x")
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	r := NewRegistry(clock.Real())
	d, err := r.Dir(dir)
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	defer r.Release(d)

	names, err := d.EntryNames()
	if err != nil {
		t.Fatalf("EntryNames: %v", err)
	}
	want := []string{"frames", "loss", "nested", "notes"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("EntryNames() = %v, want %v", names, want)
	}

	path, ok := d.EntryPath("frames")
	if !ok || path != filepath.Join(dir, "frames.cbor.zst") {
		t.Fatalf("EntryPath(frames) = %q, %v", path, ok)
	}
}

func TestEntryPathRescansOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "first.txt"), "x")

	r := NewRegistry(clock.Real())
	d, err := r.Dir(dir)
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	defer r.Release(d)

	if _, err := d.EntryNames(); err != nil {
		t.Fatalf("EntryNames: %v", err)
	}

	// A file created after the listing is found through the rescan
	// path; the real clock's one-second padding keeps the fresh
	// directory from being trusted.
	writeFile(t, filepath.Join(dir, "second.txt"), "x")
	path, ok := d.EntryPath("second")
	if !ok || path != filepath.Join(dir, "second.txt") {
		t.Fatalf("EntryPath(second) = %q, %v", path, ok)
	}

	// A deleted file drops out the same way.
	if err := os.Remove(filepath.Join(dir, "first.txt")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := d.EntryPath("first"); ok {
		t.Fatal("EntryPath(first) still resolves after deletion")
	}
}

func TestSetEntryPathAvoidsRescan(t *testing.T) {
	dir := t.TempDir()
	// A fake clock an hour ahead makes every cache look fresh, so
	// nothing is re-read and the explicit path registration is the
	// only way the entry can be found.
	clk := clock.Fake(time.Now().Add(time.Hour))
	r := NewRegistry(clk)
	d, err := r.Dir(dir)
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	defer r.Release(d)

	if _, err := d.EntryNames(); err != nil {
		t.Fatalf("EntryNames: %v", err)
	}

	path := filepath.Join(dir, "weights.cbor")
	writeFile(t, path, "x")
	d.SetEntryPath("weights", path)

	got, ok := d.EntryPath("weights")
	if !ok || got != path {
		t.Fatalf("EntryPath(weights) = %q, %v", got, ok)
	}
}

func TestMetaCachingByInodeAndMtime(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, MetaFileName)
	writeFile(t, metaPath, validMeta("v1"))

	// An hour-ahead fake clock records refresh times far past the
	// files' real modification times, so the cache is trusted until
	// the inode changes.
	clk := clock.Fake(time.Now().Add(time.Hour))
	r := NewRegistry(clk)
	d, err := r.Dir(dir)
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	defer r.Release(d)

	meta, err := d.Meta()
	if err != nil || meta == nil {
		t.Fatalf("Meta() = %v, %v", meta, err)
	}
	if meta.Spec["type"] != "v1" {
		t.Fatalf("spec type = %v, want v1", meta.Spec["type"])
	}

	// Rewriting in place keeps the inode and a pre-refresh mtime:
	// the stale cache is served.
	writeFile(t, metaPath, validMeta("v2"))
	meta, err = d.Meta()
	if err != nil || meta == nil {
		t.Fatalf("Meta() = %v, %v", meta, err)
	}
	if meta.Spec["type"] != "v1" {
		t.Fatalf("cached spec type = %v, want v1", meta.Spec["type"])
	}

	// An atomic replace changes the inode, which defeats the cache
	// regardless of timestamps.
	if err := WriteMetadata(dir, &Metadata{Spec: map[string]any{"type": "v3"}, Events: []Event{}}); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	meta, err = d.Meta()
	if err != nil || meta == nil {
		t.Fatalf("Meta() = %v, %v", meta, err)
	}
	if meta.Spec["type"] != "v3" {
		t.Fatalf("spec type after replace = %v, want v3", meta.Spec["type"])
	}
}

func TestMetaThreeWayResult(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(clock.Real())
	d, err := r.Dir(dir)
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	defer r.Release(d)

	// Absent.
	meta, err := d.Meta()
	if meta != nil || err != nil {
		t.Fatalf("Meta() with no file = %v, %v, want nil, nil", meta, err)
	}

	// Malformed.
	writeFile(t, filepath.Join(dir, MetaFileName), `{"events": []}`)
	meta, err = d.Meta()
	if meta != nil || err == nil {
		t.Fatalf("Meta() with malformed file = %v, %v, want nil, error", meta, err)
	}

	// Valid.
	writeFile(t, filepath.Join(dir, MetaFileName), validMeta("model"))
	meta, err = d.Meta()
	if meta == nil || err != nil {
		t.Fatalf("Meta() with valid file = %v, %v", meta, err)
	}
}

func TestArtifactsSearch(t *testing.T) {
	root := t.TempDir()
	mkdir := func(parts ...string) string {
		path := filepath.Join(append([]string{root}, parts...)...)
		if err := os.MkdirAll(path, 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		return path
	}

	a := mkdir("a")
	writeFile(t, filepath.Join(a, MetaFileName), validMeta("a"))
	// An artifact boundary: nothing beneath a is searched.
	inner := mkdir("a", "inner")
	writeFile(t, filepath.Join(inner, MetaFileName), validMeta("hidden"))

	c := mkdir("b", "c")
	writeFile(t, filepath.Join(c, MetaFileName), validMeta("c"))

	// Malformed metadata excludes the whole branch.
	d := mkdir("d")
	writeFile(t, filepath.Join(d, MetaFileName), `{"broken": true}`)
	e := mkdir("d", "e")
	writeFile(t, filepath.Join(e, MetaFileName), validMeta("unreachable"))

	mkdir("empty")

	r := NewRegistry(clock.Real())
	tree, err := r.Tree(root)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}

	artifacts, err := tree.Artifacts()
	if err != nil {
		t.Fatalf("Artifacts: %v", err)
	}
	var types []string
	for _, artifact := range artifacts {
		meta, err := artifact.Meta()
		if err != nil || meta == nil {
			t.Fatalf("artifact %s has no valid metadata", artifact.Path())
		}
		types = append(types, meta.Spec["type"].(string))
	}
	if !reflect.DeepEqual(types, []string{"a", "c"}) {
		t.Fatalf("artifact types = %v, want [a c]", types)
	}

	tree.Close()
	if len(r.dirs) != 0 {
		t.Fatalf("registry still holds %d entries after Close", len(r.dirs))
	}
	tree.Close() // idempotent
}
