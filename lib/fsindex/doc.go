// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

// Package fsindex caches views of the artifact directory tree.
//
// A DirIndex caches one directory's entry listing and its parsed
// _meta_.json. Caches are invalidated by comparing the inode and
// modification time of the underlying file against the time of the
// last refresh, with a one-second padding: a file younger than the
// padding is always re-read, because its timestamp cannot prove the
// cache is current.
//
// DirIndex instances are shared through a Registry, which guarantees
// at most one live instance per directory. Acquisition is explicit
// and reference counted: Registry.Dir acquires, Registry.Release
// frees. A TreeIndex pins a whole subtree's instances for the
// duration of a search and releases them on Close.
package fsindex
