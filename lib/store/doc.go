// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

// Package store implements the artifact store: a directory tree in
// which each artifact is a directory holding a _meta_.json (the
// canonical spec it was built from plus a build event log) and one
// file or subdirectory per field.
//
// Build resolves a spec to an artifact: it scans the store root for
// an existing directory whose recorded spec equals the canonical
// form of the requested one and whose build never failed, and
// otherwise allocates a fresh directory and runs the type's builder
// there. Failed builds leave their directory in place, marked by a
// Failure event, excluded from future matches.
//
// Field access is mediated by the artifact's access mode. ReadSync
// waits for the whole build to finish before resolving a field.
// ReadAsync resolves a field as soon as its file exists, even while
// the build is still running. Write resolves immediately and hands
// out proxies for fields that do not exist yet, so nested paths can
// be materialized lazily. All waiting is short-interval polling
// against the artifact's event log.
package store
