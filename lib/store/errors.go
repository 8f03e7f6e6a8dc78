// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package store

import "errors"

var (
	// ErrFieldNotFound reports that an artifact has no entry with
	// the requested name.
	ErrFieldNotFound = errors.New("store: field not found")

	// ErrBuildFailed reports that the artifact's builder returned an
	// error. The failed directory is left on disk for inspection.
	ErrBuildFailed = errors.New("store: build failed")

	// ErrBuildStalled reports that a read waited longer than the
	// configured stall timeout for a build that never terminated,
	// typically because the building process died without logging a
	// final event.
	ErrBuildStalled = errors.New("store: build stalled")

	// ErrUnsupportedValue reports that no writer accepted the value
	// passed to Set.
	ErrUnsupportedValue = errors.New("store: unsupported field value")

	// ErrReadOnlyMode reports a mutation attempted through an
	// artifact opened in a read mode.
	ErrReadOnlyMode = errors.New("store: artifact is open in a read mode")

	// ErrTypeMismatch reports that an artifact's recorded type is
	// not the requested type or one of its subtypes.
	ErrTypeMismatch = errors.New("store: artifact type mismatch")

	// ErrPathOccupied reports that a spec's explicit path already
	// exists and therefore cannot be claimed for a new build.
	ErrPathOccupied = errors.New("store: incompatible files exist at the artifact path")

	// ErrUnknownType reports a spec whose type name has no entry in
	// the type registry.
	ErrUnknownType = errors.New("store: unknown artifact type")
)
