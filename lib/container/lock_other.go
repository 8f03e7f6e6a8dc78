// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package container

import "os"

// Record locks are unavailable; header access is unserialized, as on
// filesystems without lock support.
func lockHeader(f *os.File, exclusive bool) error { return nil }

func unlockHeader(f *os.File) error { return nil }
