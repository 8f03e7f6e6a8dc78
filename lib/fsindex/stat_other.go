// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package fsindex

import "os"

// Without inode numbers, staleness falls back to timestamps alone.
func inodeOf(fi os.FileInfo) (uint64, bool) {
	return 0, false
}
