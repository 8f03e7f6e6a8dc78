// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package fsindex

import (
	"os"
	"syscall"
)

// inodeOf extracts the inode number from a stat result. Inode
// changes detect a file being replaced (renamed over) even when the
// new file's timestamp is older than the cache.
func inodeOf(fi os.FileInfo) (uint64, bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return st.Ino, true
}
