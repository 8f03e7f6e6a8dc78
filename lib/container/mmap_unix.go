// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package container

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapping is a read-write memory-mapped view of a file's leading
// bytes. Stores through the mapping land in the file.
type mapping []byte

// mapFile maps the first size bytes of f. The mapping stays valid
// after further appends to the file; it just does not cover them.
func mapFile(f *os.File, size int64) (mapping, error) {
	return unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func (m mapping) unmap() error {
	if m == nil {
		return nil
	}
	return unix.Munmap(m)
}
