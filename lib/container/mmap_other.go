// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package container

import (
	"fmt"
	"io"
	"os"
)

// mapping is a heap copy of a file's leading bytes, standing in for
// a memory map on platforms without one. Stores through the copy are
// visible to the handle but are not written back to the file.
type mapping []byte

func mapFile(f *os.File, size int64) (mapping, error) {
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading file contents: %w", err)
	}
	return buf, nil
}

func (m mapping) unmap() error { return nil }
