// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/atelier-store/atelier/lib/codec"
)

// ErrStale reports that a container file was written by another
// handle after this handle snapshotted it. The handle is a read-only
// view of the old contents; reopen the file to mutate it.
var ErrStale = errors.New("container: file changed since it was opened")

// Open opens a container file and returns a handle appropriate to
// its shape: a *List for the growable-list form, an *Array for the
// multidimensional array form, or the decoded Go value for any other
// CBOR content. List and Array handles hold the file open and must
// be closed.
func Open(path string) (any, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening container: %w", err)
	}

	header, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	if count, err := codec.ParseListHeader(header); err == nil {
		list, err := newList(f, count)
		if err != nil {
			f.Close()
			return nil, err
		}
		return list, nil
	} else if !errors.Is(err, codec.ErrShapeMismatch) {
		f.Close()
		return nil, err
	}

	if shape, dtype, err := codec.ParseArrayHeader(header); err == nil {
		array, err := newArray(f, shape, dtype)
		if err != nil {
			f.Close()
			return nil, err
		}
		return array, nil
	} else if !errors.Is(err, codec.ErrShapeMismatch) {
		f.Close()
		return nil, err
	}

	defer f.Close()
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding container: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading container: %w", err)
	}
	var value any
	if err := codec.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return value, nil
}

// WriteList writes items to path as a new growable list file.
func WriteList(path string, items []any) error {
	data, err := codec.EncodeList(items)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// WriteArray writes array to path as a new growable array file.
func WriteArray(path string, array *codec.NDArray) error {
	data, err := codec.EncodeArray(array)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// WriteValue writes any value to path, choosing the container shape
// by type: *NDArray becomes an array file, Go sequences become list
// files, and everything else is encoded as a single generic CBOR
// item.
func WriteValue(path string, v any) error {
	data, err := codec.EncodeValue(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// readHeader reads the header region of f under a shared lock. Short
// files return fewer than HeaderReserve bytes.
func readHeader(f *os.File) ([]byte, error) {
	if err := lockHeader(f, false); err != nil {
		return nil, fmt.Errorf("locking header: %w", err)
	}
	defer unlockHeader(f)

	buf := make([]byte, codec.HeaderReserve)
	n, err := f.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	return buf[:n], nil
}

// writeHeader rewrites the header bytes at the start of f under an
// exclusive lock and syncs.
func writeHeader(f *os.File, header []byte) error {
	if err := lockHeader(f, true); err != nil {
		return fmt.Errorf("locking header: %w", err)
	}
	defer unlockHeader(f)

	if _, err := f.WriteAt(header, 0); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing header: %w", err)
	}
	return nil
}

// checkSize returns ErrStale if f's size differs from the size the
// handle recorded when it last observed the file.
func checkSize(f *os.File, recorded int64) error {
	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("checking container size: %w", err)
	}
	if st.Size() != recorded {
		return fmt.Errorf("%s: %w", f.Name(), ErrStale)
	}
	return nil
}
