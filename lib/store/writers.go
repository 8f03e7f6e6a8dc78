// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/klauspost/compress/zstd"

	"github.com/atelier-store/atelier/lib/codec"
)

// writeField persists value as the field's file. Artifact values
// become symlinks to the referenced directory. Everything else is
// encoded by the container codec — NDArrays as growable array files,
// sequences as growable list files, other values generically, with
// large generic values zstd-compressed when the store allows it. The
// bytes are written to a hidden temp file in the artifact directory
// and renamed into place.
func (a *Artifact) writeField(name string, value any) error {
	if other, ok := value.(*Artifact); ok {
		target := filepath.Join(a.path, name)
		if err := os.Symlink(other.path, target); err != nil {
			return fmt.Errorf("store: linking field %s: %w", name, err)
		}
		a.index.SetEntryPath(name, target)
		return nil
	}

	data, err := codec.EncodeValue(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}

	ext := ".cbor"
	if a.shouldCompress(value, len(data)) {
		compressed, err := compress(data)
		if err != nil {
			return err
		}
		data, ext = compressed, ".cbor.zst"
	}

	target := filepath.Join(a.path, name+ext)
	tmp, err := os.CreateTemp(a.path, ".field-*")
	if err != nil {
		return fmt.Errorf("store: creating field temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: writing field %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: syncing field %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: closing field %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("store: renaming field %s into place: %w", name, err)
	}
	a.index.SetEntryPath(name, target)
	return nil
}

// shouldCompress reports whether a value's encoding goes through
// zstd. Growable shapes (arrays and sequences) stay uncompressed so
// their headers remain rewritable in place.
func (a *Artifact) shouldCompress(value any, encodedSize int) bool {
	opts := a.store.opts.Compression
	if !opts.Enabled || encodedSize < opts.MinSize {
		return false
	}
	if _, ok := value.(*codec.NDArray); ok {
		return false
	}
	if _, ok := value.([]byte); ok {
		return true
	}
	kind := reflect.ValueOf(value).Kind()
	return kind != reflect.Slice && kind != reflect.Array
}

func compress(data []byte) ([]byte, error) {
	writer, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("store: initializing zstd: %w", err)
	}
	defer writer.Close()
	return writer.EncodeAll(data, nil), nil
}
