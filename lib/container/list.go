// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/atelier-store/atelier/lib/codec"
)

// List is an open growable list file: an in-memory snapshot of the
// items plus the file handle used to append more. The item count is
// taken from the header read under lock; bytes past the counted
// items are ignored, so a reader racing an in-flight append sees a
// consistent prefix.
//
// Item assignment and deletion are not supported: the on-disk format
// is append-only.
type List struct {
	f     *os.File
	items []any
	size  int64
}

// OpenList opens path as a growable list file.
func OpenList(path string) (*List, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening list: %w", err)
	}
	header, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	count, err := codec.ParseListHeader(header)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	list, err := newList(f, count)
	if err != nil {
		f.Close()
		return nil, err
	}
	return list, nil
}

// newList snapshots the open file as a list with the given item
// count. The count comes from a header read under lock and overrides
// whatever count is in the snapshot, which may be mid-rewrite.
func newList(f *os.File, count int64) (*List, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding list: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading list: %w", err)
	}
	if len(data) < codec.ListHeaderSize {
		return nil, fmt.Errorf("%s: %w", f.Name(), codec.ErrShapeMismatch)
	}

	items, err := codec.DecodeListItems(bytes.NewReader(data[codec.ListHeaderSize:]), count)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", f.Name(), err)
	}
	return &List{f: f, items: items, size: int64(len(data))}, nil
}

// Items returns the snapshotted list items. The returned slice is
// shared with the handle; treat it as read-only.
func (l *List) Items() []any { return l.items }

// Len returns the number of items in the snapshot.
func (l *List) Len() int { return len(l.items) }

// Extend appends items to the list. The encoded items are written
// and synced before the count header is rewritten, so a crash or a
// concurrent reader between the two steps observes the old,
// consistent length. Returns ErrStale if another handle has written
// the file since this one was opened.
func (l *List) Extend(items []any) error {
	if len(items) == 0 {
		return nil
	}
	if err := checkSize(l.f, l.size); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := codec.EncodeListItems(&buf, items); err != nil {
		return err
	}

	if _, err := l.f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seeking to end of list: %w", err)
	}
	if _, err := l.f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("appending list items: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("syncing list items: %w", err)
	}

	header := codec.ListHeader(int64(len(l.items) + len(items)))
	if err := writeHeader(l.f, header); err != nil {
		return err
	}

	l.items = append(l.items, items...)
	l.size += int64(buf.Len())
	return nil
}

// Append appends a single item to the list.
func (l *List) Append(item any) error {
	return l.Extend([]any{item})
}

// Close releases the underlying file. The snapshotted items remain
// usable.
func (l *List) Close() error {
	return l.f.Close()
}
