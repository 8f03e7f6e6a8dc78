// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"fmt"
	"io"
	"os"

	"github.com/atelier-store/atelier/lib/codec"
)

// Array is an open growable array file: a memory-mapped view of the
// payload plus the file handle used to append rows. The mapping
// covers exactly the shape recorded in the header this handle read;
// payload bytes appended by an in-flight extend are outside the view
// until the header rewrite lands and the file is reopened.
type Array struct {
	f     *os.File
	m     mapping
	shape []int64
	dtype codec.Dtype
	size  int64
}

// OpenArray opens path as a growable array file.
func OpenArray(path string) (*Array, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening array: %w", err)
	}
	header, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	shape, dtype, err := codec.ParseArrayHeader(header)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	array, err := newArray(f, shape, dtype)
	if err != nil {
		f.Close()
		return nil, err
	}
	return array, nil
}

// newArray maps the open file's header and payload for the given
// shape. The file may be longer than the mapped region when another
// handle has appended data whose header rewrite this handle did not
// observe.
func newArray(f *os.File, shape []int64, dtype codec.Dtype) (*Array, error) {
	total := mappedSize(shape, dtype)
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("statting array: %w", err)
	}
	if st.Size() < total {
		return nil, fmt.Errorf("%s: file is %d bytes, header requires %d", f.Name(), st.Size(), total)
	}
	m, err := mapFile(f, total)
	if err != nil {
		return nil, fmt.Errorf("mapping array: %w", err)
	}
	return &Array{f: f, m: m, shape: shape, dtype: dtype, size: st.Size()}, nil
}

// mappedSize returns header length plus payload length for a shape.
func mappedSize(shape []int64, dtype codec.Dtype) int64 {
	var elements int64 = 1
	for _, n := range shape {
		elements *= n
	}
	return int64(codec.DataOffset(len(shape))) + elements*int64(dtype.ItemSize())
}

// Shape returns a copy of the array's shape.
func (a *Array) Shape() []int64 {
	shape := make([]int64, len(a.shape))
	copy(shape, a.shape)
	return shape
}

// Dtype returns the array's element type.
func (a *Array) Dtype() codec.Dtype { return a.dtype }

// Len returns the leading dimension's length.
func (a *Array) Len() int64 {
	if len(a.shape) == 0 {
		return 0
	}
	return a.shape[0]
}

// NDArray returns the mapped payload as an NDArray view. The view's
// data aliases the shared file mapping, so stores write through to
// the file; the view is invalidated by Extend, Append, and Close.
func (a *Array) NDArray() *codec.NDArray {
	offset := codec.DataOffset(len(a.shape))
	return &codec.NDArray{
		Shape: a.Shape(),
		Dtype: a.dtype,
		Data:  a.m[offset:],
	}
}

// Extend appends the rows of items to the array. The item array's
// dtype must equal the container's, and its trailing dimensions must
// match the container's row shape; its leading dimension is the
// number of rows added. Scalar containers cannot be extended and
// scalar items cannot extend.
//
// The payload bytes are written and synced before the header is
// rewritten with the grown leading dimension, so concurrent readers
// observe either the old or the new shape, never a torn one.
// Returns ErrStale if another handle has written the file since this
// one was opened.
func (a *Array) Extend(items *codec.NDArray) error {
	if len(a.shape) == 0 {
		return fmt.Errorf("container: scalar arrays cannot be extended")
	}
	if items.NDim() == 0 {
		return fmt.Errorf("container: cannot extend with a scalar")
	}
	if items.Dtype != a.dtype {
		return fmt.Errorf("container: item dtype %s does not match array dtype %s", items.Dtype, a.dtype)
	}
	rowShape := a.shape[1:]
	itemRows := items.Shape[1:]
	if len(itemRows) != len(rowShape) {
		return fmt.Errorf("container: item shape %v does not match row shape %v", items.Shape, rowShape)
	}
	for i, n := range rowShape {
		if itemRows[i] != n {
			return fmt.Errorf("container: item shape %v does not match row shape %v", items.Shape, rowShape)
		}
	}

	if err := checkSize(a.f, a.size); err != nil {
		return err
	}

	if _, err := a.f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seeking to end of array: %w", err)
	}
	if _, err := a.f.Write(items.Data); err != nil {
		return fmt.Errorf("appending array rows: %w", err)
	}
	if err := a.f.Sync(); err != nil {
		return fmt.Errorf("syncing array rows: %w", err)
	}

	newShape := make([]int64, len(a.shape))
	copy(newShape, a.shape)
	newShape[0] += items.Shape[0]

	// Grow the mapping before publishing the new header so the view
	// is never narrower than the announced shape.
	if err := a.m.unmap(); err != nil {
		return fmt.Errorf("unmapping array: %w", err)
	}
	m, err := mapFile(a.f, mappedSize(newShape, a.dtype))
	if err != nil {
		return fmt.Errorf("remapping array: %w", err)
	}
	a.m = m

	header, err := codec.ArrayHeader(newShape, a.dtype)
	if err != nil {
		return err
	}
	if err := writeHeader(a.f, header); err != nil {
		return err
	}

	a.shape = newShape
	a.size += int64(len(items.Data))
	return nil
}

// Append appends item as a single row: it is reshaped with a leading
// dimension of 1 and passed to Extend, so its shape must equal the
// container's row shape.
func (a *Array) Append(item *codec.NDArray) error {
	row, err := codec.NewNDArray(append([]int64{1}, item.Shape...), item.Dtype, item.Data)
	if err != nil {
		return err
	}
	return a.Extend(row)
}

// Close unmaps the payload and releases the underlying file. NDArray
// views obtained from this handle become invalid.
func (a *Array) Close() error {
	if err := a.m.unmap(); err != nil {
		a.f.Close()
		return err
	}
	a.m = nil
	return a.f.Close()
}
