// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestListHeaderLayout(t *testing.T) {
	header := ListHeader(7)
	if len(header) != ListHeaderSize {
		t.Fatalf("header is %d bytes, want %d", len(header), ListHeaderSize)
	}
	if header[0] != 0x9B {
		t.Fatalf("initial byte = %#02x, want 0x9b (array, 8-byte count)", header[0])
	}
	want := []byte{0x9B, 0, 0, 0, 0, 0, 0, 0, 7}
	for i, b := range want {
		if header[i] != b {
			t.Fatalf("header[%d] = %#02x, want %#02x", i, header[i], b)
		}
	}
}

func TestParseListHeaderRoundtrip(t *testing.T) {
	for _, count := range []int64{0, 1, 23, 256, 1 << 40} {
		parsed, err := ParseListHeader(ListHeader(count))
		if err != nil {
			t.Fatalf("ParseListHeader(ListHeader(%d)): %v", count, err)
		}
		if parsed != count {
			t.Fatalf("parsed count = %d, want %d", parsed, count)
		}
	}
}

func TestParseListHeaderRejectsCompactEncodings(t *testing.T) {
	cases := map[string][]byte{
		"compact count":    {0x83},                   // array(3), 1-byte token
		"1-byte count":     {0x98, 0x03},             // array, next-byte count
		"4-byte count":     {0x9A, 0, 0, 0, 3},       // array, 4-byte count
		"indefinite array": {0x9F},                   // indefinite-length array
		"map header":       {0xBB, 0, 0, 0, 0, 0, 0, 0, 3}, // wrong major type
		"empty buffer":     {},
	}
	for name, buf := range cases {
		if _, err := ParseListHeader(buf); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("%s: err = %v, want ErrShapeMismatch", name, err)
		}
	}
}

func TestParseListHeaderRejectsCountAboveInt64(t *testing.T) {
	header := ListHeader(0)
	header[1] = 0x80 // count 1<<63, unrepresentable as int64
	if _, err := ParseListHeader(header); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("err = %v, want ErrShapeMismatch", err)
	}
}

func TestArrayHeaderRoundtrip(t *testing.T) {
	cases := []struct {
		shape []int64
		dtype Dtype
	}{
		{[]int64{}, Float64},
		{[]int64{10}, Uint8},
		{[]int64{15, 3}, Float32},
		{[]int64{2, 3, 4}, Int64},
		{[]int64{0, 5}, Int16},
	}
	for _, tc := range cases {
		header, err := ArrayHeader(tc.shape, tc.dtype)
		if err != nil {
			t.Fatalf("ArrayHeader(%v, %s): %v", tc.shape, tc.dtype, err)
		}
		if len(header) != DataOffset(len(tc.shape)) {
			t.Fatalf("header is %d bytes, want %d", len(header), DataOffset(len(tc.shape)))
		}

		shape, dtype, err := ParseArrayHeader(header)
		if err != nil {
			t.Fatalf("ParseArrayHeader: %v", err)
		}
		if dtype != tc.dtype {
			t.Fatalf("dtype = %s, want %s", dtype, tc.dtype)
		}
		if len(shape) != len(tc.shape) {
			t.Fatalf("ndim = %d, want %d", len(shape), len(tc.shape))
		}
		for i, n := range tc.shape {
			if shape[i] != n {
				t.Fatalf("shape[%d] = %d, want %d", i, shape[i], n)
			}
		}
	}
}

func TestArrayHeaderRejectsTooManyDims(t *testing.T) {
	shape := make([]int64, MaxDims+1)
	for i := range shape {
		shape[i] = 1
	}
	if _, err := ArrayHeader(shape, Float32); err == nil {
		t.Fatal("ArrayHeader accepted 13 dimensions")
	}
}

func TestParseArrayHeaderStructuralMismatches(t *testing.T) {
	valid, err := ArrayHeader([]int64{4, 2}, Float32)
	if err != nil {
		t.Fatalf("ArrayHeader: %v", err)
	}

	// A list header is not an array header.
	if _, _, err := ParseArrayHeader(ListHeader(3)); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("list header: err = %v, want ErrShapeMismatch", err)
	}

	// Wrong tag number.
	wrongTag := append([]byte(nil), valid...)
	wrongTag[1] = 41
	if _, _, err := ParseArrayHeader(wrongTag); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("wrong tag: err = %v, want ErrShapeMismatch", err)
	}

	// Unknown dtype tag (position 6 + 9*ndim + 1 holds the tag byte).
	unknownDtype := append([]byte(nil), valid...)
	unknownDtype[6+9*2+1] = 99
	if _, _, err := ParseArrayHeader(unknownDtype); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("unknown dtype: err = %v, want ErrShapeMismatch", err)
	}

	// Payload length that disagrees with the shape.
	badLength := append([]byte(nil), valid...)
	badLength[len(badLength)-1]++
	if _, _, err := ParseArrayHeader(badLength); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("bad length: err = %v, want ErrShapeMismatch", err)
	}

	// Truncated header.
	if _, _, err := ParseArrayHeader(valid[:10]); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("truncated: err = %v, want ErrShapeMismatch", err)
	}
}

func TestArrayHeaderRejectsOverflowingShape(t *testing.T) {
	if _, err := ArrayHeader([]int64{1 << 32, 1 << 32}, Float32); err == nil {
		t.Fatal("ArrayHeader accepted a shape whose element count overflows")
	}
}

func TestParseArrayHeaderRejectsWrappingShapeProduct(t *testing.T) {
	header, err := ArrayHeader([]int64{4, 2}, Float32)
	if err != nil {
		t.Fatalf("ArrayHeader: %v", err)
	}

	// Patch both dimensions to 2^32. Their uint64 product wraps to
	// zero, so without an overflow check a zero payload length would
	// satisfy the length test for a 2^64-element array.
	binary.BigEndian.PutUint64(header[5:], 1<<32)
	binary.BigEndian.PutUint64(header[14:], 1<<32)
	binary.BigEndian.PutUint64(header[len(header)-8:], 0)
	if _, _, err := ParseArrayHeader(header); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("err = %v, want ErrShapeMismatch", err)
	}

	// A single dimension above int64 range is likewise rejected.
	header, err = ArrayHeader([]int64{4, 2}, Float32)
	if err != nil {
		t.Fatalf("ArrayHeader: %v", err)
	}
	binary.BigEndian.PutUint64(header[5:], 1<<63)
	if _, _, err := ParseArrayHeader(header); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("oversized dimension: err = %v, want ErrShapeMismatch", err)
	}
}

func TestDataOffset(t *testing.T) {
	if got := DataOffset(0); got != 15 {
		t.Fatalf("DataOffset(0) = %d, want 15", got)
	}
	if got := DataOffset(2); got != 33 {
		t.Fatalf("DataOffset(2) = %d, want 33", got)
	}
}

func TestDtypeTagRoundtrip(t *testing.T) {
	for _, dtype := range []Dtype{Uint8, Uint16, Uint32, Uint64, Int8, Int16, Int32, Int64, Float16, Float32, Float64} {
		tag, ok := TagForDtype(dtype)
		if !ok {
			t.Fatalf("TagForDtype(%s): no tag", dtype)
		}
		back, ok := DtypeForTag(tag)
		if !ok {
			t.Fatalf("DtypeForTag(%d): unknown", tag)
		}
		if back != dtype {
			t.Fatalf("tag %d: round-tripped to %s, want %s", tag, back, dtype)
		}
	}
}

func TestDtypeString(t *testing.T) {
	cases := map[Dtype]string{
		Uint8:                    "u1",
		Float32:                  "<f4",
		{KindFloat, 8, true}:     ">f8",
		{KindInt, 2, true}:       ">i2",
	}
	for dtype, want := range cases {
		if got := dtype.String(); got != want {
			t.Errorf("Dtype%v.String() = %q, want %q", dtype, got, want)
		}
	}
}
