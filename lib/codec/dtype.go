// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import "fmt"

// Kind classifies a Dtype's element interpretation.
type Kind uint8

const (
	// KindUint is an unsigned integer element type.
	KindUint Kind = iota
	// KindInt is a two's-complement signed integer element type.
	KindInt
	// KindFloat is an IEEE 754 binary floating point element type.
	KindFloat
)

// Dtype describes the element type of a multidimensional array:
// interpretation, element width in bytes, and byte order. Single-byte
// types have no byte order; BigEndian is false for them.
type Dtype struct {
	Kind      Kind
	Size      int
	BigEndian bool
}

// ItemSize returns the element width in bytes.
func (d Dtype) ItemSize() int { return d.Size }

// String returns the dtype in numpy-style notation ("u1", "<f4",
// ">i8"), which is what the CLI prints when inspecting containers.
func (d Dtype) String() string {
	var kind byte
	switch d.Kind {
	case KindUint:
		kind = 'u'
	case KindInt:
		kind = 'i'
	case KindFloat:
		kind = 'f'
	}
	if d.Size == 1 {
		return fmt.Sprintf("%c1", kind)
	}
	order := byte('<')
	if d.BigEndian {
		order = '>'
	}
	return fmt.Sprintf("%c%c%d", order, kind, d.Size)
}

// Common element types. Multi-byte variants are little-endian, which
// is what the NDArray constructors emit.
var (
	Uint8   = Dtype{KindUint, 1, false}
	Uint16  = Dtype{KindUint, 2, false}
	Uint32  = Dtype{KindUint, 4, false}
	Uint64  = Dtype{KindUint, 8, false}
	Int8    = Dtype{KindInt, 1, false}
	Int16   = Dtype{KindInt, 2, false}
	Int32   = Dtype{KindInt, 4, false}
	Int64   = Dtype{KindInt, 8, false}
	Float16 = Dtype{KindFloat, 2, false}
	Float32 = Dtype{KindFloat, 4, false}
	Float64 = Dtype{KindFloat, 8, false}
)

// dtypesByTag maps RFC 8746 typed-array tag numbers to element
// types. The table covers the uint/sint/float tags in both byte
// orders; tags outside it (clamped arrays, float128, ...) fall
// through to generic decoding.
var dtypesByTag = map[uint64]Dtype{
	64: {KindUint, 1, false},
	65: {KindUint, 2, true},
	66: {KindUint, 4, true},
	67: {KindUint, 8, true},
	68: {KindUint, 1, false},
	69: {KindUint, 2, false},
	70: {KindUint, 4, false},
	71: {KindUint, 8, false},
	72: {KindInt, 1, false},
	73: {KindInt, 2, true},
	74: {KindInt, 4, true},
	75: {KindInt, 8, true},
	77: {KindInt, 2, false},
	78: {KindInt, 4, false},
	79: {KindInt, 8, false},
	80: {KindFloat, 2, true},
	81: {KindFloat, 4, true},
	82: {KindFloat, 8, true},
	84: {KindFloat, 2, false},
	85: {KindFloat, 4, false},
	86: {KindFloat, 8, false},
}

// DtypeForTag returns the element type for an RFC 8746 typed-array
// tag number. The second result is false for unrecognized tags.
func DtypeForTag(tag uint64) (Dtype, bool) {
	d, ok := dtypesByTag[tag]
	return d, ok
}

// TagForDtype returns the RFC 8746 typed-array tag number for an
// element type. Single-byte types map to the little-endian tag
// block (68 for u1, 72 for i1). The second result is false for
// element types with no tag (e.g. a zero Dtype).
func TagForDtype(d Dtype) (uint64, bool) {
	if d.Size == 1 {
		switch d.Kind {
		case KindUint:
			return 68, true
		case KindInt:
			return 72, true
		}
		return 0, false
	}
	for tag, candidate := range dtypesByTag {
		if candidate == d && tag != 64 {
			return tag, true
		}
	}
	return 0, false
}
