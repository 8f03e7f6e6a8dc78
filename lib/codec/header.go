// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// CBOR initial-byte layout: the top 3 bits are the major type, the
// low 5 bits the additional information.
const (
	majorUint       = 0 << 5
	majorByteString = 2 << 5
	majorArray      = 4 << 5
	majorTag        = 6 << 5

	infoNextByte   = 24
	infoNext2Bytes = 25
	infoNext4Bytes = 26
	infoNext8Bytes = 27

	tagMultidimArray = 40
)

// MaxDims is the maximum number of array dimensions the fixed-width
// header format supports.
const MaxDims = 12

// HeaderReserve is the number of bytes at the start of a container
// file reserved for the header. List headers use 9 bytes and array
// headers 15 + 9*ndim; bytes beyond the used length up to this
// offset are unspecified. Header byte-range locks cover exactly this
// region.
const HeaderReserve = 128

// ListHeaderSize is the byte length of a growable list header: one
// array initial byte plus an 8-byte big-endian count.
const ListHeaderSize = 9

// ErrShapeMismatch reports that a buffer does not match a recognized
// container shape. It is recoverable: the caller should try the next
// candidate interpretation rather than fail.
var ErrShapeMismatch = errors.New("codec: not a recognized container shape")

// ListHeader returns the 9-byte fixed-width header for a list with
// the given element count.
func ListHeader(count int64) []byte {
	header := make([]byte, ListHeaderSize)
	header[0] = majorArray | infoNext8Bytes
	binary.BigEndian.PutUint64(header[1:], uint64(count))
	return header
}

// ParseListHeader parses buf as a growable list header and returns
// the element count. Returns ErrShapeMismatch unless the header is
// exactly an array token with an 8-byte count.
func ParseListHeader(buf []byte) (int64, error) {
	pos, count, err := parseToken(buf, 0, majorArray)
	if err != nil {
		return 0, err
	}
	if pos != ListHeaderSize || count > math.MaxInt64 {
		return 0, ErrShapeMismatch
	}
	return int64(count), nil
}

// ArrayHeader returns the fixed-width RFC 8746 header for a
// multidimensional array with the given shape and element type.
// The header is 15 + 9*len(shape) bytes; the payload follows
// immediately at that offset.
func ArrayHeader(shape []int64, dtype Dtype) ([]byte, error) {
	if len(shape) > MaxDims {
		return nil, fmt.Errorf("codec: %d dimensions exceeds the maximum of %d", len(shape), MaxDims)
	}
	tag, ok := TagForDtype(dtype)
	if !ok {
		return nil, fmt.Errorf("codec: dtype %s has no typed-array tag", dtype)
	}

	nbytes, ok := payloadBytes(shape, dtype)
	if !ok {
		return nil, fmt.Errorf("codec: shape %v with dtype %s overflows the addressable payload size", shape, dtype)
	}

	header := make([]byte, 0, DataOffset(len(shape)))
	header = append(header, majorTag|infoNextByte, tagMultidimArray)
	header = append(header, majorArray|2)
	header = append(header, majorArray|byte(len(shape)))
	var wide [8]byte
	for _, n := range shape {
		binary.BigEndian.PutUint64(wide[:], uint64(n))
		header = append(header, majorUint|infoNext8Bytes)
		header = append(header, wide[:]...)
	}
	header = append(header, majorTag|infoNextByte, byte(tag))
	binary.BigEndian.PutUint64(wide[:], nbytes)
	header = append(header, majorByteString|infoNext8Bytes)
	header = append(header, wide[:]...)
	return header, nil
}

// ParseArrayHeader parses buf as a multidimensional array header and
// returns its shape and element type. Returns ErrShapeMismatch on
// any structural deviation: a different tag, non-8-byte widths, more
// than MaxDims dimensions, an unknown dtype tag, or a payload length
// that does not equal product(shape) * itemsize.
func ParseArrayHeader(buf []byte) ([]int64, Dtype, error) {
	pos, rootTag, err := parseToken(buf, 0, majorTag)
	if err != nil {
		return nil, Dtype{}, err
	}
	if pos != 2 || rootTag != tagMultidimArray {
		return nil, Dtype{}, ErrShapeMismatch
	}

	pos, rootLen, err := parseToken(buf, pos, majorArray)
	if err != nil {
		return nil, Dtype{}, err
	}
	if pos != 3 || rootLen != 2 {
		return nil, Dtype{}, ErrShapeMismatch
	}

	pos, ndim, err := parseToken(buf, pos, majorArray)
	if err != nil {
		return nil, Dtype{}, err
	}
	if pos != 4 || ndim > MaxDims {
		return nil, Dtype{}, ErrShapeMismatch
	}

	shape := make([]int64, ndim)
	for i := range shape {
		var n uint64
		pos, n, err = parseToken(buf, pos, majorUint)
		if err != nil {
			return nil, Dtype{}, err
		}
		if pos != 4+9*(i+1) || n > math.MaxInt64 {
			return nil, Dtype{}, ErrShapeMismatch
		}
		shape[i] = int64(n)
	}

	pos, dtypeTag, err := parseToken(buf, pos, majorTag)
	if err != nil {
		return nil, Dtype{}, err
	}
	dtype, known := DtypeForTag(dtypeTag)
	if pos != 6+9*int(ndim) || !known {
		return nil, Dtype{}, ErrShapeMismatch
	}

	pos, nbytes, err := parseToken(buf, pos, majorByteString)
	if err != nil {
		return nil, Dtype{}, err
	}
	// The product is computed with overflow checks: a crafted shape
	// whose product wraps must not be mistaken for a small payload.
	want, ok := payloadBytes(shape, dtype)
	if pos != DataOffset(int(ndim)) || !ok || nbytes != want {
		return nil, Dtype{}, ErrShapeMismatch
	}

	return shape, dtype, nil
}

// payloadBytes returns product(shape) * itemsize, reporting false on
// negative dimensions or when the result does not fit in an int64.
func payloadBytes(shape []int64, dtype Dtype) (uint64, bool) {
	var elements uint64 = 1
	for _, n := range shape {
		if n < 0 {
			return 0, false
		}
		if n != 0 && elements > math.MaxUint64/uint64(n) {
			return 0, false
		}
		elements *= uint64(n)
	}
	itemSize := uint64(dtype.ItemSize())
	if itemSize != 0 && elements > math.MaxInt64/itemSize {
		return 0, false
	}
	return elements * itemSize, true
}

// DataOffset returns the byte offset at which a multidimensional
// array's payload starts, given its dimension count.
func DataOffset(ndim int) int {
	return 15 + 9*ndim
}

// parseToken parses the CBOR token at buf[pos] and returns the
// position of the next token and the token's argument value. Returns
// ErrShapeMismatch when the major type differs from expected, when
// the additional information encodes an indefinite length, or when
// the buffer is too short.
func parseToken(buf []byte, pos int, expectedMajor byte) (int, uint64, error) {
	if pos >= len(buf) {
		return 0, 0, ErrShapeMismatch
	}
	major := buf[pos] & 0b1110_0000
	info := buf[pos] & 0b0001_1111
	if major != expectedMajor {
		return 0, 0, ErrShapeMismatch
	}

	var width int
	switch {
	case info < infoNextByte:
		return pos + 1, uint64(info), nil
	case info == infoNextByte:
		width = 1
	case info == infoNext2Bytes:
		width = 2
	case info == infoNext4Bytes:
		width = 4
	case info == infoNext8Bytes:
		width = 8
	default:
		return 0, 0, ErrShapeMismatch
	}

	if pos+1+width > len(buf) {
		return 0, 0, ErrShapeMismatch
	}
	var value uint64
	for _, b := range buf[pos+1 : pos+1+width] {
		value = value<<8 | uint64(b)
	}
	return pos + 1 + width, value, nil
}
