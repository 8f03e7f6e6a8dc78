// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// NDArray is an in-memory row-major multidimensional numeric array:
// a shape, an element type, and a flat payload in the element type's
// byte order. It is the decoded form of the RFC 8746 container shape
// and the value type the store's array writer accepts.
type NDArray struct {
	Shape []int64
	Dtype Dtype
	Data  []byte
}

// NewNDArray validates shape/dtype/data consistency and returns the
// assembled array.
func NewNDArray(shape []int64, dtype Dtype, data []byte) (*NDArray, error) {
	want, ok := payloadBytes(shape, dtype)
	if !ok {
		return nil, fmt.Errorf("codec: shape %v with dtype %s overflows the addressable payload size", shape, dtype)
	}
	if uint64(len(data)) != want {
		return nil, fmt.Errorf("codec: payload is %d bytes, shape %v with dtype %s requires %d",
			len(data), shape, dtype, want)
	}
	return &NDArray{Shape: shape, Dtype: dtype, Data: data}, nil
}

// NDim returns the number of dimensions.
func (a *NDArray) NDim() int { return len(a.Shape) }

// Len returns the leading dimension's length. A 0-dimensional array
// has length 0.
func (a *NDArray) Len() int64 {
	if len(a.Shape) == 0 {
		return 0
	}
	return a.Shape[0]
}

// NumElements returns the product of all dimensions.
func (a *NDArray) NumElements() int64 {
	var elements int64 = 1
	for _, n := range a.Shape {
		elements *= n
	}
	return elements
}

// NBytes returns the payload length in bytes.
func (a *NDArray) NBytes() int64 {
	return a.NumElements() * int64(a.Dtype.ItemSize())
}

// RowShape returns the shape with the leading dimension removed.
// Used when validating appends: incoming rows must have this shape.
func (a *NDArray) RowShape() []int64 {
	if len(a.Shape) == 0 {
		return nil
	}
	return a.Shape[1:]
}

// FromFloat32 builds a little-endian float32 array from a flat slice.
func FromFloat32(shape []int64, values []float32) (*NDArray, error) {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	return NewNDArray(shape, Float32, data)
}

// FromFloat64 builds a little-endian float64 array from a flat slice.
func FromFloat64(shape []int64, values []float64) (*NDArray, error) {
	data := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[8*i:], math.Float64bits(v))
	}
	return NewNDArray(shape, Float64, data)
}

// FromInt32 builds a little-endian int32 array from a flat slice.
func FromInt32(shape []int64, values []int32) (*NDArray, error) {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], uint32(v))
	}
	return NewNDArray(shape, Int32, data)
}

// FromInt64 builds a little-endian int64 array from a flat slice.
func FromInt64(shape []int64, values []int64) (*NDArray, error) {
	data := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[8*i:], uint64(v))
	}
	return NewNDArray(shape, Int64, data)
}

// FromUint8 builds a uint8 array from a flat slice. The data is not
// copied.
func FromUint8(shape []int64, values []byte) (*NDArray, error) {
	return NewNDArray(shape, Uint8, values)
}

// Float32 decodes the payload to a flat []float32. Errors unless the
// dtype is a 4-byte float.
func (a *NDArray) Float32() ([]float32, error) {
	if a.Dtype.Kind != KindFloat || a.Dtype.Size != 4 {
		return nil, fmt.Errorf("codec: dtype %s is not float32", a.Dtype)
	}
	order := a.byteOrder()
	values := make([]float32, a.NumElements())
	for i := range values {
		values[i] = math.Float32frombits(order.Uint32(a.Data[4*i:]))
	}
	return values, nil
}

// Float64 decodes the payload to a flat []float64. Errors unless the
// dtype is an 8-byte float.
func (a *NDArray) Float64() ([]float64, error) {
	if a.Dtype.Kind != KindFloat || a.Dtype.Size != 8 {
		return nil, fmt.Errorf("codec: dtype %s is not float64", a.Dtype)
	}
	order := a.byteOrder()
	values := make([]float64, a.NumElements())
	for i := range values {
		values[i] = math.Float64frombits(order.Uint64(a.Data[8*i:]))
	}
	return values, nil
}

// Int64 decodes the payload to a flat []int64. Errors unless the
// dtype is an 8-byte signed integer.
func (a *NDArray) Int64() ([]int64, error) {
	if a.Dtype.Kind != KindInt || a.Dtype.Size != 8 {
		return nil, fmt.Errorf("codec: dtype %s is not int64", a.Dtype)
	}
	order := a.byteOrder()
	values := make([]int64, a.NumElements())
	for i := range values {
		values[i] = int64(order.Uint64(a.Data[8*i:]))
	}
	return values, nil
}

// Equal reports whether two arrays have identical shape, dtype, and
// payload bytes.
func (a *NDArray) Equal(b *NDArray) bool {
	if a.NDim() != b.NDim() || a.Dtype != b.Dtype || len(a.Data) != len(b.Data) {
		return false
	}
	for i, n := range a.Shape {
		if b.Shape[i] != n {
			return false
		}
	}
	for i, c := range a.Data {
		if b.Data[i] != c {
			return false
		}
	}
	return true
}

func (a *NDArray) byteOrder() binary.ByteOrder {
	if a.Dtype.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
