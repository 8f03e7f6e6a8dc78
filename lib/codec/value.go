// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
)

// EncodeValue encodes a value using the container profile's
// encoding dispatch: NDArray values produce the multidimensional
// array form, sequences (any Go slice or array except []byte)
// produce the growable-list form, and everything else is encoded
// generically. Map keys with a leading underscore are internal by
// convention and are excluded from generic encoding.
func EncodeValue(v any) ([]byte, error) {
	switch value := v.(type) {
	case *NDArray:
		return EncodeArray(value)
	case []byte:
		return Marshal(value)
	}
	if items, ok := asSequence(v); ok {
		return EncodeList(items)
	}
	return Marshal(StripInternal(v))
}

// EncodeArray encodes an NDArray as the multidimensional array form:
// fixed-width header followed by the raw payload.
func EncodeArray(a *NDArray) ([]byte, error) {
	header, err := ArrayHeader(a.Shape, a.Dtype)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(header)+len(a.Data))
	out = append(out, header...)
	out = append(out, a.Data...)
	return out, nil
}

// EncodeList encodes items as the growable-list form: a 9-byte
// fixed-width count header followed by each item encoded as a
// standard CBOR data item.
func EncodeList(items []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(ListHeader(int64(len(items))))
	if err := EncodeListItems(&buf, items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeListItems writes items to w as consecutive CBOR data items,
// with internal map keys stripped, but no surrounding header. This
// is the append path for growable lists.
func EncodeListItems(w io.Writer, items []any) error {
	encoder := NewEncoder(w)
	for i, item := range items {
		if err := encoder.Encode(StripInternal(item)); err != nil {
			return fmt.Errorf("encoding item %d: %w", i, err)
		}
	}
	return nil
}

// DecodeListItems reads count consecutive CBOR data items from r.
// Trailing bytes beyond the last item are left unread: a concurrent
// writer may have appended items whose count header update has not
// been observed, and those bytes must not be decoded.
//
// The count comes from an untrusted file header, so the result is
// grown on demand rather than allocated up front; a count larger than
// the actual data fails with a decode error once the reader runs dry.
func DecodeListItems(r io.Reader, count int64) ([]any, error) {
	if count < 0 {
		return nil, fmt.Errorf("codec: negative item count %d", count)
	}
	decoder := NewDecoder(r)
	items := make([]any, 0, min(count, 1024))
	for i := int64(0); i < count; i++ {
		var item any
		if err := decoder.Decode(&item); err != nil {
			return nil, fmt.Errorf("decoding item %d of %d: %w", i, count, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// DecodeValue decodes a complete container buffer, trying the
// recognized shapes in order: growable list, multidimensional
// array, then fully generic CBOR. List payloads decode to []any and
// array payloads to *NDArray; generic values decode to the usual
// nil/bool/int64/float64/string/[]byte/[]any/map[string]any tree.
func DecodeValue(data []byte) (any, error) {
	if count, err := ParseListHeader(data); err == nil {
		items, err := DecodeListItems(bytes.NewReader(data[ListHeaderSize:]), count)
		if err != nil {
			return nil, err
		}
		return items, nil
	} else if !errors.Is(err, ErrShapeMismatch) {
		return nil, err
	}

	if shape, dtype, err := ParseArrayHeader(data); err == nil {
		offset := DataOffset(len(shape))
		if len(data) < offset {
			return nil, fmt.Errorf("codec: truncated array payload")
		}
		return NewNDArray(shape, dtype, data[offset:])
	} else if !errors.Is(err, ErrShapeMismatch) {
		return nil, err
	}

	var value any
	if err := Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("codec: generic decode: %w", err)
	}
	return value, nil
}

// StripInternal returns v with every map key starting with an
// underscore removed, recursively. Non-map, non-slice values are
// returned unchanged.
func StripInternal(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, entry := range value {
			if strings.HasPrefix(key, "_") {
				continue
			}
			out[key] = StripInternal(entry)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, entry := range value {
			out[i] = StripInternal(entry)
		}
		return out
	default:
		return v
	}
}

// asSequence reports whether v is a Go slice or array (other than
// []byte) and converts it to []any if so.
func asSequence(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
