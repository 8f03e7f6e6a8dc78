// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"reflect"
	"testing"
)

func TestEncodeListDecodeValueRoundtrip(t *testing.T) {
	items := []any{int64(1), "two", 3.5, true, nil, map[string]any{"k": "v"}}
	data, err := EncodeList(items)
	if err != nil {
		t.Fatalf("EncodeList: %v", err)
	}

	decoded, err := DecodeValue(data)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	got, ok := decoded.([]any)
	if !ok {
		t.Fatalf("decoded to %T, want []any", decoded)
	}
	if !reflect.DeepEqual(got, items) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", got, items)
	}
}

func TestEncodeArrayDecodeValueRoundtrip(t *testing.T) {
	array, err := FromFloat32([]int64{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("FromFloat32: %v", err)
	}
	data, err := EncodeValue(array)
	if err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}

	decoded, err := DecodeValue(data)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	got, ok := decoded.(*NDArray)
	if !ok {
		t.Fatalf("decoded to %T, want *NDArray", decoded)
	}
	if !got.Equal(array) {
		t.Fatalf("array round trip mismatch: shape %v dtype %s", got.Shape, got.Dtype)
	}
	values, err := got.Float32()
	if err != nil {
		t.Fatalf("Float32: %v", err)
	}
	for i, want := range []float32{1, 2, 3, 4, 5, 6} {
		if values[i] != want {
			t.Fatalf("values[%d] = %v, want %v", i, values[i], want)
		}
	}
}

func TestEncodeValueDispatch(t *testing.T) {
	// A typed Go slice encodes as the growable-list form.
	data, err := EncodeValue([]string{"a", "b"})
	if err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	if _, err := ParseListHeader(data); err != nil {
		t.Fatalf("slice did not produce a list header: %v", err)
	}

	// []byte stays a CBOR byte string, not a list.
	data, err = EncodeValue([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	if _, err := ParseListHeader(data); err == nil {
		t.Fatal("[]byte produced a list header")
	}

	// Maps encode generically.
	data, err = EncodeValue(map[string]any{"n": int64(2)})
	if err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	decoded, err := DecodeValue(data)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if !reflect.DeepEqual(decoded, map[string]any{"n": int64(2)}) {
		t.Fatalf("map round trip = %#v", decoded)
	}
}

func TestStripInternalKeys(t *testing.T) {
	in := map[string]any{
		"keep":  int64(1),
		"_mode": "write",
		"nested": map[string]any{
			"_path": "/x",
			"ok":    "y",
		},
		"seq": []any{map[string]any{"_hidden": true, "shown": true}},
	}
	out := StripInternal(in).(map[string]any)
	if _, present := out["_mode"]; present {
		t.Fatal("_mode survived StripInternal")
	}
	nested := out["nested"].(map[string]any)
	if _, present := nested["_path"]; present {
		t.Fatal("nested _path survived StripInternal")
	}
	item := out["seq"].([]any)[0].(map[string]any)
	if _, present := item["_hidden"]; present {
		t.Fatal("_hidden in sequence survived StripInternal")
	}
	if item["shown"] != true || nested["ok"] != "y" || out["keep"] != int64(1) {
		t.Fatalf("public keys damaged: %#v", out)
	}
}

func TestDecodeListItemsIgnoresTrailingBytes(t *testing.T) {
	// A reader holding a stale count header must decode exactly that
	// many items even when a concurrent writer has appended more
	// item bytes past them.
	var payload bytes.Buffer
	if err := EncodeListItems(&payload, []any{int64(10), int64(20), int64(30), int64(99)}); err != nil {
		t.Fatalf("EncodeListItems: %v", err)
	}

	items, err := DecodeListItems(bytes.NewReader(payload.Bytes()), 3)
	if err != nil {
		t.Fatalf("DecodeListItems: %v", err)
	}
	if !reflect.DeepEqual(items, []any{int64(10), int64(20), int64(30)}) {
		t.Fatalf("items = %#v", items)
	}
}

func TestDecodeListItemsInflatedCount(t *testing.T) {
	// The count header is untrusted input: a claimed count far beyond
	// the data on disk must fail when the reader runs out of bytes,
	// not allocate a result slice up front.
	var payload bytes.Buffer
	if err := EncodeListItems(&payload, []any{int64(1)}); err != nil {
		t.Fatalf("EncodeListItems: %v", err)
	}
	if _, err := DecodeListItems(bytes.NewReader(payload.Bytes()), 1<<61); err == nil {
		t.Fatal("inflated count decoded without error")
	}
	if _, err := DecodeListItems(bytes.NewReader(nil), -1); err == nil {
		t.Fatal("negative count decoded without error")
	}
}

func TestDecodeValueHugeClaimedListCount(t *testing.T) {
	// A bare list header claiming 2^61 items with no payload behind it.
	data := ListHeader(1 << 61)
	if _, err := DecodeValue(data); err == nil {
		t.Fatal("header-only list with a huge count decoded without error")
	}
}

func TestNewNDArrayRejectsOverflowingShape(t *testing.T) {
	if _, err := NewNDArray([]int64{1 << 32, 1 << 32}, Uint8, nil); err == nil {
		t.Fatal("NewNDArray accepted a shape whose element count overflows")
	}
	if _, err := NewNDArray([]int64{1 << 61}, Float64, nil); err == nil {
		t.Fatal("NewNDArray accepted a byte size above int64 range")
	}
	if _, err := NewNDArray([]int64{-1}, Uint8, nil); err == nil {
		t.Fatal("NewNDArray accepted a negative dimension")
	}
}

func TestDecodeValueGenericFallback(t *testing.T) {
	data, err := Marshal(map[string]any{"plain": "cbor"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := DecodeValue(data)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if !reflect.DeepEqual(decoded, map[string]any{"plain": "cbor"}) {
		t.Fatalf("decoded = %#v", decoded)
	}

	// Garbage fails with a format error, not a panic.
	if _, err := DecodeValue([]byte{0xFF, 0x00, 0x13}); err == nil {
		t.Fatal("garbage decoded without error")
	}
}

func TestDeterministicEncoding(t *testing.T) {
	value := map[string]any{"b": int64(2), "a": int64(1), "c": []any{"x"}}
	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("same value produced different encodings")
	}
}
