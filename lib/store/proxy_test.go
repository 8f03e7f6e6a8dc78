// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"reflect"
	"testing"

	"github.com/atelier-store/atelier/lib/codec"
)

func TestProxyCreatesNestedPath(t *testing.T) {
	s := newTestStore(t, Options{}, blankType())
	writer := buildEmpty(t, s, Write)

	if err := writer.At("metrics", "train").Set("loss", 0.25); err != nil {
		t.Fatalf("nested Set: %v", err)
	}

	field, err := writer.At("metrics", "train").Get("loss")
	if err != nil {
		t.Fatalf("nested Get: %v", err)
	}
	if field.Kind != FieldValue || field.Value != 0.25 {
		t.Fatalf("loss = %v %#v", field.Kind, field.Value)
	}

	// The intermediate level reads back as a nested artifact.
	metrics, err := writer.Get("metrics")
	if err != nil {
		t.Fatalf("Get metrics: %v", err)
	}
	if metrics.Kind != FieldArtifact {
		t.Fatalf("metrics kind = %v", metrics.Kind)
	}
	defer metrics.Close()

	train, err := metrics.Artifact.Get("train")
	if err != nil {
		t.Fatalf("Get train: %v", err)
	}
	if train.Kind != FieldArtifact {
		t.Fatalf("train kind = %v", train.Kind)
	}
	train.Close()
}

func TestProxyGetUnmaterialized(t *testing.T) {
	s := newTestStore(t, Options{}, blankType())
	writer := buildEmpty(t, s, Write)

	field, err := writer.At("never", "made").Get("x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if field.Kind != FieldMissing {
		t.Fatalf("kind = %v, want FieldMissing", field.Kind)
	}
	if writer.Has("never") {
		t.Fatal("Get materialized the path")
	}
}

func TestProxyDeleteUnmaterialized(t *testing.T) {
	s := newTestStore(t, Options{}, blankType())
	writer := buildEmpty(t, s, Write)

	if err := writer.At("never").Delete("x"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestProxyRequiresWriteMode(t *testing.T) {
	s := newTestStore(t, Options{}, blankType())
	reader := buildEmpty(t, s, ReadSync)

	if err := reader.At("a").Set("x", 1); !errors.Is(err, ErrReadOnlyMode) {
		t.Fatalf("err = %v, want ErrReadOnlyMode", err)
	}
}

func TestProxyExtendList(t *testing.T) {
	s := newTestStore(t, Options{}, blankType())
	writer := buildEmpty(t, s, Write)

	log := writer.At("log")
	if err := log.Extend([]any{"first", "second"}); err != nil {
		t.Fatalf("first Extend: %v", err)
	}
	if err := log.Extend([]any{"third"}); err != nil {
		t.Fatalf("second Extend: %v", err)
	}
	if err := log.Append("fourth"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	field, err := writer.Get("log")
	if err != nil {
		t.Fatalf("Get log: %v", err)
	}
	defer field.Close()
	if field.Kind != FieldList {
		t.Fatalf("kind = %v, want FieldList", field.Kind)
	}
	want := []any{"first", "second", "third", "fourth"}
	if items := field.List.Items(); !reflect.DeepEqual(items, want) {
		t.Fatalf("items = %#v, want %#v", items, want)
	}
}

func TestProxyExtendArray(t *testing.T) {
	s := newTestStore(t, Options{}, blankType())
	writer := buildEmpty(t, s, Write)

	first, err := codec.FromFloat32([]int64{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	frames := writer.At("run", "frames")
	if err := frames.Extend(first); err != nil {
		t.Fatalf("first Extend: %v", err)
	}

	row, err := codec.FromFloat32([]int64{3}, []float32{7, 8, 9})
	if err != nil {
		t.Fatal(err)
	}
	if err := frames.Append(row); err != nil {
		t.Fatalf("Append: %v", err)
	}

	field, err := writer.At("run").Get("frames")
	if err != nil {
		t.Fatalf("Get frames: %v", err)
	}
	defer field.Close()
	if field.Kind != FieldArray {
		t.Fatalf("kind = %v, want FieldArray", field.Kind)
	}
	if shape := field.Array.Shape(); !reflect.DeepEqual(shape, []int64{3, 3}) {
		t.Fatalf("shape = %v, want [3 3]", shape)
	}
	values, err := field.Array.NDArray().Float32()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(values, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}) {
		t.Fatalf("values = %v", values)
	}
}

func TestProxyExtendTypeMismatch(t *testing.T) {
	s := newTestStore(t, Options{}, blankType())
	writer := buildEmpty(t, s, Write)

	if err := writer.At("log").Extend([]any{"a"}); err != nil {
		t.Fatal(err)
	}
	array, err := codec.FromFloat32([]int64{1, 2}, []float32{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := writer.At("log").Extend(array); !errors.Is(err, ErrUnsupportedValue) {
		t.Fatalf("err = %v, want ErrUnsupportedValue", err)
	}

	if err := writer.Set("scalar", 42); err != nil {
		t.Fatal(err)
	}
	if err := writer.At("scalar").Extend([]any{1}); !errors.Is(err, ErrUnsupportedValue) {
		t.Fatalf("err = %v, want ErrUnsupportedValue", err)
	}
}

func TestProxyAt(t *testing.T) {
	s := newTestStore(t, Options{}, blankType())
	writer := buildEmpty(t, s, Write)

	base := writer.At("a")
	deep := base.At("b").At("c")
	if err := deep.Set("x", "leaf"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Chained At must not mutate the base proxy.
	if err := base.Set("y", "shallow"); err != nil {
		t.Fatalf("Set on base: %v", err)
	}
	field, err := writer.At("a", "b", "c").Get("x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if field.Value != "leaf" {
		t.Fatalf("x = %#v", field.Value)
	}
}
