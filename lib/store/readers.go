// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/atelier-store/atelier/lib/codec"
	"github.com/atelier-store/atelier/lib/container"
)

// readField decodes the entry at path into a Field. The
// representation is chosen by extension, most specific first:
// container files, compressed container files, text, JSON, YAML,
// NumPy arrays, and finally an opaque path for anything else. A
// directory (or a symlink to one) is a nested artifact and inherits
// this handle's access mode.
func (a *Artifact) readField(path string) (Field, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Field{}, fmt.Errorf("store: statting field: %w", err)
	}
	if st.IsDir() {
		sub, err := a.store.open(path, a.mode)
		if err != nil {
			return Field{}, err
		}
		return Field{Kind: FieldArtifact, Path: path, Artifact: sub}, nil
	}

	switch {
	case strings.HasSuffix(path, ".cbor.zst"):
		value, err := readCompressed(path)
		if err != nil {
			return Field{}, err
		}
		return Field{Kind: FieldValue, Path: path, Value: value}, nil

	case strings.HasSuffix(path, ".cbor"):
		opened, err := container.Open(path)
		if err != nil {
			return Field{}, err
		}
		switch v := opened.(type) {
		case *container.List:
			return Field{Kind: FieldList, Path: path, List: v}, nil
		case *container.Array:
			return Field{Kind: FieldArray, Path: path, Array: v}, nil
		default:
			return Field{Kind: FieldValue, Path: path, Value: v}, nil
		}

	case strings.HasSuffix(path, ".txt"):
		data, err := os.ReadFile(path)
		if err != nil {
			return Field{}, fmt.Errorf("store: reading text field: %w", err)
		}
		return Field{Kind: FieldText, Path: path, Text: string(data)}, nil

	case strings.HasSuffix(path, ".json"):
		data, err := os.ReadFile(path)
		if err != nil {
			return Field{}, fmt.Errorf("store: reading JSON field: %w", err)
		}
		var value any
		if err := json.Unmarshal(jsonc.ToJSON(data), &value); err != nil {
			return Field{}, fmt.Errorf("store: decoding %s: %w", path, err)
		}
		return Field{Kind: FieldValue, Path: path, Value: value}, nil

	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		data, err := os.ReadFile(path)
		if err != nil {
			return Field{}, fmt.Errorf("store: reading YAML field: %w", err)
		}
		var value any
		if err := yaml.Unmarshal(data, &value); err != nil {
			return Field{}, fmt.Errorf("store: decoding %s: %w", path, err)
		}
		return Field{Kind: FieldValue, Path: path, Value: value}, nil

	case strings.HasSuffix(path, ".npy"):
		array, err := readNPY(path)
		if err != nil {
			return Field{}, err
		}
		return Field{Kind: FieldValue, Path: path, Value: array}, nil

	default:
		return Field{Kind: FieldOpaque, Path: path}, nil
	}
}

// readCompressed decodes a zstd-compressed CBOR value. Compressed
// containers are plain values, never growable handles: the
// compression frame hides the fixed-width header.
func readCompressed(path string) (any, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: reading compressed field: %w", err)
	}
	reader, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("store: initializing zstd: %w", err)
	}
	defer reader.Close()
	data, err := reader.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("store: decompressing %s: %w", path, err)
	}
	value, err := codec.DecodeValue(data)
	if err != nil {
		return nil, fmt.Errorf("store: decoding %s: %w", path, err)
	}
	return value, nil
}
