// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/atelier-store/atelier/lib/codec"
)

// npyMagic is the NPY format signature.
var npyMagic = []byte{0x93, 'N', 'U', 'M', 'P', 'Y'}

var (
	npyDescrPattern = regexp.MustCompile(`'descr':\s*'([<>|=])?([uif])(\d+)'`)
	npyOrderPattern = regexp.MustCompile(`'fortran_order':\s*(True|False)`)
	npyShapePattern = regexp.MustCompile(`'shape':\s*\(([^)]*)\)`)
)

// readNPY reads a NumPy .npy file (format versions 1 and 2) into an
// NDArray. Only C-contiguous numeric arrays with the dtypes the
// container format supports are accepted.
func readNPY(path string) (*codec.NDArray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: opening NumPy file: %w", err)
	}
	defer f.Close()

	prefix := make([]byte, 8)
	if _, err := io.ReadFull(f, prefix); err != nil {
		return nil, fmt.Errorf("store: reading NumPy prefix: %w", err)
	}
	if string(prefix[:6]) != string(npyMagic) {
		return nil, fmt.Errorf("store: %s is not a NumPy array file", path)
	}
	major := prefix[6]

	var headerLen int
	switch major {
	case 1:
		var raw [2]byte
		if _, err := io.ReadFull(f, raw[:]); err != nil {
			return nil, fmt.Errorf("store: reading NumPy header length: %w", err)
		}
		headerLen = int(binary.LittleEndian.Uint16(raw[:]))
	case 2, 3:
		var raw [4]byte
		if _, err := io.ReadFull(f, raw[:]); err != nil {
			return nil, fmt.Errorf("store: reading NumPy header length: %w", err)
		}
		headerLen = int(binary.LittleEndian.Uint32(raw[:]))
	default:
		return nil, fmt.Errorf("store: unsupported NumPy format version %d", major)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("store: reading NumPy header: %w", err)
	}

	shape, dtype, err := parseNPYHeader(string(header))
	if err != nil {
		return nil, fmt.Errorf("store: %s: %w", path, err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("store: reading NumPy payload: %w", err)
	}
	array, err := codec.NewNDArray(shape, dtype, data)
	if err != nil {
		return nil, fmt.Errorf("store: %s: %w", path, err)
	}
	return array, nil
}

// parseNPYHeader extracts shape and dtype from the header's Python
// dict literal.
func parseNPYHeader(header string) ([]int64, codec.Dtype, error) {
	descr := npyDescrPattern.FindStringSubmatch(header)
	if descr == nil {
		return nil, codec.Dtype{}, fmt.Errorf("unsupported NumPy dtype in header %q", strings.TrimSpace(header))
	}
	size, err := strconv.Atoi(descr[3])
	if err != nil {
		return nil, codec.Dtype{}, fmt.Errorf("bad NumPy dtype size: %w", err)
	}
	var kind codec.Kind
	switch descr[2] {
	case "u":
		kind = codec.KindUint
	case "i":
		kind = codec.KindInt
	case "f":
		kind = codec.KindFloat
	}
	dtype := codec.Dtype{Kind: kind, Size: size, BigEndian: descr[1] == ">"}
	if _, ok := codec.TagForDtype(dtype); !ok {
		return nil, codec.Dtype{}, fmt.Errorf("NumPy dtype %s has no container equivalent", dtype)
	}

	order := npyOrderPattern.FindStringSubmatch(header)
	if order == nil || order[1] != "False" {
		return nil, codec.Dtype{}, fmt.Errorf("only C-contiguous NumPy arrays are supported")
	}

	shapeMatch := npyShapePattern.FindStringSubmatch(header)
	if shapeMatch == nil {
		return nil, codec.Dtype{}, fmt.Errorf("NumPy header lacks a shape")
	}
	var shape []int64
	for _, part := range strings.Split(shapeMatch[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, codec.Dtype{}, fmt.Errorf("bad NumPy shape element %q: %w", part, err)
		}
		shape = append(shape, n)
	}
	return shape, dtype, nil
}
