// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

// Package container implements growable CBOR container files: list
// files that hold a sequence of CBOR data items behind a fixed-width
// count header, and array files that hold a row-major numeric array
// behind a fixed-width RFC 8746 header.
//
// Both shapes keep the header at a stable byte width so it can be
// rewritten in place after data is appended. Appends write the new
// data first and the header second; a reader that observes the old
// header sees a consistent prefix of the file. Header reads and
// rewrites are serialized by a byte-range lock over the first 128
// bytes of the file.
//
// A handle snapshots the file when opened. It is invalidated when any
// other handle writes to the same file: extending an invalidated
// handle would corrupt the count, so mutations verify the file size
// first and return ErrStale if it moved.
package container
