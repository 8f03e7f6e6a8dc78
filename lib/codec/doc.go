// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec implements the container codec: a CBOR profile
// (RFC 8949) with two specially recognized shapes used by the
// artifact store's container files.
//
// The two shapes exist so that container files can grow in place
// without rewriting payload bytes:
//
//   - A list whose array header is always encoded as a 9-byte token
//     (major type 4 with an 8-byte big-endian count), regardless of
//     how small the count is. The count can be rewritten in place as
//     items are appended after it.
//
//   - A multidimensional numeric array per RFC 8746 (tag 40), with
//     every shape dimension and the payload byte-string length
//     encoded as 8-byte unsigned integers. The header occupies
//     exactly 15 + 9*ndim bytes, so the payload offset is a pure
//     function of the dimension count and the header can be
//     rewritten in place as rows are appended.
//
// Header parsing is byte-exact: a semantically equivalent but
// differently encoded header does not match. Structural mismatches
// surface as ErrShapeMismatch, a recoverable condition that tells
// the caller to try the next candidate interpretation (list, then
// array, then fully generic decode).
//
// Generic encoding and decoding wrap fxamacker/cbor with Core
// Deterministic Encoding, so the same logical value always produces
// identical bytes — a property the store relies on when
// fingerprinting canonical specs.
package codec
