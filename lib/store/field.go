// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package store

import "github.com/atelier-store/atelier/lib/container"

// FieldKind discriminates the representations a field read can
// produce.
type FieldKind int

const (
	// FieldMissing means no entry with the requested name exists.
	// Only Write-mode reads produce it; read modes return
	// ErrFieldNotFound instead.
	FieldMissing FieldKind = iota

	// FieldList is an open growable list container.
	FieldList

	// FieldArray is an open growable array container.
	FieldArray

	// FieldValue is a decoded Go value: generic CBOR content,
	// compressed CBOR, JSON, or YAML.
	FieldValue

	// FieldText is the contents of a plain text file.
	FieldText

	// FieldArtifact is a nested artifact: a subdirectory or a
	// symlink to another artifact's directory.
	FieldArtifact

	// FieldOpaque is a file in a format the store does not decode;
	// only its path is exposed.
	FieldOpaque
)

var fieldKindNames = map[FieldKind]string{
	FieldMissing:  "missing",
	FieldList:     "list",
	FieldArray:    "array",
	FieldValue:    "value",
	FieldText:     "text",
	FieldArtifact: "artifact",
	FieldOpaque:   "opaque",
}

func (k FieldKind) String() string {
	if name, ok := fieldKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Field is the result of reading an artifact field: a tagged union
// over the store's representations. Path is set for every kind
// except FieldMissing.
type Field struct {
	Kind     FieldKind
	Path     string
	List     *container.List
	Array    *container.Array
	Value    any
	Text     string
	Artifact *Artifact
}

// Close releases whatever resources the field holds: an open
// container file or a nested artifact's index. Fields without
// resources close as a no-op.
func (f Field) Close() error {
	switch f.Kind {
	case FieldList:
		return f.List.Close()
	case FieldArray:
		return f.Array.Close()
	case FieldArtifact:
		return f.Artifact.Close()
	}
	return nil
}
