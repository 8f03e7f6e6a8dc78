// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/atelier-store/atelier/lib/codec"
)

// Spec describes an artifact to resolve or build: a registered type
// name, the parameters the builder receives, and an optional
// explicit location overriding the store's generated paths. Path may
// start with "@/" to address a location relative to the store root.
type Spec struct {
	Type   string
	Path   string
	Fields map[string]any
}

// Field returns a named parameter, or nil.
func (s Spec) Field(name string) any { return s.Fields[name] }

// canonical returns the spec's canonical form: the type name merged
// with the parameters, artifact references and absolute paths
// rewritten as root-relative "@/" strings, internal (underscore)
// keys dropped, and the whole structure normalized through a JSON
// round trip so it compares equal to a spec parsed back from
// _meta_.json.
func (s Spec) canonical(root string) (map[string]any, error) {
	if s.Type == "" {
		return nil, fmt.Errorf("store: spec has no type")
	}
	merged := map[string]any{"type": s.Type}
	for key, value := range s.Fields {
		if strings.HasPrefix(key, "_") {
			continue
		}
		merged[key] = encodeSpecValue(value, root)
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("store: canonicalizing spec: %w", err)
	}
	var canonical map[string]any
	if err := json.Unmarshal(data, &canonical); err != nil {
		return nil, fmt.Errorf("store: canonicalizing spec: %w", err)
	}
	return canonical, nil
}

// encodeSpecValue rewrites artifact references to root-relative path
// strings, recursively.
func encodeSpecValue(v any, root string) any {
	switch value := v.(type) {
	case *Artifact:
		return encodePath(value.path, root)
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, entry := range value {
			if strings.HasPrefix(key, "_") {
				continue
			}
			out[key] = encodeSpecValue(entry, root)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, entry := range value {
			out[i] = encodeSpecValue(entry, root)
		}
		return out
	default:
		return v
	}
}

// specsEqual reports whether two canonical specs are structurally
// equal. Both sides must have been through the JSON round trip, so
// numbers compare as float64 against float64.
func specsEqual(a, b map[string]any) bool {
	return reflect.DeepEqual(a, b)
}

// fingerprint returns a hex BLAKE3 digest of the canonical spec's
// deterministic CBOR encoding. It is stored in metadata and used to
// rule candidates out cheaply during resolution; structural equality
// remains the authoritative test.
func fingerprint(canonical map[string]any) (string, error) {
	data, err := codec.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("store: fingerprinting spec: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// encodePath converts an absolute path to a root-relative "@/"
// string. Paths outside the root climb with ".." segments.
func encodePath(path, root string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "@/" + filepath.ToSlash(path)
	}
	if rel == "." {
		return "@/"
	}
	return "@/" + filepath.ToSlash(rel)
}

// resolveRef converts a path that may carry a leading "@" into an
// absolute path under root.
func resolveRef(path, root string) string {
	if path == "@" {
		return root
	}
	if strings.HasPrefix(path, "@/") {
		return filepath.Join(root, filepath.FromSlash(path[2:]))
	}
	if !filepath.IsAbs(path) {
		return filepath.Join(root, path)
	}
	return filepath.Clean(path)
}
