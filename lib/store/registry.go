// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"sort"
)

// BuilderFunc materializes a new artifact's fields. It is called
// with the artifact open in Write mode and the spec being built. An
// error marks the artifact as failed.
type BuilderFunc func(artifact *Artifact, spec Spec) error

// TypeInfo describes one registered artifact type.
type TypeInfo struct {
	// Name is the type's registered name, recorded in each
	// artifact's spec.
	Name string

	// Extends names the parent type, if any. Subtype relationships
	// follow the Extends chain and are consulted when recovering an
	// artifact as a particular type.
	Extends string

	// Build materializes a new artifact of this type.
	Build BuilderFunc
}

// TypeRegistry maps type names to their descriptors. It is populated
// up front and passed into New; it is not safe for concurrent
// mutation.
type TypeRegistry struct {
	types map[string]TypeInfo
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]TypeInfo)}
}

// Register adds a type. The name must be unused and the Extends
// chain, if present, must refer to an already-registered type.
func (r *TypeRegistry) Register(info TypeInfo) error {
	if info.Name == "" {
		return fmt.Errorf("store: type name must not be empty")
	}
	if _, exists := r.types[info.Name]; exists {
		return fmt.Errorf("store: type %q is already registered", info.Name)
	}
	if info.Extends != "" {
		if _, ok := r.types[info.Extends]; !ok {
			return fmt.Errorf("store: type %q extends unregistered type %q", info.Name, info.Extends)
		}
	}
	r.types[info.Name] = info
	return nil
}

// Lookup returns the descriptor for a type name.
func (r *TypeRegistry) Lookup(name string) (TypeInfo, bool) {
	info, ok := r.types[name]
	return info, ok
}

// Names returns all registered type names, sorted.
func (r *TypeRegistry) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSubtype reports whether name is ancestor or reaches ancestor
// through its Extends chain.
func (r *TypeRegistry) IsSubtype(name, ancestor string) bool {
	for name != "" {
		if name == ancestor {
			return true
		}
		info, ok := r.types[name]
		if !ok {
			return false
		}
		name = info.Extends
	}
	return false
}
