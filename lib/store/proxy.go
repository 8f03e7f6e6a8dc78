// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/atelier-store/atelier/lib/codec"
)

// Proxy addresses a nested field path that may not exist yet.
// Directories along the path are created top-down on the first
// write, so `artifact.At("a", "b").Set("c", v)` materializes a/b/
// and writes the field c inside it. Proxies are only meaningful on
// Write-mode artifacts.
type Proxy struct {
	root *Artifact
	keys []string
}

// At returns a proxy for the nested path under the artifact.
func (a *Artifact) At(keys ...string) *Proxy {
	return &Proxy{root: a, keys: keys}
}

// At extends the proxy's path by one more key.
func (p *Proxy) At(key string) *Proxy {
	keys := make([]string, 0, len(p.keys)+1)
	keys = append(keys, p.keys...)
	return &Proxy{root: p.root, keys: append(keys, key)}
}

// Path returns the directory path the proxy addresses.
func (p *Proxy) Path() string {
	return filepath.Join(append([]string{p.root.path}, p.keys...)...)
}

// Get reads the field with the given name beneath the proxy's path.
// Missing intermediate directories yield a FieldMissing result.
func (p *Proxy) Get(name string) (Field, error) {
	wrapper, cleanup, err := p.descend(false)
	if err != nil {
		return Field{}, err
	}
	if wrapper == nil {
		return Field{Kind: FieldMissing}, nil
	}
	defer cleanup()
	return wrapper.Get(name)
}

// Set creates the proxy's directories if needed and writes the
// field beneath them.
func (p *Proxy) Set(name string, value any) error {
	wrapper, cleanup, err := p.descend(true)
	if err != nil {
		return err
	}
	defer cleanup()
	return wrapper.Set(name, value)
}

// Delete removes the named field beneath the proxy's path. A path
// that was never materialized is a no-op.
func (p *Proxy) Delete(name string) error {
	wrapper, cleanup, err := p.descend(false)
	if err != nil {
		return err
	}
	if wrapper == nil {
		return nil
	}
	defer cleanup()
	return wrapper.Delete(name)
}

// Append appends one item to the growable container addressed by
// the proxy's last key. An NDArray item is treated as a single row.
func (p *Proxy) Append(item any) error {
	if array, ok := item.(*codec.NDArray); ok {
		row, err := codec.NewNDArray(append([]int64{1}, array.Shape...), array.Dtype, array.Data)
		if err != nil {
			return err
		}
		return p.Extend(row)
	}
	return p.Extend([]any{item})
}

// Extend appends items to the growable container addressed by the
// proxy's last key, creating the container (and the directories
// above it) if it does not exist. Items must be a []any for list
// containers or an *NDArray of rows for array containers.
func (p *Proxy) Extend(items any) error {
	if len(p.keys) == 0 {
		return fmt.Errorf("store: proxy has no field to extend")
	}
	fieldKey := p.keys[len(p.keys)-1]
	wrapperProxy := &Proxy{root: p.root, keys: p.keys[:len(p.keys)-1]}

	wrapper, cleanup, err := wrapperProxy.descend(true)
	if err != nil {
		return err
	}
	defer cleanup()

	field, err := wrapper.Get(fieldKey)
	if err != nil {
		return err
	}
	if field.Kind == FieldMissing {
		return wrapper.Set(fieldKey, items)
	}
	defer field.Close()

	switch field.Kind {
	case FieldList:
		listItems, ok := items.([]any)
		if !ok {
			return fmt.Errorf("%w: list containers extend with []any, got %T", ErrUnsupportedValue, items)
		}
		return field.List.Extend(listItems)
	case FieldArray:
		rows, ok := items.(*codec.NDArray)
		if !ok {
			return fmt.Errorf("%w: array containers extend with *NDArray, got %T", ErrUnsupportedValue, items)
		}
		return field.Array.Extend(rows)
	default:
		return fmt.Errorf("%w: field %s is %s, not a growable container", ErrUnsupportedValue, fieldKey, field.Kind)
	}
}

// descend walks the proxy's keys from the root artifact, opening
// each level as a Write-mode artifact. With create set, missing
// directories are made; without it, a missing level returns a nil
// wrapper. The cleanup function closes the intermediate handle.
func (p *Proxy) descend(create bool) (*Artifact, func(), error) {
	if p.root.mode != Write {
		return nil, nil, fmt.Errorf("%w: proxies require write mode", ErrReadOnlyMode)
	}
	if len(p.keys) == 0 {
		return p.root, func() {}, nil
	}
	for _, key := range p.keys {
		if err := checkFieldName(key); err != nil {
			return nil, nil, err
		}
	}

	path := p.Path()
	if create {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, nil, fmt.Errorf("store: creating field directories: %w", err)
		}
		p.root.index.SetEntryPath(p.keys[0], filepath.Join(p.root.path, p.keys[0]))
	} else if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("store: statting field directories: %w", err)
	}

	wrapper, err := p.root.store.open(path, Write)
	if err != nil {
		return nil, nil, err
	}
	return wrapper, func() { wrapper.Close() }, nil
}
