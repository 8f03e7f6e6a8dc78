// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package fsindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/atelier-store/atelier/lib/clock"
)

// MetaFileName is the name of the metadata file that marks a
// directory as an artifact.
const MetaFileName = "_meta_.json"

// Build event types recorded in an artifact's metadata.
const (
	EventStart   = "Start"
	EventSuccess = "Success"
	EventFailure = "Failure"
)

// ErrInvalidMetadata reports that a _meta_.json file exists but does
// not hold well-formed artifact metadata.
var ErrInvalidMetadata = errors.New("fsindex: invalid artifact metadata")

// Event is one entry in an artifact's build log.
type Event struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message,omitempty"`
}

// NewEvent returns an event of the given type stamped with the
// clock's current time.
func NewEvent(clk clock.Clock, eventType, message string) Event {
	return Event{
		Type:      eventType,
		Timestamp: clk.Now().Format(time.RFC3339Nano),
		Message:   message,
	}
}

// Metadata is the contents of an artifact's _meta_.json: the
// canonical spec the artifact was built from, an optional content
// fingerprint of that spec, and the build event log.
type Metadata struct {
	Spec        map[string]any `json:"spec"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Events      []Event        `json:"events"`
}

// Building reports whether a build has started but not yet succeeded
// or failed.
func (m *Metadata) Building() bool {
	started, finished := false, false
	for _, e := range m.Events {
		switch e.Type {
		case EventStart:
			started = true
		case EventSuccess, EventFailure:
			finished = true
		}
	}
	return started && !finished
}

// Failed reports whether any build of this artifact has failed.
func (m *Metadata) Failed() bool {
	for _, e := range m.Events {
		if e.Type == EventFailure {
			return true
		}
	}
	return false
}

// Built reports whether a build of this artifact has succeeded.
func (m *Metadata) Built() bool {
	for _, e := range m.Events {
		if e.Type == EventSuccess {
			return true
		}
	}
	return false
}

// LastEvent returns the most recent event, or false if the log is
// empty.
func (m *Metadata) LastEvent() (Event, bool) {
	if len(m.Events) == 0 {
		return Event{}, false
	}
	return m.Events[len(m.Events)-1], true
}

// ParseMetadata parses and validates metadata JSON. Any structural
// deviation (missing spec object, missing event list, events without
// a type and timestamp) returns an error wrapping
// ErrInvalidMetadata.
func ParseMetadata(data []byte) (*Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if meta.Spec == nil {
		return nil, fmt.Errorf("%w: missing spec object", ErrInvalidMetadata)
	}
	if meta.Events == nil {
		return nil, fmt.Errorf("%w: missing event list", ErrInvalidMetadata)
	}
	for i, e := range meta.Events {
		if e.Type == "" || e.Timestamp == "" {
			return nil, fmt.Errorf("%w: event %d lacks a type or timestamp", ErrInvalidMetadata, i)
		}
	}
	return &meta, nil
}

// WriteMetadata writes meta to dir's _meta_.json atomically: the
// JSON is written to a temporary file in the same directory and
// renamed into place, so readers never observe a partial file.
func WriteMetadata(dir string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".meta-*")
	if err != nil {
		return fmt.Errorf("creating metadata temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing metadata: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing metadata: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, MetaFileName)); err != nil {
		return fmt.Errorf("renaming metadata into place: %w", err)
	}
	return nil
}

// AppendEvent appends event to dir's build log: the current metadata
// is read, the event appended, and the file rewritten atomically.
// The existing metadata must be valid.
func AppendEvent(dir string, event Event) error {
	data, err := os.ReadFile(filepath.Join(dir, MetaFileName))
	if err != nil {
		return fmt.Errorf("reading metadata: %w", err)
	}
	meta, err := ParseMetadata(data)
	if err != nil {
		return err
	}
	meta.Events = append(meta.Events, event)
	return WriteMetadata(dir, meta)
}
