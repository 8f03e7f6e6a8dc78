// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "atelier.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
root: /var/lib/atelier
poll_interval: 5ms
stall_timeout: 2m
compression:
  enabled: true
  min_size: 1024
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Root != "/var/lib/atelier" {
		t.Errorf("Root = %q", cfg.Root)
	}
	if !cfg.Compression.Enabled || cfg.Compression.MinSize != 1024 {
		t.Errorf("Compression = %+v", cfg.Compression)
	}

	opts, err := cfg.StoreOptions()
	if err != nil {
		t.Fatalf("StoreOptions: %v", err)
	}
	if opts.PollInterval != 5*time.Millisecond {
		t.Errorf("PollInterval = %v", opts.PollInterval)
	}
	if opts.StallTimeout != 2*time.Minute {
		t.Errorf("StallTimeout = %v", opts.StallTimeout)
	}
}

func TestLoadFileDefaults(t *testing.T) {
	path := writeConfig(t, "root: /data/atelier\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.PollInterval != "1ms" {
		t.Errorf("PollInterval = %q", cfg.PollInterval)
	}
	opts, err := cfg.StoreOptions()
	if err != nil {
		t.Fatalf("StoreOptions: %v", err)
	}
	if opts.StallTimeout != 0 {
		t.Errorf("StallTimeout = %v, want unbounded", opts.StallTimeout)
	}
}

func TestLoadRequiresEnvVar(t *testing.T) {
	t.Setenv("ATELIER_CONFIG", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without ATELIER_CONFIG")
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("ATELIER_TEST_HOME", "/home/tester")
	path := writeConfig(t, "root: ${ATELIER_TEST_HOME}/atelier\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Root != "/home/tester/atelier" {
		t.Errorf("Root = %q", cfg.Root)
	}

	path = writeConfig(t, "root: ${ATELIER_UNSET_VAR:-/fallback}/atelier\n")
	cfg, err = LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Root != "/fallback/atelier" {
		t.Errorf("Root = %q", cfg.Root)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	cfg.Root = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty root accepted")
	}

	cfg = Default()
	cfg.PollInterval = "fast"
	if err := cfg.Validate(); err == nil {
		t.Error("bad poll_interval accepted")
	}
}
