// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Atelier tools.
//
// Configuration is loaded from a single file specified by:
//   - ATELIER_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/atelier-store/atelier/lib/store"
)

// Config is the master configuration for an Atelier store.
type Config struct {
	// Root is the store's root directory. Artifact directories live
	// directly beneath it.
	Root string `yaml:"root"`

	// PollInterval is the sleep between checks while a read waits on
	// a running build, as a duration string. Default: 1ms.
	PollInterval string `yaml:"poll_interval"`

	// StallTimeout bounds how long a read waits on a build that
	// shows no progress, as a duration string. Empty or "0" waits
	// without bound.
	StallTimeout string `yaml:"stall_timeout"`

	// Compression configures transparent compression of field values.
	Compression CompressionConfig `yaml:"compression"`
}

// CompressionConfig configures the field-value write path.
type CompressionConfig struct {
	// Enabled turns zstd compression on for large generic values.
	// Growable list and array files are never compressed.
	Enabled bool `yaml:"enabled"`

	// MinSize is the smallest encoded size, in bytes, worth
	// compressing. Default: 4096.
	MinSize int `yaml:"min_size"`
}

// Default returns the default configuration. These defaults are a
// base for the loaded file, not a substitute for one.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Root:         filepath.Join(homeDir, ".cache", "atelier"),
		PollInterval: "1ms",
	}
}

// Load loads configuration from the file named by ATELIER_CONFIG.
//
// This is the only way to load configuration without an explicit
// path. If ATELIER_CONFIG is not set, this fails.
func Load() (*Config, error) {
	path := os.Getenv("ATELIER_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("ATELIER_CONFIG environment variable not set; " +
			"set it to the path of your atelier.yaml config file, or use --config flag")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment
// variables do not override config values; the only expansion
// performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.Root = expandVars(cfg.Root)
	return cfg, nil
}

// varPattern matches ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Root == "" {
		errs = append(errs, fmt.Errorf("root is required"))
	}
	if _, err := parseDuration(c.PollInterval); err != nil {
		errs = append(errs, fmt.Errorf("poll_interval: %w", err))
	}
	if _, err := parseDuration(c.StallTimeout); err != nil {
		errs = append(errs, fmt.Errorf("stall_timeout: %w", err))
	}
	if c.Compression.MinSize < 0 {
		errs = append(errs, fmt.Errorf("compression.min_size must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// StoreOptions converts the configuration into store options.
func (c *Config) StoreOptions() (store.Options, error) {
	if err := c.Validate(); err != nil {
		return store.Options{}, err
	}
	poll, _ := parseDuration(c.PollInterval)
	stall, _ := parseDuration(c.StallTimeout)
	return store.Options{
		PollInterval: poll,
		StallTimeout: stall,
		Compression: store.CompressionOptions{
			Enabled: c.Compression.Enabled,
			MinSize: c.Compression.MinSize,
		},
	}, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
