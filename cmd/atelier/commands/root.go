// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the atelier command tree.
package commands

import (
	"fmt"

	"github.com/atelier-store/atelier/cmd/atelier/cli"
	"github.com/atelier-store/atelier/lib/config"
	"github.com/atelier-store/atelier/lib/store"
	"github.com/atelier-store/atelier/lib/version"
)

// Root returns the top-level atelier command.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "atelier",
		Summary: "Inspect and maintain an artifact store",
		Description: `Atelier resolves build specs to artifact directories and caches the
results on disk. This tool inspects and maintains such a store.

Commands that touch a store read the config file named by the
ATELIER_CONFIG environment variable unless --config or --root says
otherwise.`,
		Subcommands: []*cli.Command{
			lsCommand(),
			metaCommand(),
			getCommand(),
			diagCommand(),
			gcCommand(),
			versionCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(args []string) error {
			fmt.Println(version.Full())
			return nil
		},
	}
}

// storeParams are the store-selection flags shared by every command
// that opens a store.
type storeParams struct {
	Config string `flag:"config" desc:"path to atelier.yaml (overrides ATELIER_CONFIG)"`
	Root   string `flag:"root"   desc:"store root directory (bypasses the config file)"`
}

// openStore opens the store selected by flags: an explicit --root
// wins, then --config, then ATELIER_CONFIG.
func (p *storeParams) openStore() (*store.Store, error) {
	if p.Root != "" {
		return store.New(p.Root, store.NewTypeRegistry(), store.Options{})
	}

	var cfg *config.Config
	var err error
	if p.Config != "" {
		cfg, err = config.LoadFile(p.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	opts, err := cfg.StoreOptions()
	if err != nil {
		return nil, err
	}
	return store.New(cfg.Root, store.NewTypeRegistry(), opts)
}
