// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/atelier-store/atelier/cmd/atelier/cli"
	"github.com/atelier-store/atelier/lib/store"
)

func metaCommand() *cli.Command {
	var params struct {
		storeParams
	}
	return &cli.Command{
		Name:    "meta",
		Summary: "Print an artifact's metadata",
		Description: `Print an artifact's recorded spec, fingerprint, and build event log as
JSON. The path may be absolute or store-root-relative ("@/name").`,
		Usage: "atelier meta <path>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("meta", &params.storeParams)
		},
		Examples: []cli.Example{
			{Command: "atelier meta @/tokenizer_0003"},
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("meta takes exactly one path argument")
			}
			s, err := params.openStore()
			if err != nil {
				return err
			}
			artifact, err := s.Recover(args[0], store.Write)
			if err != nil {
				return err
			}
			defer artifact.Close()

			meta, err := artifact.Meta()
			if err != nil {
				return err
			}
			if meta == nil {
				return fmt.Errorf("%s has no metadata", artifact.Path())
			}
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(meta)
		},
	}
}
