// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/atelier-store/atelier/cmd/atelier/cli"
)

func gcCommand() *cli.Command {
	var params struct {
		storeParams
		Failed  bool          `flag:"failed"  desc:"remove artifacts whose build failed"`
		Stalled time.Duration `flag:"stalled" desc:"remove builds with no progress for this long (0 disables)"`
	}
	return &cli.Command{
		Name:    "gc",
		Summary: "Remove failed or abandoned artifacts",
		Description: `Remove artifact directories that will never match a spec again: failed
builds, and builds abandoned mid-flight by a dead process.

A build counts as stalled when its metadata still shows a build in
progress but the last event is older than the --stalled age. Choose an
age well beyond the longest gap between a live builder's events.`,
		Usage: "atelier gc [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := cli.FlagsFromParams("gc", &params.storeParams)
			flagSet.AddFlagSet(cli.FlagsFromParams("gc", &params))
			return flagSet
		},
		Examples: []cli.Example{
			{Command: "atelier gc --failed"},
			{Command: "atelier gc --failed --stalled 24h"},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("gc takes no positional arguments, got %q", args[0])
			}
			if !params.Failed && params.Stalled == 0 {
				return fmt.Errorf("nothing to do: pass --failed and/or --stalled")
			}
			s, err := params.openStore()
			if err != nil {
				return err
			}

			var removed []string
			if params.Failed {
				paths, err := s.CleanFailed()
				if err != nil {
					return err
				}
				removed = append(removed, paths...)
			}
			if params.Stalled > 0 {
				paths, err := s.CleanStalled(params.Stalled)
				if err != nil {
					return err
				}
				removed = append(removed, paths...)
			}
			for _, path := range removed {
				fmt.Println(path)
			}
			return nil
		},
	}
}
