// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/atelier-store/atelier/cmd/atelier/cli"
	"github.com/atelier-store/atelier/lib/store"
)

func lsCommand() *cli.Command {
	var params struct {
		storeParams
	}
	return &cli.Command{
		Name:    "ls",
		Summary: "List the artifacts in the store",
		Description: `List every artifact under the store root with its type, build state,
and the timestamp of its most recent build event.`,
		Usage: "atelier ls [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("ls", &params.storeParams)
		},
		Examples: []cli.Example{
			{Command: "atelier ls"},
			{Command: "atelier ls --root /data/atelier"},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("ls takes no positional arguments, got %q", args[0])
			}
			s, err := params.openStore()
			if err != nil {
				return err
			}
			infos, err := s.List()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(tw, "PATH\tTYPE\tSTATE\tLAST EVENT")
			for _, info := range infos {
				rel, err := filepath.Rel(s.Root(), info.Path)
				if err != nil {
					rel = info.Path
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rel, info.Type, stateName(info), info.LastTime)
			}
			return tw.Flush()
		},
	}
}

func stateName(info store.ArtifactInfo) string {
	switch {
	case info.Failed:
		return "failed"
	case info.Building:
		return "building"
	case info.Built:
		return "built"
	default:
		return "pending"
	}
}
