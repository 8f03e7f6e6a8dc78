// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/atelier-store/atelier/cmd/atelier/cli"
	"github.com/atelier-store/atelier/lib/codec"
)

func diagCommand() *cli.Command {
	return &cli.Command{
		Name:    "diag",
		Summary: "Convert a CBOR file to diagnostic notation",
		Description: `Read a CBOR file (or stdin) and write RFC 8949 Extended Diagnostic
Notation to stdout.

Unlike JSON output, diagnostic notation preserves CBOR type
information: integer vs float, byte strings vs text strings, and
tagged values. Growable array fields show their RFC 8746 multidim
array structure, including the dtype tag on the payload.`,
		Usage: "atelier diag [file]",
		Examples: []cli.Example{
			{Command: "atelier diag loss.cbor"},
			{Command: "atelier diag < frames.cbor"},
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("diag takes at most one file argument")
			}
			var data []byte
			var err error
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return err
			}
			if len(data) == 0 {
				return fmt.Errorf("empty input: expected CBOR data")
			}

			// Process as a sequence: one line of notation per item.
			remaining := data
			for len(remaining) > 0 {
				notation, rest, err := codec.DiagnoseFirst(remaining)
				if err != nil {
					return fmt.Errorf("diagnose CBOR at byte %d: %w", len(data)-len(remaining), err)
				}
				fmt.Println(notation)
				remaining = rest
			}
			return nil
		},
	}
}
