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

func getCommand() *cli.Command {
	var params struct {
		storeParams
		Wait bool `flag:"wait,w" desc:"block until the artifact's build terminates"`
	}
	return &cli.Command{
		Name:    "get",
		Summary: "Print one field of an artifact",
		Description: `Print a field of an artifact. Scalar and structured values print as
JSON, text fields print raw, growable containers print their contents,
and opaque or linked fields print their path.`,
		Usage: "atelier get [flags] <path> <field>",
		Flags: func() *pflag.FlagSet {
			flagSet := cli.FlagsFromParams("get", &params.storeParams)
			flagSet.AddFlagSet(cli.FlagsFromParams("get", &params))
			return flagSet
		},
		Examples: []cli.Example{
			{Command: "atelier get @/tokenizer_0003 vocab"},
			{Description: "Wait for an in-progress build", Command: "atelier get --wait @/model_0001 weights"},
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("get takes a path and a field name")
			}
			s, err := params.openStore()
			if err != nil {
				return err
			}
			mode := store.ReadAsync
			if params.Wait {
				mode = store.ReadSync
			}
			artifact, err := s.Recover(args[0], mode)
			if err != nil {
				return err
			}
			defer artifact.Close()

			field, err := artifact.Get(args[1])
			if err != nil {
				return err
			}
			defer field.Close()
			return printField(field)
		},
	}
}

func printField(field store.Field) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	switch field.Kind {
	case store.FieldText:
		_, err := fmt.Print(field.Text)
		return err
	case store.FieldValue:
		return encoder.Encode(field.Value)
	case store.FieldList:
		return encoder.Encode(field.List.Items())
	case store.FieldArray:
		fmt.Printf("array shape=%v dtype=%s\n", field.Array.Shape(), field.Array.Dtype())
		return nil
	case store.FieldArtifact:
		fmt.Println(field.Artifact.Path())
		return nil
	default:
		fmt.Println(field.Path)
		return nil
	}
}
