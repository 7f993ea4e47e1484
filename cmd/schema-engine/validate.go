package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"schema-engine/internal/schema"
	"schema-engine/internal/validate"
)

type recordResult struct {
	Index int `json:"index"`
	validate.Result
}

func newValidateCmd(a *app) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "validate <schema> <records>",
		Short: "Validate a YAML or JSON list of records",
		Long: "Validate each record against the schema. Prints one result per record and\n" +
			"exits non-zero when any record is invalid.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.loadEngine(cmd, args[0])
			if err != nil {
				printLoadError(cmd.OutOrStdout(), err)
				return err
			}

			records, err := schema.LoadRecordsFile(args[1])
			if err != nil {
				return err
			}

			results := e.ValidateAll(records)

			invalid := 0
			out := make([]recordResult, 0, len(results))

			for i, res := range results {
				if res.IsValid {
					if quiet {
						continue
					}
				} else {
					invalid++
				}

				out = append(out, recordResult{Index: i, Result: res})
			}

			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d records invalid", invalid, len(records))
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print invalid records")

	return cmd
}
