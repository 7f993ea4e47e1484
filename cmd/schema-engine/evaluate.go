package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"schema-engine/internal/relationship"
	"schema-engine/internal/schema"
)

type evaluation struct {
	Index   int                            `json:"index"`
	Results map[string]relationship.Result `json:"results"`
	Values  schema.Values                  `json:"values,omitempty"`
}

func newEvaluateCmd(a *app) *cobra.Command {
	var (
		constants map[string]string
		apply     bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate <schema> <records>",
		Short: "Evaluate relationships for each record",
		Args:  cobra.ExactArgs(2),
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

			consts := parseConstants(constants)
			out := make([]evaluation, 0, len(records))

			for i, rec := range records {
				ev := evaluation{Index: i, Results: e.EvaluateRelationships(rec, consts)}
				if apply {
					ev.Values = e.Apply(rec, consts)
				}

				out = append(out, ev)
			}

			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringToStringVar(&constants, "const", nil, "Formula constants, name=value (numbers are parsed)")
	cmd.Flags().BoolVar(&apply, "apply", false, "Also print records with computed results merged in")

	return cmd
}

// parseConstants turns flag values into formula constants. Values that
// parse as numbers or booleans are typed, the rest stay strings.
func parseConstants(raw map[string]string) map[string]any {
	if len(raw) == 0 {
		return nil
	}

	out := make(map[string]any, len(raw))

	for k, v := range raw {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			out[k] = f
			continue
		}

		if b, err := strconv.ParseBool(v); err == nil {
			out[k] = b
			continue
		}

		out[k] = v
	}

	return out
}
