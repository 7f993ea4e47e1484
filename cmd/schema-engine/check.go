package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <schema>",
		Short: "Check schema integrity: references, cycles, formulas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			e, err := a.loadEngine(cmd, args[0])
			if err != nil {
				printLoadError(out, err)
				return err
			}

			diags := e.Diagnostics()
			for _, d := range diags.Warnings {
				fmt.Fprintln(out, "warning:", d.String())
			}

			def := e.Schema()
			fmt.Fprintf(out, "%s ok: %d fields, %d relationships\n", e.Ref(), len(def.Fields), len(def.Relationships))
			fmt.Fprintf(out, "dependency order: %v\n", e.FieldOrder())

			return nil
		},
	}
}
