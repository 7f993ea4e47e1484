package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSourcesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sources <schema> <field-id>",
		Short: "List fields a field may depend on without creating a cycle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.loadEngine(cmd, args[0])
			if err != nil {
				printLoadError(cmd.OutOrStdout(), err)
				return err
			}

			target := args[1]
			if e.Schema().FieldByID(target) == nil {
				return fmt.Errorf("field %s is not defined in %s", target, e.Ref())
			}

			for _, f := range e.AvailableSources(target) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", f.ID, f.Name, f.Type)
			}

			return nil
		},
	}
}
