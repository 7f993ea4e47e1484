package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"schema-engine/internal/engine"
)

func newStoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage stored schema versions and the active schema",
	}

	cmd.AddCommand(
		newStorePutCmd(a),
		newStoreGetCmd(a),
		newStoreListCmd(a),
		newStoreActivateCmd(a),
		newStoreRunsCmd(a),
	)

	return cmd
}

func newStorePutCmd(a *app) *cobra.Command {
	var activate bool

	cmd := &cobra.Command{
		Use:   "put <schema-file>",
		Short: "Check a schema file and save it as a new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.loadEngine(cmd, args[0])
			if err != nil {
				printLoadError(cmd.OutOrStdout(), err)
				return err
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.SaveSchema(cmd.Context(), e.Schema()); err != nil {
				return err
			}

			if activate {
				if err := st.SetActive(cmd.Context(), e.Schema().ID); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "saved", e.Ref())

			return nil
		},
	}

	cmd.Flags().BoolVar(&activate, "activate", false, "Also make this schema active")

	return cmd
}

func newStoreGetCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get <id[@version]>",
		Short: "Print a stored schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := a.loadSchema(cmd, args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), def)
			}

			return writeYAML(cmd.OutOrStdout(), def)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newStoreListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored schema versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.ListSchemas(cmd.Context())
			if err != nil {
				return err
			}

			active, _ := st.ActiveID(cmd.Context())

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tVERSION\tFIELDS\tSAVED\t")

			for _, s := range list {
				marker := ""
				if s.ID == active {
					marker = "*"
				}

				fmt.Fprintf(tw, "%s%s\t%s\t%d\t%s\t\n", s.ID, marker, s.Version, s.FieldCount, s.SavedAt.Format("2006-01-02 15:04"))
			}

			return tw.Flush()
		},
	}
}

func newStoreActivateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Make a stored schema the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			def, err := st.LatestSchema(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			// stored schemas may predate the current checks
			if _, err := engine.Load(def, engine.WithLogger(a.log.Logger)); err != nil {
				printLoadError(cmd.OutOrStdout(), err)
				return err
			}

			if err := st.SetActive(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "active", def.Ref())

			return nil
		},
	}
}

func newStoreRunsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "runs <id>",
		Short: "List migration runs into a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.MigrationRuns(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), runs)
		},
	}
}
