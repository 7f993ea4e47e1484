package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"schema-engine/internal/engine"
	"schema-engine/internal/migration"
)

// planFlags are shared by plan and migrate.
type planFlags struct {
	overrides   string
	minScore    float64
	minGap      float64
	manualFloor float64
}

func (p *planFlags) register(cmd *cobra.Command) {
	defaults := migration.DefaultOptions()

	cmd.Flags().StringVar(&p.overrides, "overrides", "", "YAML file with reviewed mapping decisions")
	cmd.Flags().Float64Var(&p.minScore, "min-score", defaults.MinScore, "Score a fuzzy mapping needs")
	cmd.Flags().Float64Var(&p.minGap, "min-gap", defaults.MinGap, "Lead the best candidate needs over the runner-up")
	cmd.Flags().Float64Var(&p.manualFloor, "manual-floor", defaults.ManualFloor, "Below this name score an old field counts as removed")
}

func (p *planFlags) options() migration.Options {
	opts := migration.DefaultOptions()
	opts.MinScore = p.minScore
	opts.MinGap = p.minGap
	opts.ManualFloor = p.manualFloor

	return opts
}

// plan loads both schemas and builds the migration config with overrides applied.
func (a *app) plan(cmd *cobra.Command, p *planFlags, fromArg, toArg string) (*engine.Engine, *migration.Config, error) {
	from, err := a.loadSchema(cmd, fromArg)
	if err != nil {
		return nil, nil, err
	}

	to, err := a.loadEngine(cmd, toArg)
	if err != nil {
		printLoadError(cmd.OutOrStdout(), err)
		return nil, nil, err
	}

	cfg, err := to.PlanMigration(from, p.options())
	if err != nil {
		return nil, nil, err
	}

	if p.overrides != "" {
		of, err := migration.LoadOverridesFile(p.overrides)
		if err != nil {
			return nil, nil, err
		}

		if err := migration.ApplyOverrides(cfg, of); err != nil {
			return nil, nil, fmt.Errorf("applying %s: %w", p.overrides, err)
		}
	}

	return to, cfg, nil
}

func newPlanCmd(a *app) *cobra.Command {
	var (
		flags      planFlags
		records    string
		writeFile  string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "plan <from-schema> <to-schema>",
		Short: "Suggest field mappings between two schema versions",
		Long: "Build the migration config between two schema versions. Renamed fields are\n" +
			"matched by name and type similarity; ambiguous ones are listed as unresolved.\n" +
			"Use --write-overrides to export the decisions for review, then pass the edited\n" +
			"file back with --overrides.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, cfg, err := a.plan(cmd, &flags, args[0], args[1])
			if err != nil {
				return err
			}

			if records != "" {
				recs, err := migration.LoadRecordsFile(records)
				if err != nil {
					return err
				}

				cfg.AffectedCallCount = migration.CountAffected(recs, to.Schema())
			}

			if writeFile != "" {
				if err := migration.WriteOverridesFile(migration.ExportOverrides(cfg), writeFile); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()

			for _, d := range cfg.Diagnostics.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", d.String())
			}

			if jsonOutput {
				return writeJSON(out, cfg)
			}

			return writeYAML(out, cfg)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&records, "records", "", "Records file used to count affected records")
	cmd.Flags().StringVar(&writeFile, "write-overrides", "", "Write the mapping decisions to this YAML file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	var (
		flags  planFlags
		output string
		record bool
	)

	cmd := &cobra.Command{
		Use:   "migrate <from-schema> <to-schema> <records>",
		Short: "Migrate records to a newer schema version",
		Long: "Migrate every record that is not already on the target version. Records\n" +
			"with values in unresolved fields are reported as failures; the rest of the\n" +
			"batch still migrates.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, cfg, err := a.plan(cmd, &flags, args[0], args[1])
			if err != nil {
				return err
			}

			recs, err := migration.LoadRecordsFile(args[2])
			if err != nil {
				return err
			}

			report := to.Migrate(recs, cfg)

			if record {
				st, err := a.openStore()
				if err != nil {
					return err
				}
				defer st.Close()

				if err := st.RecordMigrationRun(cmd.Context(), cfg, &report); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()

			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()

				w = f
			}

			if err := writeJSON(w, report); err != nil {
				return err
			}

			if len(report.Failures) > 0 {
				return fmt.Errorf("%d of %d records not migrated", len(report.Failures), report.TotalCount)
			}

			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to this file")
	cmd.Flags().BoolVar(&record, "record", false, "Record the run in the schema store")

	return cmd
}
