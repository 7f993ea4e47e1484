package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"schema-engine/internal/engine"
	"schema-engine/internal/logging"
	"schema-engine/internal/schema"
	"schema-engine/internal/store"
)

const (
	envDB     = "SCHEMA_ENGINE_DB"
	defaultDB = "schema-engine.db"
)

// app carries the persistent flags shared by every command.
type app struct {
	dbPath    string
	logLevel  string
	logFile   string
	logPretty bool

	log *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "schema-engine",
		Short:         "Dynamic record schemas: validation, relationships and migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{
				Writer: cmd.ErrOrStderr(),
				Path:   a.logFile,
				Level:  a.logLevel,
				Pretty: a.logPretty,
			})
			if err != nil {
				return err
			}

			a.log = logger

			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if a.log == nil {
				return nil
			}

			return a.log.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.dbPath, "db", "", "Path to the schema store (env "+envDB+")")
	flags.StringVar(&a.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFile, "log-file", "", "Append logs to this file instead of stderr")
	flags.BoolVar(&a.logPretty, "log-pretty", false, "Human-readable log output")

	root.AddCommand(
		newCheckCmd(a),
		newValidateCmd(a),
		newEvaluateCmd(a),
		newSourcesCmd(a),
		newPlanCmd(a),
		newMigrateCmd(a),
		newServeCmd(a),
		newStoreCmd(a),
	)

	return root
}

// storePath resolves the store location: env > flag > default file in the
// working directory.
func (a *app) storePath() string {
	if env := os.Getenv(envDB); env != "" {
		return env
	}

	if a.dbPath != "" {
		return a.dbPath
	}

	return defaultDB
}

func (a *app) openStore() (*store.Store, error) {
	st, err := store.Open(a.storePath())
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", a.storePath(), err)
	}

	return st, nil
}

// loadSchema reads a schema argument: a file path, or a stored schema as
// "id" (latest version) or "id@version".
func (a *app) loadSchema(cmd *cobra.Command, arg string) (*schema.SchemaDefinition, error) {
	if _, err := os.Stat(arg); err == nil {
		return schema.LoadFile(arg)
	}

	if strings.ContainsAny(arg, `/\`) || strings.HasSuffix(arg, ".yaml") ||
		strings.HasSuffix(arg, ".yml") || strings.HasSuffix(arg, ".json") {
		return nil, fmt.Errorf("schema file %s does not exist", arg)
	}

	st, err := a.openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	id, version, _ := strings.Cut(arg, "@")
	if version == "" {
		return st.LatestSchema(cmd.Context(), id)
	}

	return st.GetSchema(cmd.Context(), id, version)
}

func (a *app) loadEngine(cmd *cobra.Command, arg string) (*engine.Engine, error) {
	def, err := a.loadSchema(cmd, arg)
	if err != nil {
		return nil, err
	}

	return engine.Load(def, engine.WithLogger(a.log.Logger))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return err
	}

	return enc.Close()
}

// printLoadError prints the diagnostics of a rejected schema.
func printLoadError(w io.Writer, err error) {
	var le *engine.LoadError
	if !errors.As(err, &le) {
		return
	}

	for _, d := range le.Diagnostics.Errors {
		fmt.Fprintln(w, "error:", d.String())
	}

	for _, d := range le.Diagnostics.Warnings {
		fmt.Fprintln(w, "warning:", d.String())
	}
}
