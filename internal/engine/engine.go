// Package engine compiles a schema once and answers validation, visibility,
// relationship and migration questions against it.
//
// An Engine holds no per-record state and is safe for concurrent use.
package engine

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"schema-engine/internal/dependency"
	"schema-engine/internal/diagnostic"
	"schema-engine/internal/migration"
	"schema-engine/internal/relationship"
	"schema-engine/internal/schema"
	"schema-engine/internal/validate"
)

var (
	// ErrInvalidSchema is wrapped by LoadError.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrUnknownField is returned for field ids the schema does not define.
	ErrUnknownField = errors.New("unknown field")
)

// LoadError reports why a schema was rejected.
type LoadError struct {
	Ref         string
	Diagnostics diagnostic.Diagnostics
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("schema %s rejected: %v", e.Ref, e.Diagnostics.Error())
}

func (e *LoadError) Unwrap() error {
	return ErrInvalidSchema
}

// Engine is a loaded schema.
type Engine struct {
	def       *schema.SchemaDefinition
	graph     *schema.Graph
	evaluator *dependency.Evaluator
	program   *relationship.Program
	diags     diagnostic.Diagnostics
	logger    zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Load checks def and compiles it. The engine keeps its own copy of def.
// A schema with integrity errors is rejected with a *LoadError.
func Load(def *schema.SchemaDefinition, opts ...Option) (*Engine, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: no schema", ErrInvalidSchema)
	}

	e := &Engine{def: def.Clone(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}

	schema.ApplyDefaults(e.def)

	diags := schema.Check(e.def)
	if diags.HasErrors() {
		return nil, &LoadError{Ref: e.def.Ref(), Diagnostics: *diags}
	}

	graph, err := schema.NewGraph(e.def.Fields)
	if err != nil {
		diags.AddError(diagnostic.CodeDependencyCycle, err.Error(), e.def.Ref(), "")

		return nil, &LoadError{Ref: e.def.Ref(), Diagnostics: *diags}
	}

	program, compileDiags := relationship.Compile(e.def)
	if compileDiags.HasErrors() {
		diags.Merge(*compileDiags)

		return nil, &LoadError{Ref: e.def.Ref(), Diagnostics: *diags}
	}

	e.graph = graph
	e.program = program
	e.evaluator = dependency.New(e.def.Fields, dependency.WithLogger(e.logger))
	e.diags = *diags

	e.logger.Debug().
		Str("schema", e.def.Ref()).
		Int("fields", len(e.def.Fields)).
		Int("relationships", len(e.def.Relationships)).
		Int("warnings", len(diags.Warnings)).
		Msg("schema loaded")

	return e, nil
}

// Schema returns a copy of the loaded schema.
func (e *Engine) Schema() *schema.SchemaDefinition {
	return e.def.Clone()
}

// Ref returns "id@version" of the loaded schema.
func (e *Engine) Ref() string {
	return e.def.Ref()
}

// Diagnostics returns the non-fatal findings from loading.
func (e *Engine) Diagnostics() diagnostic.Diagnostics {
	return e.diags
}

// Validate validates one record.
func (e *Engine) Validate(values schema.Values) validate.Result {
	return validate.ValidateWith(e.def, values, validate.Options{Logger: e.logger, Evaluator: e.evaluator})
}

// ValidateAll validates records independently.
func (e *Engine) ValidateAll(records []schema.Values) []validate.Result {
	return validate.ValidateAllWith(e.def, records, validate.Options{Logger: e.logger, Evaluator: e.evaluator})
}

func (e *Engine) field(id string) (*schema.FieldDefinition, error) {
	f := e.def.FieldByID(id)
	if f == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, id)
	}

	return f, nil
}

// IsVisible reports whether the field is visible for values.
func (e *Engine) IsVisible(fieldID string, values schema.Values) (bool, error) {
	f, err := e.field(fieldID)
	if err != nil {
		return false, err
	}

	return e.evaluator.IsVisible(f, values), nil
}

// IsRequired reports whether the field must have a value for values.
func (e *Engine) IsRequired(fieldID string, values schema.Values) (bool, error) {
	f, err := e.field(fieldID)
	if err != nil {
		return false, err
	}

	return e.evaluator.IsRequired(f, values), nil
}

// VisibleFields returns the fields visible for values, in schema order.
func (e *Engine) VisibleFields(values schema.Values) []schema.FieldDefinition {
	return e.evaluator.VisibleFields(values)
}

// AvailableSources returns the fields a dependency of targetID may use.
func (e *Engine) AvailableSources(targetID string) []schema.FieldDefinition {
	return dependency.AvailableSourcesFromGraph(e.graph, targetID, e.def.Fields)
}

// FieldOrder returns field ids ordered so every field follows its source.
func (e *Engine) FieldOrder() []string {
	return e.graph.Order()
}

// EvaluateRelationships evaluates every relationship for values.
func (e *Engine) EvaluateRelationships(values schema.Values, constants map[string]any) map[string]relationship.Result {
	return e.program.Evaluate(values, relationship.EvalOptions{Constants: constants, Logger: e.logger})
}

// Apply returns values with computed relationship results merged in.
func (e *Engine) Apply(values schema.Values, constants map[string]any) schema.Values {
	return e.program.Apply(values, relationship.EvalOptions{Constants: constants, Logger: e.logger})
}

// PlanMigration builds the migration config from an older schema version to this one.
func (e *Engine) PlanMigration(from *schema.SchemaDefinition, opts migration.Options) (*migration.Config, error) {
	return migration.BuildConfig(from, e.def, opts)
}

// Migrate brings records to this schema version using cfg.
func (e *Engine) Migrate(records []migration.Record, cfg *migration.Config) migration.Report {
	return migration.MigrateAll(records, cfg, e.def, migration.BatchOptions{Logger: e.logger})
}
