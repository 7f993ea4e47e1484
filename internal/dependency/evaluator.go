package dependency

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"schema-engine/internal/common"
	"schema-engine/internal/schema"
)

// Outcome is the result of evaluating one dependency condition.
type Outcome struct {
	Satisfied bool
	// Warning is set when the condition could not be interpreted and the
	// permissive default was applied.
	Warning string
}

// Evaluate evaluates dep against values, reading the source value under the
// key dep.FieldID. Use an Evaluator when record keys are field names that
// differ from field ids.
func Evaluate(dep *schema.FieldDependency, values schema.Values) Outcome {
	if dep == nil {
		return Outcome{Satisfied: true}
	}

	return evaluate(dep, values[dep.FieldID])
}

func evaluate(dep *schema.FieldDependency, actual any) Outcome {
	switch dep.Operator {
	case schema.OpEquals:
		return Outcome{Satisfied: common.StrictEqual(actual, dep.Value)}
	case schema.OpNotEquals:
		return Outcome{Satisfied: !common.StrictEqual(actual, dep.Value)}
	case schema.OpContains:
		return Outcome{Satisfied: contains(actual, dep.Value)}
	case schema.OpGreaterThan:
		a, b, ok := numericPair(actual, dep.Value)
		return Outcome{Satisfied: ok && a > b}
	case schema.OpLessThan:
		a, b, ok := numericPair(actual, dep.Value)
		return Outcome{Satisfied: ok && a < b}
	case schema.OpIsEmpty:
		return Outcome{Satisfied: common.IsEmptyValue(actual)}
	case schema.OpIsNotEmpty:
		return Outcome{Satisfied: !common.IsEmptyValue(actual)}
	default:
		return Outcome{
			Satisfied: true,
			Warning:   fmt.Sprintf("unknown operator %q on field %q; treating condition as satisfied", dep.Operator, dep.FieldID),
		}
	}
}

// contains is a case-insensitive substring test for two strings and a
// membership test when the actual value is a sequence.
func contains(actual, want any) bool {
	if s, ok := actual.(string); ok {
		w, ok := want.(string)
		if !ok {
			return false
		}

		return strings.Contains(strings.ToLower(s), strings.ToLower(w))
	}

	seq, ok := common.AsSequence(actual)
	if !ok {
		return false
	}

	for _, item := range seq {
		if common.StrictEqual(item, want) {
			return true
		}
	}

	return false
}

func numericPair(a, b any) (float64, float64, bool) {
	af, aok := common.ToFloat(a)
	bf, bok := common.ToFloat(b)

	return af, bf, aok && bok
}

// Evaluator evaluates dependencies of one field list, resolving source field
// ids to record keys (field names).
type Evaluator struct {
	fields []schema.FieldDefinition
	names  map[string]string
	logger zerolog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger makes the evaluator log permissive-default warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// New creates an Evaluator over fields. The slice is not modified.
func New(fields []schema.FieldDefinition, opts ...Option) *Evaluator {
	e := &Evaluator{
		fields: fields,
		names:  make(map[string]string, len(fields)),
		logger: zerolog.Nop(),
	}

	for i := range fields {
		if _, dup := e.names[fields[i].ID]; !dup {
			e.names[fields[i].ID] = fields[i].Name
		}
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluate evaluates dep, reading the source field's value by its name. If
// the source id is not a known field, the raw id is used as the record key.
func (e *Evaluator) Evaluate(dep *schema.FieldDependency, values schema.Values) Outcome {
	if dep == nil {
		return Outcome{Satisfied: true}
	}

	key := dep.FieldID
	if name, ok := e.names[dep.FieldID]; ok && name != "" {
		key = name
	}

	out := evaluate(dep, values[key])
	if out.Warning != "" {
		e.logger.Warn().Str("field", dep.FieldID).Str("operator", string(dep.Operator)).Msg(out.Warning)
	}

	return out
}

// Visibility reports whether f is visible for values. A field with no
// dependency, or whose dependency only controls requiredness, is always visible.
func (e *Evaluator) Visibility(f *schema.FieldDefinition, values schema.Values) Outcome {
	if f.DependsOn == nil || f.Behavior() == schema.BehaviorRequire {
		return Outcome{Satisfied: true}
	}

	return e.Evaluate(f.DependsOn, values)
}

// IsVisible reports whether f is visible for values.
func (e *Evaluator) IsVisible(f *schema.FieldDefinition, values schema.Values) bool {
	return e.Visibility(f, values).Satisfied
}

// Requiredness reports whether f must have a value: always when f.Required,
// otherwise when a require-behavior dependency is satisfied.
func (e *Evaluator) Requiredness(f *schema.FieldDefinition, values schema.Values) Outcome {
	if f.Required {
		return Outcome{Satisfied: true}
	}

	if f.DependsOn == nil || f.Behavior() != schema.BehaviorRequire {
		return Outcome{}
	}

	return e.Evaluate(f.DependsOn, values)
}

// IsRequired reports whether f must have a value for values.
func (e *Evaluator) IsRequired(f *schema.FieldDefinition, values schema.Values) bool {
	return e.Requiredness(f, values).Satisfied
}

// VisibleFields returns the evaluator's visible fields for values, in schema order.
func (e *Evaluator) VisibleFields(values schema.Values) []schema.FieldDefinition {
	var out []schema.FieldDefinition

	for i := range e.fields {
		if e.IsVisible(&e.fields[i], values) {
			out = append(out, e.fields[i])
		}
	}

	return out
}

// VisibleFields returns the fields visible for values, in schema order.
func VisibleFields(fields []schema.FieldDefinition, values schema.Values) []schema.FieldDefinition {
	return New(fields).VisibleFields(values)
}
