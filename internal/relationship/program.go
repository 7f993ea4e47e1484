package relationship

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"schema-engine/internal/common"
	"schema-engine/internal/diagnostic"
	"schema-engine/internal/formula"
	"schema-engine/internal/schema"
)

// ErrNotCoercible is returned when a formula result does not fit the output type.
var ErrNotCoercible = errors.New("result not coercible to output type")

// Result is the outcome of evaluating one relationship.
type Result struct {
	RelationshipID string                  `json:"relationshipId"`
	Type           schema.RelationshipType `json:"type"`
	Success        bool                    `json:"success"`
	Result         any                     `json:"result,omitempty"`
	Error          string                  `json:"error,omitempty"`
}

type compiled struct {
	def      schema.RelationshipDefinition
	expr     *formula.Expression
	parseErr error
}

// Program is a schema's relationships with every formula parsed. It holds no
// per-record state and may be shared between goroutines.
type Program struct {
	schemaRef string
	rels      []compiled
	// aliases maps field ids and display names to record keys.
	aliases map[string]string
}

// EvalOptions configures one evaluation.
type EvalOptions struct {
	// Constants are named values formulas may reference.
	Constants map[string]any
	Logger    zerolog.Logger
}

// Compile parses every complex formula in def. Formulas that fail to parse are
// reported as diagnostics and evaluate to a failed result.
func Compile(def *schema.SchemaDefinition) (*Program, *diagnostic.Diagnostics) {
	diags := &diagnostic.Diagnostics{}
	p := &Program{
		schemaRef: def.Ref(),
		aliases:   map[string]string{},
	}

	if def == nil {
		return p, diags
	}

	for i := range def.Fields {
		f := &def.Fields[i]
		for _, alias := range []string{f.ID, f.DisplayName} {
			if alias == "" || alias == f.Name {
				continue
			}

			if _, taken := p.aliases[alias]; !taken {
				p.aliases[alias] = f.Name
			}
		}
	}

	for i := range def.Relationships {
		r := def.Relationships[i]
		c := compiled{def: r}

		if r.Type == schema.RelationshipComplex {
			scope := def.Ref() + "/" + r.ID

			switch {
			case strings.TrimSpace(r.Formula) == "":
				c.parseErr = errors.New("complex relationship has no formula")
				diags.AddError(diagnostic.CodeMissingFormula, c.parseErr.Error(), scope, "")
			default:
				expr, err := formula.Parse(r.Formula)
				if err != nil {
					c.parseErr = err
					diags.AddError(diagnostic.CodeFormulaSyntax, fmt.Sprintf("formula %q: %v", r.Formula, err), scope, "")
				}

				c.expr = expr
			}
		}

		p.rels = append(p.rels, c)
	}

	return p, diags
}

// Evaluate computes every relationship for values. The record is not modified.
func (p *Program) Evaluate(values schema.Values, opts EvalOptions) map[string]Result {
	env := formula.Env{Fields: p.bind(values), Constants: opts.Constants}
	out := make(map[string]Result, len(p.rels))

	for i := range p.rels {
		c := &p.rels[i]
		res := p.evaluateOne(c, env)

		if !res.Success {
			ev := opts.Logger.Debug().
				Str("schema", p.schemaRef).
				Str("relationship", c.def.ID).
				Str("error", res.Error)
			if c.expr != nil {
				ev = ev.Str("formula", c.expr.Source())
			}

			ev.Msg("relationship evaluation failed")
		}

		out[c.def.ID] = res
	}

	return out
}

// bind builds a fresh environment for one record: every record key plus the
// id and display name aliases of schema fields present in the record.
func (p *Program) bind(values schema.Values) map[string]any {
	fields := make(map[string]any, len(values)+len(p.aliases))
	for k, v := range values {
		fields[k] = v
	}

	for alias, name := range p.aliases {
		if _, shadowed := values[alias]; shadowed {
			continue
		}

		if v, ok := values[name]; ok {
			fields[alias] = v
		}
	}

	return fields
}

func (p *Program) evaluateOne(c *compiled, env formula.Env) (res Result) {
	res = Result{RelationshipID: c.def.ID, Type: c.def.Type}

	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Result = nil
			res.Error = fmt.Sprintf("formula evaluation panicked: %v", r)
		}
	}()

	switch c.def.Type {
	case schema.RelationshipSimple:
		res.Success = true

		return res
	case schema.RelationshipComplex:
	default:
		res.Error = fmt.Sprintf("unknown relationship type %q", c.def.Type)

		return res
	}

	if c.parseErr != nil {
		res.Error = c.parseErr.Error()

		return res
	}

	raw, err := c.expr.Eval(env)
	if err != nil {
		res.Error = err.Error()

		return res
	}

	value, err := Coerce(raw, c.def.OutputType)
	if err != nil {
		res.Error = err.Error()

		return res
	}

	res.Success = true
	res.Result = value

	return res
}

// Coerce converts a formula result to the given output type. An empty output
// type means number.
func Coerce(v any, out schema.OutputType) (any, error) {
	switch out {
	case schema.OutputNumber, "":
		if _, isBool := v.(bool); isBool {
			return nil, fmt.Errorf("%w: boolean is not a number", ErrNotCoercible)
		}

		f, ok := common.ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a number", ErrNotCoercible, describe(v))
		}

		if !common.IsFinite(f) {
			return nil, fmt.Errorf("%w: %v is not a finite number", ErrNotCoercible, f)
		}

		return f, nil
	case schema.OutputString:
		if v == nil {
			return nil, fmt.Errorf("%w: null is not a string", ErrNotCoercible)
		}

		if f, ok := v.(float64); ok && !common.IsFinite(f) {
			return nil, fmt.Errorf("%w: %v is not a finite number", ErrNotCoercible, f)
		}

		return formula.FormatValue(v), nil
	case schema.OutputBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}

		if f, ok := common.ToFloat(v); ok && (f == 0 || f == 1) {
			return f == 1, nil
		}

		return nil, fmt.Errorf("%w: %s is not a boolean", ErrNotCoercible, describe(v))
	default:
		return nil, fmt.Errorf("%w: unknown output type %q", ErrNotCoercible, out)
	}
}

func describe(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}

	return formula.FormatValue(v)
}

// Evaluate compiles def and evaluates its relationships for values.
func Evaluate(def *schema.SchemaDefinition, values schema.Values) map[string]Result {
	p, _ := Compile(def)

	return p.Evaluate(values, EvalOptions{Logger: zerolog.Nop()})
}

// Apply returns a copy of values with every successful complex relationship
// result stored under the relationship id. Record keys are never overwritten.
func (p *Program) Apply(values schema.Values, opts EvalOptions) schema.Values {
	out := make(schema.Values, len(values)+len(p.rels))
	for k, v := range values {
		out[k] = common.CloneValue(v)
	}

	for id, res := range p.Evaluate(values, opts) {
		if !res.Success || res.Type != schema.RelationshipComplex {
			continue
		}

		if _, exists := values[id]; exists {
			continue
		}

		out[id] = res.Result
	}

	return out
}
