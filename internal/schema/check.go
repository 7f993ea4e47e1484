package schema

import (
	"errors"
	"fmt"
	"strings"

	"schema-engine/internal/diagnostic"
	"schema-engine/internal/formula"
)

// Check validates the structural integrity of a schema definition: unique ids,
// known enum values, resolvable references and an acyclic dependency graph.
// Unknown operators are warnings (evaluation treats them permissively); every
// other integrity problem is an error and the schema must not be used.
func Check(def *SchemaDefinition) *diagnostic.Diagnostics {
	res := &diagnostic.Diagnostics{}
	if def == nil {
		res.AddError(diagnostic.CodeSchemaIDMissing, "schema is nil", "", "")
		return res
	}

	scope := def.Ref()
	if def.ID == "" {
		res.AddError(diagnostic.CodeSchemaIDMissing, "schema id is empty", scope, "")
	}

	checkFields(res, def, scope)
	checkDependencies(res, def, scope)
	checkRelationships(res, def, scope)

	return res
}

func checkFields(res *diagnostic.Diagnostics, def *SchemaDefinition, scope string) {
	seenIDs := map[string]struct{}{}
	seenNames := map[string]struct{}{}

	for i := range def.Fields {
		f := &def.Fields[i]

		if f.ID == "" {
			res.AddError(diagnostic.CodeFieldIDMissing, fmt.Sprintf("field #%d has no id", i), scope, "")
			continue
		}

		if _, ok := seenIDs[f.ID]; ok {
			res.AddError(diagnostic.CodeDuplicateFieldID, fmt.Sprintf("duplicate field id %q", f.ID), scope, f.ID)
		}

		seenIDs[f.ID] = struct{}{}

		if _, ok := seenNames[f.Name]; ok && f.Name != "" {
			res.AddError(diagnostic.CodeDuplicateFieldName, fmt.Sprintf("duplicate field name %q", f.Name), scope, f.ID)
		}

		seenNames[f.Name] = struct{}{}

		if !f.Type.IsValid() {
			res.AddError(diagnostic.CodeUnknownFieldType, fmt.Sprintf("unknown field type %q", f.Type), scope, f.ID)
		}

		if !f.SemanticRole.IsValid() {
			res.AddWarning(diagnostic.CodeUnknownSemanticRole,
				fmt.Sprintf("unknown semantic role %q", f.SemanticRole), scope, f.ID)
		}

		if f.Type == FieldSelect && len(f.SelectOptions) == 0 {
			res.AddError(diagnostic.CodeSelectWithoutOptions, "select field has no options", scope, f.ID)
		}
	}
}

func checkDependencies(res *diagnostic.Diagnostics, def *SchemaDefinition, scope string) {
	known := map[string]bool{}
	for i := range def.Fields {
		known[def.Fields[i].ID] = true
	}

	for i := range def.Fields {
		f := &def.Fields[i]
		if f.DependsOn == nil {
			continue
		}

		if !f.DependsOnBehavior.IsValid() {
			res.AddError(diagnostic.CodeUnknownBehavior,
				fmt.Sprintf("unknown dependsOnBehavior %q", f.DependsOnBehavior), scope, f.ID)
		}

		if !f.DependsOn.Operator.IsKnown() {
			res.AddWarning(diagnostic.CodeUnknownOperator,
				fmt.Sprintf("unknown operator %q; the condition will always be treated as satisfied",
					f.DependsOn.Operator), scope, f.ID)
		}

		switch {
		case f.DependsOn.FieldID == f.ID:
			res.AddError(diagnostic.CodeSelfDependency, "field depends on itself", scope, f.ID)
		case !known[f.DependsOn.FieldID]:
			res.AddError(diagnostic.CodeDanglingDependency,
				fmt.Sprintf("dependsOn references unknown field %q", f.DependsOn.FieldID), scope, f.ID)
		}
	}

	_, err := NewGraph(def.Fields)

	var cycle *CycleError
	if errors.As(err, &cycle) && len(cycle.Cycle) > 2 {
		res.AddError(diagnostic.CodeDependencyCycle,
			fmt.Sprintf("dependency cycle: %s", strings.Join(cycle.Cycle, " -> ")), scope, cycle.Cycle[0])
	}
}

func checkRelationships(res *diagnostic.Diagnostics, def *SchemaDefinition, scope string) {
	knownIDs := map[string]bool{}
	knownNames := map[string]bool{}

	for i := range def.Fields {
		knownIDs[def.Fields[i].ID] = true
		// formulas may name a field by name, id or display name
		knownNames[def.Fields[i].Name] = true
		knownNames[def.Fields[i].ID] = true
		knownNames[def.Fields[i].DisplayName] = true
	}

	seen := map[string]struct{}{}

	for i := range def.Relationships {
		r := &def.Relationships[i]
		relScope := scope + "/" + r.ID

		if _, ok := seen[r.ID]; ok {
			res.AddError(diagnostic.CodeDuplicateRelationship, fmt.Sprintf("duplicate relationship id %q", r.ID), scope, "")
		}

		seen[r.ID] = struct{}{}

		if !r.Type.IsValid() {
			res.AddError(diagnostic.CodeUnknownRelationship, fmt.Sprintf("unknown relationship type %q", r.Type), relScope, "")
		}

		if len(r.InvolvedFields) == 0 {
			res.AddError(diagnostic.CodeRelationshipNoFields, "relationship involves no fields", relScope, "")
		}

		for _, id := range r.InvolvedFields {
			if !knownIDs[id] {
				res.AddError(diagnostic.CodeDanglingRelationship,
					fmt.Sprintf("involvedFields references unknown field %q", id), relScope, id)
			}
		}

		switch r.Type {
		case RelationshipComplex:
			checkFormula(res, r, relScope, knownNames)
		case RelationshipSimple:
			if strings.TrimSpace(r.Formula) != "" {
				res.AddWarning(diagnostic.CodeUnexpectedFormula,
					"simple relationship has a formula; it will not be evaluated", relScope, "")
			}
		}
	}
}

func checkFormula(res *diagnostic.Diagnostics, r *RelationshipDefinition, scope string, knownNames map[string]bool) {
	if strings.TrimSpace(r.Formula) == "" {
		res.AddError(diagnostic.CodeMissingFormula, "complex relationship has no formula", scope, "")
		return
	}

	if r.OutputType != "" && !r.OutputType.IsValid() {
		res.AddError(diagnostic.CodeUnknownOutputType, fmt.Sprintf("unknown output type %q", r.OutputType), scope, "")
	}

	expr, err := formula.Parse(r.Formula)
	if err != nil {
		res.AddError(diagnostic.CodeFormulaSyntax, fmt.Sprintf("formula %q: %v", r.Formula, err), scope, "")
		return
	}

	for _, ref := range expr.Refs() {
		if !knownNames[ref] {
			res.AddWarning(diagnostic.CodeFormulaUnknownField,
				fmt.Sprintf("formula references %q, which is not a schema field", ref), scope, ref)
		}
	}
}
