package diagnostic

import (
	"errors"
	"fmt"
	"strings"

	"schema-engine/internal/common"
)

// Diagnostic codes shared across packages.
const (
	CodeSchemaIDMissing        = "schema_id_missing"
	CodeDuplicateFieldID       = "duplicate_field_id"
	CodeDuplicateFieldName     = "duplicate_field_name"
	CodeFieldIDMissing         = "field_id_missing"
	CodeUnknownFieldType       = "unknown_field_type"
	CodeUnknownSemanticRole    = "unknown_semantic_role"
	CodeSelectWithoutOptions   = "select_without_options"
	CodeDanglingDependency     = "dangling_dependency"
	CodeSelfDependency         = "self_dependency"
	CodeDependencyCycle        = "dependency_cycle"
	CodeUnknownOperator        = "unknown_operator"
	CodeUnknownBehavior        = "unknown_depends_on_behavior"
	CodeDuplicateRelationship  = "duplicate_relationship_id"
	CodeRelationshipNoFields   = "relationship_without_fields"
	CodeDanglingRelationship   = "dangling_relationship_field"
	CodeUnknownRelationship    = "unknown_relationship_type"
	CodeMissingFormula         = "missing_formula"
	CodeUnexpectedFormula      = "unexpected_formula"
	CodeFormulaSyntax          = "formula_syntax"
	CodeFormulaUnknownField    = "formula_unknown_field"
	CodeUnknownOutputType      = "unknown_output_type"
	CodeFuzzyMapping           = "fuzzy_mapping"
	CodeAmbiguousMapping       = "ambiguous_mapping"
	CodeUnresolvedMapping      = "unresolved_mapping"
	CodeRemovedField           = "removed_field"
	CodeModifiedField          = "modified_field"
	CodeOverrideUnknownField   = "override_unknown_field"
	CodeOverrideConflict       = "override_conflict"
	CodeSchemaIdentityMismatch = "schema_identity_mismatch"
)

// Diagnostics holds all diagnostic information from a check.
type Diagnostics struct {
	Errors   []Diagnostic `json:"errors,omitempty"`
	Warnings []Diagnostic `json:"warnings,omitempty"`
	Infos    []Diagnostic `json:"infos,omitempty"`
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	// Severity of the diagnostic.
	Severity Severity `json:"severity"`
	// Code is a unique identifier for this kind of diagnostic.
	Code string `json:"code"`
	// Message is the human-readable description.
	Message string `json:"message"`
	// Scope identifies the schema, relationship or migration this relates to (if any).
	Scope string `json:"scope,omitempty"`
	// FieldID identifies which field this relates to (if any).
	FieldID string `json:"fieldId,omitempty"`
	// Suggestions are potential fixes or alternatives.
	Suggestions []string `json:"suggestions,omitempty"`
}

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return common.UnknownStr
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", text)
	}

	return nil
}

// AddError adds an error diagnostic.
func (d *Diagnostics) AddError(code, message, scope, fieldID string) {
	d.Errors = append(d.Errors, Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  message,
		Scope:    scope,
		FieldID:  fieldID,
	})
}

// AddWarning adds a warning diagnostic.
func (d *Diagnostics) AddWarning(code, message, scope, fieldID string) {
	d.Warnings = append(d.Warnings, Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  message,
		Scope:    scope,
		FieldID:  fieldID,
	})
}

// AddWarningWithSuggestions adds a warning diagnostic carrying candidate fixes.
func (d *Diagnostics) AddWarningWithSuggestions(code, message, scope, fieldID string, suggestions []string) {
	d.Warnings = append(d.Warnings, Diagnostic{
		Severity:    SeverityWarning,
		Code:        code,
		Message:     message,
		Scope:       scope,
		FieldID:     fieldID,
		Suggestions: suggestions,
	})
}

// AddInfo adds an info diagnostic.
func (d *Diagnostics) AddInfo(code, message, scope, fieldID string) {
	d.Infos = append(d.Infos, Diagnostic{
		Severity: SeverityInfo,
		Code:     code,
		Message:  message,
		Scope:    scope,
		FieldID:  fieldID,
	})
}

// HasErrors returns true if there are any error diagnostics.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// HasCode reports whether any diagnostic of any severity carries code.
func (d *Diagnostics) HasCode(code string) bool {
	for _, group := range [][]Diagnostic{d.Errors, d.Warnings, d.Infos} {
		for _, diag := range group {
			if diag.Code == code {
				return true
			}
		}
	}

	return false
}

// Merge merges another Diagnostics instance into this one.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Infos = append(d.Infos, other.Infos...)
}

// IsValid returns true if there are no errors.
func (d *Diagnostics) IsValid() bool {
	return len(d.Errors) == 0
}

// Error returns a combined error from all error diagnostics, or nil if valid.
func (d *Diagnostics) Error() error {
	if d.IsValid() {
		return nil
	}

	var parts []string
	for _, e := range d.Errors {
		parts = append(parts, e.String())
	}

	return errors.New(strings.Join(parts, "; "))
}

// String returns a formatted diagnostic string.
func (d Diagnostic) String() string {
	var prefix []string
	if d.Scope != "" {
		prefix = append(prefix, "["+d.Scope+"]")
	}

	if d.FieldID != "" {
		prefix = append(prefix, d.FieldID)
	}

	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}

	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + msg
	}

	return msg
}
