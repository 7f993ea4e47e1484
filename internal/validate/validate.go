package validate

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"schema-engine/internal/common"
	"schema-engine/internal/dependency"
	"schema-engine/internal/schema"
)

// Kind classifies a validation error.
type Kind string

const (
	KindRequired Kind = "required"
	KindType     Kind = "type"
	KindInvalid  Kind = "invalid"
)

// ValidationError describes one field that failed validation.
type ValidationError struct {
	FieldID   string `json:"fieldId"`
	FieldName string `json:"fieldName"`
	Type      Kind   `json:"type"`
	Message   string `json:"message"`
}

// Result is the outcome of validating one record.
type Result struct {
	IsValid  bool              `json:"isValid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings,omitempty"`
}

// DateLayouts are the string layouts accepted for date fields.
var DateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// Options configures validation.
type Options struct {
	Logger zerolog.Logger
	// Evaluator overrides the dependency evaluator built from the schema fields.
	Evaluator *dependency.Evaluator
}

// Validate validates values against def with default options.
func Validate(def *schema.SchemaDefinition, values schema.Values) Result {
	return ValidateWith(def, values, Options{Logger: zerolog.Nop()})
}

// ValidateWith validates values against def.
func ValidateWith(def *schema.SchemaDefinition, values schema.Values, opts Options) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			opts.Logger.Error().Interface("panic", r).Msg("validation aborted")
			res.Errors = append(res.Errors, ValidationError{
				Type:    KindInvalid,
				Message: fmt.Sprintf("validation aborted: %v", r),
			})
			res.IsValid = false
		}
	}()

	res.Errors = []ValidationError{}

	if def == nil {
		res.Errors = append(res.Errors, ValidationError{Type: KindInvalid, Message: "no schema"})

		return res
	}

	ev := opts.Evaluator
	if ev == nil {
		ev = dependency.New(def.Fields, dependency.WithLogger(opts.Logger))
	}

	for i := range def.Fields {
		f := &def.Fields[i]

		vis := ev.Visibility(f, values)
		if vis.Warning != "" {
			res.Warnings = append(res.Warnings, vis.Warning)
		}

		if !vis.Satisfied {
			continue
		}

		req := ev.Requiredness(f, values)
		if req.Warning != "" {
			res.Warnings = append(res.Warnings, req.Warning)
		}

		value, present := values[f.Name]
		if present && common.IsEmptyValue(value) {
			present = false
		}

		if !present {
			if req.Satisfied {
				res.Errors = append(res.Errors, ValidationError{
					FieldID:   f.ID,
					FieldName: f.Label(),
					Type:      KindRequired,
					Message:   fmt.Sprintf("%s is required", f.Label()),
				})
			}

			continue
		}

		if verr := checkType(f, value); verr != nil {
			res.Errors = append(res.Errors, *verr)
		}
	}

	res.IsValid = len(res.Errors) == 0

	return res
}

// ValidateAll validates every record, returning one result per record in order.
func ValidateAll(def *schema.SchemaDefinition, records []schema.Values) []Result {
	opts := Options{Logger: zerolog.Nop()}
	if def != nil {
		opts.Evaluator = dependency.New(def.Fields)
	}

	return ValidateAllWith(def, records, opts)
}

// ValidateAllWith is ValidateAll with explicit options.
func ValidateAllWith(def *schema.SchemaDefinition, records []schema.Values, opts Options) []Result {
	out := make([]Result, len(records))
	for i, rec := range records {
		out[i] = ValidateWith(def, rec, opts)
	}

	return out
}

func checkType(f *schema.FieldDefinition, value any) *ValidationError {
	fail := func(t Kind, format string, args ...any) *ValidationError {
		return &ValidationError{
			FieldID:   f.ID,
			FieldName: f.Label(),
			Type:      t,
			Message:   fmt.Sprintf(format, args...),
		}
	}

	switch f.Type {
	case schema.FieldNumber:
		if _, ok := ToNumber(value); !ok {
			return fail(KindType, "%s must be a number", f.Label())
		}
	case schema.FieldBoolean:
		if _, ok := value.(bool); !ok {
			return fail(KindType, "%s must be true or false", f.Label())
		}
	case schema.FieldDate:
		if _, ok := ToDate(value); !ok {
			return fail(KindInvalid, "%s must be a valid date", f.Label())
		}
	case schema.FieldSelect:
		if !isOption(f.SelectOptions, value) {
			return fail(KindInvalid, "%s must be one of: %s", f.Label(), strings.Join(f.SelectOptions, ", "))
		}
	}

	return nil
}

// ToNumber coerces a record value to a finite number. Numeric strings are
// accepted since ingested records commonly carry numbers as text.
func ToNumber(value any) (float64, bool) {
	if f, ok := common.ToFloat(value); ok {
		return f, common.IsFinite(f)
	}

	s, ok := value.(string)
	if !ok {
		return 0, false
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

// ToDate parses a record value as a calendar date.
func ToDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range DateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}

	return time.Time{}, false
}

func isOption(options []string, value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}

	return slices.Contains(options, s)
}
