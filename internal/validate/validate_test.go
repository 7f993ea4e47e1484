package validate

import (
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schema-engine/internal/schema"
)

func approvalSchema() *schema.SchemaDefinition {
	return &schema.SchemaDefinition{
		ID:      "loans",
		Version: "1.0.0",
		Fields: []schema.FieldDefinition{
			{ID: "f_amount", Name: "amount", DisplayName: "Amount", Type: schema.FieldNumber, Required: true},
			{
				ID: "f_note", Name: "approvalNote", DisplayName: "Approval note", Type: schema.FieldString,
				DependsOn:         &schema.FieldDependency{FieldID: "f_amount", Operator: schema.OpGreaterThan, Value: 1000},
				DependsOnBehavior: schema.BehaviorRequire,
			},
		},
	}
}

func TestValidate_ConditionalRequire(t *testing.T) {
	def := approvalSchema()

	res := Validate(def, schema.Values{"amount": 1500})
	require.Len(t, res.Errors, 1, spew.Sdump(res))
	assert.False(t, res.IsValid)
	assert.Equal(t, ValidationError{
		FieldID:   "f_note",
		FieldName: "Approval note",
		Type:      KindRequired,
		Message:   "Approval note is required",
	}, res.Errors[0])

	res = Validate(def, schema.Values{"amount": 500})
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors, spew.Sdump(res))

	res = Validate(def, schema.Values{"amount": 1500, "approvalNote": "ok by manager"})
	assert.True(t, res.IsValid)
}

func fullSchema() *schema.SchemaDefinition {
	return &schema.SchemaDefinition{
		ID: "calls",
		Fields: []schema.FieldDefinition{
			{ID: "n", Name: "score", Type: schema.FieldNumber},
			{ID: "b", Name: "resolved", Type: schema.FieldBoolean},
			{ID: "d", Name: "callDate", Type: schema.FieldDate},
			{ID: "s", Name: "outcome", Type: schema.FieldSelect, SelectOptions: []string{"paid", "promised", "refused"}},
			{ID: "t", Name: "notes", Type: schema.FieldString},
			{
				ID: "h", Name: "refusalReason", Type: schema.FieldString, Required: true,
				DependsOn: &schema.FieldDependency{FieldID: "s", Operator: schema.OpEquals, Value: "refused"},
			},
		},
	}
}

func TestValidate_TypeChecks(t *testing.T) {
	tests := []struct {
		name   string
		values schema.Values
		want   map[string]Kind
	}{
		{
			name:   "all good",
			values: schema.Values{"score": 7, "resolved": true, "callDate": "2024-03-01", "outcome": "paid", "notes": "x"},
			want:   map[string]Kind{},
		},
		{
			name:   "numeric string is a number",
			values: schema.Values{"score": " 12.5 "},
			want:   map[string]Kind{},
		},
		{
			name:   "wrong number",
			values: schema.Values{"score": "abc"},
			want:   map[string]Kind{"n": KindType},
		},
		{
			name:   "bool is not a number",
			values: schema.Values{"score": true},
			want:   map[string]Kind{"n": KindType},
		},
		{
			name:   "string boolean",
			values: schema.Values{"resolved": "true"},
			want:   map[string]Kind{"b": KindType},
		},
		{
			name:   "bad date",
			values: schema.Values{"callDate": "2024-13-45"},
			want:   map[string]Kind{"d": KindInvalid},
		},
		{
			name:   "date layouts",
			values: schema.Values{"callDate": "03/01/2024"},
			want:   map[string]Kind{},
		},
		{
			name:   "time value",
			values: schema.Values{"callDate": time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
			want:   map[string]Kind{},
		},
		{
			name:   "select outside options",
			values: schema.Values{"outcome": "maybe"},
			want:   map[string]Kind{"s": KindInvalid},
		},
		{
			name:   "hidden required field is skipped",
			values: schema.Values{"outcome": "paid"},
			want:   map[string]Kind{},
		},
		{
			name:   "shown required field is enforced",
			values: schema.Values{"outcome": "refused", "refusalReason": ""},
			want:   map[string]Kind{"h": KindRequired},
		},
		{
			name:   "errors accumulate",
			values: schema.Values{"score": "x", "resolved": 1, "callDate": "never", "outcome": "nope"},
			want:   map[string]Kind{"n": KindType, "b": KindType, "d": KindInvalid, "s": KindInvalid},
		},
		{
			name:   "extra keys are ignored",
			values: schema.Values{"unknown": []any{1, 2}},
			want:   map[string]Kind{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(fullSchema(), tt.values)

			got := map[string]Kind{}
			for _, e := range res.Errors {
				got[e.FieldID] = e.Type
			}

			assert.Equal(t, tt.want, got, spew.Sdump(res))
			assert.Equal(t, len(tt.want) == 0, res.IsValid)
		})
	}
}

func TestValidate_NeverPanics(t *testing.T) {
	defs := []*schema.SchemaDefinition{
		nil,
		{},
		fullSchema(),
		{Fields: []schema.FieldDefinition{
			{ID: "x", Name: "x", Type: "weird"},
			{ID: "y", Name: "y", Type: schema.FieldNumber, DependsOn: &schema.FieldDependency{FieldID: "zz", Operator: "??"}},
		}},
	}

	records := []schema.Values{
		nil,
		{},
		{"score": map[string]any{"a": 1}, "resolved": []any{}, "callDate": 12, "outcome": nil},
		{"x": struct{}{}, "y": func() {}},
	}

	for _, def := range defs {
		for _, rec := range records {
			assert.NotPanics(t, func() {
				res := Validate(def, rec)
				assert.NotNil(t, res.Errors)
			})
		}
	}
}

func TestValidate_UnknownOperatorWarns(t *testing.T) {
	def := &schema.SchemaDefinition{Fields: []schema.FieldDefinition{
		{ID: "a", Name: "a", Type: schema.FieldString},
		{ID: "b", Name: "b", Type: schema.FieldNumber, Required: true, DependsOn: &schema.FieldDependency{FieldID: "a", Operator: "like"}},
	}}

	res := Validate(def, schema.Values{})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, KindRequired, res.Errors[0].Type)
	assert.Len(t, res.Warnings, 1)
}

func TestValidateAll(t *testing.T) {
	results := ValidateAll(approvalSchema(), []schema.Values{
		{"amount": 1500},
		{"amount": 10},
		{},
	})

	require.Len(t, results, 3)
	assert.False(t, results[0].IsValid)
	assert.True(t, results[1].IsValid)
	assert.False(t, results[2].IsValid)
	assert.Equal(t, "f_amount", results[2].Errors[0].FieldID)
}
