package match

import (
	"fmt"

	"schema-engine/internal/schema"
)

// TypeCompatibility represents how safely a value of one field type can be
// carried into a field of another type.
type TypeCompatibility int

const (
	// TypeIncompatible means carried values would be meaningless.
	TypeIncompatible TypeCompatibility = iota
	// TypeNeedsTransform means carried values will likely fail validation until fixed.
	TypeNeedsTransform
	// TypeConvertible means values survive as their textual form.
	TypeConvertible
	// TypeAssignable means every old value is valid for the new field.
	TypeAssignable
	// TypeIdentical means both fields have the same type.
	TypeIdentical
)

const (
	VerdictIdentical      = "identical"
	VerdictAssignable     = "assignable"
	VerdictConvertible    = "convertible"
	VerdictNeedsTransform = "needs_transform"
	VerdictIncompatible   = "incompatible"
)

// String returns a human-readable name for the compatibility level.
func (c TypeCompatibility) String() string {
	switch c {
	case TypeIdentical:
		return VerdictIdentical
	case TypeAssignable:
		return VerdictAssignable
	case TypeConvertible:
		return VerdictConvertible
	case TypeNeedsTransform:
		return VerdictNeedsTransform
	case TypeIncompatible:
		return VerdictIncompatible
	default:
		return "unknown"
	}
}

// Score normalizes the compatibility level to 0..1.
func (c TypeCompatibility) Score() float64 {
	switch c {
	case TypeIdentical:
		return 1.0
	case TypeAssignable:
		return 0.9
	case TypeConvertible:
		return 0.7
	case TypeNeedsTransform:
		return 0.4
	default:
		return 0
	}
}

// TypeCompatibilityResult contains detailed information about type compatibility.
type TypeCompatibilityResult struct {
	Compatibility TypeCompatibility
	Reason        string
	SourceType    schema.FieldType
	TargetType    schema.FieldType
}

type typePair struct {
	from, to schema.FieldType
}

var compatTable = map[typePair]TypeCompatibility{
	{schema.FieldSelect, schema.FieldString}:  TypeAssignable,
	{schema.FieldNumber, schema.FieldString}:  TypeConvertible,
	{schema.FieldDate, schema.FieldString}:    TypeConvertible,
	{schema.FieldBoolean, schema.FieldString}: TypeConvertible,
	{schema.FieldString, schema.FieldSelect}:  TypeNeedsTransform,
	{schema.FieldString, schema.FieldNumber}:  TypeNeedsTransform,
	{schema.FieldString, schema.FieldDate}:    TypeNeedsTransform,
	{schema.FieldString, schema.FieldBoolean}: TypeNeedsTransform,
	{schema.FieldNumber, schema.FieldSelect}:  TypeNeedsTransform,
	{schema.FieldSelect, schema.FieldNumber}:  TypeNeedsTransform,
}

// ScoreTypeCompatibility determines how a value of source type fits target type.
func ScoreTypeCompatibility(source, target schema.FieldType) TypeCompatibilityResult {
	res := TypeCompatibilityResult{SourceType: source, TargetType: target}

	if source == target {
		res.Compatibility = TypeIdentical
		res.Reason = "types are identical"

		return res
	}

	c, ok := compatTable[typePair{source, target}]
	if !ok {
		res.Compatibility = TypeIncompatible
		res.Reason = fmt.Sprintf("%s values cannot be carried into a %s field", source, target)

		return res
	}

	res.Compatibility = c

	switch c {
	case TypeAssignable:
		res.Reason = fmt.Sprintf("every %s value is a valid %s", source, target)
	case TypeConvertible:
		res.Reason = fmt.Sprintf("%s values are kept as text", source)
	default:
		res.Reason = fmt.Sprintf("%s values may not be valid %s values", source, target)
	}

	return res
}
