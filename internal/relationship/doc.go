// Package relationship evaluates a schema's relationships against a record.
//
// Simple relationships are declared metadata and evaluate to a bare success.
// Complex relationships carry a formula which is compiled once per schema
// and interpreted per record; its result is coerced to the relationship's
// output type. A failing relationship never affects the others.
package relationship
