// Package validate checks a record against a schema definition.
//
// Hidden fields are skipped, conditionally required fields are enforced and
// every remaining value is type-checked. Errors accumulate; validation never
// panics and never stops at the first invalid field.
package validate
