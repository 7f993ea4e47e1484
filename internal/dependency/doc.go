// Package dependency evaluates field dependency conditions against record
// values and derives field visibility, conditional requiredness and the set
// of fields a dependency may safely be wired to.
//
// Evaluation never fails: an unknown operator is treated as satisfied (the
// field stays visible) and reported as a warning.
package dependency
