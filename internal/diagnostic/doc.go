// Package diagnostic provides structured errors, warnings and informational
// notes produced while checking schemas, evaluating dependencies and planning
// migrations.
//
// Key capabilities:
//   - Schema integrity errors (dangling references, dependency cycles)
//   - Permissive-default warnings (unknown operators, unknown enum values)
//   - Migration ambiguity reports with top-N candidates
//   - Explanation of automatic mapping decisions
package diagnostic
