package dependency

import (
	"schema-engine/internal/schema"
)

// AvailableSources returns every field a dependency of targetID may be wired
// to: all fields except the target itself and fields that depend on the
// target, directly or transitively. Wiring only to these fields keeps the
// dependency graph acyclic.
func AvailableSources(targetID string, fields []schema.FieldDefinition) []schema.FieldDefinition {
	// A cyclic schema still yields a usable graph; reverse traversal tolerates cycles.
	g, _ := schema.NewGraph(fields)

	return AvailableSourcesFromGraph(g, targetID, fields)
}

// AvailableSourcesFromGraph is AvailableSources over a graph built once at schema load.
func AvailableSourcesFromGraph(g *schema.Graph, targetID string, fields []schema.FieldDefinition) []schema.FieldDefinition {
	excluded := g.TransitiveDependents(targetID)

	out := make([]schema.FieldDefinition, 0, len(fields))
	for i := range fields {
		if fields[i].ID == targetID || excluded[fields[i].ID] {
			continue
		}

		out = append(out, fields[i])
	}

	return out
}
