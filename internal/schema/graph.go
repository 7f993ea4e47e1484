package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrDependencyCycle is returned when field dependencies form a cycle.
var ErrDependencyCycle = errors.New("dependency cycle detected")

// CycleError names the fields on a dependency cycle.
type CycleError struct {
	// Cycle lists field ids in dependency order, first id repeated at the end.
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDependencyCycle, strings.Join(e.Cycle, " -> "))
}

// Unwrap lets errors.Is match ErrDependencyCycle.
func (e *CycleError) Unwrap() error {
	return ErrDependencyCycle
}

// Graph is the field dependency graph of one schema, keyed by field id.
//
// Edges point from a source field to the fields that depend on it. Each field
// has at most one source (dependencies are single-hop). References to unknown
// fields are not edges; Check reports them.
type Graph struct {
	ids        []string
	index      map[string]int
	source     []int   // source[i] is the field i depends on, or -1
	dependents [][]int // dependents[i] are the fields depending on i, ascending
	order      []int
}

// NewGraph builds the dependency graph for fields and runs cycle detection.
// The returned error is a *CycleError when a cycle exists.
func NewGraph(fields []FieldDefinition) (*Graph, error) {
	g := &Graph{
		ids:        make([]string, len(fields)),
		index:      make(map[string]int, len(fields)),
		source:     make([]int, len(fields)),
		dependents: make([][]int, len(fields)),
	}

	for i := range fields {
		g.ids[i] = fields[i].ID
		if _, dup := g.index[fields[i].ID]; !dup {
			g.index[fields[i].ID] = i
		}
	}

	for i := range fields {
		g.source[i] = -1

		dep := fields[i].DependsOn
		if dep == nil {
			continue
		}

		j, ok := g.index[dep.FieldID]
		if !ok {
			continue
		}

		g.source[i] = j
		g.dependents[j] = append(g.dependents[j], i)
	}

	order, err := topoSort(len(fields), func(i int) []int {
		if g.source[i] < 0 {
			return nil
		}

		return []int{g.source[i]}
	})
	if err != nil {
		return g, &CycleError{Cycle: g.findCycle(order)}
	}

	g.order = order

	return g, nil
}

// topoSort returns indices in dependency order.
//
// depsFn(i) yields indices that must come before i. When several nodes are
// ready the smallest index is taken, so the order follows schema order.
func topoSort(n int, depsFn func(i int) []int) ([]int, error) {
	if n <= 0 {
		return nil, nil
	}

	indeg := make([]int, n)
	out := make([][]int, n)

	for i := 0; i < n; i++ {
		for _, d := range depsFn(i) {
			indeg[i]++
			out[d] = append(out[d], i)
		}
	}

	for i := range out {
		sort.Ints(out[i])
	}

	var ready []int

	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, n)

	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]

		order = append(order, i)
		for _, j := range out[i] {
			indeg[j]--
			if indeg[j] == 0 {
				// Insert while keeping ready sorted.
				k := sort.SearchInts(ready, j)
				ready = append(ready, 0)
				copy(ready[k+1:], ready[k:])
				ready[k] = j
			}
		}
	}

	if len(order) != n {
		return order, ErrDependencyCycle
	}

	return order, nil
}

// findCycle walks source pointers from the first unordered field until a
// field repeats. Every unordered field is on a cycle or downstream of one.
func (g *Graph) findCycle(partial []int) []string {
	done := make([]bool, len(g.ids))
	for _, i := range partial {
		done[i] = true
	}

	start := -1

	for i := range g.ids {
		if !done[i] {
			start = i
			break
		}
	}

	if start < 0 {
		return nil
	}

	pos := map[int]int{}
	var path []int

	for cur := start; cur >= 0; cur = g.source[cur] {
		if p, seen := pos[cur]; seen {
			cycle := make([]string, 0, len(path)-p+1)
			for _, i := range path[p:] {
				cycle = append(cycle, g.ids[i])
			}

			return append(cycle, g.ids[cur])
		}

		pos[cur] = len(path)
		path = append(path, cur)
	}

	return nil
}

// Has reports whether id is a field of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// DependsOn returns the id of the field id depends on, or "".
func (g *Graph) DependsOn(id string) string {
	i, ok := g.index[id]
	if !ok || g.source[i] < 0 {
		return ""
	}

	return g.ids[g.source[i]]
}

// Dependents returns ids of fields that directly depend on id.
func (g *Graph) Dependents(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}

	out := make([]string, 0, len(g.dependents[i]))
	for _, j := range g.dependents[i] {
		out = append(out, g.ids[j])
	}

	return out
}

// TransitiveDependents returns ids of every field that depends on id,
// directly or through other fields, found by reverse-edge traversal.
func (g *Graph) TransitiveDependents(id string) map[string]bool {
	result := map[string]bool{}

	i, ok := g.index[id]
	if !ok {
		return result
	}

	queue := append([]int(nil), g.dependents[i]...)
	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]

		if result[g.ids[j]] || j == i {
			continue
		}

		result[g.ids[j]] = true
		queue = append(queue, g.dependents[j]...)
	}

	return result
}

// WouldCycle reports whether making target depend on source closes a cycle.
func (g *Graph) WouldCycle(target, source string) bool {
	if target == source {
		return true
	}

	return g.TransitiveDependents(target)[source]
}

// Order returns field ids with every field after the field it depends on.
// It is nil when the graph has a cycle.
func (g *Graph) Order() []string {
	if g.order == nil {
		return nil
	}

	out := make([]string, len(g.order))
	for k, i := range g.order {
		out[k] = g.ids[i]
	}

	return out
}
