// Package dag builds the dependency graph of a model run: the transitive
// parent closure of the requested roots, with the child adjacency and
// remaining-parent counts the scheduler consumes.
package dag

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/leapstack-labs/strata/pkg/model"
)

// Graph is the expanded dependency closure of a set of root kinds.
// It is immutable after Build; accessors return copies.
type Graph struct {
	kinds    map[string]model.Kind
	children map[string][]string // parent -> dependents, one entry per declaring slot
	counts   map[string]int      // kind -> number of slot edges into it
	order    []string            // breadth-first discovery order
}

// Build expands the transitive parent closure of the roots
// breadth-first. A kind reachable from several children is visited once
// but appears in each child's adjacency, so a shared ancestor runs once
// while every edge still gates its dependents.
//
// Kinds are identified by name. Re-encountering the same kind is a
// no-op; two structurally different kinds sharing a name is an error,
// as is a kind declaring two slots with the same name.
func Build(roots ...model.Kind) (*Graph, error) {
	g := &Graph{
		kinds:    make(map[string]model.Kind),
		children: make(map[string][]string),
		counts:   make(map[string]int),
	}

	var queue []model.Kind
	add := func(k model.Kind) error {
		name := k.Name()
		if name == "" {
			return fmt.Errorf("model kind %T has an empty name", k)
		}
		if existing, ok := g.kinds[name]; ok {
			if !reflect.DeepEqual(existing, k) {
				return fmt.Errorf("two distinct model kinds named %q", name)
			}
			return nil
		}
		g.kinds[name] = k
		g.order = append(g.order, name)
		queue = append(queue, k)
		return nil
	}

	for _, r := range roots {
		if r == nil {
			return nil, fmt.Errorf("nil root kind")
		}
		if err := add(r); err != nil {
			return nil, err
		}
	}

	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		name := k.Name()

		if _, ok := g.counts[name]; !ok {
			g.counts[name] = 0
		}
		slots := make(map[string]bool)
		for _, slot := range k.Parents() {
			if slot.Name == "" {
				return nil, fmt.Errorf("model %s declares an unnamed parent slot", name)
			}
			if slots[slot.Name] {
				return nil, fmt.Errorf("model %s declares duplicate slot %q", name, slot.Name)
			}
			slots[slot.Name] = true
			if slot.Parent == nil {
				return nil, fmt.Errorf("model %s: slot %q has no parent kind", name, slot.Name)
			}
			if err := add(slot.Parent); err != nil {
				return nil, err
			}
			g.children[slot.Parent.Name()] = append(g.children[slot.Parent.Name()], name)
			g.counts[name]++
		}
	}

	return g, nil
}

// Len returns the number of discovered kinds.
func (g *Graph) Len() int { return len(g.order) }

// Names returns the discovered kind names in discovery order.
func (g *Graph) Names() []string { return slices.Clone(g.order) }

// Kind returns a discovered kind by name.
func (g *Graph) Kind(name string) (model.Kind, bool) {
	k, ok := g.kinds[name]
	return k, ok
}

// Children returns the dependents of a kind, one entry per declaring
// slot.
func (g *Graph) Children(name string) []string {
	return slices.Clone(g.children[name])
}

// ParentCount returns the number of slot edges into a kind.
func (g *Graph) ParentCount(name string) int { return g.counts[name] }

// ParentCounts returns a copy of the remaining-parent-count map, the
// scheduler's working state.
func (g *Graph) ParentCounts() map[string]int {
	counts := make(map[string]int, len(g.counts))
	for name, n := range g.counts {
		counts[name] = n
	}
	return counts
}

// Roots returns the kinds with no parents, in discovery order.
func (g *Graph) Roots() []string {
	var roots []string
	for _, name := range g.order {
		if g.counts[name] == 0 {
			roots = append(roots, name)
		}
	}
	return roots
}

// Cycle reports one dependency cycle if the graph contains any,
// reconstructed as a path from a kind back to itself.
func (g *Graph) Cycle() ([]string, bool) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	from := make(map[string]string)

	var cycle []string
	var dfs func(name string) bool
	dfs = func(name string) bool {
		visited[name] = true
		onStack[name] = true

		for _, child := range g.children[name] {
			if !visited[child] {
				from[child] = name
				if dfs(child) {
					return true
				}
			} else if onStack[child] {
				cycle = []string{child}
				for curr := name; curr != child; curr = from[curr] {
					cycle = append([]string{curr}, cycle...)
				}
				cycle = append([]string{child}, cycle...)
				return true
			}
		}

		onStack[name] = false
		return false
	}

	for _, name := range g.order {
		if !visited[name] {
			if dfs(name) {
				return cycle, true
			}
		}
	}

	return nil, false
}
