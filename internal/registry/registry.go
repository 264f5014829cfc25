// Package registry indexes model kinds by name. A project registers
// every kind it defines here once at startup; the CLI resolves run
// selections against the registry and hands the resolved kinds to the
// engine as roots.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/strata/pkg/model"
)

// Registry holds registered model kinds keyed by their unique name.
type Registry struct {
	mu sync.RWMutex

	// byName maps model names to kinds: "stg_customers" → Kind
	byName map[string]model.Kind

	// order preserves registration order for listing
	order []string
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		byName: make(map[string]model.Kind),
	}
}

// Register adds model kinds to the registry. A kind with an empty name
// or a name that is already taken is rejected; model names are unique
// across a project because persistent models materialize into tables
// named after them.
func (r *Registry) Register(kinds ...model.Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, kind := range kinds {
		name := kind.Name()
		if name == "" {
			return fmt.Errorf("model kind %T has no name", kind)
		}
		if _, ok := r.byName[name]; ok {
			return fmt.Errorf("model kind %q is already registered", name)
		}
		r.byName[name] = kind
		r.order = append(r.order, name)
	}
	return nil
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (model.Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kind, ok := r.byName[name]
	return kind, ok
}

// Resolve maps a selection of model names to their kinds. An empty
// selection resolves to every registered kind.
func (r *Registry) Resolve(names ...string) ([]model.Kind, error) {
	if len(names) == 0 {
		return r.Kinds(), nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]model.Kind, 0, len(names))
	for _, name := range names {
		kind, ok := r.byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown model %q (registered models: %s)",
				name, strings.Join(r.sortedNames(), ", "))
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// Kinds returns all registered kinds in registration order.
func (r *Registry) Kinds() []model.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]model.Kind, 0, len(r.order))
	for _, name := range r.order {
		kinds = append(kinds, r.byName[name])
	}
	return kinds
}

// Names returns all registered model names (sorted).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

// Count returns the number of registered kinds.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
