package model

import (
	"fmt"

	"github.com/leapstack-labs/strata/pkg/fql"
)

// State is the observable materialization state of an instance.
type State int

const (
	// StateAlwaysDerived marks instances of non-persistent kinds; they
	// re-derive their query on every invocation.
	StateAlwaysDerived State = iota
	// StateUnmaterialized marks persistent instances whose table does
	// not exist yet.
	StateUnmaterialized
	// StateMaterialized marks persistent instances bound to their
	// physical table.
	StateMaterialized
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAlwaysDerived:
		return "always_derived"
	case StateUnmaterialized:
		return "unmaterialized"
	case StateMaterialized:
		return "materialized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Output is the result of invoking a model instance: either a query
// Derived from the model's definition or a Materialized table
// reference. Consumers that care which arm they hold switch on the
// concrete type; consumers that only compose call Node.
type Output interface {
	// Node folds the output into a composable query.
	Node() *fql.Query
}

// Derived carries a freshly derived logical query.
type Derived struct {
	Query *fql.Query
}

// Node returns the derived query.
func (d Derived) Node() *fql.Query { return d.Query }

// Materialized carries the physical table written for a persistent
// model. Table is self-describing: name plus column order as created.
type Materialized struct {
	Table *fql.Table
}

// Node returns a scan of the materialized table.
func (m Materialized) Node() *fql.Query { return fql.FromTable(m.Table) }

// Instance is one run's realization of a Kind, wired to its resolved
// parent instances at construction.
type Instance struct {
	kind  Kind
	deps  Deps
	table *fql.Table
}

// NewInstance wires a kind to its resolved parents. Every declared slot
// must be bound; a missing slot is a scheduling defect and panics.
func NewInstance(kind Kind, parents map[string]*Instance) *Instance {
	deps := Deps{parents: make(map[string]*Instance, len(kind.Parents()))}
	for _, slot := range kind.Parents() {
		p := parents[slot.Name]
		if p == nil {
			panic(fmt.Sprintf("model: instance %s constructed without parent slot %q", kind.Name(), slot.Name))
		}
		deps.parents[slot.Name] = p
	}
	return &Instance{kind: kind, deps: deps}
}

// Kind returns the declaration this instance realizes.
func (in *Instance) Kind() Kind { return in.kind }

// State reports the instance's materialization state.
func (in *Instance) State() State {
	switch {
	case !in.kind.Persist():
		return StateAlwaysDerived
	case in.table == nil:
		return StateUnmaterialized
	default:
		return StateMaterialized
	}
}

// Output invokes the instance. Before materialization it derives the
// model's query; afterwards it returns the bound table reference without
// re-deriving anything.
func (in *Instance) Output(ctx *Context) (Output, error) {
	if in.table != nil {
		return Materialized{Table: in.table}, nil
	}
	q, err := in.kind.Query(ctx, in.deps)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", in.kind.Name(), err)
	}
	return Derived{Query: q}, nil
}

// Materialize binds the physical table, completing the one-way
// transition from derived to materialized. The engine schedules models
// single-threaded, so the transition is a plain assignment; calling it
// twice, or on a non-persistent kind, is a scheduling defect and panics.
func (in *Instance) Materialize(table *fql.Table) {
	if !in.kind.Persist() {
		panic(fmt.Sprintf("model: %s is not persistent", in.kind.Name()))
	}
	if in.table != nil {
		panic(fmt.Sprintf("model: %s materialized twice", in.kind.Name()))
	}
	in.table = table
}

// Deps gives a deriving model access to its parents by slot name.
type Deps struct {
	parents map[string]*Instance
}

// Parent returns the instance bound to the slot. Referencing an
// undeclared slot is a defect in the model definition and panics.
func (d Deps) Parent(name string) *Instance {
	p, ok := d.parents[name]
	if !ok {
		panic(fmt.Sprintf("model: no parent bound to slot %q", name))
	}
	return p
}

// Query invokes the named parent and folds its output into a composable
// query: a table scan if the parent materialized, its full derivation
// otherwise.
func (d Deps) Query(name string, ctx *Context) (*fql.Query, error) {
	out, err := d.Parent(name).Output(ctx)
	if err != nil {
		return nil, err
	}
	return out.Node(), nil
}
