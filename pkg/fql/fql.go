// Package fql builds logical relational queries as immutable values and
// renders them to executable SQL. Queries compose: a pipeline built on
// top of another query's value extends its stage chain, so a model can
// splice a parent's whole derivation into its own FROM position without
// knowing how deep it goes.
package fql

// Query is a source plus an ordered chain of transformation stages.
// Builder methods never mutate the receiver; each returns a new Query
// sharing the earlier stages.
type Query struct {
	src    source
	stages []stage
	alias  string
}

// ---------- Sources ----------

type source interface {
	sourceNode()
}

// tableSource names a table resolved against the catalog at render time.
type tableSource struct {
	name string
}

func (tableSource) sourceNode() {}

// physicalSource carries its own schema and bypasses the catalog.
type physicalSource struct {
	table *Table
}

func (physicalSource) sourceNode() {}

// From starts a query over a cataloged source table.
func From(table string) *Query {
	return &Query{src: tableSource{name: table}}
}

// FromTable starts a query over a self-describing physical table, such
// as a materialized model reference.
func FromTable(t *Table) *Query {
	return &Query{src: physicalSource{table: t}}
}

// ---------- Stages ----------

type stage interface {
	stageNode()
}

type selectStage struct{ items []Expr }
type defineStage struct{ items []Expr }
type whereStage struct{ cond Expr }
type groupStage struct{ keys []Expr }
type orderStage struct{ items []Expr }
type limitStage struct{ n int }

type joinStage struct {
	right *Query
	on    Expr
	outer bool
}

func (selectStage) stageNode() {}
func (defineStage) stageNode() {}
func (whereStage) stageNode()  {}
func (groupStage) stageNode()  {}
func (orderStage) stageNode()  {}
func (limitStage) stageNode()  {}
func (joinStage) stageNode()   {}

func (q *Query) with(s stage) *Query {
	nq := &Query{src: q.src, alias: q.alias}
	nq.stages = make([]stage, len(q.stages), len(q.stages)+1)
	copy(nq.stages, q.stages)
	nq.stages = append(nq.stages, s)
	return nq
}

// Select projects the input to the given items, in order. The rendered
// column order follows the declared item order exactly.
func (q *Query) Select(items ...Expr) *Query {
	return q.with(selectStage{items: items})
}

// Define adds computed columns to the current projection. An item whose
// output name matches an existing column replaces it in place; any other
// item is appended.
func (q *Query) Define(items ...Expr) *Query {
	return q.with(defineStage{items: items})
}

// Where filters rows by the condition.
func (q *Query) Where(cond Expr) *Query {
	return q.with(whereStage{cond: cond})
}

// Group sets the grouping keys. The next projection renders them as
// GROUP BY and may aggregate.
func (q *Query) Group(keys ...Expr) *Query {
	return q.with(groupStage{keys: keys})
}

// Join inner-joins an aliased query on the condition. The right side
// must carry an alias (see As); its columns are referenced as
// "alias.column" until the next projection.
func (q *Query) Join(right *Query, on Expr) *Query {
	return q.with(joinStage{right: right, on: on})
}

// LeftJoin left-outer-joins an aliased query on the condition.
func (q *Query) LeftJoin(right *Query, on Expr) *Query {
	return q.with(joinStage{right: right, on: on, outer: true})
}

// As names the query for use as a join input.
func (q *Query) As(alias string) *Query {
	nq := &Query{src: q.src, stages: q.stages, alias: alias}
	return nq
}

// Order sorts the output by the items.
func (q *Query) Order(items ...Expr) *Query {
	return q.with(orderStage{items: items})
}

// Limit caps the number of output rows.
func (q *Query) Limit(n int) *Query {
	return q.with(limitStage{n: n})
}
