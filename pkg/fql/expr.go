package fql

import "strings"

// Expr represents an expression in a query's projection, predicate,
// grouping, or ordering.
type Expr interface {
	exprNode()
	// Alias returns the output name assigned with As, or "".
	Alias() string
}

// ---------- Expression Types ----------

// Column references a column of the query input. Table qualifies the
// reference with a join alias; empty Table resolves against the
// pipeline's primary input.
type Column struct {
	Table string
	Name  string
	alias string
}

func (*Column) exprNode() {}

// Alias returns the output name assigned with As, or "".
func (c *Column) Alias() string { return c.alias }

// As returns a copy of the reference renamed in the output.
func (c *Column) As(name string) *Column {
	nc := *c
	nc.alias = name
	return &nc
}

// Literal is a constant value: string, bool, integer, float, or nil
// for SQL NULL.
type Literal struct {
	Value any
	alias string
}

func (*Literal) exprNode() {}

// Alias returns the output name assigned with As, or "".
func (l *Literal) Alias() string { return l.alias }

// As returns a copy of the literal named in the output.
func (l *Literal) As(name string) *Literal {
	nl := *l
	nl.alias = name
	return &nl
}

// Call applies a scalar function or operator to its arguments.
// Two-argument calls whose Fn is a recognized operator render infix.
type Call struct {
	Fn    string
	Args  []Expr
	alias string
}

func (*Call) exprNode() {}

// Alias returns the output name assigned with As, or "".
func (c *Call) Alias() string { return c.alias }

// As returns a copy of the call named in the output.
func (c *Call) As(name string) *Call {
	nc := *c
	nc.alias = name
	return &nc
}

// Aggregate applies an aggregate function over the grouped input.
// A nil Arg on count renders COUNT(*).
type Aggregate struct {
	Fn       string
	Arg      Expr
	Distinct bool
	alias    string
}

func (*Aggregate) exprNode() {}

// Alias returns the output name assigned with As, or "".
func (a *Aggregate) Alias() string { return a.alias }

// As returns a copy of the aggregate named in the output.
func (a *Aggregate) As(name string) *Aggregate {
	na := *a
	na.alias = name
	return &na
}

// Case is a single-arm conditional: CASE WHEN When THEN Then ELSE Else END.
type Case struct {
	When  Expr
	Then  Expr
	Else  Expr
	alias string
}

func (*Case) exprNode() {}

// Alias returns the output name assigned with As, or "".
func (c *Case) Alias() string { return c.alias }

// As returns a copy of the conditional named in the output.
func (c *Case) As(name string) *Case {
	nc := *c
	nc.alias = name
	return &nc
}

// ---------- Constructors ----------

// Col references a column by name. A "alias.column" form references a
// column of an aliased join input.
func Col(name string) *Column {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return &Column{Table: name[:i], Name: name[i+1:]}
	}
	return &Column{Name: name}
}

// Lit wraps a constant value.
func Lit(v any) *Literal { return &Literal{Value: v} }

// Fn applies a named scalar function or operator.
func Fn(name string, args ...Expr) *Call { return &Call{Fn: name, Args: args} }

// Binary comparison and arithmetic shorthands.
func Eq(a, b Expr) *Call  { return Fn("=", a, b) }
func Ne(a, b Expr) *Call  { return Fn("<>", a, b) }
func Gt(a, b Expr) *Call  { return Fn(">", a, b) }
func Ge(a, b Expr) *Call  { return Fn(">=", a, b) }
func Lt(a, b Expr) *Call  { return Fn("<", a, b) }
func Le(a, b Expr) *Call  { return Fn("<=", a, b) }
func And(a, b Expr) *Call { return Fn("AND", a, b) }
func Or(a, b Expr) *Call  { return Fn("OR", a, b) }
func Add(a, b Expr) *Call { return Fn("+", a, b) }
func Sub(a, b Expr) *Call { return Fn("-", a, b) }
func Mul(a, b Expr) *Call { return Fn("*", a, b) }
func Div(a, b Expr) *Call { return Fn("/", a, b) }

// Aggregate shorthands.
func Sum(arg Expr) *Aggregate { return &Aggregate{Fn: "sum", Arg: arg} }
func Min(arg Expr) *Aggregate { return &Aggregate{Fn: "min", Arg: arg} }
func Max(arg Expr) *Aggregate { return &Aggregate{Fn: "max", Arg: arg} }
func Avg(arg Expr) *Aggregate { return &Aggregate{Fn: "avg", Arg: arg} }

// Count counts grouped rows. A nil argument counts all rows.
func Count(arg Expr) *Aggregate { return &Aggregate{Fn: "count", Arg: arg} }

// CountDistinct counts distinct values of the argument.
func CountDistinct(arg Expr) *Aggregate {
	return &Aggregate{Fn: "count", Arg: arg, Distinct: true}
}

// When builds a single-arm conditional expression.
func When(cond, then, els Expr) *Case {
	return &Case{When: cond, Then: then, Else: els}
}

// sortExpr pairs an expression with a sort direction. Only valid inside
// Order.
type sortExpr struct {
	expr Expr
	dir  string
}

func (*sortExpr) exprNode() {}

// Alias returns "".
func (*sortExpr) Alias() string { return "" }

// Asc marks an Order item explicitly ascending.
func Asc(e Expr) Expr { return &sortExpr{expr: e, dir: "ASC"} }

// Desc marks an Order item descending.
func Desc(e Expr) Expr { return &sortExpr{expr: e, dir: "DESC"} }
