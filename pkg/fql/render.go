package fql

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

var errGroupNeedsSelect = errors.New("Group must be followed by a projection")

// Render compiles the query to executable SQL, resolving every column
// reference against the catalog and the query's lexical scope.
// Identifiers are double-quoted, so the output is portable across ANSI
// engines.
func Render(q *Query, cat *Catalog) (string, error) {
	r := &renderer{cat: cat}
	sql, _, err := r.query(q)
	return sql, err
}

// OutputColumns reports the column names the query produces, in order,
// without executing anything.
func OutputColumns(q *Query, cat *Catalog) ([]string, error) {
	r := &renderer{cat: cat}
	_, cols, err := r.query(q)
	return cols, err
}

type renderer struct {
	cat  *Catalog
	next int // generated subquery aliases
}

// query renders q and reports its output column order.
func (r *renderer) query(q *Query) (string, []string, error) {
	b, err := r.sourceBlock(q.src)
	if err != nil {
		return "", nil, err
	}
	for _, st := range q.stages {
		switch s := st.(type) {
		case joinStage:
			if b.projected() || b.grouped() || len(b.orderBy) > 0 || b.limit != nil {
				if b, err = r.wrap(b); err != nil {
					return "", nil, err
				}
			}
			if err := r.join(b, s); err != nil {
				return "", nil, err
			}
		case whereStage:
			if b.projected() || b.grouped() {
				if b, err = r.wrap(b); err != nil {
					return "", nil, err
				}
			}
			cond, err := b.expr(s.cond)
			if err != nil {
				return "", nil, err
			}
			b.where = cond
		case groupStage:
			if b.projected() || b.grouped() {
				if b, err = r.wrap(b); err != nil {
					return "", nil, err
				}
			}
			for _, k := range s.keys {
				key, err := b.expr(k)
				if err != nil {
					return "", nil, err
				}
				b.groupBy = append(b.groupBy, key)
			}
		case selectStage:
			if b.projected() {
				if b, err = r.wrap(b); err != nil {
					return "", nil, err
				}
			}
			if err := b.project(s.items); err != nil {
				return "", nil, err
			}
		case defineStage:
			if b.grouped() && !b.projected() {
				return "", nil, errGroupNeedsSelect
			}
			if !b.projected() {
				b.identityProjection()
			}
			if err := b.define(s.items); err != nil {
				return "", nil, err
			}
		case orderStage:
			if b.limit != nil {
				if b, err = r.wrap(b); err != nil {
					return "", nil, err
				}
			}
			if err := b.order(s.items); err != nil {
				return "", nil, err
			}
		case limitStage:
			if b.limit != nil {
				if b, err = r.wrap(b); err != nil {
					return "", nil, err
				}
			}
			n := s.n
			b.limit = &n
		}
	}
	if b.grouped() && !b.projected() {
		return "", nil, errGroupNeedsSelect
	}
	return b.render(), b.outCols(), nil
}

func (r *renderer) sourceBlock(src source) (*block, error) {
	switch s := src.(type) {
	case tableSource:
		t, ok := r.cat.Table(s.name)
		if !ok {
			return nil, fmt.Errorf("table %q not found in catalog (known tables: %s)",
				s.name, strings.Join(r.cat.Names(), ", "))
		}
		return newBlock(quoteIdent(t.Name), t.Name, t.Columns), nil
	case physicalSource:
		return newBlock(quoteIdent(s.table.Name), s.table.Name, s.table.Columns), nil
	default:
		panic(fmt.Sprintf("fql: unknown source %T", src))
	}
}

// wrap closes the current block into an aliased subquery and opens a
// fresh scope over its output columns.
func (r *renderer) wrap(b *block) (*block, error) {
	if b.grouped() && !b.projected() {
		return nil, errGroupNeedsSelect
	}
	r.next++
	alias := fmt.Sprintf("q%d", r.next)
	nb := newBlock("("+b.render()+")", alias, b.outCols())
	nb.subquery = true
	return nb, nil
}

func (r *renderer) join(b *block, s joinStage) error {
	alias := s.right.alias
	if alias == "" {
		return errors.New("join input must be aliased with As")
	}
	if _, dup := b.named[alias]; dup || alias == b.fromAlias {
		return fmt.Errorf("duplicate join alias %q", alias)
	}
	rightSQL, rightCols, err := r.query(s.right)
	if err != nil {
		return err
	}
	b.named[alias] = rightCols
	cond, err := b.expr(s.on)
	if err != nil {
		return err
	}
	kw := "JOIN"
	if s.outer {
		kw = "LEFT JOIN"
	}
	b.joins = append(b.joins, fmt.Sprintf("%s (%s) AS %s ON %s", kw, rightSQL, quoteIdent(alias), cond))
	return nil
}

// ---------- Block Assembly ----------

// block is one SELECT under assembly: a FROM source with joins, plus the
// clauses that can legally share it. Stages that cannot extend the block
// wrap it as a subquery first.
type block struct {
	fromSQL   string
	fromAlias string
	fromCols  []string // primary namespace, unqualified references
	subquery  bool
	joins     []string
	named     map[string][]string // join alias -> output columns
	where     string
	groupBy   []string
	items     []item
	orderBy   []string
	limit     *int
}

type item struct {
	sql    string
	name   string
	withAs bool
}

func newBlock(fromSQL, alias string, cols []string) *block {
	return &block{
		fromSQL:   fromSQL,
		fromAlias: alias,
		fromCols:  cols,
		named:     make(map[string][]string),
	}
}

func (b *block) projected() bool { return len(b.items) > 0 }
func (b *block) grouped() bool   { return len(b.groupBy) > 0 }

func (b *block) project(items []Expr) error {
	if len(items) == 0 {
		return errors.New("Select requires at least one item")
	}
	out := make([]item, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, e := range items {
		it, err := b.item(e)
		if err != nil {
			return fmt.Errorf("select item %d: %w", i+1, err)
		}
		if seen[it.name] {
			return fmt.Errorf("duplicate output column %q", it.name)
		}
		seen[it.name] = true
		out = append(out, it)
	}
	b.items = out
	return nil
}

func (b *block) define(items []Expr) error {
	for i, e := range items {
		it, err := b.item(e)
		if err != nil {
			return fmt.Errorf("define item %d: %w", i+1, err)
		}
		replaced := false
		for j := range b.items {
			if b.items[j].name == it.name {
				b.items[j] = it
				replaced = true
				break
			}
		}
		if !replaced {
			b.items = append(b.items, it)
		}
	}
	return nil
}

// item renders one projection entry and determines its output name.
func (b *block) item(e Expr) (item, error) {
	sqlText, err := b.expr(e)
	if err != nil {
		return item{}, err
	}
	name := ""
	withAs := true
	if a := e.Alias(); a != "" {
		name = a
	} else if c, ok := e.(*Column); ok {
		name = c.Name
		withAs = false
	} else {
		return item{}, errors.New("computed item has no output name; add As")
	}
	return item{sql: sqlText, name: name, withAs: withAs}, nil
}

func (b *block) identityProjection() {
	b.items = make([]item, 0, len(b.fromCols))
	for _, col := range b.fromCols {
		b.items = append(b.items, item{
			sql:  quoteIdent(b.fromAlias) + "." + quoteIdent(col),
			name: col,
		})
	}
}

func (b *block) order(items []Expr) error {
	for _, e := range items {
		dir := ""
		if s, ok := e.(*sortExpr); ok {
			dir = " " + s.dir
			e = s.expr
		}
		var sqlText string
		if c, ok := e.(*Column); ok && c.Table == "" && b.projected() && b.hasOutput(c.Name) {
			sqlText = quoteIdent(c.Name)
		} else {
			var err error
			sqlText, err = b.expr(e)
			if err != nil {
				return err
			}
		}
		b.orderBy = append(b.orderBy, sqlText+dir)
	}
	return nil
}

func (b *block) hasOutput(name string) bool {
	for _, it := range b.items {
		if it.name == name {
			return true
		}
	}
	return false
}

func (b *block) outCols() []string {
	if b.projected() {
		cols := make([]string, len(b.items))
		for i, it := range b.items {
			cols[i] = it.name
		}
		return cols
	}
	return slices.Clone(b.fromCols)
}

func (b *block) render() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if b.projected() {
		for i, it := range b.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(it.sql)
			if it.withAs {
				sb.WriteString(" AS " + quoteIdent(it.name))
			}
		}
	} else {
		for i, col := range b.fromCols {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quoteIdent(b.fromAlias) + "." + quoteIdent(col))
		}
	}
	sb.WriteString(" FROM " + b.fromSQL)
	if b.subquery {
		sb.WriteString(" AS " + quoteIdent(b.fromAlias))
	}
	for _, j := range b.joins {
		sb.WriteString(" " + j)
	}
	if b.where != "" {
		sb.WriteString(" WHERE " + b.where)
	}
	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY " + strings.Join(b.groupBy, ", "))
	}
	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY " + strings.Join(b.orderBy, ", "))
	}
	if b.limit != nil {
		sb.WriteString(" LIMIT " + strconv.Itoa(*b.limit))
	}
	return sb.String()
}

// ---------- Expressions ----------

var infixOps = map[string]bool{
	"=": true, "<>": true, "<": true, ">": true, "<=": true, ">=": true,
	"+": true, "-": true, "*": true, "/": true, "||": true,
}

func (b *block) expr(e Expr) (string, error) {
	switch x := e.(type) {
	case nil:
		return "", errors.New("nil expression")
	case *Column:
		return b.column(x)
	case *Literal:
		return renderLiteral(x.Value)
	case *Call:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			s, err := b.expr(a)
			if err != nil {
				return "", err
			}
			args[i] = s
		}
		up := strings.ToUpper(x.Fn)
		if len(args) == 2 && (infixOps[x.Fn] || up == "AND" || up == "OR") {
			op := x.Fn
			if up == "AND" || up == "OR" {
				op = up
			}
			return "(" + args[0] + " " + op + " " + args[1] + ")", nil
		}
		return up + "(" + strings.Join(args, ", ") + ")", nil
	case *Aggregate:
		fn := strings.ToUpper(x.Fn)
		if x.Arg == nil {
			return fn + "(*)", nil
		}
		arg, err := b.expr(x.Arg)
		if err != nil {
			return "", err
		}
		if x.Distinct {
			return fn + "(DISTINCT " + arg + ")", nil
		}
		return fn + "(" + arg + ")", nil
	case *Case:
		w, err := b.expr(x.When)
		if err != nil {
			return "", err
		}
		t, err := b.expr(x.Then)
		if err != nil {
			return "", err
		}
		el, err := b.expr(x.Else)
		if err != nil {
			return "", err
		}
		return "CASE WHEN " + w + " THEN " + t + " ELSE " + el + " END", nil
	case *sortExpr:
		return "", errors.New("Asc/Desc is only valid inside Order")
	default:
		return "", fmt.Errorf("unsupported expression type %T", e)
	}
}

func (b *block) column(c *Column) (string, error) {
	if c.Table != "" {
		cols, ok := b.named[c.Table]
		if !ok && c.Table == b.fromAlias {
			cols, ok = b.fromCols, true
		}
		if !ok {
			return "", fmt.Errorf("unknown table alias %q (in scope: %s)",
				c.Table, strings.Join(b.scopeAliases(), ", "))
		}
		if !slices.Contains(cols, c.Name) {
			return "", fmt.Errorf("column %q not found in %q (has: %s)",
				c.Name, c.Table, strings.Join(cols, ", "))
		}
		return quoteIdent(c.Table) + "." + quoteIdent(c.Name), nil
	}
	if !slices.Contains(b.fromCols, c.Name) {
		return "", fmt.Errorf("unknown column %q (in scope: %s)",
			c.Name, strings.Join(b.fromCols, ", "))
	}
	return quoteIdent(b.fromAlias) + "." + quoteIdent(c.Name), nil
}

func (b *block) scopeAliases() []string {
	aliases := []string{b.fromAlias}
	for a := range b.named {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases[1:])
	return aliases
}

func renderLiteral(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported literal type %T", v)
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
