package model

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/strata/pkg/fql"
)

// Context carries the read-only configuration a run hands to every query
// derivation: the source catalog plus caller-supplied variables. The
// engine builds it once per run and never mutates it.
type Context struct {
	catalog *fql.Catalog
	vars    map[string]any
}

// NewContext builds a run context over a catalog and variables.
func NewContext(catalog *fql.Catalog, vars map[string]any) *Context {
	return &Context{catalog: catalog, vars: vars}
}

// Catalog returns the source table catalog.
func (c *Context) Catalog() *fql.Catalog { return c.catalog }

// Var returns a variable by name.
func (c *Context) Var(name string) (any, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// StringList returns a list-valued variable. A missing or mistyped
// variable is an error naming the variable, so a model depending on one
// fails attributably.
func (c *Context) StringList(name string) ([]string, error) {
	v, ok := c.vars[name]
	if !ok {
		return nil, fmt.Errorf("run context is missing variable %q", name)
	}
	switch list := v.(type) {
	case []string:
		return slices.Clone(list), nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("variable %q: expected strings, got %T", name, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("variable %q: expected a list of strings, got %T", name, v)
	}
}
