package fql

import "sort"

// Table describes a physical table: its name and column order. Tables
// returned by materialization are self-describing and do not need a
// catalog entry.
type Table struct {
	Name    string
	Columns []string
}

// NewTable builds a physical table descriptor.
func NewTable(name string, columns ...string) *Table {
	return &Table{Name: name, Columns: columns}
}

// Catalog resolves source table names to their physical schemas during
// rendering. It is immutable after construction.
type Catalog struct {
	tables map[string]*Table
}

// NewCatalog builds a catalog from table descriptors. A later descriptor
// with a duplicate name replaces the earlier one.
func NewCatalog(tables ...*Table) *Catalog {
	c := &Catalog{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		c.tables[t.Name] = t
	}
	return c
}

// Table looks up a source table by name.
func (c *Catalog) Table(name string) (*Table, bool) {
	if c == nil {
		return nil, false
	}
	t, ok := c.tables[name]
	return t, ok
}

// Names returns the catalog's table names in sorted order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
