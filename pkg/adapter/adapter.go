// Package adapter defines the table-store contract the engine
// materializes into, plus the shared base implementation and the factory
// registry concrete adapters register with.
//
// Concrete adapter implementations live in pkg/adapters/ subdirectories
// and self-register in their init() functions; importing one for its
// side effect makes it available by type name.
package adapter

import (
	"context"
	"database/sql"
)

// Adapter is the interface every table-store backend implements.
type Adapter interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows
	// (e.g. CREATE TABLE AS, DROP TABLE).
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// GetTableMetadata retrieves schema and row count for a table.
	// Column order matches the table's physical column order.
	GetTableMetadata(ctx context.Context, table string) (*TableMetadata, error)

	// LoadCSV loads a CSV file into a table, replacing any existing
	// table with the same name.
	LoadCSV(ctx context.Context, tableName, filePath string) error

	// DialectName identifies the backend, for logs and diagnostics.
	DialectName() string
}

// Config holds connection settings for a table store. File-backed
// stores use Path; server-backed stores use the host fields.
type Config struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
}

// Column describes one column of a table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// TableMetadata holds schema and size information for a table.
type TableMetadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// ColumnNames returns the column names in physical order.
func (m *TableMetadata) ColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	return names
}

// Rows wraps sql.Rows to keep adapters swappable.
type Rows struct {
	*sql.Rows
}
