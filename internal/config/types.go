// Package config loads project configuration for strata. It is
// decoupled from CLI concerns so other tools can load a project the
// same way the commands do.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/strata/pkg/adapter"
	"github.com/leapstack-labs/strata/pkg/fql"
)

// TargetConfig holds table-store connection configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // duckdb, sqlite, postgres

	// File-based stores (DuckDB, SQLite)
	Path string `koanf:"path"` // file path or :memory:

	// Network stores
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	// Common
	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`
}

// Validate checks if the target configuration is valid.
// It uses the adapter registry to determine which adapter types are available.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// AdapterConfig converts the target to the adapter package's config.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     strings.ToLower(t.Type),
		Path:     t.Path,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.Username,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
	}
}

// Config holds the full project configuration.
type Config struct {
	Target   TargetConfig        `koanf:"target"`
	SeedsDir string              `koanf:"seeds_dir"`
	Sources  map[string][]string `koanf:"sources"` // table -> ordered columns
	Vars     map[string]any      `koanf:"vars"`
	Grains   string              `koanf:"grains"` // path to grain declarations
	Verbose  bool                `koanf:"verbose"`
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Target.Validate(); err != nil {
		return fmt.Errorf("invalid target configuration: %w", err)
	}
	for table, columns := range c.Sources {
		if table == "" {
			return fmt.Errorf("source table has no name")
		}
		if len(columns) == 0 {
			return fmt.Errorf("source %s declares no columns", table)
		}
	}
	return nil
}

// Catalog builds the source-table catalog models render against.
func (c *Config) Catalog() *fql.Catalog {
	tables := make([]*fql.Table, 0, len(c.Sources))
	for name, columns := range c.Sources {
		tables = append(tables, fql.NewTable(name, columns...))
	}
	return fql.NewCatalog(tables...)
}
