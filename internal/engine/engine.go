// Package engine executes model graphs against a table store. It
// expands the dependency closure of the requested roots, schedules
// every model in it exactly once in dependency order, and materializes
// persistent models into physical tables as it goes.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/strata/pkg/adapter"
	"github.com/leapstack-labs/strata/pkg/fql"
)

// Engine orchestrates model runs.
type Engine struct {
	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	// Structured logger
	logger *slog.Logger

	catalog  *fql.Catalog
	vars     map[string]any
	seedsDir string
}

// Config holds engine configuration.
type Config struct {
	// Adapter is the table-store connection configuration.
	Adapter adapter.Config
	// Catalog describes the source tables models may scan.
	Catalog *fql.Catalog
	// Vars are the run variables models read through their run context.
	Vars map[string]any
	// SeedsDir is the path to the seeds (raw CSV data) directory.
	SeedsDir string
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// New creates a new engine with a lazy database connection.
// The table store is only connected when Run or LoadSeeds is called.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dbConfig := cfg.Adapter
	if dbConfig.Type == "" {
		dbConfig.Type = "duckdb"
	}

	catalog := cfg.Catalog
	if catalog == nil {
		catalog = fql.NewCatalog()
	}

	logger.Debug("initializing engine", "adapter_type", dbConfig.Type, "seeds_dir", cfg.SeedsDir)

	return &Engine{
		dbConfig: dbConfig,
		logger:   logger,
		catalog:  catalog,
		vars:     cfg.Vars,
		seedsDir: cfg.SeedsDir,
	}
}

// ensureDBConnected lazily connects to the table store.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to database", "adapter_type", e.dbConfig.Type)

	// Use adapter registry to create the appropriate adapter
	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create database adapter: %w", err)
	}

	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	e.db = db
	e.dbConnected = true

	e.logger.Debug("database connected", "dialect", db.DialectName())

	return nil
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	if e.db != nil {
		if err := e.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}

// Catalog returns the source-table catalog the engine renders against.
func (e *Engine) Catalog() *fql.Catalog {
	return e.catalog
}

// TableMetadata reports schema and row count for a table in the store.
func (e *Engine) TableMetadata(ctx context.Context, table string) (*adapter.TableMetadata, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return e.db.GetTableMetadata(ctx, table)
}

// Query runs a raw SQL statement against the table store.
func (e *Engine) Query(ctx context.Context, sql string) (*adapter.Rows, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return e.db.Query(ctx, sql)
}
