package engine

// seeds.go - CSV seed data loading

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadSeeds loads all CSV files from the seeds directory into the
// table store, one table per file, named after the file. It returns
// the loaded table names in load order.
func (e *Engine) LoadSeeds(ctx context.Context) ([]string, error) {
	if e.seedsDir == "" {
		return nil, nil
	}

	e.logger.Debug("loading seeds", "seeds_dir", e.seedsDir)

	// Ensure database is connected before loading seeds
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(e.seedsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No seeds directory is OK
		}
		return nil, fmt.Errorf("failed to read seeds directory: %w", err)
	}

	var tables []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}

		tableName := strings.TrimSuffix(entry.Name(), ".csv")
		csvPath := filepath.Join(e.seedsDir, entry.Name())

		e.logger.Debug("loading seed file", "table", tableName, "path", csvPath)

		if err := e.db.LoadCSV(ctx, tableName, csvPath); err != nil {
			return tables, fmt.Errorf("failed to load seed %s: %w", entry.Name(), err)
		}
		tables = append(tables, tableName)
	}

	return tables, nil
}
