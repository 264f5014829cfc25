package commands

import (
	"log/slog"
	"maps"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/strata/internal/config"
	"github.com/leapstack-labs/strata/internal/engine"
	"github.com/leapstack-labs/strata/internal/jaffle"
	"github.com/leapstack-labs/strata/internal/registry"
	"github.com/leapstack-labs/strata/pkg/fql"
	"github.com/leapstack-labs/strata/pkg/model"

	// Register the table-store adapters.
	_ "github.com/leapstack-labs/strata/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/strata/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/strata/pkg/adapters/sqlite"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Engine *engine.Engine
}

// NewCommandContext creates a CommandContext with a lazily connected
// engine. Returns the context and a cleanup function that must be
// called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func()) {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	eng := engine.New(engine.Config{
		Adapter:  cfg.Target.AdapterConfig(),
		Catalog:  sourceCatalog(cfg),
		Vars:     runVars(cfg),
		SeedsDir: cfg.SeedsDir,
		Logger:   logger,
	})

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{
		Cfg:    cfg,
		Logger: logger,
		Engine: eng,
	}, cleanup
}

// projectRegistry returns the model registry for the bundled demo
// project.
func projectRegistry() (*registry.Registry, error) {
	r := registry.New()
	if err := jaffle.Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

// sourceCatalog resolves the source-table catalog: the sources declared
// in strata.yaml when present, otherwise the demo project's.
func sourceCatalog(cfg *config.Config) *fql.Catalog {
	if len(cfg.Sources) > 0 {
		return cfg.Catalog()
	}
	return jaffle.Catalog()
}

// runVars merges the demo project's default variables with the ones
// declared in strata.yaml. Configured values win.
func runVars(cfg *config.Config) map[string]any {
	vars := jaffle.DefaultVars()
	maps.Copy(vars, cfg.Vars)
	return vars
}

// parentNames returns the names of a kind's parents in slot order.
func parentNames(kind model.Kind) []string {
	slots := kind.Parents()
	names := make([]string, len(slots))
	for i, slot := range slots {
		names[i] = slot.Parent.Name()
	}
	return names
}
