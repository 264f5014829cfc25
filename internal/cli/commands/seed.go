package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load seed data from CSV files",
		Long: `Load seed data from CSV files in the seeds directory into the
table store, one table per file, named after the file.

Seeds are the raw source tables models derive from. Reloading a seed
replaces the existing table.`,
		Example: `  # Load all seeds
  strata seed

  # Load seeds from a specific directory
  strata seed --seeds-dir ./data/seeds`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd)
		},
	}

	return cmd
}

func runSeed(cmd *cobra.Command) error {
	cmdCtx, cleanup := NewCommandContext(cmd)
	defer cleanup()

	eng := cmdCtx.Engine
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	tables, err := eng.LoadSeeds(ctx)
	if err != nil {
		return fmt.Errorf("failed to load seeds: %w", err)
	}

	if len(tables) == 0 {
		_, _ = fmt.Fprintln(out, mutedStyle.Render("No seed files found in "+cmdCtx.Cfg.SeedsDir))
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Rows", "Columns"})

	for _, name := range tables {
		meta, err := eng.TableMetadata(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to inspect seed table %s: %w", name, err)
		}
		t.AppendRow(table.Row{name, meta.RowCount, strings.Join(meta.ColumnNames(), ", ")})
	}
	t.Render()

	_, _ = fmt.Fprintf(out, "(%d seeds loaded from %s)\n", len(tables), cmdCtx.Cfg.SeedsDir)
	return nil
}
