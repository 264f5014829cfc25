package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/strata/internal/config"
	"github.com/leapstack-labs/strata/pkg/semantic"
)

// NewGrainsCommand creates the grains command.
func NewGrainsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grains",
		Short: "Work with the semantic grains file",
		Long: `Inspect and validate the semantic grains file.

Grains declare how materialized tables are queried for analytics:
their dimensions, metrics, and joins to other grains.`,
	}

	cmd.AddCommand(newGrainsValidateCommand())

	return cmd
}

func newGrainsValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a grains file",
		Long: `Parse a grains file and check every grain, dimension, metric,
and join against the semantic rules.`,
		Example: `  # Validate the configured grains file
  strata grains validate

  # Validate a specific file
  strata grains validate ./metrics/grains.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrainsValidate(cmd, args)
		},
	}
}

func runGrainsValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := config.GetConfig(cmd.Context())

	path := cfg.Grains
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no grains file configured (set grains in strata.yaml or pass a path)")
	}

	grains, err := semantic.Load(path)
	if err != nil {
		return err
	}

	if len(grains) == 0 {
		_, _ = fmt.Fprintln(out, mutedStyle.Render("No grains declared in "+path))
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Grain", "Table", "Dimensions", "Metrics", "Joins"})

	for _, g := range grains {
		tableName := g.Table
		if tableName == "" {
			tableName = g.DerivedTable + " (derived)"
		}
		t.AppendRow(table.Row{g.Name, tableName, len(g.Dimensions), len(g.Metrics), len(g.Joins)})
	}
	t.Render()

	_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ %d grain(s) valid", len(grains))))
	return nil
}
