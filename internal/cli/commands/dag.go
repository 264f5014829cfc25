package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/strata/internal/dag"
)

// NewDAGCommand creates the dag command.
func NewDAGCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dag [models...]",
		Short: "Show the dependency graph",
		Long: `Display the dependency graph (DAG) of the registered models
without executing anything.

Models are grouped by execution level: level 0 holds the models with
no parents, each later level the models whose parents all sit in
earlier levels.`,
		Example: `  # Show the whole graph
  strata dag

  # Show the closure of specific models
  strata dag customer_final`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDAG(cmd, args)
		},
	}

	return cmd
}

func runDAG(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	reg, err := projectRegistry()
	if err != nil {
		return err
	}

	roots, err := reg.Resolve(args...)
	if err != nil {
		return err
	}

	graph, err := dag.Build(roots...)
	if err != nil {
		return fmt.Errorf("failed to build model graph: %w", err)
	}

	levels, err := executionLevels(graph)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Level", "Model", "Output", "Depends On", "Used By"})

	edges := 0
	for i, level := range levels {
		for _, name := range level {
			kind, _ := graph.Kind(name)
			output := "derived"
			if kind.Persist() {
				output = "table"
			}
			parents := parentNames(kind)
			edges += len(parents)
			t.AppendRow(table.Row{
				i,
				name,
				output,
				strings.Join(parents, ", "),
				strings.Join(graph.Children(name), ", "),
			})
		}
	}
	t.Render()

	_, _ = fmt.Fprintf(out, "(%d models, %d dependencies)\n", graph.Len(), edges)
	return nil
}

// executionLevels groups models into scheduling waves: level 0 holds
// the zero-parent models, each later level the models unlocked by the
// previous one.
func executionLevels(g *dag.Graph) ([][]string, error) {
	counts := g.ParentCounts()
	current := g.Roots()

	var levels [][]string
	scheduled := 0
	for len(current) > 0 {
		levels = append(levels, current)
		var next []string
		for _, name := range current {
			scheduled++
			for _, child := range g.Children(name) {
				counts[child]--
				if counts[child] == 0 {
					next = append(next, child)
				}
			}
		}
		current = next
	}

	if scheduled < g.Len() {
		if cycle, ok := g.Cycle(); ok {
			return nil, fmt.Errorf("model graph contains a cycle: %s", strings.Join(cycle, " -> "))
		}
		return nil, fmt.Errorf("%d model(s) could not be ordered", g.Len()-scheduled)
	}

	return levels, nil
}
