package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/strata/internal/engine"
	"github.com/leapstack-labs/strata/internal/jaffle"
	"github.com/leapstack-labs/strata/pkg/model"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Select string
	JSON   bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run models in dependency order",
		Long: `Schedule and execute models in dependency order.

By default, runs the demo project's mart models and everything they
depend on. Use --select to run specific models; their upstream
dependencies are always included.`,
		Example: `  # Run the demo project
  strata run

  # Run specific models (plus their upstream dependencies)
  strata run --select customer_final,orders_final

  # Emit the run report as JSON for CI/CD integration
  strata run --json`,
		Aliases: []string{"build"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Select, "select", "s", "", "Comma-separated list of models to run")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output the run report as JSON")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cmdCtx, cleanup := NewCommandContext(cmd)
	defer cleanup()

	eng := cmdCtx.Engine
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	start := time.Now()

	roots, err := selectedRoots(opts.Select)
	if err != nil {
		return err
	}

	seeds, err := eng.LoadSeeds(ctx)
	if err != nil {
		return fmt.Errorf("failed to load seeds: %w", err)
	}
	if !opts.JSON && len(seeds) > 0 {
		_, _ = fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("Loaded %d seeds from %s", len(seeds), cmdCtx.Cfg.SeedsDir)))
	}

	report, runErr := eng.Run(ctx, roots...)

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		return runErr
	}

	printReport(out, report, time.Since(start))
	return runErr
}

// selectedRoots resolves the --select list against the registry, or
// falls back to the demo project's marts.
func selectedRoots(selectList string) ([]model.Kind, error) {
	if selectList == "" {
		return jaffle.Roots(), nil
	}

	reg, err := projectRegistry()
	if err != nil {
		return nil, err
	}

	names := strings.Split(selectList, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	return reg.Resolve(names...)
}

// printReport writes per-model results in scheduling order, then the
// run summary.
func printReport(out io.Writer, report *engine.Report, elapsed time.Duration) {
	var success, failed, skipped int
	for _, m := range report.Models {
		glyph := "✓"
		switch m.Status {
		case engine.ModelFailed:
			glyph = "✗"
			failed++
		case engine.ModelSkipped:
			glyph = "-"
			skipped++
		default:
			success++
		}

		var detail string
		switch {
		case m.Status == engine.ModelSuccess && m.Persisted:
			detail = fmt.Sprintf("%s (%d rows in %s)", m.Table, m.Rows, m.Duration.Round(time.Millisecond))
		case m.Status == engine.ModelSuccess:
			detail = mutedStyle.Render("derived")
		default:
			detail = statusStyle(m.Status).Render(m.Error)
		}

		_, _ = fmt.Fprintf(out, "  %s %s %s\n",
			statusStyle(m.Status).Render(glyph),
			modelStyle.Render(fmt.Sprintf("%-24s", m.Model)),
			detail)
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Run %s: %s", report.ID, report.Status)))
	_, _ = fmt.Fprintf(out, "%d succeeded, %d failed, %d skipped\n", success, failed, skipped)
	_, _ = fmt.Fprintf(out, "Completed in %s\n", elapsed.Round(time.Millisecond))
}
