package engine

// run.go - Run orchestration: closure expansion and dependency-ordered scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/strata/internal/dag"
	"github.com/leapstack-labs/strata/pkg/model"
)

// Run and model statuses reported on a Report.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"

	ModelSuccess = "success"
	ModelFailed  = "failed"
	ModelSkipped = "skipped"
)

// Report summarizes one engine run.
type Report struct {
	ID          string        `json:"id"`
	Status      string        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Error       string        `json:"error,omitempty"`
	Models      []ModelResult `json:"models"`
}

// ModelResult records the outcome of scheduling one model, in
// scheduling order.
type ModelResult struct {
	Model     string        `json:"model"`
	Persisted bool          `json:"persisted"`
	Table     string        `json:"table,omitempty"`
	Columns   []string      `json:"columns,omitempty"`
	Rows      int64         `json:"rows"`
	Duration  time.Duration `json:"duration_ns"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
}

// Run expands the dependency closure of the roots and schedules every
// model in it exactly once, parents before children. Each model is
// invoked at its own slot: persistent models are materialized into
// physical tables, derived models have their query produced and
// discarded, staying logical until a dependent folds them in. The
// first failure aborts the run and marks everything not yet scheduled
// as skipped.
func (e *Engine) Run(ctx context.Context, roots ...model.Kind) (*Report, error) {
	report := &Report{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}

	e.logger.Info("starting run", "run_id", report.ID, "roots", len(roots))

	graph, err := dag.Build(roots...)
	if err != nil {
		return e.fail(report, fmt.Errorf("failed to build model graph: %w", err))
	}

	if err := e.ensureDBConnected(ctx); err != nil {
		return e.fail(report, err)
	}

	e.logger.Debug("model graph built", "models", graph.Len())

	mctx := model.NewContext(e.catalog, e.vars)
	counts := graph.ParentCounts()
	instances := make(map[string]*model.Instance, graph.Len())
	scheduled := make(map[string]bool, graph.Len())

	queue := graph.Roots()
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		scheduled[name] = true

		kind, _ := graph.Kind(name)

		parents := make(map[string]*model.Instance)
		for _, slot := range kind.Parents() {
			parents[slot.Name] = instances[slot.Parent.Name()]
		}
		inst := model.NewInstance(kind, parents)
		instances[name] = inst

		result := ModelResult{
			Model:     name,
			Persisted: kind.Persist(),
			Status:    ModelSuccess,
		}

		if kind.Persist() {
			start := time.Now()
			meta, err := e.materialize(ctx, mctx, inst)
			result.Duration = time.Since(start)

			if err != nil {
				e.logger.Debug("model failed", "run_id", report.ID, "model", name, "error", err)
				result.Status = ModelFailed
				result.Error = err.Error()
				report.Models = append(report.Models, result)
				e.skipRemaining(report, graph, scheduled, fmt.Sprintf("skipped: upstream model %s failed", name))
				return e.fail(report, err)
			}

			result.Table = meta.Name
			result.Columns = meta.ColumnNames()
			result.Rows = meta.RowCount
			e.logger.Info("model materialized", "run_id", report.ID, "model", name,
				"table", meta.Name, "rows", meta.RowCount, "duration_ms", result.Duration.Milliseconds())
		} else {
			// Derived models are invoked once here too. The query is
			// discarded, so a derivation failure is attributed to this
			// model; dependents re-derive it when they fold it in.
			start := time.Now()
			_, err := inst.Output(mctx)
			result.Duration = time.Since(start)

			if err != nil {
				e.logger.Debug("model failed", "run_id", report.ID, "model", name, "error", err)
				result.Status = ModelFailed
				result.Error = err.Error()
				report.Models = append(report.Models, result)
				e.skipRemaining(report, graph, scheduled, fmt.Sprintf("skipped: upstream model %s failed", name))
				return e.fail(report, err)
			}

			e.logger.Debug("model derived", "run_id", report.ID, "model", name, "state", inst.State().String())
		}

		report.Models = append(report.Models, result)

		for _, child := range graph.Children(name) {
			counts[child]--
			if counts[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	// Every model must have been scheduled; leftovers mean the graph
	// holds a cycle (or an internal bookkeeping defect).
	if len(scheduled) < graph.Len() {
		gerr := &GraphError{}
		for _, name := range graph.Names() {
			if !scheduled[name] {
				gerr.Remaining = append(gerr.Remaining, name)
			}
		}
		if cycle, ok := graph.Cycle(); ok {
			gerr.Cycle = cycle
		}
		e.skipRemaining(report, graph, scheduled, "skipped: not schedulable")
		return e.fail(report, gerr)
	}

	report.Status = RunCompleted
	report.CompletedAt = time.Now()
	e.logger.Info("run completed", "run_id", report.ID, "models", len(report.Models))
	return report, nil
}

// skipRemaining records a skipped result for every model not yet
// scheduled, in discovery order.
func (e *Engine) skipRemaining(report *Report, graph *dag.Graph, scheduled map[string]bool, reason string) {
	for _, name := range graph.Names() {
		if scheduled[name] {
			continue
		}
		kind, _ := graph.Kind(name)
		report.Models = append(report.Models, ModelResult{
			Model:     name,
			Persisted: kind.Persist(),
			Status:    ModelSkipped,
			Error:     reason,
		})
	}
}

// fail completes the report as failed.
func (e *Engine) fail(report *Report, err error) (*Report, error) {
	report.Status = RunFailed
	report.Error = err.Error()
	report.CompletedAt = time.Now()
	e.logger.Info("run failed", "run_id", report.ID, "error", err.Error())
	return report, err
}
