package engine

// errors.go - Error types surfaced by the run loop

import (
	"fmt"
	"strings"
)

// GraphError reports models that could not be scheduled: everything
// still waiting on a parent after the ready queue drained. Cycle
// carries one dependency cycle when the graph contains any.
type GraphError struct {
	Remaining []string
	Cycle     []string
}

func (e *GraphError) Error() string {
	msg := fmt.Sprintf("%d model(s) could not be scheduled: %s",
		len(e.Remaining), strings.Join(e.Remaining, ", "))
	if len(e.Cycle) > 0 {
		msg += fmt.Sprintf(" (dependency cycle: %s)", strings.Join(e.Cycle, " -> "))
	}
	return msg
}

// MaterializeError reports a failed materialization with everything
// needed to reproduce it by hand: the model, the target table, and the
// rendered SQL that was sent to the store.
type MaterializeError struct {
	Model string
	Table string
	SQL   string
	Err   error
}

func (e *MaterializeError) Error() string {
	return fmt.Sprintf("failed to materialize %s: %v", e.Model, e.Err)
}

func (e *MaterializeError) Unwrap() error { return e.Err }
