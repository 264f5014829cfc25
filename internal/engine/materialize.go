package engine

// materialize.go - The materialization gate for persistent models

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/strata/pkg/adapter"
	"github.com/leapstack-labs/strata/pkg/fql"
	"github.com/leapstack-labs/strata/pkg/model"
)

// materialize renders the instance's derived query, writes the result
// to a physical table named after the model, and binds the created
// table back onto the instance. CREATE TABLE AS persists the rendered
// SELECT's column order, so the introspected order matches the query's
// projection.
func (e *Engine) materialize(ctx context.Context, mctx *model.Context, inst *model.Instance) (*adapter.TableMetadata, error) {
	name := inst.Kind().Name()

	out, err := inst.Output(mctx)
	if err != nil {
		return nil, &MaterializeError{Model: name, Err: err}
	}

	derived, ok := out.(model.Derived)
	if !ok {
		return nil, &MaterializeError{Model: name, Err: fmt.Errorf("expected a derived query, got %T", out)}
	}

	sql, err := fql.Render(derived.Query, e.catalog)
	if err != nil {
		return nil, &MaterializeError{Model: name, Err: fmt.Errorf("failed to render query: %w", err)}
	}

	table := name
	e.logger.Debug("materializing model", "model", name, "table", table)

	// Drop existing table; a failure here surfaces on the create below
	_ = e.db.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))

	if err := e.db.Exec(ctx, fmt.Sprintf("CREATE TABLE %s AS %s", table, sql)); err != nil {
		return nil, &MaterializeError{Model: name, Table: table, SQL: sql, Err: err}
	}

	meta, err := e.db.GetTableMetadata(ctx, table)
	if err != nil {
		return nil, &MaterializeError{Model: name, Table: table, SQL: sql,
			Err: fmt.Errorf("failed to introspect created table: %w", err)}
	}

	inst.Materialize(fql.NewTable(table, meta.ColumnNames()...))

	return meta, nil
}
