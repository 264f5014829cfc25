package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/strata/internal/testutil"
	"github.com/leapstack-labs/strata/pkg/adapter"
	"github.com/leapstack-labs/strata/pkg/fql"
	"github.com/leapstack-labs/strata/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/strata/pkg/adapters/sqlite"
)

// testKind is a configurable model kind for run tests. It counts Query
// invocations so tests can pin down how often a model is derived.
type testKind struct {
	model.Base
	name    string
	persist bool
	slots   []model.Slot
	queries int
	queryFn func(ctx *model.Context, deps model.Deps) (*fql.Query, error)
}

func (k *testKind) Name() string          { return k.name }
func (k *testKind) Persist() bool         { return k.persist }
func (k *testKind) Parents() []model.Slot { return k.slots }

func (k *testKind) Query(ctx *model.Context, deps model.Deps) (*fql.Query, error) {
	k.queries++
	return k.queryFn(ctx, deps)
}

// writeSeeds writes one CSV per table into a fresh temp dir and returns it.
func writeSeeds(t *testing.T, seeds map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range seeds {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".csv"), []byte(content), 0600))
	}
	return dir
}

func newTestEngine(t *testing.T, catalog *fql.Catalog, vars map[string]any, seedsDir string) *Engine {
	t.Helper()
	e := New(Config{
		Adapter:  adapter.Config{Type: "sqlite", Path: ":memory:"},
		Catalog:  catalog,
		Vars:     vars,
		SeedsDir: seedsDir,
		Logger:   testutil.NewTestLogger(t),
	})
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNew_Defaults(t *testing.T) {
	e := New(Config{})

	assert.Equal(t, "duckdb", e.dbConfig.Type, "adapter type should default to duckdb")
	assert.NotNil(t, e.catalog, "catalog should default to an empty catalog")
	assert.NoError(t, e.Close(), "close without connect should not error")
}

func TestRun_ChainMaterializesInOrder(t *testing.T) {
	catalog := fql.NewCatalog(
		fql.NewTable("raw_orders", "order_id", "customer_id", "status"),
	)
	seedsDir := writeSeeds(t, map[string]string{
		"raw_orders": "order_id,customer_id,status\n1,1,completed\n2,1,returned\n3,2,completed",
	})

	stg := &testKind{
		name: "stg_orders",
		queryFn: func(_ *model.Context, _ model.Deps) (*fql.Query, error) {
			return fql.From("raw_orders").
				Select(fql.Col("order_id"), fql.Col("customer_id")), nil
		},
	}
	mart := &testKind{
		name:    "customer_orders",
		persist: true,
		slots:   []model.Slot{{Name: "orders", Parent: stg}},
		queryFn: func(ctx *model.Context, deps model.Deps) (*fql.Query, error) {
			q, err := deps.Query("orders", ctx)
			if err != nil {
				return nil, err
			}
			return q.Group(fql.Col("customer_id")).
				Select(fql.Col("customer_id"), fql.Count(nil).As("order_count")), nil
		},
	}

	e := newTestEngine(t, catalog, nil, seedsDir)
	ctx := context.Background()

	_, err := e.LoadSeeds(ctx)
	require.NoError(t, err)

	report, err := e.Run(ctx, mart)
	require.NoError(t, err)
	require.Equal(t, RunCompleted, report.Status)
	assert.NotEmpty(t, report.ID)
	assert.False(t, report.CompletedAt.IsZero())

	require.Len(t, report.Models, 2)

	assert.Equal(t, "stg_orders", report.Models[0].Model)
	assert.False(t, report.Models[0].Persisted)
	assert.Equal(t, ModelSuccess, report.Models[0].Status)
	assert.Empty(t, report.Models[0].Table)

	assert.Equal(t, "customer_orders", report.Models[1].Model)
	assert.True(t, report.Models[1].Persisted)
	assert.Equal(t, ModelSuccess, report.Models[1].Status)
	assert.Equal(t, "customer_orders", report.Models[1].Table)
	assert.Equal(t, []string{"customer_id", "order_count"}, report.Models[1].Columns)
	assert.Equal(t, int64(2), report.Models[1].Rows)

	// The persistent model exists as a physical table, the derived one does not
	meta, err := e.TableMetadata(ctx, "customer_orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"customer_id", "order_count"}, meta.ColumnNames())

	_, err = e.TableMetadata(ctx, "stg_orders")
	assert.Error(t, err, "derived models must not leave tables behind")
}

func TestRun_SharedAncestorMaterializesOnce(t *testing.T) {
	catalog := fql.NewCatalog(
		fql.NewTable("raw_payments", "payment_id", "order_id", "amount"),
	)
	seedsDir := writeSeeds(t, map[string]string{
		"raw_payments": "payment_id,order_id,amount\n1,1,1000\n2,1,500\n3,2,2300\n4,2,200",
	})

	base := &testKind{
		name:    "payments_base",
		persist: true,
		queryFn: func(_ *model.Context, _ model.Deps) (*fql.Query, error) {
			return fql.From("raw_payments").
				Select(fql.Col("payment_id"), fql.Col("order_id"), fql.Col("amount")), nil
		},
	}
	totals := &testKind{
		name:    "order_totals",
		persist: true,
		slots:   []model.Slot{{Name: "payments", Parent: base}},
		queryFn: func(ctx *model.Context, deps model.Deps) (*fql.Query, error) {
			q, err := deps.Query("payments", ctx)
			if err != nil {
				return nil, err
			}
			return q.Group(fql.Col("order_id")).
				Select(fql.Col("order_id"), fql.Sum(fql.Col("amount")).As("total")), nil
		},
	}
	counts := &testKind{
		name:    "payment_counts",
		persist: true,
		slots:   []model.Slot{{Name: "payments", Parent: base}},
		queryFn: func(ctx *model.Context, deps model.Deps) (*fql.Query, error) {
			q, err := deps.Query("payments", ctx)
			if err != nil {
				return nil, err
			}
			return q.Group(fql.Col("order_id")).
				Select(fql.Col("order_id"), fql.Count(nil).As("n")), nil
		},
	}

	e := newTestEngine(t, catalog, nil, seedsDir)
	ctx := context.Background()

	_, err := e.LoadSeeds(ctx)
	require.NoError(t, err)

	report, err := e.Run(ctx, totals, counts)
	require.NoError(t, err)
	require.Equal(t, RunCompleted, report.Status)

	// The shared parent runs first and exactly once; after that its
	// children fold a table scan instead of re-deriving it.
	require.Len(t, report.Models, 3)
	assert.Equal(t, "payments_base", report.Models[0].Model)
	assert.Equal(t, "order_totals", report.Models[1].Model)
	assert.Equal(t, "payment_counts", report.Models[2].Model)

	assert.Equal(t, 1, base.queries, "shared ancestor should derive exactly once")
	assert.Equal(t, 1, totals.queries)
	assert.Equal(t, 1, counts.queries)

	for _, table := range []string{"payments_base", "order_totals", "payment_counts"} {
		meta, err := e.TableMetadata(ctx, table)
		require.NoError(t, err, "table %s should exist", table)
		assert.Positive(t, meta.RowCount)
	}
}

func TestRun_DiamondSchedulesEachModelOnce(t *testing.T) {
	catalog := fql.NewCatalog(
		fql.NewTable("raw_events", "event_id", "user_id", "day"),
	)
	seedsDir := writeSeeds(t, map[string]string{
		"raw_events": "event_id,user_id,day\n" +
			"1,u1,mon\n2,u1,tue\n3,u2,mon\n4,u2,wed\n5,u3,tue",
	})

	base := &testKind{
		name:    "events_base",
		persist: true,
		queryFn: func(_ *model.Context, _ model.Deps) (*fql.Query, error) {
			return fql.From("raw_events").
				Select(fql.Col("event_id"), fql.Col("user_id"), fql.Col("day")), nil
		},
	}
	byUser := &testKind{
		name:  "events_by_user",
		slots: []model.Slot{{Name: "events", Parent: base}},
		queryFn: func(ctx *model.Context, deps model.Deps) (*fql.Query, error) {
			q, err := deps.Query("events", ctx)
			if err != nil {
				return nil, err
			}
			return q.Group(fql.Col("user_id")).
				Select(fql.Col("user_id"), fql.Count(nil).As("user_events")), nil
		},
	}
	byDay := &testKind{
		name:  "events_by_day",
		slots: []model.Slot{{Name: "events", Parent: base}},
		queryFn: func(ctx *model.Context, deps model.Deps) (*fql.Query, error) {
			q, err := deps.Query("events", ctx)
			if err != nil {
				return nil, err
			}
			return q.Group(fql.Col("day")).
				Select(fql.Col("day"), fql.Count(nil).As("day_events")), nil
		},
	}
	combined := &testKind{
		name:    "events_report",
		persist: true,
		slots: []model.Slot{
			{Name: "by_user", Parent: byUser},
			{Name: "by_day", Parent: byDay},
		},
		queryFn: func(ctx *model.Context, deps model.Deps) (*fql.Query, error) {
			u, err := deps.Query("by_user", ctx)
			if err != nil {
				return nil, err
			}
			d, err := deps.Query("by_day", ctx)
			if err != nil {
				return nil, err
			}
			return u.Join(d.As("d"), fql.Eq(fql.Lit(1), fql.Lit(1))).
				Select(fql.Col("user_id"), fql.Col("user_events"),
					fql.Col("d.day"), fql.Col("d.day_events")), nil
		},
	}

	e := newTestEngine(t, catalog, nil, seedsDir)
	ctx := context.Background()

	_, err := e.LoadSeeds(ctx)
	require.NoError(t, err)

	report, err := e.Run(ctx, combined)
	require.NoError(t, err)
	require.Equal(t, RunCompleted, report.Status)

	require.Len(t, report.Models, 4)
	seen := make(map[string]int)
	for _, r := range report.Models {
		seen[r.Model]++
	}
	for name, n := range seen {
		assert.Equal(t, 1, n, "model %s should be scheduled exactly once", name)
	}

	// The materialized ancestor derives only once; its table reference
	// short-circuits both branches. The derived middle layer is invoked
	// at its own slot and again when the bottom folds it in.
	assert.Equal(t, 1, base.queries)
	assert.Equal(t, 2, byUser.queries)
	assert.Equal(t, 2, byDay.queries)
	assert.Equal(t, 1, combined.queries)

	// 3 users x 3 days
	meta, err := e.TableMetadata(ctx, "events_report")
	require.NoError(t, err)
	assert.Equal(t, []string{"user_id", "user_events", "day", "day_events"}, meta.ColumnNames())
	assert.Equal(t, int64(9), meta.RowCount)
}

func TestRun_MissingVariableFailsAttributably(t *testing.T) {
	catalog := fql.NewCatalog(
		fql.NewTable("raw_payments", "payment_id", "payment_method", "amount"),
	)

	stg := &testKind{
		name: "stg_payments",
		queryFn: func(ctx *model.Context, _ model.Deps) (*fql.Query, error) {
			methods, err := ctx.StringList("payment_methods")
			if err != nil {
				return nil, err
			}
			items := []fql.Expr{fql.Col("payment_id")}
			for _, m := range methods {
				items = append(items, fql.Sum(fql.When(
					fql.Eq(fql.Col("payment_method"), fql.Lit(m)),
					fql.Col("amount"), fql.Lit(0),
				)).As(m+"_amount"))
			}
			return fql.From("raw_payments").Group(fql.Col("payment_id")).Select(items...), nil
		},
	}
	mart := &testKind{
		name:    "customer_totals",
		persist: true,
		slots:   []model.Slot{{Name: "payments", Parent: stg}},
		queryFn: func(ctx *model.Context, deps model.Deps) (*fql.Query, error) {
			return deps.Query("payments", ctx)
		},
	}

	// No vars provided at all
	e := newTestEngine(t, catalog, nil, "")
	ctx := context.Background()

	report, err := e.Run(ctx, mart)
	require.Error(t, err)
	assert.Equal(t, RunFailed, report.Status)

	// The failure surfaces at the model whose query needed the
	// variable, and names both.
	assert.Contains(t, err.Error(), "model stg_payments")
	assert.Contains(t, err.Error(), `"payment_methods"`)

	require.Len(t, report.Models, 2)
	assert.Equal(t, "stg_payments", report.Models[0].Model)
	assert.Equal(t, ModelFailed, report.Models[0].Status)
	assert.Equal(t, "customer_totals", report.Models[1].Model)
	assert.Equal(t, ModelSkipped, report.Models[1].Status)
	assert.Contains(t, report.Models[1].Error, "stg_payments")

	_, err = e.TableMetadata(ctx, "customer_totals")
	assert.Error(t, err, "nothing downstream of the failure may run")
}

func TestRun_CycleFails(t *testing.T) {
	a := &testKind{name: "alpha", persist: true}
	b := &testKind{name: "beta", persist: true}
	a.slots = []model.Slot{{Name: "other", Parent: b}}
	b.slots = []model.Slot{{Name: "other", Parent: a}}
	a.queryFn = func(*model.Context, model.Deps) (*fql.Query, error) { t.Fatal("alpha derived"); return nil, nil }
	b.queryFn = func(*model.Context, model.Deps) (*fql.Query, error) { t.Fatal("beta derived"); return nil, nil }

	e := newTestEngine(t, fql.NewCatalog(), nil, "")

	report, err := e.Run(context.Background(), a)
	require.Error(t, err)
	assert.Equal(t, RunFailed, report.Status)

	var gerr *GraphError
	require.ErrorAs(t, err, &gerr)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, gerr.Remaining)
	require.NotEmpty(t, gerr.Cycle)
	assert.Equal(t, gerr.Cycle[0], gerr.Cycle[len(gerr.Cycle)-1], "cycle path should close on itself")

	require.Len(t, report.Models, 2)
	for _, r := range report.Models {
		assert.Equal(t, ModelSkipped, r.Status)
	}
}

func TestRun_SQLFailureCarriesRenderedSQL(t *testing.T) {
	// The catalog knows the table but the store has never seen it, so
	// the CREATE TABLE AS fails at execution time.
	catalog := fql.NewCatalog(
		fql.NewTable("ghost", "id"),
	)

	haunted := &testKind{
		name:    "haunted",
		persist: true,
		queryFn: func(_ *model.Context, _ model.Deps) (*fql.Query, error) {
			return fql.From("ghost").Select(fql.Col("id")), nil
		},
	}

	e := newTestEngine(t, catalog, nil, "")

	report, err := e.Run(context.Background(), haunted)
	require.Error(t, err)
	assert.Equal(t, RunFailed, report.Status)

	var merr *MaterializeError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "haunted", merr.Model)
	assert.Equal(t, "haunted", merr.Table)
	assert.Contains(t, merr.SQL, `FROM "ghost"`, "error should carry the rendered SQL")
	assert.Error(t, merr.Unwrap())
}

func TestRun_DuplicateKindNameFails(t *testing.T) {
	first := &testKind{name: "twin", queryFn: func(*model.Context, model.Deps) (*fql.Query, error) {
		return fql.From("raw_orders"), nil
	}}
	second := &testKind{name: "twin", persist: true, queryFn: func(*model.Context, model.Deps) (*fql.Query, error) {
		return fql.From("raw_payments"), nil
	}}
	mart := &testKind{
		name:    "combined",
		persist: true,
		slots: []model.Slot{
			{Name: "left", Parent: first},
			{Name: "right", Parent: second},
		},
	}

	e := newTestEngine(t, fql.NewCatalog(), nil, "")

	report, err := e.Run(context.Background(), mart)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `two distinct model kinds named "twin"`)
	assert.Equal(t, RunFailed, report.Status)
	assert.Empty(t, report.Models)
}

func TestRun_UnknownAdapterType(t *testing.T) {
	e := New(Config{
		Adapter: adapter.Config{Type: "warehouse9"},
		Logger:  testutil.NewTestLogger(t),
	})
	t.Cleanup(func() { _ = e.Close() })

	mart := &testKind{name: "anything", persist: true, queryFn: func(*model.Context, model.Deps) (*fql.Query, error) {
		return fql.From("raw"), nil
	}}

	report, err := e.Run(context.Background(), mart)
	require.Error(t, err)
	assert.Equal(t, RunFailed, report.Status)

	var uerr *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "warehouse9", uerr.Type)
}

func TestRun_EmptyRoots(t *testing.T) {
	e := newTestEngine(t, fql.NewCatalog(), nil, "")

	report, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, report.Status)
	assert.Empty(t, report.Models)
}

func TestLoadSeeds(t *testing.T) {
	seedsDir := writeSeeds(t, map[string]string{
		"raw_customers": "id,first_name\n1,Michael\n2,Shawn",
		"raw_orders":    "id,user_id,status\n1,1,completed",
	})

	e := newTestEngine(t, fql.NewCatalog(), nil, seedsDir)
	ctx := context.Background()

	tables, err := e.LoadSeeds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"raw_customers", "raw_orders"}, tables)

	meta, err := e.TableMetadata(ctx, "raw_customers")
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.RowCount)
}

func TestLoadSeeds_NoSeedsDir(t *testing.T) {
	e := newTestEngine(t, fql.NewCatalog(), nil, "")

	tables, err := e.LoadSeeds(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, tables)
}

func TestLoadSeeds_NonexistentSeedsDir(t *testing.T) {
	e := newTestEngine(t, fql.NewCatalog(), nil, filepath.Join(t.TempDir(), "nonexistent"))

	tables, err := e.LoadSeeds(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, tables)
}

func TestEngine_Close(t *testing.T) {
	e := newTestEngine(t, fql.NewCatalog(), nil, "")

	// Force a connection, then close twice
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.NoError(t, e.Close())
	assert.NoError(t, e.Close())
}

// Guard against accidental use of errors.Is semantics on report errors.
func TestMaterializeError_Message(t *testing.T) {
	err := &MaterializeError{
		Model: "orders_final",
		Table: "orders_final",
		SQL:   `SELECT "x" FROM "y"`,
		Err:   errors.New("no such table: y"),
	}
	assert.Equal(t, "failed to materialize orders_final: no such table: y", err.Error())
}

func TestGraphError_Message(t *testing.T) {
	err := &GraphError{
		Remaining: []string{"alpha", "beta"},
		Cycle:     []string{"alpha", "beta", "alpha"},
	}
	assert.Equal(t,
		"2 model(s) could not be scheduled: alpha, beta (dependency cycle: alpha -> beta -> alpha)",
		err.Error())
}
