package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSQLAdapter_Close(t *testing.T) {
	t.Run("close with nil DB", func(t *testing.T) {
		base := &BaseSQLAdapter{}
		assert.NoError(t, base.Close())
	})

	t.Run("close with open DB", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		mock.ExpectClose()

		base := &BaseSQLAdapter{DB: db}
		assert.NoError(t, base.Close())
	})
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		expectErr bool
		errMsg    string
	}{
		{
			name:      "exec without connection",
			setupDB:   false,
			sql:       "SELECT 1",
			expectErr: true,
			errMsg:    "database connection not established",
		},
		{
			name:    "exec success",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE orders").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			sql:       "CREATE TABLE orders (id INT)",
			expectErr: false,
		},
		{
			name:    "exec with error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INVALID SQL").WillReturnError(assert.AnError)
			},
			sql:       "INVALID SQL",
			expectErr: true,
			errMsg:    "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()

				if tt.setupMock != nil {
					tt.setupMock(mock)
				}
				base.DB = db
			}

			err := base.Exec(ctx, tt.sql)
			if tt.expectErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBaseSQLAdapter_Query(t *testing.T) {
	t.Run("query without connection", func(t *testing.T) {
		base := &BaseSQLAdapter{}
		rows, err := base.Query(context.Background(), "SELECT 1")
		require.Error(t, err)
		assert.Nil(t, rows)
		assert.Contains(t, err.Error(), "database connection not established")
	})

	t.Run("query preserves column order", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT").WillReturnRows(
			sqlmock.NewRows([]string{"order_id", "customer_id", "amount"}))

		base := &BaseSQLAdapter{DB: db}
		rows, err := base.Query(context.Background(), "SELECT * FROM order_payments LIMIT 0")
		require.NoError(t, err)
		defer func() { _ = rows.Close() }()

		cols, err := rows.Columns()
		require.NoError(t, err)
		assert.Equal(t, []string{"order_id", "customer_id", "amount"}, cols)
	})

	t.Run("query with error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("INVALID").WillReturnError(assert.AnError)

		base := &BaseSQLAdapter{DB: db}
		_, err = base.Query(context.Background(), "INVALID SQL")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to execute query")
	})
}

func TestBaseSQLAdapter_GetTableMetadataCommon(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("main", "orders_final").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
			AddRow("order_id", "BIGINT", "YES", 1).
			AddRow("amount", "BIGINT", "YES", 2))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(99))

	base := &BaseSQLAdapter{DB: db}
	placeholder := func(int) string { return "?" }

	meta, err := base.GetTableMetadataCommon(context.Background(), "orders_final", "main", placeholder)
	require.NoError(t, err)
	assert.Equal(t, "orders_final", meta.Name)
	assert.Equal(t, "main", meta.Schema)
	assert.Equal(t, []string{"order_id", "amount"}, meta.ColumnNames())
	assert.Equal(t, int64(99), meta.RowCount)
}

func TestParseQualifiedName(t *testing.T) {
	schema, name := ParseQualifiedName("analytics.orders", "main")
	assert.Equal(t, "analytics", schema)
	assert.Equal(t, "orders", name)

	schema, name = ParseQualifiedName("orders", "main")
	assert.Equal(t, "main", schema)
	assert.Equal(t, "orders", name)
}

func TestBaseSQLAdapter_IsConnected(t *testing.T) {
	base := &BaseSQLAdapter{}
	assert.False(t, base.IsConnected())

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	base.DB = db
	assert.True(t, base.IsConnected())
}
