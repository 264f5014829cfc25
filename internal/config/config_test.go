package config

import (
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	// Register adapters so target validation sees them.
	_ "github.com/leapstack-labs/strata/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/strata/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/strata/pkg/adapters/sqlite"
)

func TestTargetConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		target    TargetConfig
		wantErr   bool
		errSubstr string
	}{
		{
			name:      "empty type",
			target:    TargetConfig{Type: ""},
			wantErr:   true,
			errSubstr: "target type is required",
		},
		{
			name:    "valid sqlite",
			target:  TargetConfig{Type: "sqlite"},
			wantErr: false,
		},
		{
			name:    "valid duckdb uppercase",
			target:  TargetConfig{Type: "DuckDB"},
			wantErr: false,
		},
		{
			name:      "unknown type mysql",
			target:    TargetConfig{Type: "mysql"},
			wantErr:   true,
			errSubstr: "unknown adapter type",
		},
		{
			name:      "unknown type oracle",
			target:    TargetConfig{Type: "oracle"},
			wantErr:   true,
			errSubstr: "unknown adapter type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got nil")
				}
				if tt.errSubstr != "" && !strings.Contains(err.Error(), tt.errSubstr) {
					t.Errorf("error %q should contain %q", err.Error(), tt.errSubstr)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTargetConfig_Validate_ErrorContainsAvailable(t *testing.T) {
	target := TargetConfig{Type: "invalid_db"}
	err := target.Validate()
	if err == nil {
		t.Fatal("expected error for invalid type")
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "sqlite") {
		t.Errorf("error should list available adapters, got: %s", errStr)
	}
	if !strings.Contains(errStr, "strata.yaml") {
		t.Errorf("error should mention config file, got: %s", errStr)
	}
}

func TestApplyTargetDefaults(t *testing.T) {
	t.Run("empty type defaults to duckdb", func(t *testing.T) {
		target := &TargetConfig{}
		ApplyTargetDefaults(target)
		if target.Type != "duckdb" {
			t.Errorf("expected type 'duckdb', got %q", target.Type)
		}
	})

	t.Run("postgres gets port and schema", func(t *testing.T) {
		target := &TargetConfig{Type: "postgres"}
		ApplyTargetDefaults(target)
		if target.Port != 5432 {
			t.Errorf("expected port 5432, got %d", target.Port)
		}
		if target.Schema != "public" {
			t.Errorf("expected schema 'public', got %q", target.Schema)
		}
	})

	t.Run("existing values are preserved", func(t *testing.T) {
		target := &TargetConfig{Type: "postgres", Port: 5433, Schema: "analytics"}
		ApplyTargetDefaults(target)
		if target.Port != 5433 {
			t.Errorf("expected port 5433 to be preserved, got %d", target.Port)
		}
		if target.Schema != "analytics" {
			t.Errorf("expected schema 'analytics' to be preserved, got %q", target.Schema)
		}
	})
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")
	t.Setenv("TEST_VAR_TWO", "value_two")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single variable",
			input:    "${TEST_VAR_ONE}",
			expected: "value_one",
		},
		{
			name:     "variable in path",
			input:    "/path/to/${TEST_VAR_ONE}/file",
			expected: "/path/to/value_one/file",
		},
		{
			name:     "unset variable stays as-is",
			input:    "${UNSET_VARIABLE}",
			expected: "${UNSET_VARIABLE}",
		},
		{
			name:     "no variables",
			input:    "plain string",
			expected: "plain string",
		},
		{
			name:     "mixed set and unset",
			input:    "${TEST_VAR_ONE}:${UNSET_VAR}",
			expected: "value_one:${UNSET_VAR}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandEnvVars(tt.input)
			if got != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoad_Fixtures(t *testing.T) {
	t.Run("valid sqlite config", func(t *testing.T) {
		cfgPath := filepath.Join("testdata", "valid_sqlite.yaml")
		cfg, err := Load(cfgPath, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Target.Type != "sqlite" {
			t.Errorf("expected target type 'sqlite', got %q", cfg.Target.Type)
		}
		if cfg.Target.Path != ":memory:" {
			t.Errorf("expected path ':memory:', got %q", cfg.Target.Path)
		}

		// Relative paths resolve against the config file's directory
		if want := filepath.Join("testdata", "seeds"); cfg.SeedsDir != want {
			t.Errorf("expected seeds_dir %q, got %q", want, cfg.SeedsDir)
		}
		if want := filepath.Join("testdata", "grains.yaml"); cfg.Grains != want {
			t.Errorf("expected grains %q, got %q", want, cfg.Grains)
		}

		if cols := cfg.Sources["raw_orders"]; !slices.Equal(cols, []string{"id", "user_id", "order_date", "status"}) {
			t.Errorf("unexpected raw_orders columns: %v", cols)
		}
		methods, ok := cfg.Vars["payment_methods"].([]any)
		if !ok || len(methods) != 2 {
			t.Errorf("unexpected payment_methods var: %v", cfg.Vars["payment_methods"])
		}
	})

	t.Run("unknown target type", func(t *testing.T) {
		cfgPath := filepath.Join("testdata", "invalid_unknown_type.yaml")
		_, err := Load(cfgPath, nil)
		if err == nil {
			t.Fatal("expected error for unknown type, got nil")
		}
		if !strings.Contains(err.Error(), "invalid target configuration") {
			t.Errorf("error should mention invalid target configuration, got: %s", err.Error())
		}
		if !strings.Contains(err.Error(), "mysql") {
			t.Errorf("error should mention the invalid type 'mysql', got: %s", err.Error())
		}
	})

	t.Run("source without columns", func(t *testing.T) {
		cfgPath := filepath.Join("testdata", "invalid_no_columns.yaml")
		_, err := Load(cfgPath, nil)
		if err == nil {
			t.Fatal("expected error for empty source, got nil")
		}
		if !strings.Contains(err.Error(), "source raw_orders declares no columns") {
			t.Errorf("error should name the empty source, got: %s", err.Error())
		}
	})

	t.Run("credentials expand env vars", func(t *testing.T) {
		t.Setenv("TEST_PG_HOST", "db.internal")
		t.Setenv("TEST_PG_USER", "analytics")
		t.Setenv("TEST_PG_PASSWORD", "secret123")

		cfgPath := filepath.Join("testdata", "valid_env_vars.yaml")
		cfg, err := Load(cfgPath, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Target.Host != "db.internal" {
			t.Errorf("expected host 'db.internal', got %q", cfg.Target.Host)
		}
		if cfg.Target.Username != "analytics" {
			t.Errorf("expected username 'analytics', got %q", cfg.Target.Username)
		}
		if cfg.Target.Password != "secret123" {
			t.Errorf("expected password 'secret123', got %q", cfg.Target.Password)
		}
		if cfg.Target.Port != 5432 {
			t.Errorf("expected defaulted port 5432, got %d", cfg.Target.Port)
		}
	})

	t.Run("nonexistent explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join("testdata", "nonexistent.yaml"), nil)
		if err == nil {
			t.Fatal("expected error for missing config file, got nil")
		}
		if !strings.Contains(err.Error(), "error reading config file") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	// No config file in the package directory, so everything defaults.
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Target.Type != "duckdb" {
		t.Errorf("expected default target type 'duckdb', got %q", cfg.Target.Type)
	}
	if cfg.SeedsDir != "seeds" {
		t.Errorf("expected default seeds_dir 'seeds', got %q", cfg.SeedsDir)
	}
	if cfg.Verbose {
		t.Error("verbose should default to false")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("STRATA_TARGET__TYPE", "sqlite")
	t.Setenv("STRATA_TARGET__PATH", "/tmp/strata-test.db")
	t.Setenv("STRATA_SEEDS_DIR", "/srv/seeds")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Target.Type != "sqlite" {
		t.Errorf("expected env-provided type 'sqlite', got %q", cfg.Target.Type)
	}
	if cfg.Target.Path != "/tmp/strata-test.db" {
		t.Errorf("expected env-provided path, got %q", cfg.Target.Path)
	}
	if cfg.SeedsDir != "/srv/seeds" {
		t.Errorf("expected env-provided seeds_dir, got %q", cfg.SeedsDir)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	t.Setenv("STRATA_SEEDS_DIR", "/from/env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("seeds-dir", "", "")
	flags.Bool("verbose", false, "")
	if err := flags.Set("seeds-dir", "/from/flag"); err != nil {
		t.Fatal(err)
	}
	if err := flags.Set("verbose", "true"); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(filepath.Join("testdata", "valid_sqlite.yaml"), flags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.SeedsDir != "/from/flag" {
		t.Errorf("flags should beat env vars and file, got %q", cfg.SeedsDir)
	}
	if !cfg.Verbose {
		t.Error("verbose flag should be applied")
	}
}

func TestConfig_Catalog(t *testing.T) {
	cfg := &Config{
		Sources: map[string][]string{
			"raw_orders":    {"id", "user_id"},
			"raw_customers": {"id", "first_name"},
		},
	}

	cat := cfg.Catalog()
	if !slices.Equal(cat.Names(), []string{"raw_customers", "raw_orders"}) {
		t.Errorf("unexpected catalog tables: %v", cat.Names())
	}

	orders, ok := cat.Table("raw_orders")
	if !ok {
		t.Fatal("raw_orders missing from catalog")
	}
	if !slices.Equal(orders.Columns, []string{"id", "user_id"}) {
		t.Errorf("unexpected raw_orders columns: %v", orders.Columns)
	}
}

func TestTargetConfig_AdapterConfig(t *testing.T) {
	target := TargetConfig{
		Type:     "Postgres",
		Host:     "localhost",
		Port:     5433,
		Database: "analytics",
		Username: "svc",
		Password: "pw",
		Schema:   "public",
		Options:  map[string]string{"sslmode": "disable"},
	}

	got := target.AdapterConfig()
	if got.Type != "postgres" {
		t.Errorf("type should be lowercased, got %q", got.Type)
	}
	if got.Host != "localhost" || got.Port != 5433 || got.Database != "analytics" {
		t.Errorf("connection fields not carried over: %+v", got)
	}
	if got.Options["sslmode"] != "disable" {
		t.Errorf("options not carried over: %+v", got.Options)
	}
}
