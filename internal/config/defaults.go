package config

// Default configuration values.
const (
	DefaultTargetType = "duckdb"
	DefaultSeedsDir   = "seeds"
)

// ApplyTargetDefaults applies default values to a TargetConfig based on
// the target type.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultTargetType
	}
	if t.Type == "postgres" {
		if t.Port == 0 {
			t.Port = 5432
		}
		if t.Schema == "" {
			t.Schema = "public"
		}
	}
}
