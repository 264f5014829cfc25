// Package semantic declares the metrics layer: grains describe how a
// materialized table is queried for analytics. Declarations are loaded
// from YAML and validated; nothing here executes SQL.
package semantic

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DimensionType classifies a dimension's value domain.
type DimensionType string

const (
	DimensionNumber    DimensionType = "number"
	DimensionString    DimensionType = "string"
	DimensionBool      DimensionType = "bool"
	DimensionTimestamp DimensionType = "timestamp"
)

// MetricType names the aggregation a metric applies to its column.
// The "number" type marks a metric computed from other metrics.
type MetricType string

const (
	MetricAvg           MetricType = "avg"
	MetricCount         MetricType = "count"
	MetricCountDistinct MetricType = "count_distinct"
	MetricMax           MetricType = "max"
	MetricMin           MetricType = "min"
	MetricSum           MetricType = "sum"
	MetricNumber        MetricType = "number"
)

// JoinType states the cardinality between two grains.
type JoinType string

const (
	OneToOne  JoinType = "1:1"
	OneToMany JoinType = "1:N"
	ManyToOne JoinType = "N:1"
)

var validDimensionTypes = map[DimensionType]bool{
	DimensionNumber:    true,
	DimensionString:    true,
	DimensionBool:      true,
	DimensionTimestamp: true,
}

var validMetricTypes = map[MetricType]bool{
	MetricAvg:           true,
	MetricCount:         true,
	MetricCountDistinct: true,
	MetricMax:           true,
	MetricMin:           true,
	MetricSum:           true,
	MetricNumber:        true,
}

var validJoinTypes = map[JoinType]bool{
	OneToOne:  true,
	OneToMany: true,
	ManyToOne: true,
}

// Dimension is a column an analyst groups or filters by.
type Dimension struct {
	Name        string        `yaml:"name"`
	Type        DimensionType `yaml:"type"`
	Column      string        `yaml:"column"`
	PrimaryKey  bool          `yaml:"primary_key"`
	Description string        `yaml:"description"`
}

// Metric is an aggregation over the grain's rows.
type Metric struct {
	Name        string     `yaml:"name"`
	Type        MetricType `yaml:"type"`
	Column      string     `yaml:"column"`
	Description string     `yaml:"description"`
}

// Join relates this grain to another one.
type Join struct {
	Name  string   `yaml:"name"`
	Grain string   `yaml:"grain"`
	Type  JoinType `yaml:"type"`
	On    string   `yaml:"on"`
}

// Grain declares the semantic shape of one table: its dimensions,
// metrics, and joins to other grains. Exactly one of Table and
// DerivedTable names the source.
type Grain struct {
	Name         string      `yaml:"name"`
	Table        string      `yaml:"table"`
	DerivedTable string      `yaml:"derived_table"`
	Description  string      `yaml:"description"`
	Dimensions   []Dimension `yaml:"dimensions"`
	Metrics      []Metric    `yaml:"metrics"`
	Joins        []Join      `yaml:"joins"`
}

// Validate checks the grain's internal consistency. Errors name the
// grain so a file-level caller can report them directly.
func (g *Grain) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("grain has no name")
	}

	if g.Table != "" && g.DerivedTable != "" {
		return fmt.Errorf("grain %s: only one of table or derived_table can be set", g.Name)
	}
	if g.Table == "" && g.DerivedTable == "" {
		return fmt.Errorf("grain %s: either table or derived_table must be set", g.Name)
	}

	primaryKeys := 0
	dimensions := make(map[string]bool)
	for _, d := range g.Dimensions {
		if d.Name == "" {
			return fmt.Errorf("grain %s: dimension has no name", g.Name)
		}
		if dimensions[d.Name] {
			return fmt.Errorf("grain %s: duplicate dimension %q", g.Name, d.Name)
		}
		dimensions[d.Name] = true

		if !validDimensionTypes[d.Type] {
			return fmt.Errorf("grain %s: dimension %q has invalid type %q (must be one of: number, string, bool, timestamp)",
				g.Name, d.Name, d.Type)
		}
		if d.Column == "" {
			return fmt.Errorf("grain %s: dimension %q has no column", g.Name, d.Name)
		}
		if d.PrimaryKey {
			primaryKeys++
		}
	}
	if primaryKeys > 1 {
		return fmt.Errorf("grain %s: more than one primary key dimension", g.Name)
	}

	metrics := make(map[string]bool)
	for _, m := range g.Metrics {
		if m.Name == "" {
			return fmt.Errorf("grain %s: metric has no name", g.Name)
		}
		if metrics[m.Name] {
			return fmt.Errorf("grain %s: duplicate metric %q", g.Name, m.Name)
		}
		metrics[m.Name] = true

		if !validMetricTypes[m.Type] {
			return fmt.Errorf("grain %s: metric %q has invalid type %q (must be one of: avg, count, count_distinct, max, min, sum, number)",
				g.Name, m.Name, m.Type)
		}
		if m.Column == "" {
			return fmt.Errorf("grain %s: metric %q has no column", g.Name, m.Name)
		}
	}

	joins := make(map[string]bool)
	for _, j := range g.Joins {
		if j.Name == "" {
			return fmt.Errorf("grain %s: join has no name", g.Name)
		}
		if joins[j.Name] {
			return fmt.Errorf("grain %s: duplicate join %q", g.Name, j.Name)
		}
		joins[j.Name] = true

		if !validJoinTypes[j.Type] {
			return fmt.Errorf("grain %s: join %q has invalid type %q (must be one of: 1:1, 1:N, N:1)",
				g.Name, j.Name, j.Type)
		}
		if j.Grain == "" {
			return fmt.Errorf("grain %s: join %q names no grain", g.Name, j.Name)
		}
	}

	return nil
}

// file is the YAML document shape: a top-level grains list.
type file struct {
	Grains []Grain `yaml:"grains"`
}

// Parse reads grain declarations from YAML and validates every grain.
// Unknown fields are rejected.
func Parse(r io.Reader) ([]Grain, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse grains: %w", err)
	}

	names := make(map[string]bool)
	for i := range f.Grains {
		g := &f.Grains[i]
		if err := g.Validate(); err != nil {
			return nil, err
		}
		if names[g.Name] {
			return nil, fmt.Errorf("duplicate grain %q", g.Name)
		}
		names[g.Name] = true
	}

	// Joins may only reference grains declared in the same file.
	for _, g := range f.Grains {
		for _, j := range g.Joins {
			if !names[j.Grain] {
				return nil, fmt.Errorf("grain %s: join %q references unknown grain %q", g.Name, j.Name, j.Grain)
			}
		}
	}

	return f.Grains, nil
}

// Load reads and validates a grain file.
func Load(path string) ([]Grain, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open grains file: %w", err)
	}
	defer f.Close()

	grains, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return grains, nil
}
