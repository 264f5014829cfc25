// Package model defines the declaration contract for transformation
// models. A Kind names a unit of transformation, declares the parent
// models it reads through typed slots, and derives a logical query with
// the fql builder. The engine realizes kinds as instances, one per run,
// and persistent kinds swap their derivation for a physical table after
// materialization.
package model

import (
	"errors"

	"github.com/leapstack-labs/strata/pkg/fql"
)

// Slot declares one named parent dependency of a model kind.
type Slot struct {
	Name   string
	Parent Kind
}

// Kind describes a model: a named unit of transformation with declared
// parent slots and a persistence flag. Implementations are stateless
// values; per-run state lives on Instance.
type Kind interface {
	// Name returns the model's unique name. Persistent models
	// materialize into a physical table with this name.
	Name() string

	// Persist reports whether the model's result is written to a table
	// the first time it runs.
	Persist() bool

	// Parents returns the declared parent slots in order.
	Parents() []Slot

	// Query derives the model's logical query. Parent outputs are
	// available through deps under their slot names.
	Query(ctx *Context, deps Deps) (*fql.Query, error)
}

// ErrQueryNotImplemented is returned by Base.Query when a kind does not
// override its derivation.
var ErrQueryNotImplemented = errors.New("model does not implement Query")

// Base provides defaults for Kind: no parents, not persistent, and a
// Query that fails until overridden. Embed it and implement Name plus
// whatever the model declares.
type Base struct{}

// Persist reports false.
func (Base) Persist() bool { return false }

// Parents reports no dependencies.
func (Base) Parents() []Slot { return nil }

// Query fails with ErrQueryNotImplemented.
func (Base) Query(*Context, Deps) (*fql.Query, error) {
	return nil, ErrQueryNotImplemented
}
