// Package shared implements Cell, the persistent mutable storage read and
// updated by compiled functions.
//
// A Cell is a leaf of the expression graph. Its identity (see ID) is what
// the compiler uses as a map key and for conflict detection; values are
// never compared. Cells are not safe for concurrent use: callers serialise
// access across every function that references the same cell.
package shared

import (
	"fmt"
	"sync/atomic"

	"github.com/specialistvlad/cellgrid/internal/expr"
	"github.com/specialistvlad/cellgrid/internal/tensor"
)

// ID identifies a cell for the lifetime of the process.
type ID uint64

var lastID atomic.Uint64

// Cell is a named, identity-keyed storage location with an optional
// default-update expression.
type Cell struct {
	id            ID
	name          string
	typ           expr.Type
	value         *tensor.Tensor
	defaultUpdate expr.Node
}

// New creates a cell holding a copy of value (see tensor.From for accepted
// values). The cell's static type is fixed to the value's dtype and rank.
func New(value any, name string) (*Cell, error) {
	t, err := tensor.From(value)
	if err != nil {
		return nil, fmt.Errorf("shared cell %q: %w", name, err)
	}
	return &Cell{
		id:    ID(lastID.Add(1)),
		name:  name,
		typ:   expr.TypeOf(t),
		value: t.Clone(),
	}, nil
}

// MustNew is like New but panics on error.
func MustNew(value any, name string) *Cell {
	c, err := New(value, name)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Cell) ID() ID              { return c.id }
func (c *Cell) Name() string        { return c.name }
func (c *Cell) Type() expr.Type     { return c.typ }
func (c *Cell) Inputs() []expr.Node { return nil }

func (c *Cell) String() string {
	if c.name == "" {
		return fmt.Sprintf("shared#%d", c.id)
	}
	return c.name
}

// Get returns the current value. The returned tensor is the cell's own
// storage and may be replaced by the next update; do not keep it across
// calls or write to it.
func (c *Cell) Get() *tensor.Tensor { return c.value }

// Set replaces the value immediately. The value is copied and cast to the
// cell's dtype; only lossless casts are accepted and the rank must match.
func (c *Cell) Set(value any) error {
	t, err := tensor.From(value)
	if err != nil {
		return fmt.Errorf("set %s: %w", c, err)
	}
	if err := c.Accepts(expr.TypeOf(t)); err != nil {
		return fmt.Errorf("set %s: %w", c, err)
	}
	if t.DType() == c.typ.DType {
		t = t.Clone()
	} else {
		t = t.Cast(c.typ.DType)
	}
	c.value = t
	return nil
}

// Store installs t as the cell's value without copying it. The caller hands
// over ownership of t, which must already have the cell's dtype and rank.
func (c *Cell) Store(t *tensor.Tensor) {
	c.value = t
}

// Accepts checks whether values of type t can be stored in the cell.
func (c *Cell) Accepts(t expr.Type) error {
	if t.Rank != c.typ.Rank {
		return fmt.Errorf("rank %d does not match cell type %s", t.Rank, c.typ)
	}
	if !tensor.CanCast(t.DType, c.typ.DType) {
		return fmt.Errorf("%s cannot be stored losslessly in cell type %s", t.DType, c.typ)
	}
	return nil
}

// DefaultUpdate returns the attached default-update expression, if any.
func (c *Cell) DefaultUpdate() (expr.Node, bool) {
	return c.defaultUpdate, c.defaultUpdate != nil
}

// SetDefaultUpdate attaches an expression applied by every function compiled
// afterwards that reaches this cell, unless overridden. Functions compiled
// earlier are unaffected.
func (c *Cell) SetDefaultUpdate(update expr.Node) error {
	if update == nil {
		return fmt.Errorf("default update for %s: nil expression", c)
	}
	if err := c.Accepts(update.Type()); err != nil {
		return fmt.Errorf("default update for %s: %w", c, err)
	}
	c.defaultUpdate = update
	return nil
}

// ClearDefaultUpdate removes the default-update expression. Functions
// compiled earlier keep applying it.
func (c *Cell) ClearDefaultUpdate() {
	c.defaultUpdate = nil
}
