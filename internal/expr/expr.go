// Package expr defines the symbolic expression graph compiled by the
// compile package.
//
// A graph is made of immutable nodes: free input symbols, constants, shared
// cells (defined in the shared package) and applications of an Op to other
// nodes. Node identity is pointer identity; two structurally equal nodes are
// still distinct.
package expr

import (
	"fmt"

	"github.com/specialistvlad/cellgrid/internal/tensor"
)

// Type is the static type of a node: an element dtype and a rank. Shapes
// are only known at call time.
type Type struct {
	DType tensor.DType
	Rank  int
}

// String renders the type as e.g. "int64[1]".
func (t Type) String() string {
	return fmt.Sprintf("%s[%d]", t.DType, t.Rank)
}

// TypeOf returns the static type of a concrete value.
func TypeOf(v *tensor.Tensor) Type {
	return Type{DType: v.DType(), Rank: v.Rank()}
}

// Node is a vertex of the expression graph.
type Node interface {
	// Type returns the node's static type.
	Type() Type
	// Inputs returns the node's operands. Leaves return nil.
	Inputs() []Node
	String() string
}

// Symbol is a free input of the graph. It receives a value only when bound
// as a declared input of a compiled function.
type Symbol struct {
	name string
	typ  Type
}

// NewSymbol creates a fresh symbol.
func NewSymbol(name string, dtype tensor.DType, rank int) *Symbol {
	return &Symbol{name: name, typ: Type{DType: dtype, Rank: rank}}
}

// Scalar creates a rank-0 symbol.
func Scalar(name string, dtype tensor.DType) *Symbol { return NewSymbol(name, dtype, 0) }

// Vector creates a rank-1 symbol.
func Vector(name string, dtype tensor.DType) *Symbol { return NewSymbol(name, dtype, 1) }

// Matrix creates a rank-2 symbol.
func Matrix(name string, dtype tensor.DType) *Symbol { return NewSymbol(name, dtype, 2) }

func (s *Symbol) Name() string   { return s.name }
func (s *Symbol) Type() Type     { return s.typ }
func (s *Symbol) Inputs() []Node { return nil }

func (s *Symbol) String() string {
	if s.name == "" {
		return fmt.Sprintf("<%s>", s.typ)
	}
	return s.name
}

// Const is a node with a fixed value.
type Const struct {
	value *tensor.Tensor
}

// NewConst wraps a Go value (see tensor.From) in a constant node. The value
// is copied so later changes to the caller's buffer are not observed.
func NewConst(v any) (*Const, error) {
	t, err := tensor.From(v)
	if err != nil {
		return nil, err
	}
	return &Const{value: t.Clone()}, nil
}

// C is NewConst for literals known to be valid; it panics on error.
func C(v any) *Const {
	c, err := NewConst(v)
	if err != nil {
		panic(err)
	}
	return c
}

// Value returns the constant's tensor. Callers must not modify it.
func (c *Const) Value() *tensor.Tensor { return c.value }
func (c *Const) Type() Type            { return TypeOf(c.value) }
func (c *Const) Inputs() []Node        { return nil }
func (c *Const) String() string        { return c.value.String() }

// Apply is the application of an Op to operand nodes.
type Apply struct {
	op  *Op
	in  []Node
	typ Type
}

// Op returns the applied operation.
func (a *Apply) Op() *Op { return a.op }

func (a *Apply) Type() Type     { return a.typ }
func (a *Apply) Inputs() []Node { return a.in }

func (a *Apply) String() string {
	if sym := a.op.symbol; sym != "" {
		if len(a.in) == 1 {
			return fmt.Sprintf("%s%s", sym, a.in[0])
		}
		return fmt.Sprintf("(%s %s %s)", a.in[0], sym, a.in[1])
	}
	s := a.op.Name + "("
	for i, n := range a.in {
		if i > 0 {
			s += ", "
		}
		s += n.String()
	}
	return s + ")"
}

// WithInputs returns a copy of the application over new operands, recomputing
// its static type.
func (a *Apply) WithInputs(in []Node) *Apply {
	return newApply(a.op, in...)
}

func newApply(op *Op, in ...Node) *Apply {
	if len(in) != op.Arity {
		panic(fmt.Sprintf("expr: %s takes %d operands, got %d", op.Name, op.Arity, len(in)))
	}
	types := make([]Type, len(in))
	for i, n := range in {
		if n == nil {
			panic(fmt.Sprintf("expr: nil operand %d to %s", i, op.Name))
		}
		types[i] = n.Type()
	}
	return &Apply{op: op, in: in, typ: op.result(types)}
}
