package compile

import (
	"github.com/specialistvlad/cellgrid/internal/expr"
	"github.com/specialistvlad/cellgrid/internal/tensor"
)

// Param describes how a call argument binds to one input symbol.
type Param struct {
	// Node is the input symbol. Compile rejects shared cells and any
	// non-symbol node.
	Node expr.Node
	// Default is used when the argument is omitted. It accepts anything
	// tensor.From does; nil means the argument is required.
	Default any
	// Strict disables implicit casts: the argument's dtype must equal the
	// symbol's.
	Strict bool
	// Mutable lets the function overwrite the caller's buffer while
	// evaluating. Without it the caller's value is never modified.
	Mutable bool
	// Name is the keyword used by CallNamed. It defaults to the symbol's
	// name.
	Name string
}

// ParamOption configures a Param.
type ParamOption func(*Param)

// WithDefault sets the value used when the argument is omitted.
func WithDefault(v any) ParamOption {
	return func(p *Param) { p.Default = v }
}

// Strict rejects arguments whose dtype differs from the symbol's.
func Strict() ParamOption {
	return func(p *Param) { p.Strict = true }
}

// Mutable allows in-place evaluation over the caller's buffer.
func Mutable() ParamOption {
	return func(p *Param) { p.Mutable = true }
}

// WithName overrides the keyword the argument binds to.
func WithName(name string) ParamOption {
	return func(p *Param) { p.Name = name }
}

// NewParam wraps an input node.
func NewParam(node expr.Node, opts ...ParamOption) *Param {
	p := &Param{Node: node}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Inputs wraps bare nodes as Params with default settings.
func Inputs(nodes ...expr.Node) []*Param {
	out := make([]*Param, len(nodes))
	for i, n := range nodes {
		out[i] = NewParam(n)
	}
	return out
}

// Label is the name the input binds to in CallNamed.
func (p *Param) Label() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Node != nil {
		return p.Node.String()
	}
	return "<nil>"
}

// binding is a validated Param inside a compiled function. It holds its own
// copy of the Param, so later changes to the caller's Param do not reach
// the compiled function.
type binding struct {
	param Param
	sym   *expr.Symbol
	def   *tensor.Tensor
}

// coerce converts v to the symbol's type following the strict and cast
// rules. fresh is false when the result may share memory with v.
func (b *binding) coerce(v any) (t *tensor.Tensor, fresh bool, err error) {
	t, err = tensor.From(v)
	if err != nil {
		return nil, false, errorf(ErrBadArgument, "%s: %v", b.param.Label(), err)
	}
	want := b.sym.Type()
	if t.Rank() != want.Rank {
		return nil, false, errorf(ErrStrictTypeMismatch, "%s: expected rank %d, got %d", b.param.Label(), want.Rank, t.Rank())
	}
	if t.DType() == want.DType {
		return t, false, nil
	}
	if b.param.Strict {
		return nil, false, errorf(ErrStrictTypeMismatch, "%s: strict input of type %s got %s", b.param.Label(), want, expr.TypeOf(t))
	}
	if !tensor.CanCast(t.DType(), want.DType) {
		return nil, false, errorf(ErrStrictTypeMismatch, "%s: no safe cast from %s to %s", b.param.Label(), t.DType(), want.DType)
	}
	return t.Cast(want.DType), true, nil
}
