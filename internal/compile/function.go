package compile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/specialistvlad/cellgrid/internal/backend"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/expr"
	"github.com/specialistvlad/cellgrid/internal/shared"
	"github.com/specialistvlad/cellgrid/internal/tensor"
)

// Function is a compiled, immutable callable. Calls are not safe for
// concurrent use with any other function that shares a cell with it.
type Function struct {
	id        uuid.UUID
	name      string
	inputs    []*binding
	byName    map[string]int
	outputs   []expr.Node
	single    bool
	updates   []resolvedUpdate
	cells     []*shared.Cell
	evaluator backend.Evaluator
	program   backend.Program
}

// ID returns the identifier assigned at compile time.
func (f *Function) ID() uuid.UUID { return f.id }

// Name returns the name given in Options.
func (f *Function) Name() string { return f.name }

// Mode returns the mode token of the backend the function runs on.
func (f *Function) Mode() string { return f.evaluator.Mode() }

func (f *Function) String() string {
	if f.name != "" {
		return f.name
	}
	return "function-" + f.id.String()[:8]
}

// Inputs returns copies of the declared parameters in positional order.
// Changing them does not affect f.
func (f *Function) Inputs() []*Param {
	out := make([]*Param, len(f.inputs))
	for i, b := range f.inputs {
		p := b.param
		out[i] = &p
	}
	return out
}

// Updates returns the frozen update map: explicit updates in the order they
// were given, then the merged default updates.
func (f *Function) Updates() []Update {
	out := make([]Update, len(f.updates))
	for i, u := range f.updates {
		out[i] = Update{Cell: u.cell, Expr: u.expr}
	}
	return out
}

// Result holds the outputs of one call in declaration order.
type Result struct {
	values []*tensor.Tensor
	single bool
}

// Values returns the outputs in declaration order.
func (r *Result) Values() []*tensor.Tensor { return r.values }

// Unwrap returns the single output for functions compiled with
// Options.Output, and the ordered slice otherwise.
func (r *Result) Unwrap() any {
	if r.single {
		return r.values[0]
	}
	return r.values
}

// Call binds args to the declared inputs by position.
func (f *Function) Call(ctx context.Context, args ...any) (*Result, error) {
	return f.call(ctx, args, nil)
}

// CallNamed binds args to the declared inputs by name.
func (f *Function) CallNamed(ctx context.Context, args map[string]any) (*Result, error) {
	return f.call(ctx, nil, args)
}

func (f *Function) call(ctx context.Context, positional []any, named map[string]any) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	env, destroyable, err := f.bind(positional, named)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", f, err)
	}
	for _, c := range f.cells {
		env[c] = c.Get()
	}

	outs, err := f.program.Run(ctx, env, destroyable)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", f, err)
	}

	// Values already held by a cell or an argument must not end up stored
	// twice.
	held := make(map[*tensor.Tensor]bool, len(env)+len(outs))
	for _, v := range env {
		held[v] = true
	}
	next := make([]*tensor.Tensor, len(f.updates))
	for i, u := range f.updates {
		v := outs[len(f.outputs)+i]
		switch {
		case v.DType() != u.cell.Type().DType:
			v = v.Cast(u.cell.Type().DType)
		case expr.IsLeaf(u.expr) || held[v]:
			v = v.Clone()
		}
		held[v] = true
		next[i] = v
	}
	for i, u := range f.updates {
		u.cell.Store(next[i])
	}

	values := make([]*tensor.Tensor, len(f.outputs))
	for i, o := range f.outputs {
		v := outs[i]
		if expr.IsLeaf(o) || held[v] {
			v = v.Clone()
		}
		held[v] = true
		values[i] = v
	}

	logger.Debug("Called function.", "function", f, "id", f.id, "updates", len(next))
	return &Result{values: values, single: f.single}, nil
}

// bind resolves the arguments of one call into an environment. Bound values
// are marked destroyable when the backend evaluates in place; arguments of
// non-mutable params are copied first so the caller's buffers survive.
func (f *Function) bind(positional []any, named map[string]any) (backend.Env, map[expr.Node]bool, error) {
	if len(positional) > len(f.inputs) {
		return nil, nil, errorf(ErrBadArgument, "takes %d arguments, got %d", len(f.inputs), len(positional))
	}
	for name := range named {
		i, ok := f.byName[name]
		switch {
		case !ok:
			return nil, nil, errorf(ErrBadArgument, "unknown argument %q", name)
		case i < 0:
			return nil, nil, errorf(ErrBadArgument, "argument name %q is ambiguous", name)
		}
	}

	inPlace := f.evaluator.InPlace()
	env := make(backend.Env, len(f.inputs)+len(f.cells))
	var destroyable map[expr.Node]bool
	if inPlace {
		destroyable = make(map[expr.Node]bool, len(f.inputs))
	}
	owners := make(map[*tensor.Tensor]int, len(f.inputs))

	for i, b := range f.inputs {
		var (
			v     any
			given bool
		)
		if i < len(positional) {
			v, given = positional[i], true
		}
		if nv, ok := named[b.param.Label()]; ok {
			if given {
				return nil, nil, errorf(ErrBadArgument, "%s given by position and by name", b.param.Label())
			}
			v, given = nv, true
		}

		var t *tensor.Tensor
		switch {
		case given:
			ct, fresh, err := b.coerce(v)
			if err != nil {
				return nil, nil, err
			}
			t = ct
			if inPlace && !b.param.Mutable && !fresh {
				t = ct.Clone()
			}
		case b.def != nil:
			t = b.def.Clone()
		default:
			return nil, nil, errorf(ErrMissingArgument, "%s has no value and no default", b.param.Label())
		}

		env[b.sym] = t
		owners[t]++
	}

	if inPlace {
		for _, b := range f.inputs {
			if owners[env[b.sym]] == 1 {
				destroyable[b.sym] = true
			}
		}
	}
	return env, destroyable, nil
}
