// Package compile turns expression graphs over symbols and shared cells into
// callable functions.
//
// Compile validates the declared inputs, substitutes givens, merges explicit
// updates with the default updates of every reachable cell, and lowers the
// outputs together with every update expression into one backend program.
// Each call of the resulting Function evaluates that program against the
// current cell values and only then writes the new values back, so every
// update of one call reads the values the cells had before the call.
package compile

import (
	"context"

	"github.com/google/uuid"
	"github.com/specialistvlad/cellgrid/internal/backend"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/expr"
	"github.com/specialistvlad/cellgrid/internal/shared"
)

// Options describes the function to compile.
type Options struct {
	// Name labels the function in logs and errors.
	Name string
	// Inputs are the declared arguments, in positional order.
	Inputs []*Param
	// Output requests a single value; Call results Unwrap to one tensor.
	// It is mutually exclusive with Outputs.
	Output expr.Node
	// Outputs requests an ordered list of values.
	Outputs []expr.Node
	// Updates are the explicit updates. Each cell may appear once.
	Updates []Update
	// Givens are substituted before anything else.
	Givens Givens
	// NoDefaultUpdates is passed through ParsePolicy.
	NoDefaultUpdates any
	// Mode selects a built-in backend; see backend.Lookup.
	Mode string
	// Evaluator, when set, is used instead of Mode.
	Evaluator backend.Evaluator
}

// Compile builds a Function. On error nothing is left behind: cells and
// their default updates are never modified by compilation.
func Compile(ctx context.Context, opts Options) (*Function, error) {
	logger := ctxlog.FromContext(ctx)

	if opts.Output != nil && len(opts.Outputs) > 0 {
		return nil, errorf(ErrBadOutputs, "set either Output or Outputs, not both")
	}
	outputs := opts.Outputs
	if opts.Output != nil {
		outputs = []expr.Node{opts.Output}
	}
	for i, o := range outputs {
		if o == nil {
			return nil, errorf(ErrBadOutputs, "output %d is nil", i)
		}
	}

	inputs, declared, err := bindInputs(opts.Inputs)
	if err != nil {
		return nil, err
	}

	policy, err := ParsePolicy(opts.NoDefaultUpdates)
	if err != nil {
		return nil, err
	}
	if err := checkDuplicates(opts.Updates); err != nil {
		return nil, err
	}

	ev := opts.Evaluator
	if ev == nil {
		if ev, err = backend.Lookup(opts.Mode); err != nil {
			return nil, err
		}
	}

	rw, err := newRewriter(opts.Givens)
	if err != nil {
		return nil, err
	}
	outputs = rw.rewriteAll(outputs)
	explicit := make([]Update, len(opts.Updates))
	for i, u := range opts.Updates {
		explicit[i] = Update{Cell: u.Cell, Expr: rw.rewrite(u.Expr)}
	}

	updates, err := resolveUpdates(outputs, explicit, policy, rw)
	if err != nil {
		return nil, err
	}

	roots := append([]expr.Node(nil), outputs...)
	for _, u := range updates {
		roots = append(roots, u.expr)
	}
	if err := checkRequired(roots, declared); err != nil {
		return nil, err
	}

	prog, err := ev.Lower(ctx, roots)
	if err != nil {
		return nil, err
	}

	f := &Function{
		id:        uuid.New(),
		name:      opts.Name,
		inputs:    inputs,
		byName:    make(map[string]int, len(inputs)),
		outputs:   outputs,
		single:    opts.Output != nil,
		updates:   updates,
		cells:     expr.Collect[*shared.Cell](roots...),
		evaluator: ev,
		program:   prog,
	}
	for i, b := range inputs {
		name := b.param.Label()
		if _, taken := f.byName[name]; taken {
			f.byName[name] = -1
			continue
		}
		f.byName[name] = i
	}

	logger.Debug("Compiled function.",
		"function", f, "id", f.id, "mode", ev.Mode(),
		"inputs", len(inputs), "outputs", len(outputs),
		"updates", len(updates), "policy", policy.String())
	return f, nil
}

func bindInputs(params []*Param) ([]*binding, map[*expr.Symbol]bool, error) {
	inputs := make([]*binding, 0, len(params))
	declared := make(map[*expr.Symbol]bool, len(params))
	for i, p := range params {
		if p == nil || p.Node == nil {
			return nil, nil, errorf(ErrBadInput, "input %d is nil", i)
		}
		var sym *expr.Symbol
		switch n := p.Node.(type) {
		case *shared.Cell:
			return nil, nil, errorf(ErrSharedCellAsInput, "input %d is shared cell %s", i, n)
		case *expr.Symbol:
			sym = n
		default:
			return nil, nil, errorf(ErrBadInput, "input %d (%s) is not a symbol", i, n)
		}
		if declared[sym] {
			return nil, nil, errorf(ErrDuplicateInput, "%s is declared more than once", sym)
		}
		declared[sym] = true

		b := &binding{param: *p, sym: sym}
		if p.Default != nil {
			def, _, err := b.coerce(p.Default)
			if err != nil {
				return nil, nil, errorf(ErrBadInput, "default of %s: %v", p.Label(), err)
			}
			b.def = def.Clone()
		}
		inputs = append(inputs, b)
	}
	return inputs, declared, nil
}
