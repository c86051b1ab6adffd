package backend

import (
	"context"
	"fmt"

	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/expr"
	"github.com/specialistvlad/cellgrid/internal/tensor"
)

// Interpreter evaluates graphs by walking them in dependency order. In
// in-place mode an element-wise op may write its result into the buffer of
// its first operand when that operand is destroyable and has no other
// consumer.
type Interpreter struct {
	inPlace bool
}

// NewInterpreter returns the fast_run interpreter when inPlace is true and
// the fast_compile one otherwise.
func NewInterpreter(inPlace bool) *Interpreter {
	return &Interpreter{inPlace: inPlace}
}

func (i *Interpreter) Mode() string {
	if i.inPlace {
		return ModeFastRun
	}
	return ModeFastCompile
}

func (i *Interpreter) InPlace() bool { return i.inPlace }

// Lower orders the graph and counts how many consumers each node has. Roots
// count as consumers so that a requested value is never overwritten.
func (i *Interpreter) Lower(ctx context.Context, roots []expr.Node) (Program, error) {
	for n, r := range roots {
		if r == nil {
			return nil, fmt.Errorf("root %d is nil", n)
		}
	}
	order := expr.Topo(roots...)
	clients := make(map[expr.Node]int, len(order))
	for _, n := range order {
		for _, in := range n.Inputs() {
			clients[in]++
		}
	}
	for _, r := range roots {
		clients[r]++
	}
	ctxlog.FromContext(ctx).Debug("Lowered graph for interpreter.", "mode", i.Mode(), "nodes", len(order), "roots", len(roots))
	return &interpProgram{inPlace: i.inPlace, roots: roots, order: order, clients: clients}, nil
}

type interpProgram struct {
	inPlace bool
	roots   []expr.Node
	order   []expr.Node
	clients map[expr.Node]int
}

func (p *interpProgram) Run(ctx context.Context, env Env, destroyable map[expr.Node]bool) ([]*tensor.Tensor, error) {
	vals := make(map[expr.Node]*tensor.Tensor, len(p.order))
	for _, n := range p.order {
		switch n := n.(type) {
		case *expr.Const:
			vals[n] = n.Value()
		case *expr.Apply:
			in := n.Inputs()
			args := make([]*tensor.Tensor, len(in))
			for k, a := range in {
				args[k] = vals[a]
			}
			var dst *tensor.Tensor
			if p.inPlace && n.Op().Elementwise() && destroyable[in[0]] && p.clients[in[0]] == 1 {
				dst = args[0]
			}
			out, err := n.Op().EvalAs(args, n.Type().DType, dst)
			if err != nil {
				return nil, fmt.Errorf("evaluating %s: %w", n, err)
			}
			vals[n] = out
		default:
			v, ok := env[n]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnbound, n)
			}
			vals[n] = v
		}
	}
	outs := make([]*tensor.Tensor, len(p.roots))
	for k, r := range p.roots {
		outs[k] = vals[r]
	}
	return outs, nil
}
