package compile

import (
	"github.com/specialistvlad/cellgrid/internal/expr"
)

// Givens maps graph nodes to the nodes that replace them before any other
// compilation step. Keys may be symbols, shared cells, constants or inner
// nodes; a concrete value is given as an *expr.Const (see SetValue).
type Givens map[expr.Node]expr.Node

// SetValue replaces node with a constant holding v.
func (g Givens) SetValue(node expr.Node, v any) error {
	c, err := expr.NewConst(v)
	if err != nil {
		return errorf(ErrGivensMismatch, "value for %s: %v", node, err)
	}
	g[node] = c
	return nil
}

// rewriter substitutes givens structurally. Every graph rewritten by the
// same rewriter shares memoised copies, so a subexpression common to two
// roots stays a single node.
type rewriter struct {
	givens Givens
	memo   map[expr.Node]expr.Node
}

func newRewriter(g Givens) (*rewriter, error) {
	for from, to := range g {
		if from == nil || to == nil {
			return nil, errorf(ErrGivensMismatch, "nil entry")
		}
		if from.Type().Rank != to.Type().Rank {
			return nil, errorf(ErrGivensMismatch, "cannot replace %s of type %s with %s of type %s",
				from, from.Type(), to, to.Type())
		}
	}
	return &rewriter{givens: g, memo: make(map[expr.Node]expr.Node)}, nil
}

// rewrite returns n with every mapped node replaced. Replacements are used
// as given and not rewritten again.
func (r *rewriter) rewrite(n expr.Node) expr.Node {
	if to, ok := r.givens[n]; ok {
		return to
	}
	if done, ok := r.memo[n]; ok {
		return done
	}
	out := n
	if a, ok := n.(*expr.Apply); ok {
		in := a.Inputs()
		next := make([]expr.Node, len(in))
		changed := false
		for i, x := range in {
			next[i] = r.rewrite(x)
			changed = changed || next[i] != x
		}
		if changed {
			out = a.WithInputs(next)
		}
	}
	r.memo[n] = out
	return out
}

func (r *rewriter) rewriteAll(ns []expr.Node) []expr.Node {
	out := make([]expr.Node, len(ns))
	for i, n := range ns {
		out[i] = r.rewrite(n)
	}
	return out
}
