package compile

import (
	"github.com/specialistvlad/cellgrid/internal/expr"
	"github.com/specialistvlad/cellgrid/internal/shared"
)

// Update asks a compiled function to store the value of Expr into Cell
// after each call.
type Update struct {
	Cell *shared.Cell
	Expr expr.Node
}

// resolvedUpdate is one entry of a function's frozen update map.
type resolvedUpdate struct {
	cell     *shared.Cell
	expr     expr.Node
	explicit bool
}

func checkDuplicates(updates []Update) error {
	seen := make(map[shared.ID]struct{}, len(updates))
	for i, u := range updates {
		if u.Cell == nil || u.Expr == nil {
			return errorf(ErrBadInput, "update %d has a nil cell or expression", i)
		}
		if _, dup := seen[u.Cell.ID()]; dup {
			return errorf(ErrDuplicateUpdate, "%s is updated more than once", u.Cell)
		}
		seen[u.Cell.ID()] = struct{}{}
	}
	return nil
}

// resolveUpdates merges the explicit updates with the default updates of
// every cell reachable from outputs and from the update expressions
// themselves, transitively. Default updates are read from the cells now and
// never again.
//
// The explicit updates and outputs must already be rewritten by rw; merged
// default expressions are rewritten here before being explored.
func resolveUpdates(outputs []expr.Node, explicit []Update, policy Policy, rw *rewriter) ([]resolvedUpdate, error) {
	merged := make([]resolvedUpdate, 0, len(explicit))
	updated := make(map[shared.ID]bool, len(explicit))
	roots := append([]expr.Node(nil), outputs...)
	for _, u := range explicit {
		merged = append(merged, resolvedUpdate{cell: u.Cell, expr: u.Expr, explicit: true})
		updated[u.Cell.ID()] = true
		roots = append(roots, u.Expr)
	}

	seen := make(map[shared.ID]bool)
	var queue []*shared.Cell
	enqueue := func(roots ...expr.Node) {
		for _, c := range expr.Collect[*shared.Cell](roots...) {
			if !seen[c.ID()] {
				seen[c.ID()] = true
				queue = append(queue, c)
			}
		}
	}
	enqueue(roots...)

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if updated[c.ID()] || policy.Suppresses(c) {
			continue
		}
		def, ok := c.DefaultUpdate()
		if !ok {
			continue
		}
		rhs := rw.rewrite(def)
		merged = append(merged, resolvedUpdate{cell: c, expr: rhs})
		updated[c.ID()] = true
		enqueue(rhs)
	}

	for _, u := range merged {
		if err := u.cell.Accepts(u.expr.Type()); err != nil {
			return nil, errorf(ErrUpdateTypeMismatch, "update of %s to %s: %v", u.cell, u.expr, err)
		}
	}
	return merged, nil
}

// checkRequired makes sure every free symbol of roots is a declared input.
func checkRequired(roots []expr.Node, declared map[*expr.Symbol]bool) error {
	for _, s := range expr.FreeSymbols(roots...) {
		if !declared[s] {
			return errorf(ErrMissingRequiredInput, "%s of type %s is used but not declared as an input", s, s.Type())
		}
	}
	return nil
}
