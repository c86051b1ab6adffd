package hcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/expr"
	"github.com/specialistvlad/cellgrid/internal/shared"
	"github.com/zclconf/go-cty/cty"
)

// converter translates HCL expressions into expression graphs over the
// symbols and cells declared so far.
type converter struct {
	script    *config.Script
	functions map[string]*config.FunctionDecl
}

var binaryOps = map[*hclsyntax.Operation]*expr.Op{
	hclsyntax.OpAdd:      expr.OpAdd,
	hclsyntax.OpSubtract: expr.OpSub,
	hclsyntax.OpMultiply: expr.OpMul,
	hclsyntax.OpDivide:   expr.OpDiv,
}

// lookup resolves a declared name to its symbol or cell.
func (c *converter) lookup(name string, rng hcl.Range) (expr.Node, hcl.Diagnostics) {
	if s, ok := c.script.Symbols[name]; ok {
		return s, nil
	}
	if cell, ok := c.script.Cells[name]; ok {
		return cell, nil
	}
	return nil, diagf(rng, "Unknown reference", "%q is neither a declared symbol nor a shared cell", name)
}

// cellRef resolves an expression that must be a bare reference to a cell.
func (c *converter) cellRef(e hcl.Expression) (*shared.Cell, hcl.Diagnostics) {
	name, diags := refName(e)
	if diags.HasErrors() {
		return nil, diags
	}
	cell, ok := c.script.Cells[name]
	if !ok {
		return nil, diagf(e.Range(), "Unknown shared cell", "%q is not a declared shared cell", name)
	}
	return cell, nil
}

// refName accepts a single-step traversal like `x` or a string like "x".
func refName(e hcl.Expression) (string, hcl.Diagnostics) {
	if name := hcl.ExprAsKeyword(e); name != "" {
		return name, nil
	}
	v, diags := e.Value(nil)
	if !diags.HasErrors() && v.IsKnown() && !v.IsNull() && v.Type() == cty.String {
		return v.AsString(), nil
	}
	return "", diagf(e.Range(), "Invalid reference", "expected the name of a declared symbol or shared cell")
}

// node translates an expression into a graph node.
func (c *converter) node(e hcl.Expression) (expr.Node, hcl.Diagnostics) {
	switch e := e.(type) {
	case *hclsyntax.ParenthesesExpr:
		return c.node(e.Expression)

	case *hclsyntax.ScopeTraversalExpr:
		if len(e.Traversal) != 1 {
			return nil, diagf(e.Range(), "Invalid reference", "attribute and index access are not supported")
		}
		return c.lookup(e.Traversal.RootName(), e.Range())

	case *hclsyntax.FunctionCallExpr:
		op, ok := expr.Ops[e.Name]
		if !ok {
			return nil, diagf(e.NameRange, "Unknown operation", "there is no operation named %q", e.Name)
		}
		if e.ExpandFinal {
			return nil, diagf(e.Range(), "Invalid call", "argument expansion is not supported")
		}
		if len(e.Args) != op.Arity {
			return nil, diagf(e.Range(), "Wrong number of operands", "%s takes %d operands, got %d", op.Name, op.Arity, len(e.Args))
		}
		return c.apply(op, e.Args...)

	case *hclsyntax.BinaryOpExpr:
		op, ok := binaryOps[e.Op]
		if !ok {
			return nil, diagf(e.Range(), "Unsupported operator", "only + - * / are supported in expressions")
		}
		return c.apply(op, e.LHS, e.RHS)

	case *hclsyntax.UnaryOpExpr:
		if e.Op != hclsyntax.OpNegate {
			return nil, diagf(e.Range(), "Unsupported operator", "only unary minus is supported in expressions")
		}
		return c.apply(expr.OpNeg, e.Val)
	}

	if len(e.Variables()) > 0 {
		return nil, diagf(e.Range(), "Unsupported expression", "references may only appear as operands of operations")
	}
	t, diags := constValue(e, nil)
	if diags.HasErrors() {
		return nil, diags
	}
	k, err := expr.NewConst(t)
	if err != nil {
		return nil, diagf(e.Range(), "Invalid constant", "%v", err)
	}
	return k, nil
}

func (c *converter) apply(op *expr.Op, args ...hclsyntax.Expression) (expr.Node, hcl.Diagnostics) {
	in := make([]expr.Node, len(args))
	for i, a := range args {
		n, diags := c.node(a)
		if diags.HasErrors() {
			return nil, diags
		}
		in[i] = n
	}
	return expr.Call(op, in...), nil
}

// nodes translates a tuple expression into one node per element.
func (c *converter) nodes(e hcl.Expression) ([]expr.Node, hcl.Diagnostics) {
	items, diags := hcl.ExprList(e)
	if diags.HasErrors() {
		return nil, diags
	}
	out := make([]expr.Node, len(items))
	for i, item := range items {
		n, diags := c.node(item)
		if diags.HasErrors() {
			return nil, diags
		}
		out[i] = n
	}
	return out, nil
}

// pairs reads either an object `{ x = expr }` or a tuple of two-element
// tuples `[[x, expr]]`. Keys come back as expressions in source order.
func pairs(e hcl.Expression) ([][2]hcl.Expression, hcl.Diagnostics) {
	if _, ok := e.(*hclsyntax.ObjectConsExpr); ok {
		kvs, diags := hcl.ExprMap(e)
		if diags.HasErrors() {
			return nil, diags
		}
		out := make([][2]hcl.Expression, len(kvs))
		for i, kv := range kvs {
			out[i] = [2]hcl.Expression{kv.Key, kv.Value}
		}
		return out, nil
	}
	items, diags := hcl.ExprList(e)
	if diags.HasErrors() {
		return nil, diags
	}
	out := make([][2]hcl.Expression, len(items))
	for i, item := range items {
		pair, diags := hcl.ExprList(item)
		if diags.HasErrors() {
			return nil, diags
		}
		if len(pair) != 2 {
			return nil, diagf(item.Range(), "Invalid pair", "expected [target, expression], got %d elements", len(pair))
		}
		out[i] = [2]hcl.Expression{pair[0], pair[1]}
	}
	return out, nil
}
