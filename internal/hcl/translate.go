package hcl

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/cellgrid/internal/compile"
	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/expr"
	"github.com/specialistvlad/cellgrid/internal/shared"
	"github.com/specialistvlad/cellgrid/internal/tensor"
	"github.com/zclconf/go-cty/cty"
)

// translateCell emits the default update declared with a cell, if any.
func (c *converter) translateCell(b *hclsyntax.Block, sb *sharedBlock) (config.Statement, hcl.Diagnostics) {
	if !present(sb.DefaultUpdate) {
		return nil, nil
	}
	n, diags := c.node(sb.DefaultUpdate)
	if diags.HasErrors() {
		return nil, diags
	}
	return &config.CellDecl{
		Cell:          c.script.Cells[b.Labels[0]],
		DefaultUpdate: n,
		DeclRange:     b.DefRange(),
	}, nil
}

func (c *converter) translateFunction(ctx context.Context, b *hclsyntax.Block) (*config.FunctionDecl, hcl.Diagnostics) {
	name := b.Labels[0]
	if _, ok := c.functions[name]; ok {
		return nil, diagf(b.LabelRanges[0], "Duplicate function", "function %q is already declared", name)
	}
	var fb functionBlock
	if diags := gohcl.DecodeBody(b.Body, nil, &fb); diags.HasErrors() {
		return nil, diags
	}

	opts := compile.Options{Name: name, Mode: fb.Mode}
	for _, in := range fb.Inputs {
		p, diags := c.translateInput(in)
		if diags.HasErrors() {
			return nil, diags
		}
		opts.Inputs = append(opts.Inputs, p)
	}

	var diags hcl.Diagnostics
	if present(fb.Output) {
		if opts.Output, diags = c.node(fb.Output); diags.HasErrors() {
			return nil, diags
		}
	}
	if present(fb.Outputs) {
		if opts.Outputs, diags = c.nodes(fb.Outputs); diags.HasErrors() {
			return nil, diags
		}
	}
	if present(fb.Updates) {
		if opts.Updates, diags = c.translateUpdates(fb.Updates); diags.HasErrors() {
			return nil, diags
		}
	}
	if present(fb.Givens) {
		if opts.Givens, diags = c.translateGivens(fb.Givens); diags.HasErrors() {
			return nil, diags
		}
	}
	if present(fb.NoDefaultUpdates) {
		if opts.NoDefaultUpdates, diags = c.translatePolicy(fb.NoDefaultUpdates); diags.HasErrors() {
			return nil, diags
		}
	}

	decl := &config.FunctionDecl{Name: name, Options: opts, DeclRange: b.DefRange()}
	c.functions[name] = decl
	ctxlog.FromContext(ctx).Debug("Translated function.", "name", name, "inputs", len(opts.Inputs), "updates", len(opts.Updates))
	return decl, nil
}

// translateInput builds a parameter. A label naming a cell is passed through
// so that compilation reports it.
func (c *converter) translateInput(in *inputBlock) (*compile.Param, hcl.Diagnostics) {
	var opts []compile.ParamOption
	if in.Strict {
		opts = append(opts, compile.Strict())
	}
	if in.Mutable {
		opts = append(opts, compile.Mutable())
	}
	if in.Name != "" {
		opts = append(opts, compile.WithName(in.Name))
	}

	if cell, ok := c.script.Cells[in.Symbol]; ok {
		return compile.NewParam(cell, opts...), nil
	}
	sym, ok := c.script.Symbols[in.Symbol]
	if !ok {
		return nil, diagf(in.DeclRange, "Unknown input", "input %q is not a declared symbol", in.Symbol)
	}
	if present(in.Default) {
		dtype := sym.Type().DType
		def, diags := constValue(in.Default, &dtype)
		if diags.HasErrors() {
			return nil, diags
		}
		opts = append(opts, compile.WithDefault(def))
	}
	return compile.NewParam(sym, opts...), nil
}

func (c *converter) translateUpdates(e hcl.Expression) ([]compile.Update, hcl.Diagnostics) {
	kvs, diags := pairs(e)
	if diags.HasErrors() {
		return nil, diags
	}
	updates := make([]compile.Update, 0, len(kvs))
	for _, kv := range kvs {
		cell, diags := c.cellRef(kv[0])
		if diags.HasErrors() {
			return nil, diags
		}
		n, diags := c.node(kv[1])
		if diags.HasErrors() {
			return nil, diags
		}
		updates = append(updates, compile.Update{Cell: cell, Expr: n})
	}
	return updates, nil
}

func (c *converter) translateGivens(e hcl.Expression) (compile.Givens, hcl.Diagnostics) {
	kvs, diags := pairs(e)
	if diags.HasErrors() {
		return nil, diags
	}
	givens := make(compile.Givens, len(kvs))
	for _, kv := range kvs {
		name, diags := refName(kv[0])
		if diags.HasErrors() {
			return nil, diags
		}
		target, diags := c.lookup(name, kv[0].Range())
		if diags.HasErrors() {
			return nil, diags
		}
		n, diags := c.node(kv[1])
		if diags.HasErrors() {
			return nil, diags
		}
		givens[target] = n
	}
	return givens, nil
}

// translatePolicy maps no_default_updates onto the values compile.ParsePolicy
// understands. Shapes it rejects are passed through unchanged.
func (c *converter) translatePolicy(e hcl.Expression) (any, hcl.Diagnostics) {
	switch e := e.(type) {
	case *hclsyntax.TupleConsExpr:
		cells := make([]*shared.Cell, len(e.Exprs))
		for i, item := range e.Exprs {
			cell, diags := c.cellRef(item)
			if diags.HasErrors() {
				return nil, diags
			}
			cells[i] = cell
		}
		return cells, nil
	case *hclsyntax.ScopeTraversalExpr:
		return c.node(e)
	}

	v, diags := e.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	switch {
	case v.IsNull():
		return nil, nil
	case v.Type() == cty.Bool:
		return v.True(), nil
	case v.Type() == cty.String:
		return v.AsString(), nil
	}
	return v, nil
}

func (c *converter) translateCall(b *hclsyntax.Block) (*config.CallStmt, hcl.Diagnostics) {
	name := b.Labels[0]
	decl, ok := c.functions[name]
	if !ok {
		return nil, diagf(b.LabelRanges[0], "Unknown function", "function %q must be declared before it is called", name)
	}
	var cb callBlock
	if diags := gohcl.DecodeBody(b.Body, nil, &cb); diags.HasErrors() {
		return nil, diags
	}
	stmt := &config.CallStmt{Function: name, Repeat: 1, Args: map[string]*tensor.Tensor{}, DeclRange: b.DefRange()}
	if cb.Repeat != nil {
		if *cb.Repeat < 1 {
			return nil, diagf(b.Body.SrcRange, "Invalid repeat", "repeat must be at least 1, got %d", *cb.Repeat)
		}
		stmt.Repeat = *cb.Repeat
	}
	if !present(cb.Args) {
		return stmt, nil
	}

	kvs, diags := pairs(cb.Args)
	if diags.HasErrors() {
		return nil, diags
	}
	for _, kv := range kvs {
		arg, diags := refName(kv[0])
		if diags.HasErrors() {
			return nil, diags
		}
		v, diags := constValue(kv[1], argDType(decl, arg))
		if diags.HasErrors() {
			return nil, diags
		}
		stmt.Args[arg] = v
	}
	return stmt, nil
}

// argDType returns the dtype of the input an argument name binds to, or nil
// when the name binds to nothing and the literal's own dtype should be kept.
func argDType(decl *config.FunctionDecl, arg string) *tensor.DType {
	for _, p := range decl.Options.Inputs {
		sym, ok := p.Node.(*expr.Symbol)
		if !ok {
			continue
		}
		if p.Label() == arg {
			d := sym.Type().DType
			return &d
		}
	}
	return nil
}

func (c *converter) translateSet(b *hclsyntax.Block) (*config.SetStmt, hcl.Diagnostics) {
	name := b.Labels[0]
	cell, ok := c.script.Cells[name]
	if !ok {
		return nil, diagf(b.LabelRanges[0], "Unknown shared cell", "%q is not a declared shared cell", name)
	}
	var sb setBlock
	if diags := gohcl.DecodeBody(b.Body, nil, &sb); diags.HasErrors() {
		return nil, diags
	}
	stmt := &config.SetStmt{Cell: cell, Clear: sb.ClearDefaultUpdate, DeclRange: b.DefRange()}
	if present(sb.Value) {
		dtype := cell.Type().DType
		v, diags := constValue(sb.Value, &dtype)
		if diags.HasErrors() {
			return nil, diags
		}
		stmt.Value = v
	}
	if present(sb.DefaultUpdate) {
		if sb.ClearDefaultUpdate {
			return nil, diagf(b.Body.SrcRange, "Conflicting settings", "default_update and clear_default_update cannot be combined")
		}
		n, diags := c.node(sb.DefaultUpdate)
		if diags.HasErrors() {
			return nil, diags
		}
		stmt.DefaultUpdate = n
	}
	if stmt.Value == nil && stmt.DefaultUpdate == nil && !stmt.Clear {
		return nil, diagf(b.Body.SrcRange, "Empty set", "set %q changes nothing", name)
	}
	return stmt, nil
}
