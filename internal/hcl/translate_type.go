// This file contains the logic for parsing dtype expressions (e.g. `int64`
// or `"float64"`) and the declarations that use them.

package hcl

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/expr"
	"github.com/specialistvlad/cellgrid/internal/shared"
	"github.com/specialistvlad/cellgrid/internal/tensor"
	"github.com/zclconf/go-cty/cty"
)

// dtypeFromExpr accepts either a bare keyword or a string.
func dtypeFromExpr(e hcl.Expression) (tensor.DType, hcl.Diagnostics) {
	name := hcl.ExprAsKeyword(e)
	if name == "" {
		v, diags := e.Value(nil)
		if diags.HasErrors() {
			return 0, diags
		}
		if v.IsNull() || !v.IsKnown() || v.Type() != cty.String {
			return 0, diagf(e.Range(), "Invalid dtype", "dtype must be one of bool, int32, int64 or float64")
		}
		name = v.AsString()
	}
	d, err := tensor.ParseDType(name)
	if err != nil {
		return 0, diagf(e.Range(), "Invalid dtype", "%v", err)
	}
	return d, nil
}

// present reports whether an optional attribute was set to a non-null
// value. gohcl fills missing expression attributes with a static null.
func present(e hcl.Expression) bool {
	switch e := e.(type) {
	case nil:
		return false
	case *hclsyntax.LiteralValueExpr:
		return !e.Val.IsNull()
	case hclsyntax.Expression:
		return true
	default:
		v, diags := e.Value(nil)
		return diags.HasErrors() || !v.IsNull()
	}
}

func (c *converter) declareName(name string, rng hcl.Range) hcl.Diagnostics {
	if _, ok := c.script.Symbols[name]; ok {
		return diagf(rng, "Duplicate declaration", "%q is already declared as a symbol", name)
	}
	if _, ok := c.script.Cells[name]; ok {
		return diagf(rng, "Duplicate declaration", "%q is already declared as a shared cell", name)
	}
	return nil
}

func (c *converter) declareSymbol(ctx context.Context, b *hclsyntax.Block) hcl.Diagnostics {
	name := b.Labels[0]
	if diags := c.declareName(name, b.LabelRanges[0]); diags.HasErrors() {
		return diags
	}
	var sb symbolBlock
	if diags := gohcl.DecodeBody(b.Body, nil, &sb); diags.HasErrors() {
		return diags
	}
	dtype, diags := dtypeFromExpr(sb.DType)
	if diags.HasErrors() {
		return diags
	}
	if sb.Rank < 0 {
		return diagf(b.Body.SrcRange, "Invalid rank", "rank of %q must not be negative", name)
	}
	sym := expr.NewSymbol(name, dtype, sb.Rank)
	c.script.Symbols[name] = sym
	ctxlog.FromContext(ctx).Debug("Declared symbol.", "name", name, "type", sym.Type())
	return nil
}

func (c *converter) declareCell(ctx context.Context, b *hclsyntax.Block) (*sharedBlock, hcl.Diagnostics) {
	name := b.Labels[0]
	if diags := c.declareName(name, b.LabelRanges[0]); diags.HasErrors() {
		return nil, diags
	}
	var sb sharedBlock
	if diags := gohcl.DecodeBody(b.Body, nil, &sb); diags.HasErrors() {
		return nil, diags
	}
	var dtype *tensor.DType
	if present(sb.DType) {
		d, diags := dtypeFromExpr(sb.DType)
		if diags.HasErrors() {
			return nil, diags
		}
		dtype = &d
	}
	value, diags := constValue(sb.Value, dtype)
	if diags.HasErrors() {
		return nil, diags
	}
	cell, err := shared.New(value, name)
	if err != nil {
		return nil, diagf(sb.Value.Range(), "Invalid shared value", "%v", err)
	}
	c.script.Cells[name] = cell
	c.script.CellOrder = append(c.script.CellOrder, name)
	ctxlog.FromContext(ctx).Debug("Declared shared cell.", "name", name, "type", cell.Type())
	return &sb, nil
}
