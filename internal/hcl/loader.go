package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL script loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every .hcl file under paths and translates their blocks, in
// path order, into a single script. Symbols and cells are declared in a first
// pass so that expressions may refer to names declared further down.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Script, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	var blocks []*hclsyntax.Block
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		body, ok := f.Body.(*hclsyntax.Body)
		if !ok {
			return nil, fmt.Errorf("failed to parse HCL file %s: not native syntax", file)
		}
		if diags := checkTopLevel(body); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		blocks = append(blocks, body.Blocks...)
	}

	script, diags := translate(ctx, blocks)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to translate script: %w", diags)
	}
	logger.Debug("HCL loading complete.", "symbols", len(script.Symbols), "cells", len(script.Cells), "statements", len(script.Statements))
	return script, nil
}

// LoadSource translates a single in-memory script. It is the entry point for
// embedded scripts and tests.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) (*config.Script, error) {
	f, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL source %s: %w", filename, diags)
	}
	body := f.Body.(*hclsyntax.Body)
	if diags := checkTopLevel(body); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL source %s: %w", filename, diags)
	}
	script, diags := translate(ctx, body.Blocks)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to translate script: %w", diags)
	}
	return script, nil
}

var blockTypes = map[string]struct{}{
	"symbol": {}, "shared": {}, "function": {}, "call": {}, "set": {},
}

func checkTopLevel(body *hclsyntax.Body) hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, attr := range body.Attributes {
		diags = append(diags, diagf(attr.SrcRange, "Unexpected attribute", "attribute %q is not allowed at the top level", attr.Name)...)
	}
	for _, b := range body.Blocks {
		if _, ok := blockTypes[b.Type]; !ok {
			diags = append(diags, diagf(b.TypeRange, "Unsupported block type", "blocks of type %q are not expected here", b.Type)...)
			continue
		}
		if len(b.Labels) != 1 {
			diags = append(diags, diagf(b.DefRange(), "Wrong number of labels", "a %s block takes exactly one label", b.Type)...)
		}
	}
	return diags
}

func translate(ctx context.Context, blocks []*hclsyntax.Block) (*config.Script, hcl.Diagnostics) {
	c := &converter{script: config.NewScript(), functions: make(map[string]*config.FunctionDecl)}

	cells := make(map[*hclsyntax.Block]*sharedBlock)
	for _, b := range blocks {
		switch b.Type {
		case "symbol":
			if diags := c.declareSymbol(ctx, b); diags.HasErrors() {
				return nil, diags
			}
		case "shared":
			sb, diags := c.declareCell(ctx, b)
			if diags.HasErrors() {
				return nil, diags
			}
			cells[b] = sb
		}
	}

	for _, b := range blocks {
		var (
			stmt  config.Statement
			diags hcl.Diagnostics
		)
		switch b.Type {
		case "shared":
			stmt, diags = c.translateCell(b, cells[b])
		case "function":
			stmt, diags = c.translateFunction(ctx, b)
		case "call":
			stmt, diags = c.translateCall(b)
		case "set":
			stmt, diags = c.translateSet(b)
		default:
			continue
		}
		if diags.HasErrors() {
			return nil, diags
		}
		if stmt != nil {
			c.script.Statements = append(c.script.Statements, stmt)
		}
	}
	return c.script, nil
}
