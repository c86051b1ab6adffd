package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/cellgrid/internal/compile"
	"github.com/specialistvlad/cellgrid/internal/expr"
	"github.com/specialistvlad/cellgrid/internal/shared"
	"github.com/specialistvlad/cellgrid/internal/tensor"
)

// Script is the unified, format-agnostic representation of a pipeline.
type Script struct {
	Symbols map[string]*expr.Symbol
	// Cells holds every declared cell. CellOrder keeps declaration order for
	// reporting.
	Cells      map[string]*shared.Cell
	CellOrder  []string
	Statements []Statement
}

// NewScript returns an empty script.
func NewScript() *Script {
	return &Script{
		Symbols: make(map[string]*expr.Symbol),
		Cells:   make(map[string]*shared.Cell),
	}
}

// Statement is one executable step of a script.
type Statement interface {
	// Range locates the statement in its source.
	Range() hcl.Range
}

// CellDecl attaches the default update declared with a cell. The cell itself
// already exists in Script.Cells.
type CellDecl struct {
	Cell          *shared.Cell
	DefaultUpdate expr.Node
	DeclRange     hcl.Range
}

// FunctionDecl compiles a function and makes it callable by name.
type FunctionDecl struct {
	Name      string
	Options   compile.Options
	DeclRange hcl.Range
}

// CallStmt invokes a declared function Repeat times with named arguments.
type CallStmt struct {
	Function  string
	Repeat    int
	Args      map[string]*tensor.Tensor
	DeclRange hcl.Range
}

// SetStmt changes a cell outside of any function: it replaces the value,
// attaches a default update, or clears it. Fields left nil are not touched.
type SetStmt struct {
	Cell          *shared.Cell
	Value         *tensor.Tensor
	DefaultUpdate expr.Node
	Clear         bool
	DeclRange     hcl.Range
}

func (s *CellDecl) Range() hcl.Range     { return s.DeclRange }
func (s *FunctionDecl) Range() hcl.Range { return s.DeclRange }
func (s *CallStmt) Range() hcl.Range     { return s.DeclRange }
func (s *SetStmt) Range() hcl.Range      { return s.DeclRange }
