package hcl

import "github.com/hashicorp/hcl/v2"

// Block bodies, decoded with gohcl. Expressions stay undecoded so that they
// can be translated into graphs rather than evaluated.

type symbolBlock struct {
	DType hcl.Expression `hcl:"dtype"`
	Rank  int            `hcl:"rank,optional"`
}

type sharedBlock struct {
	Value         hcl.Expression `hcl:"value"`
	DType         hcl.Expression `hcl:"dtype,optional"`
	DefaultUpdate hcl.Expression `hcl:"default_update,optional"`
}

type functionBlock struct {
	Inputs           []*inputBlock  `hcl:"input,block"`
	Output           hcl.Expression `hcl:"output,optional"`
	Outputs          hcl.Expression `hcl:"outputs,optional"`
	Updates          hcl.Expression `hcl:"updates,optional"`
	Givens           hcl.Expression `hcl:"givens,optional"`
	NoDefaultUpdates hcl.Expression `hcl:"no_default_updates,optional"`
	Mode             string         `hcl:"mode,optional"`
}

type inputBlock struct {
	Symbol  string         `hcl:"symbol,label"`
	Default hcl.Expression `hcl:"default,optional"`
	Strict  bool           `hcl:"strict,optional"`
	Mutable bool           `hcl:"mutable,optional"`
	Name    string         `hcl:"name,optional"`

	DeclRange hcl.Range `hcl:",def_range"`
}

type callBlock struct {
	Repeat *int           `hcl:"repeat,optional"`
	Args   hcl.Expression `hcl:"args,optional"`
}

type setBlock struct {
	Value              hcl.Expression `hcl:"value,optional"`
	DefaultUpdate      hcl.Expression `hcl:"default_update,optional"`
	ClearDefaultUpdate bool           `hcl:"clear_default_update,optional"`
}
