package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/expr"
	"github.com/specialistvlad/cellgrid/internal/tensor"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// HCL lowers a graph into HCL native-syntax expressions calling one cty
// function per (op, result dtype) pair, parses them once, and evaluates them
// with an hcl.EvalContext on every run. Tensors travel through cty as
// tensor.CapsuleType values, never as cty numbers.
//
// Apply nodes that are roots or have several consumers are hoisted into
// their own statement and referenced by variable, so shared subexpressions
// are computed once.
type HCL struct{}

// NewHCL returns the hcl evaluator.
func NewHCL() *HCL { return &HCL{} }

func (*HCL) Mode() string  { return ModeHCL }
func (*HCL) InPlace() bool { return false }

type hclStmt struct {
	name string
	node expr.Node
	expr hclsyntax.Expression
}

type hclProgram struct {
	roots  []expr.Node
	leaves map[string]expr.Node
	consts map[string]cty.Value
	stmts  []hclStmt
	funcs  map[string]function.Function
}

type lowering struct {
	vars    map[expr.Node]string
	leaves  map[string]expr.Node
	consts  map[string]cty.Value
	funcs   map[string]function.Function
	clients map[expr.Node]int
	roots   map[expr.Node]bool
}

func (h *HCL) Lower(ctx context.Context, roots []expr.Node) (Program, error) {
	logger := ctxlog.FromContext(ctx)
	for n, r := range roots {
		if r == nil {
			return nil, fmt.Errorf("root %d is nil", n)
		}
	}
	l := &lowering{
		vars:    make(map[expr.Node]string),
		leaves:  make(map[string]expr.Node),
		consts:  make(map[string]cty.Value),
		funcs:   make(map[string]function.Function),
		clients: make(map[expr.Node]int),
		roots:   make(map[expr.Node]bool),
	}
	order := expr.Topo(roots...)
	for _, n := range order {
		for _, in := range n.Inputs() {
			l.clients[in]++
		}
	}
	for _, r := range roots {
		l.roots[r] = true
	}

	prog := &hclProgram{roots: roots, leaves: l.leaves, consts: l.consts, funcs: l.funcs}
	for _, n := range order {
		switch n := n.(type) {
		case *expr.Const:
			name := fmt.Sprintf("k%d", len(l.consts))
			l.vars[n] = name
			l.consts[name] = n.Value().Capsule()
		case *expr.Apply:
			if !l.roots[n] && l.clients[n] < 2 {
				continue
			}
			name := fmt.Sprintf("t%d", len(prog.stmts))
			src := l.emit(n)
			parsed, diags := hclsyntax.ParseExpression([]byte(src), name+".hcl", hcl.Pos{Line: 1, Column: 1, Byte: 0})
			if diags.HasErrors() {
				return nil, fmt.Errorf("lowering %s: %w", n, diags)
			}
			l.vars[n] = name
			prog.stmts = append(prog.stmts, hclStmt{name: name, node: n, expr: parsed})
			logger.Debug("Lowered statement.", "name", name, "source", src)
		default:
			name := fmt.Sprintf("v%d", len(l.leaves))
			l.vars[n] = name
			l.leaves[name] = n
		}
	}
	return prog, nil
}

// emit renders n as HCL source. Nodes that already have a variable are
// referenced by name.
func (l *lowering) emit(n expr.Node) string {
	if name, ok := l.vars[n]; ok {
		return name
	}
	a := n.(*expr.Apply)
	fn := fmt.Sprintf("%s_%s", a.Op().Name, a.Type().DType)
	if _, ok := l.funcs[fn]; !ok {
		l.funcs[fn] = opFunction(a.Op(), a.Type().DType)
	}
	args := make([]string, len(a.Inputs()))
	for i, in := range a.Inputs() {
		args[i] = l.emit(in)
	}
	return fmt.Sprintf("%s(%s)", fn, strings.Join(args, ", "))
}

// opFunction wraps op as a cty function producing values of dtype out.
func opFunction(op *expr.Op, out tensor.DType) function.Function {
	params := make([]function.Parameter, op.Arity)
	for i := range params {
		params[i] = function.Parameter{Name: fmt.Sprintf("x%d", i), Type: tensor.CapsuleType}
	}
	return function.New(&function.Spec{
		Description: fmt.Sprintf("%s producing %s", op.Name, out),
		Params:      params,
		Type:        function.StaticReturnType(tensor.CapsuleType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			in := make([]*tensor.Tensor, len(args))
			for i, a := range args {
				t, err := tensor.FromCapsule(a)
				if err != nil {
					return cty.NilVal, err
				}
				in[i] = t
			}
			res, err := op.EvalAs(in, out, nil)
			if err != nil {
				return cty.NilVal, err
			}
			return res.Capsule(), nil
		},
	})
}

func (p *hclProgram) Run(ctx context.Context, env Env, _ map[expr.Node]bool) ([]*tensor.Tensor, error) {
	evalCtx := &hcl.EvalContext{
		Variables: make(map[string]cty.Value, len(p.leaves)+len(p.consts)+len(p.stmts)),
		Functions: p.funcs,
	}
	for name, leaf := range p.leaves {
		v, ok := env[leaf]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnbound, leaf)
		}
		evalCtx.Variables[name] = v.Capsule()
	}
	for name, v := range p.consts {
		evalCtx.Variables[name] = v
	}

	results := make(map[expr.Node]*tensor.Tensor, len(p.stmts))
	for _, s := range p.stmts {
		v, diags := s.expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("evaluating %s: %w", s.node, callError(diags))
		}
		evalCtx.Variables[s.name] = v
		if p.isRoot(s.node) {
			t, err := tensor.FromCapsule(v)
			if err != nil {
				return nil, fmt.Errorf("decoding %s: %w", s.node, err)
			}
			results[s.node] = t
		}
	}

	outs := make([]*tensor.Tensor, len(p.roots))
	for i, r := range p.roots {
		switch r := r.(type) {
		case *expr.Apply:
			outs[i] = results[r]
		case *expr.Const:
			outs[i] = r.Value()
		default:
			outs[i] = env[r]
		}
	}
	return outs, nil
}

func (p *hclProgram) isRoot(n expr.Node) bool {
	for _, r := range p.roots {
		if r == n {
			return true
		}
	}
	return false
}

// callError digs the function's own error out of HCL diagnostics so that
// callers can match it with errors.Is.
func callError(diags hcl.Diagnostics) error {
	for _, d := range diags {
		if extra, ok := hcl.DiagnosticExtra[hclsyntax.FunctionCallDiagExtra](d); ok {
			if err := extra.FunctionCallError(); err != nil {
				return err
			}
		}
	}
	return diags
}
