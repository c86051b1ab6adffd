package expr

import (
	"fmt"
	"math"

	"github.com/specialistvlad/cellgrid/internal/tensor"
)

type opKind uint8

const (
	elementwise opKind = iota
	reduction
)

// Op describes an operation: its arity, how it types its result and how it
// computes element values. Backends decide how and where it is evaluated.
type Op struct {
	Name   string
	Arity  int
	symbol string
	kind   opKind
	unary  func(float64) float64
	binary func(x, y float64) float64
	dtype  func(in ...tensor.DType) tensor.DType
}

// Elementwise reports whether the op maps elements independently, which
// makes it eligible for in-place evaluation.
func (o *Op) Elementwise() bool { return o.kind == elementwise }

func (o *Op) result(in []Type) Type {
	dtypes := make([]tensor.DType, len(in))
	rank := 0
	for i, t := range in {
		dtypes[i] = t.DType
		rank = max(rank, t.Rank)
	}
	if o.kind == reduction {
		rank = 0
	}
	return Type{DType: o.dtype(dtypes...), Rank: rank}
}

// Eval computes the op over concrete operands. dst, when non-nil, is a buffer
// the result may be written into; see tensor.Zip.
func (o *Op) Eval(in []*tensor.Tensor, dst *tensor.Tensor) (*tensor.Tensor, error) {
	if len(in) != o.Arity {
		return nil, fmt.Errorf("%s takes %d operands, got %d", o.Name, o.Arity, len(in))
	}
	dtypes := make([]tensor.DType, len(in))
	for i, t := range in {
		dtypes[i] = t.DType()
	}
	return o.EvalAs(in, o.dtype(dtypes...), dst)
}

// EvalAs is Eval with the result dtype fixed by the caller, for backends
// that track dtypes statically.
func (o *Op) EvalAs(in []*tensor.Tensor, out tensor.DType, dst *tensor.Tensor) (*tensor.Tensor, error) {
	if len(in) != o.Arity {
		return nil, fmt.Errorf("%s takes %d operands, got %d", o.Name, o.Arity, len(in))
	}
	switch {
	case o.kind == reduction:
		return tensor.Reduce(in[0], out, 0, func(acc, x float64) float64 { return acc + x }), nil
	case o.Arity == 1:
		return tensor.Map(in[0], out, o.unary, dst), nil
	default:
		res, err := tensor.Zip(in[0], in[1], out, o.binary, dst)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.Name, err)
		}
		return res, nil
	}
}

// arith is the dtype of integer-preserving arithmetic; booleans promote to
// int64.
func arith(in ...tensor.DType) tensor.DType {
	out := in[0]
	for _, d := range in[1:] {
		out = tensor.Upcast(out, d)
	}
	if out == tensor.Bool {
		return tensor.Int64
	}
	return out
}

// accumulate is the dtype of reductions: integer and boolean sums widen to
// int64.
func accumulate(in ...tensor.DType) tensor.DType {
	if in[0] == tensor.Float64 {
		return tensor.Float64
	}
	return tensor.Int64
}

func floating(...tensor.DType) tensor.DType { return tensor.Float64 }

var (
	OpAdd = &Op{Name: "add", Arity: 2, symbol: "+", dtype: arith,
		binary: func(x, y float64) float64 { return x + y }}
	OpSub = &Op{Name: "sub", Arity: 2, symbol: "-", dtype: arith,
		binary: func(x, y float64) float64 { return x - y }}
	OpMul = &Op{Name: "mul", Arity: 2, symbol: "*", dtype: arith,
		binary: func(x, y float64) float64 { return x * y }}
	OpDiv = &Op{Name: "div", Arity: 2, symbol: "/", dtype: floating,
		binary: func(x, y float64) float64 { return x / y }}
	OpPow = &Op{Name: "pow", Arity: 2, dtype: arith, binary: math.Pow}
	OpMax = &Op{Name: "maximum", Arity: 2, dtype: arith, binary: math.Max}
	OpMin = &Op{Name: "minimum", Arity: 2, dtype: arith, binary: math.Min}
	OpNeg = &Op{Name: "neg", Arity: 1, symbol: "-", dtype: arith,
		unary: func(x float64) float64 { return -x }}
	OpExp = &Op{Name: "exp", Arity: 1, dtype: floating, unary: math.Exp}
	OpLog = &Op{Name: "log", Arity: 1, dtype: floating, unary: math.Log}
	OpSum = &Op{Name: "sum", Arity: 1, kind: reduction, dtype: accumulate}
)

// Ops lists every operation by name.
var Ops = map[string]*Op{
	OpAdd.Name: OpAdd, OpSub.Name: OpSub, OpMul.Name: OpMul, OpDiv.Name: OpDiv,
	OpPow.Name: OpPow, OpMax.Name: OpMax, OpMin.Name: OpMin, OpNeg.Name: OpNeg,
	OpExp.Name: OpExp, OpLog.Name: OpLog, OpSum.Name: OpSum,
}

// Call applies op to operands. It panics if the arity is wrong.
func Call(op *Op, in ...Node) *Apply { return newApply(op, in...) }

func Add(a, b Node) *Apply     { return newApply(OpAdd, a, b) }
func Sub(a, b Node) *Apply     { return newApply(OpSub, a, b) }
func Mul(a, b Node) *Apply     { return newApply(OpMul, a, b) }
func Div(a, b Node) *Apply     { return newApply(OpDiv, a, b) }
func Pow(a, b Node) *Apply     { return newApply(OpPow, a, b) }
func Maximum(a, b Node) *Apply { return newApply(OpMax, a, b) }
func Minimum(a, b Node) *Apply { return newApply(OpMin, a, b) }
func Neg(a Node) *Apply        { return newApply(OpNeg, a) }
func Exp(a Node) *Apply        { return newApply(OpExp, a) }
func Log(a Node) *Apply        { return newApply(OpLog, a) }
func Sum(a Node) *Apply        { return newApply(OpSum, a) }
