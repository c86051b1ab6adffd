package compile_test

import (
	"context"
	"testing"

	"github.com/specialistvlad/cellgrid/internal/backend"
	"github.com/specialistvlad/cellgrid/internal/compile"
	"github.com/specialistvlad/cellgrid/internal/expr"
	"github.com/specialistvlad/cellgrid/internal/shared"
	"github.com/specialistvlad/cellgrid/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParam_Strict(t *testing.T) {
	a := expr.Vector("a", tensor.Float64)
	b := shared.MustNew(7, "b")
	out := expr.Add(a, b)

	f := mustCompile(t, compile.Options{Inputs: []*compile.Param{compile.NewParam(a)}, Outputs: []expr.Node{out}})
	assert.Equal(t, []float64{8, 9}, mustCall(t, f, []float64{1, 2}).Values()[0].Data())
	assert.Equal(t, []float64{8, 9, 10, 11}, mustCall(t, f, []int32{1, 2, 3, 4}).Values()[0].Data(), "safe casts are allowed")

	strict := mustCompile(t, compile.Options{Inputs: []*compile.Param{compile.NewParam(a, compile.Strict())}, Outputs: []expr.Node{out}})
	_, err := strict.Call(context.Background(), []int32{1, 2, 3, 4})
	require.ErrorIs(t, err, compile.ErrStrictTypeMismatch)
	assert.Equal(t, []float64{8}, mustCall(t, strict, []float64{1}).Values()[0].Data())
}

func TestParam_FrozenAtCompileTime(t *testing.T) {
	a := expr.Vector("a", tensor.Float64)
	p := compile.NewParam(a, compile.WithDefault([]float64{5}))
	f := mustCompile(t, compile.Options{Inputs: []*compile.Param{p}, Output: expr.Neg(a)})

	p.Strict = true
	p.Name = "renamed"
	p.Default = []float64{9}
	assert.Equal(t, []float64{-1, -2}, single(t, mustCall(t, f, []int32{1, 2})).Data(), "still casts")
	assert.Equal(t, []float64{-5}, single(t, mustCall(t, f)).Data(), "still uses the compiled default")
	_, err := f.CallNamed(context.Background(), map[string]any{"renamed": []float64{1}})
	require.ErrorIs(t, err, compile.ErrBadArgument)

	in := f.Inputs()
	require.Len(t, in, 1)
	assert.False(t, in[0].Strict)
	assert.Equal(t, "a", in[0].Label())
	in[0].Strict = true
	assert.Equal(t, []float64{-3}, single(t, mustCall(t, f, []int32{3})).Data())
	assert.False(t, f.Inputs()[0].Strict)
}

func TestParam_NoSafeCast(t *testing.T) {
	n := expr.Scalar("n", tensor.Int32)
	f := mustCompile(t, compile.Options{Inputs: compile.Inputs(n), Output: expr.Neg(n)})

	_, err := f.Call(context.Background(), 1.5)
	require.ErrorIs(t, err, compile.ErrStrictTypeMismatch)
	assert.Contains(t, err.Error(), "no safe cast")

	_, err = f.Call(context.Background(), int64(3))
	require.ErrorIs(t, err, compile.ErrStrictTypeMismatch, "int64 does not fit int32 safely")

	_, err = f.Call(context.Background(), []int32{1})
	require.ErrorIs(t, err, compile.ErrStrictTypeMismatch, "rank must match")

	_, err = f.Call(context.Background(), "three")
	require.ErrorIs(t, err, compile.ErrBadArgument)

	assert.Equal(t, -1.0, single(t, mustCall(t, f, true)).Item(), "bool widens to int32")
}

func TestParam_Mutable(t *testing.T) {
	a := expr.Vector("a", tensor.Float64)
	aOut := expr.Mul(a, expr.C(2.0))

	fip := mustCompile(t, compile.Options{
		Inputs:  []*compile.Param{compile.NewParam(a, compile.Mutable())},
		Outputs: []expr.Node{aOut},
		Mode:    backend.ModeFastRun,
	})
	aval := []float64{1, 2, 3}
	assert.Equal(t, []float64{2, 4, 6}, mustCall(t, fip, aval).Values()[0].Data())
	assert.Equal(t, []float64{2, 4, 6}, aval, "a mutable argument may be overwritten")

	for _, mode := range modes {
		f := mustCompile(t, compile.Options{
			Inputs:  []*compile.Param{compile.NewParam(a)},
			Outputs: []expr.Node{aOut},
			Mode:    mode,
		})
		aval := []float64{1, 2, 3}
		assert.Equal(t, []float64{2, 4, 6}, mustCall(t, f, aval).Values()[0].Data(), mode)
		assert.Equal(t, []float64{1, 2, 3}, aval, "%s: a non-mutable argument is left untouched", mode)
	}
}

func TestParam_DefaultIsNotConsumed(t *testing.T) {
	a := expr.Vector("a", tensor.Float64)
	f := mustCompile(t, compile.Options{
		Inputs: []*compile.Param{compile.NewParam(a, compile.WithDefault([]float64{1, 1}), compile.Mutable())},
		Output: expr.Add(a, expr.C(1.0)),
		Mode:   backend.ModeFastRun,
	})
	assert.Equal(t, []float64{2, 2}, single(t, mustCall(t, f)).Data())
	assert.Equal(t, []float64{2, 2}, single(t, mustCall(t, f)).Data(), "in-place evaluation never reaches the stored default")
}

func TestFunction_Binding(t *testing.T) {
	a := expr.Scalar("a", tensor.Int64)
	b := expr.Scalar("b", tensor.Int64)
	f := mustCompile(t, compile.Options{
		Name: "diff",
		Inputs: []*compile.Param{
			compile.NewParam(a, compile.WithName("alpha")),
			compile.NewParam(b, compile.WithDefault(10)),
		},
		Output: expr.Sub(a, b),
	})
	ctx := context.Background()

	res, err := f.CallNamed(ctx, map[string]any{"alpha": 3, "b": 1})
	require.NoError(t, err)
	assert.Equal(t, 2.0, single(t, res).Item())

	assert.Equal(t, -7.0, single(t, mustCall(t, f, 3)).Item())

	_, err = f.Call(ctx)
	require.ErrorIs(t, err, compile.ErrMissingArgument)
	assert.Contains(t, err.Error(), "diff")

	_, err = f.Call(ctx, 1, 2, 3)
	require.ErrorIs(t, err, compile.ErrBadArgument)

	_, err = f.CallNamed(ctx, map[string]any{"a": 1})
	require.ErrorIs(t, err, compile.ErrBadArgument, "a is bound as alpha")

	assert.Equal(t, "diff", f.Name())
	assert.Equal(t, backend.DefaultMode, f.Mode())
	require.Len(t, f.Inputs(), 2)
	assert.Equal(t, "alpha", f.Inputs()[0].Name)
}

func TestFunction_AmbiguousNames(t *testing.T) {
	a1 := expr.Scalar("a", tensor.Int64)
	a2 := expr.Scalar("a", tensor.Int64)
	f := mustCompile(t, compile.Options{Inputs: compile.Inputs(a1, a2), Output: expr.Add(a1, a2)})

	assert.Equal(t, 3.0, single(t, mustCall(t, f, 1, 2)).Item())
	_, err := f.CallNamed(context.Background(), map[string]any{"a": 1})
	require.ErrorIs(t, err, compile.ErrBadArgument)
}

func TestResult_Unwrap(t *testing.T) {
	a := expr.Scalar("a", tensor.Int64)

	one := mustCompile(t, compile.Options{Inputs: compile.Inputs(a), Outputs: []expr.Node{a}})
	vals, ok := mustCall(t, one, 5).Unwrap().([]*tensor.Tensor)
	require.True(t, ok, "Outputs always yields a slice")
	require.Len(t, vals, 1)
	assert.Equal(t, 5.0, vals[0].Item())

	two := mustCompile(t, compile.Options{Inputs: compile.Inputs(a), Outputs: []expr.Node{expr.Neg(a), a}})
	res := mustCall(t, two, 5)
	require.Len(t, res.Values(), 2)
	assert.Equal(t, -5.0, res.Values()[0].Item())
	assert.Equal(t, 5.0, res.Values()[1].Item())
}

func TestFunction_CustomEvaluator(t *testing.T) {
	a := expr.Scalar("a", tensor.Int64)
	f := mustCompile(t, compile.Options{
		Inputs:    compile.Inputs(a),
		Output:    expr.Add(a, a),
		Mode:      "ignored",
		Evaluator: backend.NewHCL(),
	})
	assert.Equal(t, backend.ModeHCL, f.Mode())
	assert.Equal(t, 8.0, single(t, mustCall(t, f, 4)).Item())
}
