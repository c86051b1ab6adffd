package tensor

import (
	"fmt"
	"math"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// CtyType returns the cty type a tensor of the given rank converts to:
// number for scalars, nested lists of numbers otherwise.
func CtyType(rank int) cty.Type {
	ty := cty.Number
	for i := 0; i < rank; i++ {
		ty = cty.List(ty)
	}
	return ty
}

// CapsuleType carries a *Tensor through cty unchanged. Evaluators pass
// tensors as capsules so that values cty numbers cannot hold, such as NaN,
// survive evaluation.
var CapsuleType = cty.Capsule("tensor", reflect.TypeOf(Tensor{}))

// Capsule wraps t in a CapsuleType value. The tensor is shared, not copied.
func (t *Tensor) Capsule() cty.Value {
	return cty.CapsuleVal(CapsuleType, t)
}

// FromCapsule unwraps a CapsuleType value.
func FromCapsule(v cty.Value) (*Tensor, error) {
	if !v.Type().Equals(CapsuleType) {
		return nil, fmt.Errorf("%w: expected a tensor, got %s", ErrUnsupportedValue, v.Type().FriendlyName())
	}
	if v.IsNull() || !v.IsKnown() {
		return nil, fmt.Errorf("%w: tensor is null or unknown", ErrUnsupportedValue)
	}
	return v.EncapsulatedValue().(*Tensor), nil
}

// ToCty converts the tensor into a cty value of CtyType(t.Rank()). Booleans
// are represented as the numbers 0 and 1 so that arithmetic stays uniform.
// Infinities map to cty's infinities; NaN has no cty number form and is
// rejected.
func (t *Tensor) ToCty() (cty.Value, error) {
	if len(t.shape) == 0 {
		return ctyNumber(t.data[0])
	}
	var build func(dim, offset int) (cty.Value, int, error)
	build = func(dim, offset int) (cty.Value, int, error) {
		n := t.shape[dim]
		if n == 0 {
			return cty.ListValEmpty(CtyType(len(t.shape) - dim - 1)), offset, nil
		}
		elems := make([]cty.Value, n)
		for i := range elems {
			var err error
			if dim == len(t.shape)-1 {
				elems[i], err = ctyNumber(t.data[offset])
				offset++
			} else {
				elems[i], offset, err = build(dim+1, offset)
			}
			if err != nil {
				return cty.NilVal, offset, err
			}
		}
		return cty.ListVal(elems), offset, nil
	}
	v, _, err := build(0, 0)
	return v, err
}

func ctyNumber(x float64) (cty.Value, error) {
	switch {
	case math.IsNaN(x):
		return cty.NilVal, fmt.Errorf("%w: NaN has no cty number form", ErrUnsupportedValue)
	case math.IsInf(x, 1):
		return cty.PositiveInfinity, nil
	case math.IsInf(x, -1):
		return cty.NegativeInfinity, nil
	}
	return cty.NumberFloatVal(x), nil
}

// FromCty converts a cty value into a tensor of the given dtype. Numbers,
// bools, numeric strings and rectangular lists or tuples of them are
// accepted. Values that cannot be represented exactly in dtype are rejected.
func FromCty(v cty.Value, dtype DType) (*Tensor, error) {
	var shape []int
	var data []float64
	if err := flattenCty(v, 0, &shape, &data); err != nil {
		return nil, err
	}
	for _, x := range data {
		if (math.IsInf(x, 0) && dtype != Float64) || (dtype.normalize(x) != x && !math.IsNaN(x)) {
			return nil, fmt.Errorf("%w: %v is not representable as %s", ErrUnsupportedValue, x, dtype)
		}
	}
	return &Tensor{dtype: dtype, shape: shape, data: data}, nil
}

// InferFromCty converts a cty value choosing the narrowest natural dtype:
// Bool for booleans, Int64 when every element is integral, Float64
// otherwise.
func InferFromCty(v cty.Value) (*Tensor, error) {
	dtype := Int64
	if isBoolValue(v) {
		dtype = Bool
	}
	var shape []int
	var data []float64
	if err := flattenCty(v, 0, &shape, &data); err != nil {
		return nil, err
	}
	if dtype == Int64 {
		for _, x := range data {
			if x != math.Trunc(x) {
				dtype = Float64
				break
			}
		}
	}
	return &Tensor{dtype: dtype, shape: shape, data: data}, nil
}

func isBoolValue(v cty.Value) bool {
	ty := v.Type()
	for ty.IsListType() {
		ty = ty.ElementType()
	}
	if ty.IsTupleType() {
		types := ty.TupleElementTypes()
		if len(types) == 0 {
			return false
		}
		ty = types[0]
	}
	return ty == cty.Bool
}

func flattenCty(v cty.Value, depth int, shape *[]int, data *[]float64) error {
	if v.IsNull() {
		return fmt.Errorf("%w: null value", ErrUnsupportedValue)
	}
	if !v.IsWhollyKnown() {
		return fmt.Errorf("%w: value is not known", ErrUnsupportedValue)
	}
	ty := v.Type()
	switch {
	case ty == cty.Number || ty == cty.Bool || ty == cty.String:
		if depth != len(*shape) {
			return fmt.Errorf("%w: ragged nesting", ErrShapeMismatch)
		}
		num, err := convert.Convert(v, cty.Number)
		if err != nil {
			if ty == cty.Bool {
				num = cty.Zero
				if v.True() {
					num = cty.NumberIntVal(1)
				}
			} else {
				return fmt.Errorf("%w: %s", ErrUnsupportedValue, err)
			}
		}
		var f float64
		if err := gocty.FromCtyValue(num, &f); err != nil {
			return fmt.Errorf("%w: %s", ErrUnsupportedValue, err)
		}
		*data = append(*data, f)
		return nil
	case ty.IsListType() || ty.IsTupleType():
		n := v.LengthInt()
		if depth == len(*shape) {
			if len(*data) > 0 {
				return fmt.Errorf("%w: ragged nesting", ErrShapeMismatch)
			}
			*shape = append(*shape, n)
		} else if depth > len(*shape) || (*shape)[depth] != n {
			return fmt.Errorf("%w: ragged nesting", ErrShapeMismatch)
		}
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			if err := flattenCty(elem, depth+1, shape, data); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: cty type %s", ErrUnsupportedValue, ty.FriendlyName())
	}
}
