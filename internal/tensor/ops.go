package tensor

import (
	"fmt"
	"slices"
)

// Map applies fn to every element of a and returns a tensor of dtype out.
// When dst has the result's dtype and shape its buffer is reused, otherwise
// a new tensor is allocated.
func Map(a *Tensor, out DType, fn func(float64) float64, dst *Tensor) *Tensor {
	res := reuse(dst, out, a.shape)
	for i, v := range a.data {
		res.data[i] = out.normalize(fn(v))
	}
	return res
}

// Zip combines a and b element by element. The operands must have the same
// shape, or one of them must be a scalar which is then broadcast. dst is
// reused under the same conditions as in Map; it may alias a or b.
func Zip(a, b *Tensor, out DType, fn func(x, y float64) float64, dst *Tensor) (*Tensor, error) {
	switch {
	case a.SameShape(b):
		res := reuse(dst, out, a.shape)
		for i := range a.data {
			res.data[i] = out.normalize(fn(a.data[i], b.data[i]))
		}
		return res, nil
	case len(b.shape) == 0:
		y := b.data[0]
		res := reuse(dst, out, a.shape)
		for i := range a.data {
			res.data[i] = out.normalize(fn(a.data[i], y))
		}
		return res, nil
	case len(a.shape) == 0:
		x := a.data[0]
		res := reuse(dst, out, b.shape)
		for i := range b.data {
			res.data[i] = out.normalize(fn(x, b.data[i]))
		}
		return res, nil
	default:
		return nil, fmt.Errorf("%w: %v and %v", ErrShapeMismatch, a.shape, b.shape)
	}
}

// Reduce folds every element of a into a scalar of dtype out.
func Reduce(a *Tensor, out DType, init float64, fn func(acc, x float64) float64) *Tensor {
	acc := init
	for _, v := range a.data {
		acc = fn(acc, v)
	}
	return Scalar(out, acc)
}

func reuse(dst *Tensor, dtype DType, shape []int) *Tensor {
	if dst != nil && dst.dtype == dtype && slices.Equal(dst.shape, shape) {
		return dst
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Tensor{dtype: dtype, shape: slices.Clone(shape), data: make([]float64, n)}
}
