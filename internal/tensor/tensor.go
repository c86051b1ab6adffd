// Package tensor implements the dense numeric values that flow through
// compiled functions and live inside shared cells.
//
// Every Tensor stores its elements as float64 in row-major order regardless
// of its DType; the DType constrains which values are representable and how
// results of arithmetic are rounded.
package tensor

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrShapeMismatch is returned when the shapes of two operands cannot be
	// combined.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrUnsupportedValue is returned when a Go value has no Tensor
	// representation.
	ErrUnsupportedValue = errors.New("unsupported value")
)

// Tensor is a dense n-dimensional array.
type Tensor struct {
	dtype DType
	shape []int
	data  []float64
}

// New builds a tensor over data. New takes ownership of data: the slice is
// not copied and its elements are normalised to the dtype in place.
func New(dtype DType, shape []int, data []float64) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("negative dimension in shape %v", shape)
		}
		n *= d
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %d elements, got %d", ErrShapeMismatch, shape, n, len(data))
	}
	if dtype != Float64 {
		for i, v := range data {
			data[i] = dtype.normalize(v)
		}
	}
	return &Tensor{dtype: dtype, shape: slices.Clone(shape), data: data}, nil
}

// Scalar returns a rank-0 tensor holding v.
func Scalar(dtype DType, v float64) *Tensor {
	return &Tensor{dtype: dtype, data: []float64{dtype.normalize(v)}}
}

// Vector returns a rank-1 tensor holding a copy of vs.
func Vector(dtype DType, vs ...float64) *Tensor {
	data := make([]float64, len(vs))
	for i, v := range vs {
		data[i] = dtype.normalize(v)
	}
	return &Tensor{dtype: dtype, shape: []int{len(vs)}, data: data}
}

// Zeros returns a zero-filled tensor of the given shape.
func Zeros(dtype DType, shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Tensor{dtype: dtype, shape: slices.Clone(shape), data: make([]float64, n)}
}

// DType returns the element type.
func (t *Tensor) DType() DType { return t.dtype }

// Shape returns a copy of the tensor's dimensions.
func (t *Tensor) Shape() []int { return slices.Clone(t.shape) }

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Size returns the number of elements.
func (t *Tensor) Size() int { return len(t.data) }

// Data exposes the backing buffer. Writes through it are visible to every
// holder of the tensor.
func (t *Tensor) Data() []float64 { return t.data }

// Item returns the single element of a tensor of size one. It panics for
// any other size.
func (t *Tensor) Item() float64 {
	if len(t.data) != 1 {
		panic(fmt.Sprintf("tensor: Item called on tensor of shape %v", t.shape))
	}
	return t.data[0]
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{dtype: t.dtype, shape: slices.Clone(t.shape), data: slices.Clone(t.data)}
}

// Cast returns a new tensor converted to dtype. Narrowing casts truncate.
func (t *Tensor) Cast(dtype DType) *Tensor {
	out := &Tensor{dtype: dtype, shape: slices.Clone(t.shape), data: make([]float64, len(t.data))}
	for i, v := range t.data {
		out.data[i] = dtype.normalize(v)
	}
	return out
}

// SameShape reports whether both tensors have identical dimensions.
func (t *Tensor) SameShape(o *Tensor) bool {
	return slices.Equal(t.shape, o.shape)
}

// Equal reports whether both tensors have the same dtype, shape and elements.
func (t *Tensor) Equal(o *Tensor) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.dtype == o.dtype && t.SameShape(o) && slices.Equal(t.data, o.data)
}

// Values returns the tensor as plain Go values suitable for encoding: a
// scalar for rank 0, nested []any otherwise.
func (t *Tensor) Values() any {
	if len(t.shape) == 0 {
		return t.element(t.data[0])
	}
	var build func(dim, offset int) ([]any, int)
	build = func(dim, offset int) ([]any, int) {
		out := make([]any, t.shape[dim])
		for i := range out {
			if dim == len(t.shape)-1 {
				out[i] = t.element(t.data[offset])
				offset++
				continue
			}
			out[i], offset = build(dim+1, offset)
		}
		return out, offset
	}
	out, _ := build(0, 0)
	return out
}

func (t *Tensor) element(v float64) any {
	switch t.dtype {
	case Bool:
		return v != 0
	case Int32, Int64:
		return int64(v)
	default:
		return v
	}
}

// String renders the tensor in a compact nested-bracket form.
func (t *Tensor) String() string {
	var b strings.Builder
	var write func(v any)
	write = func(v any) {
		switch x := v.(type) {
		case []any:
			b.WriteByte('[')
			for i, e := range x {
				if i > 0 {
					b.WriteByte(' ')
				}
				write(e)
			}
			b.WriteByte(']')
		case float64:
			b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		default:
			fmt.Fprint(&b, x)
		}
	}
	write(t.Values())
	return b.String()
}
