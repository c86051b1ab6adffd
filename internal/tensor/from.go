package tensor

import "fmt"

type number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// From converts a Go value into a Tensor.
//
// A *Tensor is returned as is. A []float64 is wrapped without copying, so
// the returned tensor aliases the caller's slice; every other slice type is
// copied. Scalars map int and int64 to Int64, int32 to Int32, floats to
// Float64 and bool to Bool.
func From(v any) (*Tensor, error) {
	switch x := v.(type) {
	case *Tensor:
		if x == nil {
			return nil, fmt.Errorf("%w: nil tensor", ErrUnsupportedValue)
		}
		return x, nil
	case bool:
		if x {
			return Scalar(Bool, 1), nil
		}
		return Scalar(Bool, 0), nil
	case int:
		return Scalar(Int64, float64(x)), nil
	case int32:
		return Scalar(Int32, float64(x)), nil
	case int64:
		return Scalar(Int64, float64(x)), nil
	case float32:
		return Scalar(Float64, float64(x)), nil
	case float64:
		return Scalar(Float64, x), nil
	case []float64:
		return &Tensor{dtype: Float64, shape: []int{len(x)}, data: x}, nil
	case []float32:
		return fromSlice(Float64, x), nil
	case []int:
		return fromSlice(Int64, x), nil
	case []int32:
		return fromSlice(Int32, x), nil
	case []int64:
		return fromSlice(Int64, x), nil
	case []bool:
		data := make([]float64, len(x))
		for i, b := range x {
			if b {
				data[i] = 1
			}
		}
		return &Tensor{dtype: Bool, shape: []int{len(x)}, data: data}, nil
	case [][]float64:
		return fromMatrix(Float64, x)
	case [][]int:
		return fromMatrix(Int64, x)
	case [][]int32:
		return fromMatrix(Int32, x)
	case [][]int64:
		return fromMatrix(Int64, x)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// MustFrom is like From but panics on error. It is intended for literals in
// tests and examples.
func MustFrom(v any) *Tensor {
	t, err := From(v)
	if err != nil {
		panic(err)
	}
	return t
}

func fromSlice[T number](dtype DType, xs []T) *Tensor {
	data := make([]float64, len(xs))
	for i, x := range xs {
		data[i] = dtype.normalize(float64(x))
	}
	return &Tensor{dtype: dtype, shape: []int{len(xs)}, data: data}
}

func fromMatrix[T number](dtype DType, rows [][]T) (*Tensor, error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShapeMismatch, i, len(row), cols)
		}
		for _, x := range row {
			data = append(data, dtype.normalize(float64(x)))
		}
	}
	return &Tensor{dtype: dtype, shape: []int{len(rows), cols}, data: data}, nil
}
