package tensor

import (
	"fmt"
	"math"
)

// DType is the element type of a Tensor. The ordering of the constants is
// significant: a value may be cast safely from a lower DType to a higher one.
type DType uint8

const (
	Bool DType = iota
	Int32
	Int64
	Float64
)

var dtypeNames = [...]string{
	Bool:    "bool",
	Int32:   "int32",
	Int64:   "int64",
	Float64: "float64",
}

// String returns the canonical lowercase name of the dtype.
func (d DType) String() string {
	if int(d) < len(dtypeNames) {
		return dtypeNames[d]
	}
	return fmt.Sprintf("dtype(%d)", uint8(d))
}

// IsInteger reports whether values of this dtype are whole numbers.
func (d DType) IsInteger() bool {
	return d == Int32 || d == Int64
}

// ParseDType resolves a dtype from its canonical name.
func ParseDType(name string) (DType, error) {
	for i, n := range dtypeNames {
		if n == name {
			return DType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown dtype %q", name)
}

// CanCast reports whether every value of `from` is representable in `to`
// without loss.
func CanCast(from, to DType) bool {
	return from <= to
}

// Upcast returns the smallest dtype both operands cast to safely.
func Upcast(a, b DType) DType {
	if a > b {
		return a
	}
	return b
}

// normalize maps a raw float64 onto the value set of the dtype: integers are
// truncated toward zero (int32 wraps like a Go conversion) and booleans
// collapse to 0 or 1.
func (d DType) normalize(v float64) float64 {
	switch d {
	case Bool:
		if v != 0 {
			return 1
		}
		return 0
	case Int32:
		return float64(int32(int64(math.Trunc(v))))
	case Int64:
		return math.Trunc(v)
	default:
		return v
	}
}
