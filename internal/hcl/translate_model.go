// This file contains the logic for decoding literal HCL values into
// tensors.

package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/cellgrid/internal/tensor"
)

func diagf(rng hcl.Range, summary, format string, args ...any) hcl.Diagnostics {
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   fmt.Sprintf(format, args...),
		Subject:  rng.Ptr(),
	}}
}

// constValue evaluates an expression without variables or functions into a
// tensor. With a nil dtype the dtype is inferred from the literal.
func constValue(e hcl.Expression, dtype *tensor.DType) (*tensor.Tensor, hcl.Diagnostics) {
	v, diags := e.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	var (
		t   *tensor.Tensor
		err error
	)
	if dtype != nil {
		t, err = tensor.FromCty(v, *dtype)
	} else {
		t, err = tensor.InferFromCty(v)
	}
	if err != nil {
		return nil, diagf(e.Range(), "Invalid value", "%v", err)
	}
	return t, nil
}
