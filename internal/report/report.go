// Package report describes the outcome of a pipeline run (the call log and
// the final state of every shared cell) and renders it as text, JSON or
// YAML.
package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/specialistvlad/cellgrid/internal/tensor"
)

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "yaml"}

// ErrUnknownFormat is returned by Render for a format not in Formats.
var ErrUnknownFormat = errors.New("unknown report format")

// Report is the result of running a script.
type Report struct {
	Functions []Function `json:"functions" yaml:"functions"`
	Calls     []Call     `json:"calls" yaml:"calls"`
	Cells     []Cell     `json:"cells" yaml:"cells"`
}

// Function describes a compiled function.
type Function struct {
	Name    string   `json:"name" yaml:"name"`
	ID      string   `json:"id" yaml:"id"`
	Mode    string   `json:"mode" yaml:"mode"`
	Inputs  []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Updates []string `json:"updates,omitempty" yaml:"updates,omitempty"`
}

// Call records one invocation.
type Call struct {
	Seq      int     `json:"seq" yaml:"seq"`
	Function string  `json:"function" yaml:"function"`
	Outputs  []Value `json:"outputs" yaml:"outputs"`
	Updated  []Value `json:"updated,omitempty" yaml:"updated,omitempty"`
}

// Cell is the final state of a shared cell.
type Cell struct {
	Value         `yaml:",inline"`
	DefaultUpdate string `json:"default_update,omitempty" yaml:"default_update,omitempty"`
}

// Value is a named tensor in an encoding-friendly form.
type Value struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	DType string `json:"dtype" yaml:"dtype"`
	Shape []int  `json:"shape,omitempty" yaml:"shape,flow,omitempty"`
	Data  any    `json:"value" yaml:"value"`
}

// NewValue snapshots t. NaN and infinities are written as the strings "NaN",
// "+Inf" and "-Inf", since JSON has no numbers for them.
func NewValue(name string, t *tensor.Tensor) Value {
	return Value{Name: name, DType: t.DType().String(), Shape: t.Shape(), Data: finite(t.Values())}
}

func finite(v any) any {
	switch v := v.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
	case []any:
		for i, x := range v {
			v[i] = finite(x)
		}
	}
	return v
}

// Render writes r to w in the given format.
func Render(w io.Writer, format string, r *Report) error {
	switch format {
	case "", "text":
		return renderText(w, r)
	case "json":
		return renderJSON(w, r)
	case "yaml":
		return renderYAML(w, r)
	}
	return fmt.Errorf("%w %q, expected one of %v", ErrUnknownFormat, format, Formats)
}
