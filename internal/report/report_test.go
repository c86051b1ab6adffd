package report_test

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/fatih/color"
	"github.com/specialistvlad/cellgrid/internal/report"
	"github.com/specialistvlad/cellgrid/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sample() *report.Report {
	return &report.Report{
		Functions: []report.Function{{Name: "f", ID: "id-1", Mode: "fast_run", Inputs: []string{"a"}, Updates: []string{"x"}}},
		Calls: []report.Call{{
			Seq:      1,
			Function: "f",
			Outputs:  []report.Value{report.NewValue("", tensor.Scalar(tensor.Int64, 3))},
			Updated:  []report.Value{report.NewValue("x", tensor.Scalar(tensor.Int64, -1))},
		}},
		Cells: []report.Cell{
			{Value: report.NewValue("x", tensor.Scalar(tensor.Int64, -1)), DefaultUpdate: "(x + 1)"},
			{Value: report.NewValue("w", tensor.Vector(tensor.Float64, 1.5, 2))},
		},
	}
}

func TestRender_Text(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, "text", sample()))

	out := buf.String()
	assert.Contains(t, out, "▸ Functions\n  f [fast_run] updates x\n")
	assert.Contains(t, out, "  #1 f -> 3 int64 | x=-1 int64\n")
	assert.Contains(t, out, "  x = -1 int64 (default (x + 1))\n")
	assert.Contains(t, out, "  w = [1.5 2] float64\n")
}

func TestRender_TextWithoutCells(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, "", &report.Report{}))
	assert.Equal(t, "▸ Cells\n  (none)\n", buf.String())
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, "json", sample()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	cells := got["cells"].([]any)
	require.Len(t, cells, 2)
	x := cells[0].(map[string]any)
	assert.Equal(t, "x", x["name"], "cell values are flattened")
	assert.Equal(t, "int64", x["dtype"])
	assert.Equal(t, -1.0, x["value"])
	assert.Equal(t, "(x + 1)", x["default_update"])
}

func TestRender_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, "yaml", sample()))
	assert.Contains(t, buf.String(), "shape: [2]")

	var got struct {
		Cells []map[string]any `yaml:"cells"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Cells, 2)
	assert.Equal(t, "w", got.Cells[1]["name"])
	assert.Equal(t, []any{1.5, 2}, got.Cells[1]["value"], "whole floats are written without a fraction")
}

func TestRender_NonFiniteValues(t *testing.T) {
	v, err := tensor.From([]float64{math.NaN(), math.Inf(1), math.Inf(-1), 0.5})
	require.NoError(t, err)
	r := &report.Report{Cells: []report.Cell{{Value: report.NewValue("w", v)}}}

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, "json", r))
	var got struct {
		Cells []map[string]any `json:"cells"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Cells, 1)
	assert.Equal(t, []any{"NaN", "+Inf", "-Inf", 0.5}, got.Cells[0]["value"])

	buf.Reset()
	require.NoError(t, report.Render(&buf, "yaml", r))
	assert.Contains(t, buf.String(), "NaN")

	color.NoColor = true
	buf.Reset()
	require.NoError(t, report.Render(&buf, "text", r))
	assert.Contains(t, buf.String(), "[NaN +Inf -Inf 0.5] float64")
}

func TestRender_UnknownFormat(t *testing.T) {
	err := report.Render(&bytes.Buffer{}, "xml", sample())
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}
