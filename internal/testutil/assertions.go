package testutil

import (
	"testing"

	"github.com/specialistvlad/cellgrid/internal/report"
	"github.com/stretchr/testify/require"
)

// Numbers decoded from the JSON report are float64 and arrays are []any.

// CellValue returns the final value of a shared cell in the report.
func CellValue(t *testing.T, result *HarnessResult, name string) any {
	t.Helper()
	require.NoError(t, result.Err)
	for _, c := range result.Report.Cells {
		if c.Name == name {
			return c.Data
		}
	}
	require.Failf(t, "cell not found", "no cell %q in report", name)
	return nil
}

// AssertCell checks the final value of a shared cell.
func AssertCell(t *testing.T, result *HarnessResult, name string, want any) {
	t.Helper()
	require.Equal(t, want, CellValue(t, result, name), "final value of cell %q", name)
}

// Outputs returns the output values of every call, in call order.
func Outputs(t *testing.T, result *HarnessResult) [][]any {
	t.Helper()
	require.NoError(t, result.Err)
	out := make([][]any, len(result.Report.Calls))
	for i, c := range result.Report.Calls {
		out[i] = values(c.Outputs)
	}
	return out
}

// FirstOutputs returns the first output of every call, in call order.
func FirstOutputs(t *testing.T, result *HarnessResult) []any {
	t.Helper()
	var out []any
	for _, vs := range Outputs(t, result) {
		require.NotEmpty(t, vs)
		out = append(out, vs[0])
	}
	return out
}

// Function returns the report entry for a compiled function.
func Function(t *testing.T, result *HarnessResult, name string) report.Function {
	t.Helper()
	require.NoError(t, result.Err)
	for _, f := range result.Report.Functions {
		if f.Name == name {
			return f
		}
	}
	require.Failf(t, "function not found", "no function %q in report", name)
	return report.Function{}
}

func values(vs []report.Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v.Data
	}
	return out
}
