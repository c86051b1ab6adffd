package integrationtests

import (
	"testing"

	"github.com/specialistvlad/cellgrid/internal/compile"
	"github.com/specialistvlad/cellgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors_CompileAndCall(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		script string
		want   error
	}{
		{
			name: "duplicate explicit update",
			script: `
				shared "z" {
					value = 0
				}
				function "f" {
					output  = z
					updates = [[z, z + 1], [z, z + 1]]
				}
			`,
			want: compile.ErrDuplicateUpdate,
		},
		{
			name: "shared cell as input",
			script: `
				shared "z" {
					value = 0
				}
				function "f" {
					input "z" {}
					output = z
				}
			`,
			want: compile.ErrSharedCellAsInput,
		},
		{
			name: "string policy",
			script: `
				shared "z" {
					value = 0
				}
				function "f" {
					output = z
					no_default_updates = "z"
				}
			`,
			want: compile.ErrBadOverridePolicy,
		},
		{
			name: "default depends on undeclared symbol",
			script: `
				symbol "step" {
					dtype = int64
				}
				shared "z" {
					value          = 0
					default_update = z + step
				}
				function "f" {
					output = z
				}
			`,
			want: compile.ErrMissingRequiredInput,
		},
		{
			name: "missing argument",
			script: `
				symbol "a" {
					dtype = int64
				}
				function "f" {
					input "a" {}
					output = a
				}
				call "f" {}
			`,
			want: compile.ErrMissingArgument,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := testutil.RunSingle(t, tc.script)
			require.ErrorIs(t, result.Err, tc.want)
			assert.Contains(t, result.Err.Error(), "execution failed")
			assert.Nil(t, result.Report)
		})
	}
}

func TestErrors_FailedCallCommitsNothing(t *testing.T) {
	t.Parallel()

	result := testutil.RunSingle(t, `
		symbol "a" {
			dtype = int64
		}
		shared "x" {
			value          = 5
			default_update = x + a
		}
		function "f" {
			input "a" {}
			output = x
		}
		call "f" {
			args = { a = 1 }
		}
		call "f" {}
	`)
	require.ErrorIs(t, result.Err, compile.ErrMissingArgument)
	assert.Contains(t, result.LogOutput, "Published event.", "the first call ran")
}

func TestErrors_LoadFailuresPointAtSource(t *testing.T) {
	t.Parallel()

	result := testutil.RunScript(t, map[string]string{
		"pipeline/main.hcl": `
			function "f" {
				output = missing
			}
		`,
	})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "failed to load script")
	assert.Contains(t, result.Err.Error(), "main.hcl:3")
}
