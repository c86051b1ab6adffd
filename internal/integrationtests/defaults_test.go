package integrationtests

import (
	"testing"

	"github.com/specialistvlad/cellgrid/internal/backend"
	"github.com/specialistvlad/cellgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_SnapshotAtCompileTime(t *testing.T) {
	t.Parallel()

	for _, mode := range backend.Modes() {
		t.Run(mode, func(t *testing.T) {
			result := testutil.RunSingle(t, `
				shared "b" {
					value          = 0
					default_update = b + 1
				}
				function "f" {
					output = b
				}
				call "f" {}
				set "b" {
					clear_default_update = true
				}
				call "f" {}
				function "g" {
					output = b
				}
				call "g" {}
			`, testutil.WithMode(mode))

			require.NoError(t, result.Err)
			assert.Equal(t, []any{0.0, 1.0, 2.0}, testutil.FirstOutputs(t, result))
			testutil.AssertCell(t, result, "b", 2.0)
			assert.Equal(t, []string{"b"}, testutil.Function(t, result, "f").Updates, "f keeps the default it saw")
			assert.Empty(t, testutil.Function(t, result, "g").Updates)
		})
	}
}

func TestDefaults_ExplicitUpdateWins(t *testing.T) {
	t.Parallel()

	result := testutil.RunSingle(t, `
		shared "x" {
			value          = 0
			default_update = x + 2
		}
		function "f" {
			output  = x
			updates = { x = x - 1 }
		}
		call "f" {}
	`)
	testutil.AssertCell(t, result, "x", -1.0)
}

func TestDefaults_ChainedReadPreCallValues(t *testing.T) {
	t.Parallel()

	for _, mode := range backend.Modes() {
		t.Run(mode, func(t *testing.T) {
			result := testutil.RunSingle(t, `
				shared "x" {
					value          = 2
					default_update = x - y
				}
				shared "y" {
					value          = 1
					default_update = z
				}
				shared "z" {
					value          = -1
					default_update = z - 1
				}
				function "f" {
					output = x
				}
				call "f" {}
			`, testutil.WithMode(mode))

			assert.Equal(t, []any{2.0}, testutil.FirstOutputs(t, result), "outputs read pre-call values")
			testutil.AssertCell(t, result, "x", 1.0)
			testutil.AssertCell(t, result, "y", -1.0)
			testutil.AssertCell(t, result, "z", -2.0)
		})
	}
}

func TestDefaults_OverridePolicy(t *testing.T) {
	t.Parallel()

	script := func(policy string) string {
		return `
			shared "x" {
				value          = 0
				default_update = x + 1
			}
			shared "y" {
				value          = 0
				default_update = y + 10
			}
			function "f" {
				outputs = [x, y]
				no_default_updates = ` + policy + `
			}
			call "f" {}
		`
	}

	cases := []struct {
		policy string
		x, y   float64
	}{
		{policy: "false", x: 1, y: 10},
		{policy: "[]", x: 1, y: 10},
		{policy: "true", x: 0, y: 0},
		{policy: "[x]", x: 0, y: 10},
		{policy: "[x, y]", x: 0, y: 0},
	}
	for _, tc := range cases {
		t.Run(tc.policy, func(t *testing.T) {
			t.Parallel()
			result := testutil.RunSingle(t, script(tc.policy))
			testutil.AssertCell(t, result, "x", tc.x)
			testutil.AssertCell(t, result, "y", tc.y)
		})
	}
}

func TestDefaults_SpreadAcrossFiles(t *testing.T) {
	t.Parallel()

	// Files run in path order, so the default attached in 10_cells.hcl is
	// in place before 20_functions.hcl compiles f.
	result := testutil.RunScript(t, map[string]string{
		"20_functions.hcl": `
			function "f" {
				output = n
			}
			call "f" {
				repeat = 4
			}
		`,
		"10_cells.hcl": `
			shared "n" {
				value          = 10
				default_update = n * 2
			}
		`,
	})
	assert.Equal(t, []any{10.0, 20.0, 40.0, 80.0}, testutil.FirstOutputs(t, result))
	testutil.AssertCell(t, result, "n", 160.0)
}
