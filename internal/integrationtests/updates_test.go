package integrationtests

import (
	"testing"

	"github.com/specialistvlad/cellgrid/internal/backend"
	"github.com/specialistvlad/cellgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestUpdates_Simultaneous(t *testing.T) {
	t.Parallel()

	for _, mode := range backend.Modes() {
		t.Run(mode, func(t *testing.T) {
			result := testutil.RunSingle(t, `
				shared "a" {
					value = 1
				}
				shared "b" {
					value = 2
				}
				function "swap" {
					outputs = [a, b]
					updates = { a = b, b = a }
				}
				call "swap" {
					repeat = 3
				}
			`, testutil.WithMode(mode))

			assert.Equal(t, [][]any{{1.0, 2.0}, {2.0, 1.0}, {1.0, 2.0}}, testutil.Outputs(t, result))
			testutil.AssertCell(t, result, "a", 2.0)
			testutil.AssertCell(t, result, "b", 1.0)
		})
	}
}

func TestUpdates_AccumulatorWithInputs(t *testing.T) {
	t.Parallel()

	result := testutil.RunSingle(t, `
		symbol "inc" {
			dtype = int64
		}
		shared "state" {
			value = 0
		}
		function "accumulate" {
			input "inc" {
				default = 1
			}
			output  = state
			updates = { state = state + inc }
		}
		call "accumulate" {}
		call "accumulate" {
			args = { inc = 300 }
		}
		call "accumulate" {}
	`)
	assert.Equal(t, []any{0.0, 1.0, 301.0}, testutil.FirstOutputs(t, result))
	testutil.AssertCell(t, result, "state", 302.0)

	f := testutil.Function(t, result, "accumulate")
	assert.Equal(t, []string{"inc"}, f.Inputs)
	assert.Equal(t, []string{"state"}, f.Updates)
}

func TestUpdates_SharedAcrossFunctions(t *testing.T) {
	t.Parallel()

	result := testutil.RunSingle(t, `
		shared "count" {
			value = 0
		}
		function "up" {
			output  = count
			updates = { count = count + 1 }
		}
		function "down" {
			output  = count
			updates = { count = count - 5 }
		}
		call "up" {
			repeat = 2
		}
		call "down" {}
		set "count" {
			value = 100
		}
		call "up" {}
	`)
	assert.Equal(t, []any{0.0, 1.0, 2.0, 100.0}, testutil.FirstOutputs(t, result))
	testutil.AssertCell(t, result, "count", 101.0)
}
