package pipeline

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/specialistvlad/cellgrid/internal/backend"
	"github.com/specialistvlad/cellgrid/internal/compile"
	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/hcl"
	"github.com/specialistvlad/cellgrid/internal/publish"
	"github.com/specialistvlad/cellgrid/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ events []publish.Event }

func (r *recorder) Publish(_ context.Context, ev publish.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Close() error { return nil }

func loadScript(t *testing.T, src string) *config.Script {
	t.Helper()
	script, err := hcl.NewLoader().LoadSource(context.Background(), "main.hcl", []byte(src))
	require.NoError(t, err)
	return script
}

func cellValues(rep *report.Report) map[string]any {
	out := make(map[string]any, len(rep.Cells))
	for _, c := range rep.Cells {
		out[c.Name] = c.Data
	}
	return out
}

func TestRunner_CounterScript(t *testing.T) {
	script := loadScript(t, `
		symbol "inc" {
			dtype = "int64"
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
		call "accumulate" {
			args = { inc = 1 }
		}
		call "accumulate" {
			args = { inc = 300 }
		}
		call "accumulate" {
			repeat = 2
		}
	`)

	rec := &recorder{}
	m := NewMetrics(prometheus.NewRegistry())
	rep, err := NewRunner(WithPublisher(rec), WithMetrics(m)).Run(context.Background(), script)
	require.NoError(t, err)

	require.Len(t, rep.Calls, 4)
	outs := make([]any, len(rep.Calls))
	for i, c := range rep.Calls {
		assert.Equal(t, i+1, c.Seq)
		outs[i] = c.Outputs[0].Data
	}
	assert.Equal(t, []any{int64(0), int64(1), int64(301), int64(302)}, outs, "each call returns the value before its update")
	assert.Equal(t, int64(303), cellValues(rep)["state"])
	assert.Equal(t, "state", rep.Calls[0].Updated[0].Name)
	assert.Equal(t, int64(1), rep.Calls[0].Updated[0].Data)

	require.Len(t, rep.Functions, 1)
	assert.Equal(t, backend.DefaultMode, rep.Functions[0].Mode)
	assert.Equal(t, []string{"inc"}, rep.Functions[0].Inputs)
	assert.Equal(t, []string{"state"}, rep.Functions[0].Updates)

	require.Len(t, rec.events, 5)
	assert.Equal(t, publish.KindCompile, rec.events[0].Kind)
	assert.Equal(t, rep.Functions[0].ID, rec.events[0].FunctionID)
	for _, ev := range rec.events[1:] {
		assert.Equal(t, publish.KindCall, ev.Kind)
		require.NotNil(t, ev.Call)
	}

	assert.Equal(t, 4.0, testutil.ToFloat64(m.calls.WithLabelValues("accumulate")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.cellUpdates))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compiles.WithLabelValues(backend.DefaultMode)))
}

func TestRunner_DefaultUpdatesAndSet(t *testing.T) {
	for _, mode := range backend.Modes() {
		t.Run(mode, func(t *testing.T) {
			script := loadScript(t, `
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
				function "fx" {
					output = x
				}
				call "fx" {}
				set "z" {
					clear_default_update = true
				}
				function "fxz" {
					outputs = [x, z]
				}
				call "fxz" {}
				set "x" {
					value = 10
				}
				set "y" {
					default_update = y * 2
				}
				call "fx" {}
			`)
			rep, err := NewRunner(WithMode(mode)).Run(context.Background(), script)
			require.NoError(t, err)

			// fx: x=2-1, y=-1, z=-2. fxz, compiled after z's default was
			// cleared: x=1-(-1), y=-2. Then x=10 and fx still applies the
			// defaults it was compiled with, z's included.
			assert.Equal(t, map[string]any{"x": int64(12), "y": int64(-2), "z": int64(-3)}, cellValues(rep))
			for _, fn := range rep.Functions {
				assert.Equal(t, mode, fn.Mode)
			}
			assert.Equal(t, []string{"x", "y", "z"}, rep.Functions[0].Updates)
			assert.Equal(t, []string{"x", "y"}, rep.Functions[1].Updates)

			cells := map[string]string{}
			for _, c := range rep.Cells {
				cells[c.Name] = c.DefaultUpdate
			}
			assert.Equal(t, map[string]string{"x": "(x - y)", "y": "(y * 2)", "z": ""}, cells)
		})
	}
}

func TestRunner_MutableArgumentsAreCopiedPerCall(t *testing.T) {
	script := loadScript(t, `
		symbol "v" {
			dtype = "float64"
			rank  = 1
		}
		function "double" {
			input "v" {
				mutable = true
			}
			output = v * 2
			mode   = "fast_run"
		}
		call "double" {
			repeat = 3
			args   = { v = [1, 2] }
		}
	`)
	rep, err := NewRunner().Run(context.Background(), script)
	require.NoError(t, err)
	require.Len(t, rep.Calls, 3)
	for _, c := range rep.Calls {
		assert.Equal(t, []any{2.0, 4.0}, c.Outputs[0].Data)
	}
}

func TestRunner_Failures(t *testing.T) {
	tests := map[string]struct {
		src   string
		stage string
		is    error
	}{
		"missing input": {`
			symbol "a" {
				dtype = "int64"
			}
			shared "x" {
				value = 0
			}
			function "f" {
				output = x + a
			}`, "compile", compile.ErrMissingRequiredInput},
		"missing argument": {`
			symbol "a" {
				dtype = "int64"
			}
			function "f" {
				input "a" {}
				output = a
			}
			call "f" {}`, "call", compile.ErrMissingArgument},
		"unknown argument": {`
			symbol "a" {
				dtype = "int64"
			}
			function "f" {
				input "a" {
					default = 0
				}
				output = a
			}
			call "f" {
				args = { b = 1 }
			}`, "call", compile.ErrBadArgument},
		"unknown mode": {`
			function "f" {
				output = 1
				mode   = "turbo"
			}`, "compile", backend.ErrUnknownMode},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			m := NewMetrics(prometheus.NewRegistry())
			_, err := NewRunner(WithMetrics(m)).Run(context.Background(), loadScript(t, tc.src))
			require.ErrorIs(t, err, tc.is)
			assert.Contains(t, err.Error(), "main.hcl:")
			assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues(tc.stage)))
		})
	}
}

type failing struct{ recorder }

func (f *failing) Publish(context.Context, publish.Event) error { return assert.AnError }

func TestRunner_PublishErrorsDoNotFailTheRun(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	script := loadScript(t, `
		function "one" {
			output = 1
		}
		call "one" {}
	`)
	rep, err := NewRunner(WithPublisher(&failing{}), WithMetrics(m)).Run(context.Background(), script)
	require.NoError(t, err)
	assert.Len(t, rep.Calls, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.publishErrors))
}
