// Package backend provides the evaluators that execute compiled expression
// graphs. The compile package is agnostic to how a graph is executed: it
// lowers the graph once through an Evaluator, selected by a mode token, and
// runs the resulting Program on every call.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/cellgrid/internal/expr"
	"github.com/specialistvlad/cellgrid/internal/tensor"
)

// Mode tokens of the built-in evaluators.
const (
	ModeFastCompile = "fast_compile"
	ModeFastRun     = "fast_run"
	ModeHCL         = "hcl"

	DefaultMode = ModeFastRun
)

var (
	// ErrUnknownMode is returned by Lookup for an unregistered mode token.
	ErrUnknownMode = errors.New("unknown mode")

	// ErrUnbound is returned by Program.Run when a leaf of the graph has no
	// value in the environment.
	ErrUnbound = errors.New("unbound leaf")
)

// Env binds leaf nodes (symbols and shared cells) to their values for one
// run.
type Env map[expr.Node]*tensor.Tensor

// Program is a lowered graph, ready to be run repeatedly.
type Program interface {
	// Run evaluates the roots the program was lowered from, in order. The
	// values of nodes listed in destroyable may be overwritten in place;
	// every other value in env is left untouched.
	Run(ctx context.Context, env Env, destroyable map[expr.Node]bool) ([]*tensor.Tensor, error)
}

// Evaluator lowers graphs into programs.
type Evaluator interface {
	// Mode returns the token the evaluator is registered under.
	Mode() string
	// InPlace reports whether programs may overwrite destroyable inputs.
	InPlace() bool
	// Lower prepares a program computing roots.
	Lower(ctx context.Context, roots []expr.Node) (Program, error)
}

// Registry maps mode tokens to evaluators.
type Registry struct {
	all map[string]Evaluator
}

// NewRegistry returns a registry holding the built-in evaluators.
func NewRegistry() *Registry {
	r := &Registry{all: make(map[string]Evaluator)}
	for _, e := range []Evaluator{NewInterpreter(false), NewInterpreter(true), NewHCL()} {
		r.all[e.Mode()] = e
	}
	return r
}

// Register adds an evaluator under its mode token.
func (r *Registry) Register(e Evaluator) error {
	mode := strings.ToLower(e.Mode())
	if _, exists := r.all[mode]; exists {
		return fmt.Errorf("evaluator for mode %q already registered", mode)
	}
	r.all[mode] = e
	return nil
}

// Lookup resolves a mode token, case-insensitively. The empty token selects
// DefaultMode.
func (r *Registry) Lookup(mode string) (Evaluator, error) {
	if mode == "" {
		mode = DefaultMode
	}
	e, ok := r.all[strings.ToLower(mode)]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownMode, mode, strings.Join(r.Modes(), ", "))
	}
	return e, nil
}

// Modes returns the registered tokens in sorted order.
func (r *Registry) Modes() []string {
	modes := make([]string, 0, len(r.all))
	for m := range r.all {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	return modes
}

var builtin = NewRegistry()

// Lookup resolves a mode token among the built-in evaluators.
func Lookup(mode string) (Evaluator, error) {
	return builtin.Lookup(mode)
}

// Modes lists the built-in mode tokens in sorted order.
func Modes() []string {
	return builtin.Modes()
}
