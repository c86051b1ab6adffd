// Package pipeline executes a loaded script: it attaches default updates,
// compiles functions, performs calls and cell assignments in source order,
// and collects the outcome into a report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/cellgrid/internal/compile"
	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/publish"
	"github.com/specialistvlad/cellgrid/internal/report"
)

// Runner executes scripts. A Runner is not safe for concurrent use.
type Runner struct {
	mode      string
	publisher publish.Publisher
	metrics   *Metrics

	functions map[string]*compile.Function
	order     []*compile.Function
	calls     []report.Call
}

// Option configures a Runner.
type Option func(*Runner)

// WithMode sets the mode used by functions that do not name one.
func WithMode(mode string) Option { return func(r *Runner) { r.mode = mode } }

// WithPublisher sends compile and call events to p.
func WithPublisher(p publish.Publisher) Option { return func(r *Runner) { r.publisher = p } }

// WithMetrics reports to m instead of a private registry.
func WithMetrics(m *Metrics) Option { return func(r *Runner) { r.metrics = m } }

// NewRunner creates a runner. Without options it logs events and keeps its
// metrics in an unexported registry.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{publisher: publish.LogPublisher{}}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(prometheus.NewRegistry())
	}
	return r
}

// Run executes every statement of script in order. It stops at the first
// failing statement; the returned error names its source range.
func (r *Runner) Run(ctx context.Context, script *config.Script) (*report.Report, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Pipeline run started.", "statements", len(script.Statements))

	r.functions = make(map[string]*compile.Function)
	r.order = nil
	r.calls = nil

	for _, stmt := range script.Statements {
		if err := r.exec(ctxlog.With(ctx, "at", stmt.Range().String()), stmt); err != nil {
			return nil, fmt.Errorf("%s: %w", stmt.Range(), err)
		}
	}

	logger.Debug("Pipeline run finished.", "functions", len(r.order), "calls", len(r.calls))
	return r.report(script), nil
}

func (r *Runner) exec(ctx context.Context, stmt config.Statement) error {
	switch s := stmt.(type) {
	case *config.CellDecl:
		return r.failed("set", s.Cell.SetDefaultUpdate(s.DefaultUpdate))
	case *config.FunctionDecl:
		return r.failed("compile", r.compile(ctx, s))
	case *config.CallStmt:
		return r.failed("call", r.call(ctx, s))
	case *config.SetStmt:
		return r.failed("set", r.set(s))
	}
	return fmt.Errorf("unsupported statement %T", stmt)
}

func (r *Runner) failed(stage string, err error) error {
	if err != nil {
		r.metrics.failures.WithLabelValues(stage).Inc()
	}
	return err
}

func (r *Runner) compile(ctx context.Context, decl *config.FunctionDecl) error {
	opts := decl.Options
	if opts.Mode == "" && opts.Evaluator == nil {
		opts.Mode = r.mode
	}
	fn, err := compile.Compile(ctx, opts)
	if err != nil {
		return err
	}
	r.functions[decl.Name] = fn
	r.order = append(r.order, fn)
	r.metrics.compiles.WithLabelValues(fn.Mode()).Inc()

	r.publish(ctx, publish.NewEvent(publish.KindCompile, fn.Name(), fn.ID().String()))
	return nil
}

func (r *Runner) call(ctx context.Context, stmt *config.CallStmt) error {
	fn, ok := r.functions[stmt.Function]
	if !ok {
		return fmt.Errorf("function %q was not compiled", stmt.Function)
	}
	updates := fn.Updates()

	for i := 0; i < stmt.Repeat; i++ {
		// Arguments are copied per call since mutable inputs may be
		// overwritten.
		args := make(map[string]any, len(stmt.Args))
		for k, v := range stmt.Args {
			args[k] = v.Clone()
		}

		start := time.Now()
		res, err := fn.CallNamed(ctx, args)
		if err != nil {
			return err
		}
		r.metrics.callDuration.WithLabelValues(fn.Name()).Observe(time.Since(start).Seconds())
		r.metrics.calls.WithLabelValues(fn.Name()).Inc()
		r.metrics.cellUpdates.Add(float64(len(updates)))

		rec := report.Call{Seq: len(r.calls) + 1, Function: fn.Name()}
		for _, v := range res.Values() {
			rec.Outputs = append(rec.Outputs, report.NewValue("", v))
		}
		for _, u := range updates {
			rec.Updated = append(rec.Updated, report.NewValue(u.Cell.Name(), u.Cell.Get()))
		}
		r.calls = append(r.calls, rec)

		ev := publish.NewEvent(publish.KindCall, fn.Name(), fn.ID().String())
		ev.Call = &rec
		r.publish(ctx, ev)
	}
	return nil
}

func (r *Runner) set(stmt *config.SetStmt) error {
	if stmt.Value != nil {
		if err := stmt.Cell.Set(stmt.Value); err != nil {
			return err
		}
	}
	if stmt.DefaultUpdate != nil {
		if err := stmt.Cell.SetDefaultUpdate(stmt.DefaultUpdate); err != nil {
			return err
		}
	}
	if stmt.Clear {
		stmt.Cell.ClearDefaultUpdate()
	}
	return nil
}

// publish never fails the run; delivery problems are logged and counted.
func (r *Runner) publish(ctx context.Context, ev publish.Event) {
	if err := r.publisher.Publish(ctx, ev); err != nil {
		r.metrics.publishErrors.Inc()
		ctxlog.FromContext(ctx).Warn("Failed to publish event.", "kind", ev.Kind, "function", ev.Function, "error", err)
	}
}

func (r *Runner) report(script *config.Script) *report.Report {
	rep := &report.Report{Calls: r.calls}
	for _, fn := range r.order {
		info := report.Function{Name: fn.Name(), ID: fn.ID().String(), Mode: fn.Mode()}
		for _, p := range fn.Inputs() {
			info.Inputs = append(info.Inputs, p.Label())
		}
		for _, u := range fn.Updates() {
			info.Updates = append(info.Updates, u.Cell.Name())
		}
		rep.Functions = append(rep.Functions, info)
	}
	for _, name := range script.CellOrder {
		cell := script.Cells[name]
		c := report.Cell{Value: report.NewValue(name, cell.Get())}
		if du, ok := cell.DefaultUpdate(); ok {
			c.DefaultUpdate = du.String()
		}
		rep.Cells = append(rep.Cells, c)
	}
	return rep
}
