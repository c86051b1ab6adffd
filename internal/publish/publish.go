// Package publish delivers pipeline events to observers outside the process.
package publish

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/report"
)

// Event kinds.
const (
	KindCompile = "compile"
	KindCall    = "call"
)

// Event is one observable step of a run.
type Event struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Time     time.Time `json:"time"`
	Function string    `json:"function"`
	// FunctionID is the compiled function's identity.
	FunctionID string       `json:"function_id"`
	Call       *report.Call `json:"call,omitempty"`
}

// NewEvent stamps a fresh event.
func NewEvent(kind, function, functionID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Time:       time.Now().UTC(),
		Function:   function,
		FunctionID: functionID,
	}
}

// Publisher sends events somewhere. Publish must not retain ev after it
// returns.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// LogPublisher writes events to the context logger.
type LogPublisher struct{}

// Publish logs ev at debug level.
func (LogPublisher) Publish(ctx context.Context, ev Event) error {
	attrs := []any{"id", ev.ID, "kind", ev.Kind, "function", ev.Function}
	if ev.Call != nil {
		attrs = append(attrs, "seq", ev.Call.Seq, "outputs", len(ev.Call.Outputs))
	}
	ctxlog.FromContext(ctx).Debug("Published event.", attrs...)
	return nil
}

func (LogPublisher) Close() error { return nil }

// Multi fans events out to several publishers, stopping at the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every publisher and returns the first error.
func (m Multi) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
