package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors a Runner reports to.
type Metrics struct {
	compiles      *prometheus.CounterVec
	calls         *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	cellUpdates   prometheus.Counter
	failures      *prometheus.CounterVec
	publishErrors prometheus.Counter
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: mode
		compiles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cellgrid",
			Subsystem: "pipeline",
			Name:      "compiles_total",
			Help:      "Functions compiled",
		}, []string{"mode"}),
		// Labels: function
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cellgrid",
			Subsystem: "pipeline",
			Name:      "calls_total",
			Help:      "Successful function calls",
		}, []string{"function"}),
		callDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cellgrid",
			Subsystem: "pipeline",
			Name:      "call_duration_seconds",
			Help:      "Function call latency in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"function"}),
		cellUpdates: f.NewCounter(prometheus.CounterOpts{
			Namespace: "cellgrid",
			Subsystem: "pipeline",
			Name:      "cell_updates_total",
			Help:      "Shared cell values committed by calls",
		}),
		// Labels: stage (compile, call, set)
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cellgrid",
			Subsystem: "pipeline",
			Name:      "failures_total",
			Help:      "Statements that failed",
		}, []string{"stage"}),
		publishErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "cellgrid",
			Subsystem: "pipeline",
			Name:      "publish_errors_total",
			Help:      "Events the publisher failed to deliver",
		}),
	}
}
