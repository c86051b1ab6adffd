package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/pipeline"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx     context.Context
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	loader  config.Loader
	metrics *prometheus.Registry
	stats   *pipeline.Metrics

	// dial connects the socket.io publisher; replaced in tests.
	dial       dialFunc
	httpServer *http.Server
}

// NewApp is the constructor for the main application. The report goes to
// outW and logs to logW. Each App owns its logger and metrics registry.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	reg := prometheus.NewRegistry()
	return &App{
		ctx:     ctxlog.WithLogger(context.Background(), logger),
		outW:    outW,
		logger:  logger,
		config:  cfg,
		loader:  loader,
		metrics: reg,
		stats:   pipeline.NewMetrics(reg),
		dial:    dialSocketIO,
	}
}

// Metrics returns the registry the pipeline reports to.
func (a *App) Metrics() *prometheus.Registry {
	return a.metrics
}

func (a *App) newRunner(ctx context.Context) (*pipeline.Runner, func(), error) {
	pub, err := a.publisher(ctx)
	if err != nil {
		return nil, nil, err
	}
	closePub := func() {
		if err := pub.Close(); err != nil {
			a.logger.Warn("Failed to close publisher.", "error", err)
		}
	}
	r := pipeline.NewRunner(
		pipeline.WithMode(a.config.Mode),
		pipeline.WithPublisher(pub),
		pipeline.WithMetrics(a.stats),
	)
	return r, closePub, nil
}
