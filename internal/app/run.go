package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/report"
)

// Run loads the configured script, executes it and writes the report.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if err := a.startHealthcheckServer(); err != nil {
		return err
	}
	defer a.closeHealthcheckServer()

	script, err := a.LoadScript(ctx)
	if err != nil {
		return err
	}

	runner, closePub, err := a.newRunner(ctx)
	if err != nil {
		return err
	}
	defer closePub()

	a.logger.Info("🚀 Running script...", "mode", a.config.Mode)
	rep, err := runner.Run(ctx, script)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("🏁 Execution finished.", "calls", len(rep.Calls))

	if err := report.Render(a.outW, a.config.Output, rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}
