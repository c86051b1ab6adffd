package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
)

// LoadScript reads every configured script path into one script.
func (a *App) LoadScript(ctx context.Context) (*config.Script, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading script...", "paths", a.config.ScriptPaths)

	script, err := a.loader.Load(ctx, a.config.ScriptPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load script: %w", err)
	}

	logger.Info("Script loaded successfully.", "cells", len(script.Cells), "statements", len(script.Statements))
	return script, nil
}
