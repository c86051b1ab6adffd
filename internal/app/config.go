package app

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/specialistvlad/cellgrid/internal/backend"
	"github.com/specialistvlad/cellgrid/internal/report"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScriptPaths []string // .hcl files or directories of them

	// Mode is the evaluation mode for functions that do not name one.
	Mode   string
	Output string // report format

	PublishURL       string
	PublishNamespace string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

var (
	logFormats = []string{"text", "json"}
	logLevels  = []string{"debug", "info", "warn", "error"}
)

// NewConfig normalises cfg and validates every field.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ScriptPaths) == 0 {
		return nil, errors.New("ScriptPaths is a required configuration field and cannot be empty")
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if !slices.Contains(logFormats, cfg.LogFormat) {
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if !slices.Contains(logLevels, cfg.LogLevel) {
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}

	cfg.Mode = strings.ToLower(cfg.Mode)
	if cfg.Mode == "" {
		cfg.Mode = backend.DefaultMode
	}
	if _, err := backend.Lookup(cfg.Mode); err != nil {
		return nil, fmt.Errorf("invalid mode: %w", err)
	}

	cfg.Output = strings.ToLower(cfg.Output)
	if cfg.Output == "" {
		cfg.Output = "text"
	}
	if !slices.Contains(report.Formats, cfg.Output) {
		return nil, fmt.Errorf("invalid output %q: must be one of %s", cfg.Output, strings.Join(report.Formats, ", "))
	}

	if cfg.PublishURL != "" {
		u, err := url.Parse(cfg.PublishURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid publish-url %q: expected an absolute URL", cfg.PublishURL)
		}
	} else if cfg.PublishNamespace != "" {
		return nil, errors.New("publish-namespace requires publish-url")
	}

	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck-port %d", cfg.HealthcheckPort)
	}

	return &cfg, nil
}
