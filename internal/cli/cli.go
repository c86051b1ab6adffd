package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/cellgrid/internal/app"
	"github.com/specialistvlad/cellgrid/internal/backend"
	"github.com/specialistvlad/cellgrid/internal/report"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("cellgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
cellgrid - compile and run functions over shared state cells.

Usage:
  cellgrid [options] [SCRIPT_PATH...]

Arguments:
  SCRIPT_PATH
    Path to a single .hcl file or a directory containing .hcl files.
    Files are processed in path order.

Options:
`)
		flagSet.PrintDefaults()
	}

	scriptFlag := flagSet.String("script", "", "Path to the script file or directory.")
	sFlag := flagSet.String("s", "", "Path to the script file or directory (shorthand).")
	modeFlag := flagSet.String("mode", backend.DefaultMode, "Default evaluation mode. Options: "+strings.Join(backend.Modes(), ", ")+".")
	outputFlag := flagSet.String("output", "text", "Report format. Options: "+strings.Join(report.Formats, ", ")+".")
	publishURLFlag := flagSet.String("publish-url", "", "socket.io server that receives compile and call events. Empty disables publishing.")
	publishNSFlag := flagSet.String("publish-namespace", "", "socket.io namespace for published events.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	var paths []string
	if *scriptFlag != "" {
		paths = append(paths, *scriptFlag)
	} else if *sFlag != "" {
		paths = append(paths, *sFlag)
	}
	paths = append(paths, flagSet.Args()...)
	slog.Debug("Script paths determined.", "paths", paths)

	if len(paths) == 0 {
		slog.Debug("No script path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(app.Config{
		ScriptPaths:      paths,
		Mode:             *modeFlag,
		Output:           *outputFlag,
		PublishURL:       *publishURLFlag,
		PublishNamespace: *publishNSFlag,
		HealthcheckPort:  *healthPortFlag,
		LogFormat:        *logFormatFlag,
		LogLevel:         *logLevelFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
