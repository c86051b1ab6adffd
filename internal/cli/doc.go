// Package cli turns command-line arguments into a validated app.Config.
// Usage errors are reported as *ExitError with exit code 2; help requests
// and an empty argument list print usage and ask the caller to exit cleanly.
package cli
