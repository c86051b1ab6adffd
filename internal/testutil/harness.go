package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/cellgrid/internal/app"
	"github.com/specialistvlad/cellgrid/internal/hcl"
	"github.com/specialistvlad/cellgrid/internal/report"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	// Report is decoded from the JSON report. It is nil when the run failed.
	Report *report.Report
	App    *app.App
}

// RunScript writes files into a temporary directory and runs the whole
// application over it with the JSON report format. Paths in files are
// relative to that directory. Options may adjust the config before it is
// validated.
func RunScript(t *testing.T, files map[string]string, opts ...func(*app.Config)) *HarnessResult {
	t.Helper()
	return RunScriptWithContext(context.Background(), t, files, opts...)
}

// RunScriptWithContext is RunScript with a caller-provided context.
func RunScriptWithContext(ctx context.Context, t *testing.T, files map[string]string, opts ...func(*app.Config)) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	cfg := app.Config{
		ScriptPaths: []string{tmpDir},
		LogLevel:    "debug",
		LogFormat:   "text",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Output = "json"
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	logBuffer := &SafeBuffer{}
	testApp := app.NewApp(out, logBuffer, appConfig, hcl.NewLoader())
	runErr := testApp.Run(ctx)

	if os.Getenv("CELLGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	result := &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
	}
	if runErr == nil {
		result.Report = &report.Report{}
		require.NoError(t, json.Unmarshal(out.Bytes(), result.Report), "report is not valid JSON:\n%s", out.String())
	}
	return result
}

// RunSingle runs a script made of one main.hcl file.
func RunSingle(t *testing.T, src string, opts ...func(*app.Config)) *HarnessResult {
	t.Helper()
	return RunScript(t, map[string]string{"main.hcl": src}, opts...)
}

// WithMode sets the default evaluation mode.
func WithMode(mode string) func(*app.Config) {
	return func(c *app.Config) { c.Mode = mode }
}
