package integrationtests

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/andrea-alfonsi/nyx/internal/app"
	"github.com/andrea-alfonsi/nyx/internal/cli"
	"github.com/andrea-alfonsi/nyx/internal/testutil"
	"github.com/stretchr/testify/require"
)

// harnessResult holds the outcomes of an integration test run.
type harnessResult struct {
	Out       string
	LogOutput string
	Err       error
}

// runNyx parses args exactly like the binary does and runs the app to
// completion.
func runNyx(t *testing.T, args ...string) *harnessResult {
	t.Helper()

	out := &bytes.Buffer{}
	logs := &testutil.SafeBuffer{}
	cfg, shouldExit, err := cli.Parse(append([]string{"-log-level", "debug", "-log-format", "text"}, args...), out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	nyx := app.NewApp(out, logs, cfg)
	runErr := nyx.Run(context.Background())
	require.NoError(t, nyx.Close())

	t.Cleanup(func() {
		if os.Getenv("NYX_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return &harnessResult{Out: out.String(), LogOutput: logs.String(), Err: runErr}
}

// writeConfig writes content to name inside a fresh temporary directory.
func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// headerDir is the directory holding nyx.h.
func headerDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("..", "..", "pkg", "cabi"))
	require.NoError(t, err)
	return dir
}
