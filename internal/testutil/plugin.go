package testutil

import (
	"errors"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/andrea-alfonsi/nyx/pkg/library"
)

// BuildPlugin compiles the Go package in srcDir with -buildmode=plugin and
// returns the path of the resulting shared object. The test is skipped when
// plugins cannot be built here: -short, no go toolchain, no cgo or an
// unsupported platform.
func BuildPlugin(t *testing.T, srcDir string) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping plugin build in short mode")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not found in PATH")
	}

	out := filepath.Join(t.TempDir(), filepath.Base(srcDir)+".so")
	cmd := exec.Command(goBin, "build", "-buildmode=plugin", "-o", out, "./"+filepath.ToSlash(srcDir))
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("cannot build plugin %s: %v\n%s", srcDir, err, output)
	}
	return out
}

// SkipIfBuildMismatch skips the test when a plugin built by BuildPlugin
// cannot be opened because the test binary was compiled with different
// flags (coverage, race detector). Go refuses such plugins at open time.
func SkipIfBuildMismatch(t *testing.T, err error) {
	t.Helper()

	if errors.Is(err, library.ErrIncompatibleBuild) {
		t.Skipf("plugin and test binary were built differently: %v", err)
	}
}
