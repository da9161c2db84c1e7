package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/andrea-alfonsi/nyx/internal/fsutil"
)

// BuildCPlugin compiles the C file src into a shared library with the
// headers in includeDir on the include path, and returns the library path.
// The test is skipped in -short mode, on platforms without dlopen support
// and when no C compiler is found. $CC overrides the compiler.
func BuildCPlugin(t *testing.T, src, includeDir string) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping C plugin build in short mode")
	}
	switch runtime.GOOS {
	case "linux", "darwin":
	default:
		t.Skipf("C plugins are not supported on %s", runtime.GOOS)
	}

	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}
	ccBin, err := exec.LookPath(cc)
	if err != nil {
		t.Skipf("C compiler %q not found in PATH", cc)
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	out := filepath.Join(t.TempDir(), "lib"+base+fsutil.HostSharedLibraryExt())
	cmd := exec.Command(ccBin, "-shared", "-fPIC", "-I", includeDir, "-o", out, src)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("cannot build C plugin %s: %v\n%s", src, err, output)
	}
	return out
}
