// Package pickertest builds stand-in picker executables for tests.
package pickertest

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Script writes body as an executable /bin/sh script and returns its path. Tests using it are
// skipped on windows.
func Script(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stand-in picker scripts need /bin/sh")
	}

	path := filepath.Join(t.TempDir(), "picker")
	content := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755)) //nolint:gosec // test executable
	return path
}

// Echo returns a picker that prints output and exits with code.
func Echo(t *testing.T, output string, code int) string {
	t.Helper()
	return Script(t, fmt.Sprintf("printf '%%s' %s\nexit %d", quote(output), code))
}

// Recorder is a picker that records the arguments it was started with.
type Recorder struct {
	Path     string
	argsFile string
}

// Record returns a picker that writes its arguments, one per line, before printing output and
// exiting 0.
func Record(t *testing.T, output string) *Recorder {
	t.Helper()
	argsFile := filepath.Join(t.TempDir(), "args")
	body := fmt.Sprintf("for a in \"$@\"; do printf '%%s\\n' \"$a\"; done > %s\nprintf '%%s' %s",
		quote(argsFile), quote(output))
	return &Recorder{Path: Script(t, body), argsFile: argsFile}
}

// Args returns the arguments of the last run.
func (r *Recorder) Args(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(r.argsFile)
	require.NoError(t, err)
	trimmed := strings.TrimSuffix(string(data), "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

// Reply describes what a Mapped picker does for one seed color.
type Reply struct {
	Output string
	Code   int
	Delay  string // sleep(1) duration, e.g. "0.2"
}

// Mapped returns a picker whose behavior depends on the seed color it is started with. Seeds
// without a reply exit 1.
func Mapped(t *testing.T, replies map[string]Reply) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("case \"$1\" in\n")
	for seed, reply := range replies {
		fmt.Fprintf(&b, "%s)\n", quote(seed))
		if reply.Delay != "" {
			fmt.Fprintf(&b, "  sleep %s\n", reply.Delay)
		}
		fmt.Fprintf(&b, "  printf '%%s' %s\n  exit %d\n  ;;\n", quote(reply.Output), reply.Code)
	}
	b.WriteString("esac\nexit 1")
	return Script(t, b.String())
}

// Install lays out a picker under installDir the way the bundled one is shipped and returns
// its path.
func Install(t *testing.T, installDir, body string) string {
	t.Helper()
	src := Script(t, body)
	data, err := os.ReadFile(src)
	require.NoError(t, err)

	dir := filepath.Join(installDir, "bin", runtime.GOOS)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "picker")
	require.NoError(t, os.WriteFile(path, data, 0o755)) //nolint:gosec // test executable
	return path
}

// quote single-quotes s for /bin/sh.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
