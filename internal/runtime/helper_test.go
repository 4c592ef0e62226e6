// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
)

type recordedCommand struct {
	mu   sync.Mutex
	name string
	args []string
}

// helperCommand returns an ExecCommandFunc that records its invocation and
// runs TestHelperProcess, which prints its arguments and CLASSPATH and
// exits with code.
func (r *recordedCommand) helperCommand(code int) ExecCommandFunc {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		r.mu.Lock()
		r.name, r.args = name, args
		r.mu.Unlock()

		cs := append([]string{"-test.run=TestHelperProcess", "--"}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...) //nolint:gosec // test helper process
		cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1", "GO_HELPER_EXIT_CODE=" + strconv.Itoa(code)}
		return cmd
	}
}

// TestHelperProcess is not a real test. It stands in for java and the
// container client.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	fmt.Fprintf(os.Stdout, "args=%s\n", strings.Join(args, " "))
	fmt.Fprintf(os.Stdout, "CLASSPATH=%s\n", os.Getenv("CLASSPATH"))
	code, _ := strconv.Atoi(os.Getenv("GO_HELPER_EXIT_CODE"))
	os.Exit(code)
}

// writeJar creates a jar whose manifest is manifest (if non-empty).
func writeJar(t *testing.T, dir, name, manifest string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	if manifest != "" {
		w, err := zw.Create(manifestPath)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(manifest)); err != nil {
			t.Fatal(err)
		}
	}
	w, err := zw.Create("org/example/Main.class")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte{0xCA, 0xFE, 0xBA, 0xBE})
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}
