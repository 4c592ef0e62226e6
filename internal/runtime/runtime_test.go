// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	goruntime "runtime"
	"slices"
	"strings"
	"testing"

	"github.com/graviton-app/graviton/internal/container"
	"github.com/graviton-app/graviton/internal/testutil"
)

func fakeJavaHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	exe := "java"
	if goruntime.GOOS == "windows" {
		exe = "java.exe"
	}
	testutil.MustWriteFile(t, filepath.Join(home, "bin", exe), []byte("#!/bin/sh\n"))
	return home
}

func TestJVM_StartRunsJavaWithClassPath(t *testing.T) {
	// Not parallel: sets CLASSPATH.
	t.Setenv("CLASSPATH", "/leaked.jar")

	dir := t.TempDir()
	dep := writeJar(t, dir, "dep.jar", "")
	app := writeJar(t, dir, "app.jar", "Main-Class: org.example.Main\n")

	rec := &recordedCommand{}
	home := fakeJavaHome(t)
	jvm := NewJVM(WithJavaHome(home), WithJVMArgs("-Xshare:auto"), WithExecCommand(rec.helperCommand(0)))

	var stdout bytes.Buffer
	proc, err := jvm.Start(context.Background(), Request{
		ID:         "launch-1",
		LocalPaths: []string{dep, app},
		Args:       []string{"--greet", "world"},
		Stdout:     &stdout,
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	code, err := proc.Wait()
	if err != nil || code != 0 {
		t.Fatalf("Wait() = %d, %v", code, err)
	}

	wantArgs := []string{"-Xshare:auto", "-cp", dep + string(os.PathListSeparator) + app, "org.example.Main", "--greet", "world"}
	if !slices.Equal(rec.args, wantArgs) {
		t.Errorf("java args = %v, want %v", rec.args, wantArgs)
	}
	if !strings.HasPrefix(rec.name, home) {
		t.Errorf("java binary = %s, want one under %s", rec.name, home)
	}
	if !strings.Contains(stdout.String(), "CLASSPATH=\n") {
		t.Errorf("CLASSPATH leaked into the application:\n%s", stdout.String())
	}
}

func TestJVM_ExitCodeIsNotAnError(t *testing.T) {
	t.Parallel()

	app := writeJar(t, t.TempDir(), "app.jar", "Main-Class: org.example.Main\n")
	rec := &recordedCommand{}
	jvm := NewJVM(WithJavaHome(fakeJavaHome(t)), WithExecCommand(rec.helperCommand(42)))

	proc, err := jvm.Start(context.Background(), Request{LocalPaths: []string{app}})
	if err != nil {
		t.Fatal(err)
	}
	code, err := proc.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if code != 42 {
		t.Errorf("exit code = %d, want 42", code)
	}
	if again, _ := proc.Wait(); again != 42 {
		t.Errorf("second Wait() = %d", again)
	}
}

func TestJVM_EntryOverridesManifest(t *testing.T) {
	t.Parallel()

	app := writeJar(t, t.TempDir(), "app.jar", "")
	rec := &recordedCommand{}
	jvm := NewJVM(WithJavaHome(fakeJavaHome(t)), WithExecCommand(rec.helperCommand(0)))

	proc, err := jvm.Start(context.Background(), Request{LocalPaths: []string{app}, Entry: "org.example.Other"})
	if err != nil {
		t.Fatal(err)
	}
	_, _ = proc.Wait()
	if !slices.Contains(rec.args, "org.example.Other") {
		t.Errorf("args = %v, want the entry class", rec.args)
	}
}

func TestJVM_StartErrors(t *testing.T) {
	t.Parallel()

	jvm := NewJVM(WithJavaHome(fakeJavaHome(t)))
	if _, err := jvm.Start(context.Background(), Request{}); !errors.Is(err, ErrEmptyClassPath) {
		t.Errorf("Start(empty) error = %v", err)
	}

	noMain := writeJar(t, t.TempDir(), "lib.jar", "Manifest-Version: 1.0\n")
	if _, err := jvm.Start(context.Background(), Request{LocalPaths: []string{noMain}}); !errors.Is(err, ErrNoMainClass) {
		t.Errorf("Start(no main) error = %v", err)
	}

	missing := NewJVM(WithJavaHome(t.TempDir()))
	if _, err := missing.JavaBinary(); !errors.Is(err, ErrJavaNotFound) {
		t.Errorf("JavaBinary() error = %v, want ErrJavaNotFound", err)
	}
}

func TestJVM_HostSpawn(t *testing.T) {
	t.Parallel()

	app := writeJar(t, t.TempDir(), "app.jar", "Main-Class: org.example.Main\n")
	rec := &recordedCommand{}
	jvm := NewJVM(WithHostSpawn("flatpak-spawn", "--host"), WithExecCommand(rec.helperCommand(0)))

	proc, err := jvm.Start(context.Background(), Request{LocalPaths: []string{app}})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	_, _ = proc.Wait()

	if rec.name != "flatpak-spawn" {
		t.Errorf("command = %s, want flatpak-spawn", rec.name)
	}
	if len(rec.args) < 3 || rec.args[0] != "--host" || !strings.HasPrefix(rec.args[1], "java") || rec.args[2] != "-cp" {
		t.Errorf("args = %v, want --host java -cp ...", rec.args)
	}
}

func TestContainer_RunOptions(t *testing.T) {
	t.Parallel()

	c := NewContainer(container.NewDockerEngine(), WithImage("eclipse-temurin:17-jre"))
	opts := c.RunOptions(Request{
		ID:         "abc",
		LocalPaths: []string{"/cache/artifacts/dep-1.jar", "/cache/artifacts/app-2.jar"},
		Args:       []string{"x"},
	}, "org.example.Main")

	if opts.Image != "eclipse-temurin:17-jre" || !opts.Remove || opts.Name != "graviton-abc" {
		t.Errorf("RunOptions() = %+v", opts)
	}
	if opts.Interactive {
		t.Error("no stdin should mean no -i")
	}
	wantCmd := []string{"java", "-cp", "/graviton/cp/000-dep-1.jar:/graviton/cp/001-app-2.jar", "org.example.Main", "x"}
	if !slices.Equal(opts.Command, wantCmd) {
		t.Errorf("Command = %v, want %v", opts.Command, wantCmd)
	}
	for _, v := range opts.Volumes {
		if !v.ReadOnly {
			t.Errorf("mount %s is writable", v)
		}
	}
}

func TestContainer_Start(t *testing.T) {
	t.Parallel()

	app := writeJar(t, t.TempDir(), "app.jar", "Main-Class: org.example.Main\n")
	rec := &recordedCommand{}
	engine := container.NewDockerEngine(
		container.WithBinaryPath("/usr/bin/docker"),
		container.WithExecCommand(container.ExecCommandFunc(rec.helperCommand(7))),
	)
	c := NewContainer(engine)

	proc, err := c.Start(context.Background(), Request{ID: "id", LocalPaths: []string{app}, Stdin: strings.NewReader("")})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	code, err := proc.Wait()
	if err != nil || code != 7 {
		t.Fatalf("Wait() = %d, %v", code, err)
	}
	if rec.name != "/usr/bin/docker" || rec.args[0] != "run" || !slices.Contains(rec.args, DefaultImage) || !slices.Contains(rec.args, "-i") {
		t.Errorf("invocation = %s %v", rec.name, rec.args)
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(KindJVM, NewJVM())
	if rt, err := r.Get(KindJVM); err != nil || rt.Name() != "jvm" {
		t.Errorf("Get(jvm) = %v, %v", rt, err)
	}
	if _, err := r.Get(KindContainer); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Get(container) error = %v", err)
	}
	if got := r.Kinds(); !slices.Equal(got, []Kind{KindJVM}) {
		t.Errorf("Kinds() = %v", got)
	}
	if err := Kind("wasm").Validate(); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Validate() = %v", err)
	}
}

func TestApplicationEnv(t *testing.T) {
	t.Parallel()

	got := applicationEnv([]string{"PATH=/bin", "CLASSPATH=/x.jar", "GRAVITON_CACHE_PATH=/c", "HOME=/h"})
	if want := []string{"PATH=/bin", "HOME=/h"}; !slices.Equal(got, want) {
		t.Errorf("applicationEnv() = %v, want %v", got, want)
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code    ExitCode
		valid   bool
		success bool
		engine  bool
	}{
		{0, true, true, false},
		{1, true, false, false},
		{125, true, false, true},
		{127, true, false, true},
		{255, true, false, false},
		{-1, false, false, false},
		{256, false, false, false},
	}
	for _, tt := range tests {
		valid, errs := tt.code.IsValid()
		if valid != tt.valid {
			t.Errorf("%d.IsValid() = %v", tt.code, valid)
		}
		if !valid && (len(errs) != 1 || !errors.Is(errs[0], ErrInvalidExitCode)) {
			t.Errorf("%d.IsValid() errs = %v", tt.code, errs)
		}
		if tt.code.IsSuccess() != tt.success || tt.code.IsEngineFailure() != tt.engine {
			t.Errorf("%d: success/engine mismatch", tt.code)
		}
	}
	if ExitCode(3).String() != "3" {
		t.Error("String()")
	}
}
