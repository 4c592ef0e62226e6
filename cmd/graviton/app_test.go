// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/graviton-app/graviton/internal/config"
	"github.com/graviton-app/graviton/internal/container"
	"github.com/graviton-app/graviton/internal/issue"
	"github.com/graviton-app/graviton/internal/platform"
	"github.com/graviton-app/graviton/internal/runtime"
	"github.com/graviton-app/graviton/internal/testutil"
	"github.com/graviton-app/graviton/internal/testutil/mavenrepotest"
)

type (
	// syncBuffer is a bytes.Buffer safe for the concurrent writers of a launch.
	syncBuffer struct {
		mu  sync.Mutex
		buf bytes.Buffer
	}

	fakeRuntime struct {
		mu       sync.Mutex
		requests []runtime.Request
		code     runtime.ExitCode
	}

	fakeProcess struct {
		code runtime.ExitCode
	}

	appFixture struct {
		app    *App
		repo   *mavenrepotest.Server
		rt     *fakeRuntime
		stdout *syncBuffer
		stderr *syncBuffer
		cache  string
	}
)

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (r *fakeRuntime) Name() string { return "fake" }

func (r *fakeRuntime) Start(_ context.Context, req runtime.Request) (runtime.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return fakeProcess{code: r.code}, nil
}

func (r *fakeRuntime) started() []runtime.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.requests)
}

func (p fakeProcess) Wait() (runtime.ExitCode, error) { return p.code, nil }

func (p fakeProcess) Signal(os.Signal) error { return nil }

// newAppFixture builds an App whose repository, directories and runtime are
// all local to the test. interactive pretends stderr is a terminal.
func newAppFixture(t *testing.T, interactive bool) *appFixture {
	t.Helper()

	repo := mavenrepotest.New(t)
	repo.AddMetadata("com.example", "hello", "1.0.0", "1.1.0")
	repo.AddArtifact(mavenrepotest.Artifact{
		Group:    "com.example",
		Artifact: "hello",
		Version:  "1.1.0",
		Dependencies: []mavenrepotest.Dependency{
			{Group: "com.example", Artifact: "greeting", Version: "2.0"},
		},
	})
	repo.AddArtifact(mavenrepotest.Artifact{Group: "com.example", Artifact: "greeting", Version: "2.0"})
	// Metadata without a published artifact.
	repo.AddMetadata("com.example", "ghost", "1.0")

	cfgDir := t.TempDir()
	testutil.MustWriteFile(t, config.ConfigFilePath(cfgDir), []byte(fmt.Sprintf("repository: url: %q\n", repo.URL)))

	f := &appFixture{
		repo:   repo,
		rt:     &fakeRuntime{},
		stdout: &syncBuffer{},
		stderr: &syncBuffer{},
		cache:  filepath.Join(t.TempDir(), "cache"),
	}
	f.app = NewApp(Dependencies{
		Stdin:      strings.NewReader(""),
		Stdout:     f.stdout,
		Stderr:     f.stderr,
		Dirs:       platform.StaticDirs{Cache: f.cache, Config: cfgDir},
		Getenv:     func(string) string { return "" },
		IsTerminal: func(io.Writer) bool { return interactive },
		NewRuntime: func(context.Context, config.RuntimeConfig, *slog.Logger) (runtime.Runtime, error) {
			return f.rt, nil
		},
	})
	return f
}

func (f *appFixture) run(args ...string) int {
	return Run(context.Background(), f.app, args)
}

func TestRun_LaunchesResolvedClassPath(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, false)
	f.rt.code = 7

	code := f.run("--main", "com.example.Main", "com.example:hello", "--flag", "value")
	if code != 7 {
		t.Fatalf("Run() = %d, want the application's exit code 7\nstderr: %s", code, f.stderr)
	}

	reqs := f.rt.started()
	if len(reqs) != 1 {
		t.Fatalf("runtime started %d times, want 1", len(reqs))
	}
	req := reqs[0]
	if req.Entry != "com.example.Main" {
		t.Errorf("Entry = %q, want com.example.Main", req.Entry)
	}
	if !slices.Equal(req.Args, []string{"--flag", "value"}) {
		t.Errorf("Args = %v, want [--flag value]", req.Args)
	}
	if len(req.LocalPaths) != 2 {
		t.Fatalf("LocalPaths = %v, want greeting and hello", req.LocalPaths)
	}
	if filepath.Base(req.LocalPaths[0]) != "greeting-2.0.jar" || filepath.Base(req.LocalPaths[1]) != "hello-1.1.0.jar" {
		t.Errorf("LocalPaths = %v, want dependencies first", req.LocalPaths)
	}
	for _, p := range req.LocalPaths {
		if !strings.HasPrefix(p, f.cache) {
			t.Errorf("path %s is outside the cache %s", p, f.cache)
		}
	}

	if strings.Contains(f.stderr.String(), "exit status") {
		t.Errorf("stderr reports the exit code as an error:\n%s", f.stderr)
	}
	if !strings.Contains(f.stderr.String(), "Downloaded successfully") {
		t.Errorf("stderr lacks the download summary:\n%s", f.stderr)
	}
}

func TestRun_CachePathFlag(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, false)
	elsewhere := filepath.Join(t.TempDir(), "elsewhere")

	if code := f.run("--cache-path", elsewhere, "--main", "M", "com.example:hello"); code != 0 {
		t.Fatalf("Run() = %d\nstderr: %s", code, f.stderr)
	}
	root := f.rt.started()[0].LocalPaths[1]
	if !strings.HasPrefix(root, elsewhere) {
		t.Errorf("application jar %s is not under --cache-path %s", root, elsewhere)
	}
}

func TestRun_StartFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		interactive bool
		args        []string
		want        []string
	}{
		{
			name: "unknown package",
			args: []string{"com.example:nothere"},
			want: []string{"Sorry, that package is unknown. Check for typos? (com.example:nothere)"},
		},
		{
			name: "malformed coordinate",
			args: []string{"nothing-here"},
			want: []string{malformedMessage},
		},
		{
			name: "offline and uncached",
			args: []string{"--offline", "com.example:hello"},
			want: []string{"offline"},
		},
		{
			name:        "interactive missing artifact",
			interactive: true,
			args:        []string{"com.example:ghost"},
			want:        []string{startFailedHeadline, notLocatedDetail},
		},
		{
			name:        "interactive unknown package",
			interactive: true,
			args:        []string{"com.example:nothere"},
			want:        []string{startFailedHeadline, "Sorry, that package is unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newAppFixture(t, tt.interactive)
			if code := f.run(tt.args...); code != 1 {
				t.Fatalf("Run() = %d, want 1", code)
			}
			for _, want := range tt.want {
				if !strings.Contains(f.stderr.String(), want) {
					t.Errorf("stderr lacks %q:\n%s", want, f.stderr)
				}
			}
			if len(f.rt.started()) != 0 {
				t.Error("runtime was started after a failed launch")
			}
		})
	}
}

func TestRun_RuntimeUnavailable(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, false)
	f.app.newRuntime = func(context.Context, config.RuntimeConfig, *slog.Logger) (runtime.Runtime, error) {
		return nil, &container.EngineNotAvailableError{Engine: "podman", Reason: "not installed"}
	}

	if code := f.run("com.example:hello"); code != 1 {
		t.Fatalf("Run() = %d, want 1", code)
	}
	if !strings.Contains(f.stderr.String(), "podman") {
		t.Errorf("stderr does not name the engine:\n%s", f.stderr)
	}
	if n := f.repo.TotalRequests(); n != 0 {
		t.Errorf("repository saw %d requests before the runtime was available", n)
	}
}

func TestRun_BackgroundUpdateOnDevelopmentBuild(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, false)
	if code := f.run("--background-update"); code != 0 {
		t.Fatalf("Run() = %d, want 0\nstderr: %s", code, f.stderr)
	}
	if n := f.repo.TotalRequests(); n != 0 {
		t.Errorf("development build made %d repository requests", n)
	}
	if len(f.rt.started()) != 0 {
		t.Error("background update started an application")
	}
}

func TestRun_StartupUpdateCheckStaysQuiet(t *testing.T) {
	t.Parallel()

	newInstalledFixture := func(t *testing.T) (*appFixture, *atomic.Int32, string) {
		t.Helper()
		var gets atomic.Int32
		updates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			gets.Add(1)
			http.Error(w, "down for maintenance", http.StatusInternalServerError)
		}))
		t.Cleanup(updates.Close)

		f := newAppFixture(t, false)
		f.app.getenv = func(key string) string {
			switch key {
			case envPath:
				return "/opt/graviton"
			case envVersion:
				return "5"
			}
			return ""
		}
		return f, &gets, updates.URL
	}

	t.Run("failed check", func(t *testing.T) {
		t.Parallel()
		f, gets, url := newInstalledFixture(t)

		if code := f.run("--update-url", url, "com.example:hello:1.1.0"); code != 0 {
			t.Fatalf("Run() = %d, want 0\nstderr: %s", code, f.stderr)
		}
		deadline := time.Now().Add(5 * time.Second)
		for gets.Load() == 0 {
			if time.Now().After(deadline) {
				t.Fatal("timed out waiting for the update check")
			}
			time.Sleep(5 * time.Millisecond)
		}
		time.Sleep(100 * time.Millisecond)

		if out := f.stderr.String(); strings.Contains(out, "background update") {
			t.Errorf("update check wrote to stderr:\n%s", out)
		}
	})

	t.Run("offline", func(t *testing.T) {
		t.Parallel()
		f, gets, url := newInstalledFixture(t)

		// Nothing is cached, so the launch itself fails; only the update
		// server's silence matters here.
		f.run("--offline", "--update-url", url, "com.example:hello:1.1.0")
		time.Sleep(100 * time.Millisecond)
		if n := gets.Load(); n != 0 {
			t.Errorf("offline run made %d update requests", n)
		}
	})
}

func TestRun_ProfileDownloads(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, false)
	if code := f.run("--profile-downloads", "2", "com.example:hello"); code != 0 {
		t.Fatalf("Run() = %d, want 0\nstderr: %s", code, f.stderr)
	}
	if !strings.Contains(f.stdout.String(), "Total runtime was") {
		t.Errorf("stdout lacks the timing summary:\n%s", f.stdout)
	}
	// Each run starts from an empty cache: two jars, twice.
	if n := f.repo.JarRequests(); n != 4 {
		t.Errorf("jar requests = %d, want 4", n)
	}
	if len(f.rt.started()) != 0 {
		t.Error("profiling started the application")
	}
}

func TestRun_NoCoordinatePrintsUsage(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, false)
	if code := f.run("--default-coordinate", "com.example:hello"); code != 0 {
		t.Fatalf("Run() = %d, want 0", code)
	}
	if !strings.Contains(f.stdout.String(), "Try: graviton com.example:hello") {
		t.Errorf("stdout lacks the suggestion:\n%s", f.stdout)
	}
}

func TestRun_CacheCommands(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, false)
	if code := f.run("--main", "M", "com.example:hello"); code != 0 {
		t.Fatalf("launch = %d\nstderr: %s", code, f.stderr)
	}

	if code := f.run("cache", "list"); code != 0 {
		t.Fatalf("cache list = %d", code)
	}
	for _, want := range []string{"com.example:hello", "1.1.0", "fresh"} {
		if !strings.Contains(f.stdout.String(), want) {
			t.Errorf("cache list lacks %q:\n%s", want, f.stdout)
		}
	}

	if code := f.run("cache", "clear"); code != 0 {
		t.Fatalf("cache clear = %d", code)
	}
	if files := testutil.ListFiles(t, filepath.Join(f.cache, "artifacts")); len(files) != 0 {
		t.Errorf("artifacts left after clear: %v", files)
	}
}

func TestRun_ConfigErrorExitsOne(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, false)
	if code := f.run("--config", filepath.Join(t.TempDir(), "missing.cue"), "config", "show"); code != 1 {
		t.Fatalf("Run() = %d, want 1", code)
	}
	if !strings.Contains(f.stderr.String(), "config file not found") {
		t.Errorf("stderr lacks the cause:\n%s", f.stderr)
	}
}

func TestNewRuntime(t *testing.T) {
	t.Parallel()

	rt, err := newRuntime(context.Background(), config.RuntimeConfig{
		Kind:     config.RuntimeJVM,
		JavaHome: "/opt/jdk",
		JVMArgs:  []string{"-Xmx1g"},
	}, slog.Default())
	if err != nil {
		t.Fatalf("newRuntime() error = %v", err)
	}
	if rt.Name() != string(runtime.KindJVM) {
		t.Errorf("Name() = %q, want jvm", rt.Name())
	}

	_, err = newRuntime(context.Background(), config.RuntimeConfig{
		Kind:      config.RuntimeContainer,
		Container: config.ContainerConfig{Engine: "containerd", Image: "x"},
	}, slog.Default())
	if err == nil {
		t.Error("newRuntime() accepted an unknown container engine")
	}
	if errors.Is(err, container.ErrEngineNotAvailable) {
		t.Errorf("unknown engine reported as unavailable: %v", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !ae.HasSuggestions() {
		t.Errorf("engine selection error carries no suggestions: %v", err)
	}
}
