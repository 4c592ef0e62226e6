// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/graviton-app/graviton/internal/config"
	"github.com/graviton-app/graviton/internal/container"
	"github.com/graviton-app/graviton/internal/fetch"
	"github.com/graviton-app/graviton/internal/history"
	"github.com/graviton-app/graviton/internal/issue"
	"github.com/graviton-app/graviton/internal/maven"
	"github.com/graviton-app/graviton/internal/platform"
	"github.com/graviton-app/graviton/internal/resolver"
	"github.com/graviton-app/graviton/internal/runtime"

	"golang.org/x/term"
)

type (
	// RuntimeFactory builds the runtime applications are started in.
	RuntimeFactory func(ctx context.Context, cfg config.RuntimeConfig, logger *slog.Logger) (runtime.Runtime, error)

	// App wires CLI services and shared dependencies. It is the composition
	// root of the CLI layer: every command handler receives the App and
	// builds its services from it.
	App struct {
		stdin      io.Reader
		stdout     io.Writer
		stderr     io.Writer
		dirs       platform.DirResolver
		getenv     func(string) string
		isTerminal func(io.Writer) bool
		newRuntime RuntimeFactory

		exitCode int
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Stdin      io.Reader
		Stdout     io.Writer
		Stderr     io.Writer
		Dirs       platform.DirResolver
		Getenv     func(string) string
		IsTerminal func(io.Writer) bool
		NewRuntime RuntimeFactory
	}

	// globalFlags are the persistent flags shared by every command.
	globalFlags struct {
		configPath string
		cachePath  string
		verbose    bool
	}

	// session holds the services of one command invocation.
	session struct {
		cfg      *config.Loaded
		logger   *slog.Logger
		verbose  bool
		history  *history.Manager
		client   *maven.Client
		resolver *resolver.Resolver
		fetcher  *fetch.Fetcher
	}
)

// NewApp creates an App, filling unset dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	a := &App{
		stdin:      deps.Stdin,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
		dirs:       deps.Dirs,
		getenv:     deps.Getenv,
		isTerminal: deps.IsTerminal,
		newRuntime: deps.NewRuntime,
	}
	if a.stdin == nil {
		a.stdin = os.Stdin
	}
	if a.stdout == nil {
		a.stdout = os.Stdout
	}
	if a.stderr == nil {
		a.stderr = os.Stderr
	}
	if a.dirs == nil {
		a.dirs = platform.DefaultDirs()
	}
	if a.getenv == nil {
		a.getenv = os.Getenv
	}
	if a.isTerminal == nil {
		a.isTerminal = isTerminal
	}
	if a.newRuntime == nil {
		a.newRuntime = newRuntime
	}
	return a
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// loadConfig reads the configuration selected by the global flags.
func (a *App) loadConfig(ctx context.Context, gf *globalFlags) (*config.Loaded, error) {
	return config.LoadWithPath(ctx, config.LoadOptions{
		ConfigFilePath: gf.configPath,
		Dirs:           a.dirs,
	})
}

// cachePath returns the cache directory: --cache-path, then cache_path from
// the configuration, then the platform cache directory.
func (a *App) cachePath(cfg *config.Config, gf *globalFlags) (string, error) {
	if gf.cachePath != "" {
		c := *cfg
		c.CachePath = gf.cachePath
		return c.ResolvedCachePath(a.dirs)
	}
	return cfg.ResolvedCachePath(a.dirs)
}

// openSession loads the configuration and builds the repository services.
func (a *App) openSession(ctx context.Context, gf *globalFlags, background bool) (*session, error) {
	loaded, err := a.loadConfig(ctx, gf)
	if err != nil {
		return nil, err
	}

	verbose := gf.verbose || loaded.UI.Verbose
	logger := newLogger(a.stderr, logLevel(verbose, background))
	slog.SetDefault(logger)

	cachePath, err := a.cachePath(loaded.Config, gf)
	if err != nil {
		return nil, err
	}

	hist, err := history.Open(cachePath,
		history.WithFreshnessWindow(loaded.History.FreshnessWindow),
		history.WithLogger(logger),
	)
	if err != nil {
		return nil, issue.WrapWithContext(err, "open cache", cachePath)
	}

	client := newRepositoryClient(loaded.Repository)

	return &session{
		cfg:      loaded,
		logger:   logger,
		verbose:  verbose,
		history:  hist,
		client:   client,
		resolver: resolver.New(client, hist, resolver.WithLogger(logger)),
		fetcher: fetch.New(client, hist,
			fetch.WithMaxParallel(loaded.Repository.MaxParallelDownloads),
			fetch.WithLogger(logger),
		),
	}, nil
}

// newRepositoryClient builds a Maven repository client from configuration.
func newRepositoryClient(cfg config.RepositoryConfig) *maven.Client {
	return maven.NewClient(
		maven.WithBaseURL(cfg.URL),
		maven.WithTimeout(cfg.Timeout),
		maven.WithArtifactTimeout(cfg.ArtifactTimeout),
		maven.WithUserAgent(cfg.UserAgent),
	)
}

// newRuntime builds the configured runtime. The jvm runtime goes through the
// host when graviton itself runs inside a Flatpak or Snap sandbox.
func newRuntime(ctx context.Context, cfg config.RuntimeConfig, logger *slog.Logger) (runtime.Runtime, error) {
	switch runtime.Kind(cfg.Kind) {
	case runtime.KindContainer:
		var (
			engine container.Engine
			err    error
		)
		if cfg.Container.Engine == config.ContainerEngineAuto {
			engine, err = container.AutoDetectEngine(ctx)
		} else {
			engine, err = container.NewEngine(ctx, container.EngineType(cfg.Container.Engine))
		}
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("select container engine").
				WithSuggestions(
					"Install docker or podman and make sure it is on PATH",
					`Set runtime.kind to "jvm" to launch with a local Java installation`,
				).
				WithIssue(issue.ContainerEngineNotFoundId).
				Wrap(err).
				BuildError()
		}
		return runtime.NewContainer(engine,
			runtime.WithImage(cfg.Container.Image),
			runtime.WithContainerLogger(logger),
		), nil
	default:
		opts := []runtime.JVMOption{
			runtime.WithJavaHome(cfg.JavaHome),
			runtime.WithJVMArgs(cfg.JVMArgs...),
			runtime.WithJVMLogger(logger),
		}
		if spawn, args := platform.HostSpawn(); spawn != "" {
			opts = append(opts, runtime.WithHostSpawn(spawn, args...))
		}
		return runtime.NewJVM(opts...), nil
	}
}
