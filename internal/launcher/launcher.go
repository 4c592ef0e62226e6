// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/graviton-app/graviton/internal/fetch"
	"github.com/graviton-app/graviton/internal/history"
	"github.com/graviton-app/graviton/internal/progress"
	"github.com/graviton-app/graviton/internal/resolver"
	"github.com/graviton-app/graviton/internal/runtime"
)

type (
	// Options controls one launch.
	Options struct {
		// ClearCacheBeforeStart clears the whole cache before resolving.
		ClearCacheBeforeStart bool
		// Offline serves resolution and fetch from the cache only.
		Offline bool
		// NoSSL downgrades repository requests to plain http.
		NoSSL bool
		// Refresh ignores the freshness window of dynamic resolutions.
		Refresh bool
		// Entry overrides the Main-Class of the application jar.
		Entry string

		// Standard streams of the application; nil means the process's own.
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Launcher drives resolver, fetcher and runtime. It is safe for
	// concurrent use; each Start is an independent launch.
	Launcher struct {
		resolver *resolver.Resolver
		fetcher  *fetch.Fetcher
		history  *history.Manager
		runtime  runtime.Runtime
		logger   *slog.Logger
		listener Listener
		newID    func() string
	}

	// Option configures a Launcher.
	Option func(*Launcher)

	// Handle is a running launch.
	Handle struct {
		// ID identifies the launch in logs.
		ID string
		// Artifact is the fetched closure that was launched.
		Artifact *fetch.ResolvedArtifact

		machine *machine
		process runtime.Process
		logger  *slog.Logger
		started time.Time
	}
)

// WithLogger sets the launcher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(la *Launcher) {
		la.logger = l
	}
}

// WithListener reports every state transition to l.
func WithListener(l Listener) Option {
	return func(la *Launcher) {
		la.listener = l
	}
}

// WithIDGenerator replaces the random launch ID source.
func WithIDGenerator(fn func() string) Option {
	return func(la *Launcher) {
		la.newID = fn
	}
}

// New creates a Launcher.
func New(res *resolver.Resolver, fet *fetch.Fetcher, hist *history.Manager, rt runtime.Runtime, opts ...Option) *Launcher {
	la := &Launcher{
		resolver: res,
		fetcher:  fet,
		history:  hist,
		runtime:  rt,
		logger:   slog.Default(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(la)
	}
	return la
}

// Start resolves and fetches text and hands the class path to the runtime.
// sink receives one Started and one Stopped even when the launch fails
// before anything is fetched. Errors before the application runs are
// *StartError.
func (la *Launcher) Start(ctx context.Context, text string, args []string, opts Options, sink progress.Sink) (*Handle, error) {
	if sink == nil {
		sink = progress.Nop()
	}
	id := la.newID()
	m := newMachine(id, la.listener)
	logger := la.logger.With("launch", id)

	fetched := false
	fail := func(err error) (*Handle, error) {
		stage := m.current()
		_ = m.to(StateFailed)
		if !fetched {
			sink.Emit(progress.Started{Name: text})
			sink.Emit(progress.Stopped{})
		}
		logger.Debug("launch failed", "coordinate", text, "stage", stage.String(), "error", err)
		return nil, &StartError{Stage: stage, RootCause: err}
	}

	if err := m.to(StateResolving); err != nil {
		return fail(err)
	}
	if opts.ClearCacheBeforeStart {
		if err := la.history.Clear(); err != nil {
			return fail(fmt.Errorf("clearing cache: %w", err))
		}
		logger.Info("cache cleared", "path", la.history.Root())
	}

	resolved, err := la.resolver.Resolve(ctx, text, resolver.Options{
		Offline:      opts.Offline,
		ForceRefresh: opts.Refresh,
		UseSSL:       !opts.NoSSL,
	})
	if err != nil {
		return fail(err)
	}
	logger.Debug("resolved", "coordinate", text, "version", resolved.Version, "cached", resolved.FromCache)

	if err := m.to(StateFetching); err != nil {
		return fail(err)
	}
	fetched = true
	artifact, err := la.fetcher.Fetch(ctx, resolved, sink, fetch.Options{UseSSL: !opts.NoSSL, Offline: opts.Offline})
	if err != nil {
		return fail(err)
	}

	if err := m.to(StateLaunching); err != nil {
		return fail(err)
	}
	proc, err := la.runtime.Start(ctx, runtime.Request{
		ID:         id,
		LocalPaths: artifact.LocalPaths,
		Entry:      opts.Entry,
		Args:       args,
		Stdin:      orReader(opts.Stdin, os.Stdin),
		Stdout:     orWriter(opts.Stdout, os.Stdout),
		Stderr:     orWriter(opts.Stderr, os.Stderr),
	})
	if err != nil {
		return fail(err)
	}

	if err := m.to(StateRunning); err != nil {
		return fail(err)
	}
	logger.Debug("application running", "coordinate", artifact.Pinned().String(), "runtime", la.runtime.Name())
	return &Handle{ID: id, Artifact: artifact, machine: m, process: proc, logger: logger, started: time.Now()}, nil
}

// State returns the launch's current state.
func (h *Handle) State() State { return h.machine.current() }

// Wait blocks until the application exits. Any exit code completes the
// launch; a failure to wait fails it.
func (h *Handle) Wait() (runtime.ExitCode, error) {
	code, err := h.process.Wait()
	if err != nil {
		_ = h.machine.to(StateFailed)
		return code, err
	}
	_ = h.machine.to(StateCompleted)
	h.logger.Debug("application exited", "code", int(code), "elapsed", time.Since(h.started))
	return code, nil
}

// Signal forwards sig to the application.
func (h *Handle) Signal(sig os.Signal) error { return h.process.Signal(sig) }

func orReader(r, def io.Reader) io.Reader {
	if r == nil {
		return def
	}
	return r
}

func orWriter(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
