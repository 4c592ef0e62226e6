// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"

	"github.com/graviton-app/graviton/internal/fetch"
	"github.com/graviton-app/graviton/internal/history"
	"github.com/graviton-app/graviton/internal/maven"
	"github.com/graviton-app/graviton/internal/progress"
	"github.com/graviton-app/graviton/internal/resolver"
)

var (
	// ErrNoUpdateServer is returned by Check when State has no update URI.
	ErrNoUpdateServer = errors.New("no update server configured")
	// ErrNoBuildJar is returned when the announced coordinate fetched no jar
	// of its own, e.g. a pom-only coordinate.
	ErrNoBuildJar = errors.New("update coordinate has no jar")
)

type (
	// State describes the running installation.
	State struct {
		// CachePath is the cache the update is fetched into.
		CachePath string
		// InstalledVersion is the build number of the running shell. Zero or
		// less marks a development build, which never updates itself.
		InstalledVersion int
		// InstalledPath is where the running shell is installed.
		InstalledPath   string
		UpdateServerURI string
	}

	// Result reports what one check did.
	Result struct {
		// Latest is the descriptor's version, zero when it was not fetched.
		Latest  int
		Applied bool
	}

	// Scheduler checks for a newer build and installs it. It is safe for
	// concurrent use.
	Scheduler struct {
		descriptors *DescriptorClient
		repository  *maven.Client
		installer   Installer
		logger      *slog.Logger
		history     *history.Manager
		fetchOpts   []fetch.Option
	}

	// Option configures a Scheduler during construction.
	Option func(*Scheduler)
)

// WithLogger sets the logger every outcome is reported to.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithDescriptorClient overrides the client the descriptor is fetched with.
func WithDescriptorClient(c *DescriptorClient) Option {
	return func(s *Scheduler) {
		s.descriptors = c
	}
}

// WithRepository sets the Maven repository updates are fetched from.
func WithRepository(c *maven.Client) Option {
	return func(s *Scheduler) {
		s.repository = c
	}
}

// WithInstaller replaces the default StagingInstaller.
func WithInstaller(i Installer) Option {
	return func(s *Scheduler) {
		s.installer = i
	}
}

// WithFetchOptions passes options to the fetcher built for each check.
func WithFetchOptions(opts ...fetch.Option) Option {
	return func(s *Scheduler) {
		s.fetchOpts = append(s.fetchOpts, opts...)
	}
}

// WithHistory makes every check use m instead of opening State.CachePath.
// A process that already manages the cache must share its manager, or a
// concurrent Clear is not seen by the check.
func WithHistory(m *history.Manager) Option {
	return func(s *Scheduler) {
		s.history = m
	}
}

// New creates a Scheduler. Without options it reads descriptors with a
// default client, fetches from Maven Central and stages updates.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.descriptors == nil {
		s.descriptors = NewDescriptorClient()
	}
	if s.repository == nil {
		s.repository = maven.NewClient()
	}
	if s.installer == nil {
		s.installer = NewStagingInstaller(s.logger)
	}
	return s
}

// CheckAndApply runs Check and logs its outcome. It never fails and never
// panics; it is meant to run unattended.
func (s *Scheduler) CheckAndApply(ctx context.Context, st State) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("background update panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	res, err := s.Check(ctx, st)
	switch {
	case err != nil:
		s.logger.Warn("background update failed", "url", st.UpdateServerURI, "error", err)
	case res.Applied:
		s.logger.Info("background update applied", "from", st.InstalledVersion, "to", res.Latest)
	default:
		s.logger.Info("no update needed", "installed", st.InstalledVersion, "latest", res.Latest)
	}
}

// Check fetches the descriptor and, when it announces a build newer than
// the installed one, fetches that build and hands it to the installer.
func (s *Scheduler) Check(ctx context.Context, st State) (Result, error) {
	if st.InstalledVersion <= 0 {
		s.logger.Debug("development build, skipping update check")
		return Result{}, nil
	}
	if st.UpdateServerURI == "" {
		return Result{}, ErrNoUpdateServer
	}

	desc, err := s.descriptors.Get(ctx, st.UpdateServerURI)
	if err != nil {
		return Result{}, err
	}
	res := Result{Latest: desc.Version}
	if desc.Version <= st.InstalledVersion {
		return res, nil
	}

	s.logger.Info("newer build available", "installed", st.InstalledVersion, "latest", desc.Version, "coordinate", desc.Coordinate)

	hist, err := s.openHistory(st)
	if err != nil {
		return res, err
	}
	fetcher := fetch.New(s.repository, hist, append([]fetch.Option{fetch.WithLogger(s.logger)}, s.fetchOpts...)...)

	pinned := desc.Pinned()
	art, err := fetcher.Fetch(ctx, resolver.Resolved{Coordinate: pinned, Version: pinned.Version}, progress.Nop(), fetch.Options{UseSSL: true})
	if err != nil {
		return res, fmt.Errorf("fetching %s: %w", pinned, err)
	}

	root, err := hist.LocalPath(maven.ArtifactOf(pinned).Path())
	if err != nil {
		return res, err
	}
	if !slices.Contains(art.LocalPaths, root) {
		return res, fmt.Errorf("%w: %s", ErrNoBuildJar, pinned)
	}
	if desc.SHA256 != "" {
		if err := VerifyFile(root, desc.SHA256); err != nil {
			return res, err
		}
	}

	err = s.installer.Install(ctx, Update{
		Descriptor:    *desc,
		Artifact:      art,
		CachePath:     hist.Root(),
		InstalledPath: st.InstalledPath,
	})
	if err != nil {
		return res, fmt.Errorf("installing build %d: %w", desc.Version, err)
	}
	res.Applied = true
	return res, nil
}

func (s *Scheduler) openHistory(st State) (*history.Manager, error) {
	if s.history != nil {
		return s.history, nil
	}
	hist, err := history.Open(st.CachePath, history.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return hist, nil
}
