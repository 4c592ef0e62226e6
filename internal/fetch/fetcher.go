// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/graviton-app/graviton/internal/history"
	"github.com/graviton-app/graviton/internal/maven"
	"github.com/graviton-app/graviton/internal/progress"
	"github.com/graviton-app/graviton/internal/resolver"
)

const (
	// DefaultMaxParallel bounds concurrent jar downloads.
	DefaultMaxParallel = 4

	// defaultRetryDelay separates the first download attempt from the
	// checksum-mismatch retry.
	defaultRetryDelay = 200 * time.Millisecond
)

type (
	// Options controls one fetch.
	Options struct {
		// UseSSL keeps https; false downgrades every request of this fetch to http.
		UseSSL bool
		// Offline serves the fetch from the cache only.
		Offline bool
	}

	// Fetcher downloads dependency closures. It is safe for concurrent use.
	Fetcher struct {
		client      *maven.Client
		history     *history.Manager
		logger      *slog.Logger
		maxParallel int
		retryDelay  time.Duration
		flights     *flights
	}

	// Option configures a Fetcher.
	Option func(*Fetcher)
)

// WithLogger sets the fetcher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// WithMaxParallel bounds concurrent jar downloads.
func WithMaxParallel(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxParallel = n
		}
	}
}

// WithRetryDelay sets the pause before retrying a checksum mismatch.
func WithRetryDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.retryDelay = d
	}
}

// New creates a Fetcher storing into hist.
func New(client *maven.Client, hist *history.Manager, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      client,
		history:     hist,
		logger:      slog.Default(),
		maxParallel: DefaultMaxParallel,
		retryDelay:  defaultRetryDelay,
		flights:     newFlights(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads r and its closure. sink receives one Started, Progress for
// every jar that had to be downloaded, and one Stopped, whatever the outcome.
//
// Failures are maven.ErrArtifactNotFound, maven.ErrChecksumMismatch,
// *maven.NetworkError (including offline-and-uncached) and
// history.ErrCacheInvalidated when the cache was cleared mid-fetch.
func (f *Fetcher) Fetch(ctx context.Context, r resolver.Resolved, sink progress.Sink, opts Options) (*ResolvedArtifact, error) {
	pinned := r.Pinned()
	if ok, errs := pinned.IsValid(); !ok || pinned.IsDynamic() {
		return nil, fmt.Errorf("fetch needs a concrete coordinate, got %s: %v", pinned, errs)
	}

	gen := f.history.Generation()
	key := fmt.Sprintf("%s|ssl=%t|offline=%t|gen=%d", pinned, opts.UseSSL, opts.Offline, gen)

	return f.flights.join(ctx, key, pinned.String(), sink, func(ctx context.Context, events progress.Sink) (*ResolvedArtifact, error) {
		events.Emit(progress.Started{Name: pinned.String()})
		return f.fetch(ctx, r, gen, events, opts)
	})
}

func (f *Fetcher) fetch(ctx context.Context, r resolver.Resolved, gen uint64, events progress.Sink, opts Options) (*ResolvedArtifact, error) {
	s := &session{fetcher: f, gen: gen, opts: opts, poms: make(map[string]*maven.Project)}

	started := time.Now()
	closure, err := s.closure(ctx, maven.ArtifactOf(r.Pinned()))
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(closure))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxParallel)
	for i, art := range closure {
		g.Go(func() error {
			path, err := s.ensureJar(gctx, art, events)
			if err != nil {
				return fmt.Errorf("%s: %w", art, err)
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := f.history.Now()
	if err := f.commit(gen, r, paths, now); err != nil {
		return nil, err
	}

	f.logger.Debug("fetch complete", "coordinate", r.Pinned().String(), "artifacts", len(paths), "elapsed", time.Since(started))
	return &ResolvedArtifact{
		Coordinate: r.Coordinate,
		Version:    r.Version,
		LocalPaths: paths,
		ResolvedAt: now,
	}, nil
}

// commit records the paths under the requested key and, for dynamic
// requests, under the pinned key too. The resolver owns LastCheckedAt of
// dynamic entries, so an existing timestamp for the same version is kept.
func (f *Fetcher) commit(gen uint64, r resolver.Resolved, paths []string, now time.Time) error {
	keys := []string{r.Pinned().Key()}
	if r.Coordinate.IsDynamic() {
		keys = append(keys, r.Key())
	}

	for _, key := range keys {
		entry := history.Entry{Key: key, LastCheckedAt: now, ResolvedVersion: r.Version, ArtifactPaths: paths}
		if prev, ok := f.history.Get(key); ok && prev.ResolvedVersion == r.Version {
			entry.LastCheckedAt = prev.LastCheckedAt
		}
		if err := f.history.Commit(gen, entry); err != nil {
			return fmt.Errorf("recording %s: %w", key, err)
		}
	}
	return nil
}
