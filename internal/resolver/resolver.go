// SPDX-License-Identifier: MPL-2.0

// Package resolver turns coordinate text into a concrete version, consulting
// the history cache before the repository's metadata.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/graviton-app/graviton/internal/history"
	"github.com/graviton-app/graviton/internal/maven"
	"github.com/graviton-app/graviton/pkg/coordinate"
)

type (
	// MetadataSource serves maven-metadata.xml. *maven.Client implements it.
	MetadataSource interface {
		Metadata(ctx context.Context, group, artifact string, useSSL bool) (*maven.Metadata, error)
	}

	// Options controls one resolution.
	Options struct {
		// Offline forbids network access; stale cache entries are reused.
		Offline bool
		// ForceRefresh ignores the freshness window.
		ForceRefresh bool
		// UseSSL keeps https; false downgrades requests to http.
		UseSSL bool
	}

	// Resolved is a coordinate with a concrete version.
	Resolved struct {
		// Coordinate is the coordinate as the user wrote it.
		Coordinate coordinate.Coordinate
		Version    string
		// FromCache is true when no metadata request was made and the
		// history already knew the coordinate.
		FromCache bool
	}

	// Resolver resolves coordinates. It is safe for concurrent use.
	Resolver struct {
		source  MetadataSource
		history *history.Manager
		logger  *slog.Logger
		flight  singleflight.Group

		mu      sync.Mutex
		lookups map[string]*lookup
	}

	// lookup is the cancellation scope shared by every caller waiting on
	// one metadata request. The request is cancelled when the last caller
	// leaves.
	lookup struct {
		ctx    context.Context
		cancel context.CancelFunc
		refs   int
	}

	// Option configures a Resolver.
	Option func(*Resolver)
)

// WithLogger sets the resolver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// New creates a Resolver.
func New(source MetadataSource, hist *history.Manager, opts ...Option) *Resolver {
	r := &Resolver{source: source, history: hist, logger: slog.Default(), lookups: make(map[string]*lookup)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pinned returns the coordinate with its concrete version.
func (r Resolved) Pinned() coordinate.Coordinate {
	return r.Coordinate.WithVersion(r.Version)
}

// Key returns the history key the coordinate was requested under.
func (r Resolved) Key() string {
	return r.Coordinate.Key()
}

// Resolve parses text and resolves it. It fails with
// coordinate.ErrMalformedCoordinate, maven.ErrMetadataNotFound or a
// *maven.NetworkError.
func (r *Resolver) Resolve(ctx context.Context, text string, opts Options) (Resolved, error) {
	c, err := coordinate.Parse(text)
	if err != nil {
		return Resolved{}, err
	}
	return r.ResolveCoordinate(ctx, c, opts)
}

// ResolveCoordinate resolves an already parsed coordinate. A pinned version
// is authoritative and never triggers a metadata request.
func (r *Resolver) ResolveCoordinate(ctx context.Context, c coordinate.Coordinate, opts Options) (Resolved, error) {
	if !c.IsDynamic() {
		_, cached := r.history.Get(c.Key())
		return Resolved{Coordinate: c, Version: c.Version, FromCache: cached}, nil
	}

	entry, cached := r.history.Get(c.Key())
	if cached && !opts.ForceRefresh && r.history.IsFresh(entry) {
		r.logger.Debug("using cached resolution", "coordinate", c.Key(), "version", entry.ResolvedVersion)
		return Resolved{Coordinate: c, Version: entry.ResolvedVersion, FromCache: true}, nil
	}

	if opts.Offline {
		if cached {
			r.logger.Warn("offline, using stale resolution", "coordinate", c.Key(),
				"version", entry.ResolvedVersion, "checked_at", entry.LastCheckedAt)
			return Resolved{Coordinate: c, Version: entry.ResolvedVersion, FromCache: true}, nil
		}
		return Resolved{}, maven.OfflineUncached(c.Key())
	}

	version, err := r.newest(ctx, c, opts.UseSSL)
	if err != nil {
		return Resolved{}, err
	}

	r.record(c, version)
	return Resolved{Coordinate: c, Version: version}, nil
}

// newest queries metadata, collapsing concurrent lookups of one package.
func (r *Resolver) newest(ctx context.Context, c coordinate.Coordinate, useSSL bool) (string, error) {
	key := fmt.Sprintf("%s|ssl=%t", c.Key(), useSSL)
	l := r.acquire(ctx, key)
	defer r.release(key, l)

	ch := r.flight.DoChan(key, func() (any, error) {
		md, err := r.source.Metadata(l.ctx, c.Group, c.Artifact, useSSL)
		if err != nil {
			return "", err
		}
		v, ok := md.Newest()
		if !ok {
			return "", &maven.NotFoundError{Kind: maven.ErrMetadataNotFound, What: c.Key() + " has no published versions"}
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return "", context.Cause(ctx)
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (r *Resolver) acquire(ctx context.Context, key string) *lookup {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lookups[key]
	if !ok {
		lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		l = &lookup{ctx: lctx, cancel: cancel}
		r.lookups[key] = l
	}
	l.refs++
	return l
}

// release drops one caller. The last one cancels the request and forgets
// it, so a later caller starts a new one instead of joining a cancelled call.
func (r *Resolver) release(key string, l *lookup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.refs--
	if l.refs > 0 {
		return
	}
	l.cancel()
	if r.lookups[key] == l {
		delete(r.lookups, key)
	}
	r.flight.Forget(key)
}

// record resets the freshness window. Artifact paths survive only if the
// version did not change.
func (r *Resolver) record(c coordinate.Coordinate, version string) {
	entry, _ := r.history.Get(c.Key())
	if entry.ResolvedVersion != version {
		entry.ArtifactPaths = nil
	}
	entry.Key = c.Key()
	entry.ResolvedVersion = version
	entry.LastCheckedAt = r.history.Now()

	if err := r.history.Put(entry); err != nil {
		r.logger.Warn("failed to record resolution", "coordinate", c.Key(), "error", err)
	}
}
