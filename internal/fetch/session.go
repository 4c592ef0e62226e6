// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/graviton-app/graviton/internal/maven"
	"github.com/graviton-app/graviton/internal/progress"
)

// session holds the per-fetch state: the cache generation captured at the
// start, the transport options and a memo of POMs already read.
type session struct {
	fetcher *Fetcher
	gen     uint64
	opts    Options

	mu   sync.Mutex
	poms map[string]*maven.Project
}

// LoadPOM implements maven.POMLoader, reading from the cache first.
func (s *session) LoadPOM(ctx context.Context, group, artifact, version string) (*maven.Project, error) {
	art := maven.Artifact{Group: group, Artifact: artifact, Version: version}.POM()

	s.mu.Lock()
	p, ok := s.poms[art.ID()]
	s.mu.Unlock()
	if ok {
		return p, nil
	}

	data, err := s.smallFile(ctx, art.Path(), art.String()+" pom")
	if err != nil {
		return nil, err
	}
	p, err = maven.ParsePOM(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", art.Path(), err)
	}

	s.mu.Lock()
	s.poms[art.ID()] = p
	s.mu.Unlock()
	return p, nil
}

// metadata returns package metadata for range matching. Online it is
// refreshed and cached; offline the cached copy is used.
func (s *session) metadata(ctx context.Context, group, artifact string) (*maven.Metadata, error) {
	path := maven.MetadataPath(group, artifact)
	local, err := s.fetcher.history.LocalPath(path)
	if err != nil {
		return nil, err
	}

	var data []byte
	if s.opts.Offline {
		data, err = os.ReadFile(local)
		if err != nil {
			return nil, maven.OfflineUncached(group + ":" + artifact + " metadata")
		}
	} else {
		data, err = s.fetcher.client.File(ctx, path, s.opts.UseSSL)
		if errors.Is(err, maven.ErrArtifactNotFound) {
			return nil, &maven.NotFoundError{Kind: maven.ErrMetadataNotFound, What: group + ":" + artifact}
		}
		if err != nil {
			return nil, err
		}
		if err := s.store(local, data, ""); err != nil {
			return nil, err
		}
	}
	return maven.ParseMetadata(data)
}

// smallFile returns a cached repository file, downloading and verifying it
// when missing.
func (s *session) smallFile(ctx context.Context, path, what string) ([]byte, error) {
	local, err := s.fetcher.history.LocalPath(path)
	if err != nil {
		return nil, err
	}
	if s.validCached(local) {
		if data, err := os.ReadFile(local); err == nil {
			return data, nil
		}
	}
	if s.opts.Offline {
		return nil, maven.OfflineUncached(what)
	}

	sum, err := s.fetcher.client.Checksum(ctx, path, s.opts.UseSSL)
	if err != nil {
		return nil, err
	}
	data, err := s.fetcher.client.File(ctx, path, s.opts.UseSSL)
	if err != nil {
		return nil, err
	}
	if sum != "" {
		h := maven.NewHash()
		_, _ = h.Write(data)
		if err := maven.Verify(path, sum, hex.EncodeToString(h.Sum(nil))); err != nil {
			return nil, err
		}
	}
	if err := s.store(local, data, sum); err != nil {
		return nil, err
	}
	return data, nil
}

// ensureJar returns the cached path of art, downloading it if it is absent
// or fails verification. A checksum mismatch is retried once.
func (s *session) ensureJar(ctx context.Context, art maven.Artifact, events progress.Sink) (string, error) {
	local, err := s.fetcher.history.LocalPath(art.Path())
	if err != nil {
		return "", err
	}
	if s.validCached(local) {
		return local, nil
	}
	if s.opts.Offline {
		return "", maven.OfflineUncached(art.String())
	}

	report := &reporter{name: art.FileName(), events: events, total: progress.UnknownSize, first: true}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.fetcher.retryDelay), 1), ctx)

	attempt := 0
	return backoff.RetryWithData(func() (string, error) {
		attempt++
		path, err := s.download(ctx, art, local, report)
		if err == nil {
			return path, nil
		}
		if errors.Is(err, maven.ErrChecksumMismatch) && ctx.Err() == nil {
			s.fetcher.logger.Warn("checksum mismatch", "artifact", art.String(), "attempt", attempt, "error", err)
			return "", err
		}
		return "", backoff.Permanent(err)
	}, policy)
}

func (s *session) download(ctx context.Context, art maven.Artifact, local string, report *reporter) (string, error) {
	sum, err := s.fetcher.client.Checksum(ctx, art.Path(), s.opts.UseSSL)
	if err != nil {
		return "", err
	}

	body, err := s.fetcher.client.Download(ctx, art.Path(), s.opts.UseSSL)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	tmp, err := s.fetcher.history.CreateTemp(local)
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	discard := func() { _ = os.Remove(tmpName) }

	report.begin(body.Length)
	h := maven.NewHash()
	_, copyErr := io.Copy(io.MultiWriter(tmp, h), &progressReader{r: body, report: report})
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		discard()
		return "", err
	}

	if sum == "" {
		s.fetcher.logger.Warn("repository declares no checksum, accepting download", "artifact", art.String())
	} else if err := maven.Verify(art.FileName(), sum, hex.EncodeToString(h.Sum(nil))); err != nil {
		discard()
		return "", err
	}

	if sum != "" {
		if err := s.store(maven.ChecksumPath(local), []byte(sum+"\n"), ""); err != nil {
			discard()
			return "", err
		}
	}
	if err := s.fetcher.history.Publish(s.gen, tmpName, local); err != nil {
		return "", err
	}
	return local, nil
}

// validCached reports whether local exists and matches its stored sidecar,
// if one was stored. A file failing verification is removed.
func (s *session) validCached(local string) bool {
	info, err := os.Stat(local)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	sidecar, err := os.ReadFile(maven.ChecksumPath(local))
	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	if err == nil {
		var sum string
		if sum, err = maven.ParseChecksum(sidecar); err == nil {
			err = maven.VerifyFile(local, sum)
		}
	}
	if err != nil {
		s.fetcher.logger.Warn("cached artifact failed verification, downloading again", "path", local, "error", err)
		_ = os.Remove(local)
		_ = os.Remove(maven.ChecksumPath(local))
		return false
	}
	return true
}

// store atomically writes data to local (and its sidecar when sum is set)
// under the session's cache generation.
func (s *session) store(local string, data []byte, sum string) error {
	if sum != "" {
		if err := s.store(maven.ChecksumPath(local), []byte(sum+"\n"), ""); err != nil {
			return err
		}
	}

	tmp, err := s.fetcher.history.CreateTemp(local)
	if err != nil {
		return err
	}
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return s.fetcher.history.Publish(s.gen, tmp.Name(), local)
}
