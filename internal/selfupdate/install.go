// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/graviton-app/graviton/internal/fetch"
)

// StagedFile is the record the default installer writes under the cache root.
const StagedFile = "update/staged.toml"

type (
	// Update is a fetched build ready to be installed.
	Update struct {
		Descriptor    Descriptor
		Artifact      *fetch.ResolvedArtifact
		CachePath     string
		InstalledPath string
	}

	// Installer applies a fetched update. Implementations must not modify
	// the files in Artifact.LocalPaths; they belong to the cache.
	Installer interface {
		Install(ctx context.Context, u Update) error
	}

	// InstallerFunc adapts a function to Installer.
	InstallerFunc func(ctx context.Context, u Update) error

	// StagingInstaller records the update so the next start of the shell can
	// switch to it. It never touches InstalledPath.
	StagingInstaller struct {
		logger *slog.Logger
		now    func() time.Time
	}

	// Staged is the record of a staged update.
	Staged struct {
		Version       int       `toml:"version"`
		Coordinate    string    `toml:"coordinate"`
		ClassPath     []string  `toml:"class_path"`
		InstalledPath string    `toml:"installed_path,omitempty"`
		StagedAt      time.Time `toml:"staged_at"`
	}
)

// Install calls f.
func (f InstallerFunc) Install(ctx context.Context, u Update) error { return f(ctx, u) }

// NewStagingInstaller creates the default installer.
func NewStagingInstaller(logger *slog.Logger) *StagingInstaller {
	if logger == nil {
		logger = slog.Default()
	}
	return &StagingInstaller{logger: logger, now: time.Now}
}

// Install writes the staged record atomically and logs it.
func (i *StagingInstaller) Install(_ context.Context, u Update) error {
	rec := Staged{
		Version:       u.Descriptor.Version,
		Coordinate:    u.Artifact.Pinned().String(),
		ClassPath:     u.Artifact.LocalPaths,
		InstalledPath: u.InstalledPath,
		StagedAt:      i.now().UTC().Truncate(time.Second),
	}
	data, err := toml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding staged update: %w", err)
	}

	path := filepath.Join(u.CachePath, filepath.FromSlash(StagedFile))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".staged-*")
	if err != nil {
		return fmt.Errorf("creating staged update: %w", err)
	}
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing staged update: %w", errors.Join(writeErr, closeErr))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("publishing staged update: %w", err)
	}

	i.logger.Info("update staged",
		"version", rec.Version,
		"coordinate", rec.Coordinate,
		"record", path)
	return nil
}

// ReadStaged returns the update staged under cachePath, or nil when there
// is none.
func ReadStaged(cachePath string) (*Staged, error) {
	data, err := os.ReadFile(filepath.Join(cachePath, filepath.FromSlash(StagedFile)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Staged
	if err := toml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding staged update: %w", err)
	}
	return &rec, nil
}
