// SPDX-License-Identifier: MPL-2.0

package history

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

const (
	// DefaultFreshnessWindow is how long a dynamic resolution is reused
	// without asking the repository again.
	DefaultFreshnessWindow = 24 * time.Hour

	// ArtifactsDir is the artifact tree under the cache root.
	ArtifactsDir = "artifacts"

	tempPrefix = ".graviton-tmp-"
)

type (
	// Clock supplies the current time.
	Clock interface {
		Now() time.Time
	}

	// Entry is one cached resolution.
	Entry struct {
		Key             string
		LastCheckedAt   time.Time
		ResolvedVersion string
		// ArtifactPaths are absolute, dependencies first and the root last.
		ArtifactPaths []string
	}

	// Manager owns one cache root.
	Manager struct {
		root      string
		artifacts string
		window    time.Duration
		clock     Clock
		logger    *slog.Logger

		// genMu is held shared by Publish and Commit and exclusively by Clear.
		genMu sync.RWMutex
		gen   uint64

		mu      sync.Mutex
		entries map[string]Entry
	}

	// Option configures a Manager.
	Option func(*Manager)

	systemClock struct{}
)

func (systemClock) Now() time.Time { return time.Now() }

// WithFreshnessWindow overrides DefaultFreshnessWindow. Non-positive values
// make every entry stale.
func WithFreshnessWindow(d time.Duration) Option {
	return func(m *Manager) {
		m.window = d
	}
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithLogger sets the logger used for recovery diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// Open creates the cache layout under cachePath if needed and loads the
// index. It is idempotent. A corrupt index is logged and the cache is
// cleared and rebuilt.
func Open(cachePath string, opts ...Option) (*Manager, error) {
	if cachePath == "" {
		return nil, errors.New("cache path must not be empty")
	}
	root, err := filepath.Abs(cachePath)
	if err != nil {
		return nil, fmt.Errorf("resolving cache path %s: %w", cachePath, err)
	}

	m := &Manager{
		root:      root,
		artifacts: filepath.Join(root, ArtifactsDir),
		window:    DefaultFreshnessWindow,
		clock:     systemClock{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := os.MkdirAll(m.artifacts, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", m.artifacts, err)
	}

	entries, err := loadIndex(root)
	if err != nil {
		m.logger.Warn("history index unreadable, clearing cache", "path", filepath.Join(root, IndexFile), "error", err)
		if clearErr := m.Clear(); clearErr != nil {
			return nil, fmt.Errorf("recovering from %w: %w", err, clearErr)
		}
		return m, nil
	}
	m.entries = entries
	return m, nil
}

// Root returns the absolute cache root.
func (m *Manager) Root() string { return m.root }

// ArtifactsRoot returns the absolute artifact tree root.
func (m *Manager) ArtifactsRoot() string { return m.artifacts }

// Window returns the freshness window.
func (m *Manager) Window() time.Duration { return m.window }

// Now returns the manager clock's current time.
func (m *Manager) Now() time.Time { return m.clock.Now() }

// Generation returns the current cache generation. Writers capture it
// before starting and pass it to Publish and Commit.
func (m *Manager) Generation() uint64 {
	m.genMu.RLock()
	defer m.genMu.RUnlock()
	return m.gen
}

// LocalPath maps a slash-separated repository path to its location in the
// artifact tree.
func (m *Manager) LocalPath(repoPath string) (string, error) {
	return resolveRelative(m.artifacts, repoPath)
}

// Get returns the entry stored under key.
func (m *Manager) Get(key string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Entries returns every entry ordered by key.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, key := range slices.Sorted(maps.Keys(m.entries)) {
		out = append(out, m.entries[key].clone())
	}
	return out
}

// IsFresh reports whether e was checked within the freshness window.
func (m *Manager) IsFresh(e Entry) bool {
	age := m.clock.Now().Sub(e.LastCheckedAt)
	return age >= 0 && age < m.window
}

// Put stores e and persists the index.
func (m *Manager) Put(e Entry) error {
	if e.Key == "" {
		return errors.New("history entry key must not be empty")
	}
	if e.ResolvedVersion == "" {
		return fmt.Errorf("history entry %s has no resolved version", e.Key)
	}
	for _, p := range e.ArtifactPaths {
		if _, err := relativeTo(m.root, p); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := maps.Clone(m.entries)
	if next == nil {
		next = make(map[string]Entry)
	}
	next[e.Key] = e.clone()
	if err := storeIndex(m.root, next); err != nil {
		return err
	}
	m.entries = next
	return nil
}

// Commit is Put guarded by the generation captured at the start of a fetch.
func (m *Manager) Commit(gen uint64, e Entry) error {
	m.genMu.RLock()
	defer m.genMu.RUnlock()
	if gen != m.gen {
		return ErrCacheInvalidated
	}
	for _, p := range e.ArtifactPaths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrCacheInvalidated, p, err)
		}
	}
	return m.Put(e)
}

// CreateTemp opens a temporary file in the directory of final, which must
// be inside the artifact tree.
func (m *Manager) CreateTemp(final string) (*os.File, error) {
	if _, err := relativeTo(m.artifacts, final); err != nil {
		return nil, err
	}
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	return os.CreateTemp(dir, tempPrefix+filepath.Base(final)+"-*")
}

// Publish renames tmp to final if the cache generation is still gen.
// Otherwise tmp is removed and ErrCacheInvalidated returned.
func (m *Manager) Publish(gen uint64, tmp, final string) error {
	m.genMu.RLock()
	defer m.genMu.RUnlock()

	if gen != m.gen {
		_ = os.Remove(tmp)
		return ErrCacheInvalidated
	}
	if _, err := relativeTo(m.artifacts, final); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publishing %s: %w", final, err)
	}
	return nil
}

// Clear deletes every artifact and entry and advances the generation.
func (m *Manager) Clear() error {
	m.genMu.Lock()
	defer m.genMu.Unlock()
	m.gen++

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry)

	var errs []error
	if err := os.RemoveAll(m.artifacts); err != nil {
		errs = append(errs, fmt.Errorf("removing %s: %w", m.artifacts, err))
	}
	if err := os.Remove(filepath.Join(m.root, IndexFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, fmt.Errorf("removing index: %w", err))
	}
	if err := os.MkdirAll(m.artifacts, 0o755); err != nil {
		errs = append(errs, fmt.Errorf("recreating %s: %w", m.artifacts, err))
	}
	return errors.Join(errs...)
}

func (e Entry) clone() Entry {
	e.ArtifactPaths = slices.Clone(e.ArtifactPaths)
	return e
}
