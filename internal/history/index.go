// SPDX-License-Identifier: MPL-2.0

package history

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/graviton-app/graviton/internal/cueutil"
)

const (
	// IndexFile is the name of the history index under the cache root.
	IndexFile = "history.cue"

	indexVersion = 1
)

//go:embed history_schema.cue
var indexSchema []byte

type (
	indexFile struct {
		Version int                   `json:"version"`
		Entries map[string]indexEntry `json:"entries"`
	}

	indexEntry struct {
		Key             string   `json:"key"`
		LastCheckedAt   string   `json:"last_checked_at"`
		ResolvedVersion string   `json:"resolved_version"`
		ArtifactPaths   []string `json:"artifact_paths"`
	}
)

// loadIndex reads the index. A missing file is an empty index; anything
// unreadable or inconsistent is reported as ErrCacheCorruption.
func loadIndex(root string) (map[string]Entry, error) {
	data, err := os.ReadFile(filepath.Join(root, IndexFile))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheCorruption, err)
	}

	parsed, err := cueutil.ParseAndDecode[indexFile](indexSchema, data, "#History", cueutil.WithFilename(IndexFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheCorruption, err)
	}

	entries := make(map[string]Entry, len(parsed.Value.Entries))
	for key, raw := range parsed.Value.Entries {
		if raw.Key != key {
			return nil, fmt.Errorf("%w: entry %q is stored under %q", ErrCacheCorruption, raw.Key, key)
		}
		checked, err := time.Parse(time.RFC3339Nano, raw.LastCheckedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: %w", ErrCacheCorruption, key, err)
		}
		paths := make([]string, 0, len(raw.ArtifactPaths))
		for _, rel := range raw.ArtifactPaths {
			abs, err := resolveRelative(root, rel)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %q: %w", ErrCacheCorruption, key, err)
			}
			paths = append(paths, abs)
		}
		entries[key] = Entry{
			Key:             key,
			LastCheckedAt:   checked,
			ResolvedVersion: raw.ResolvedVersion,
			ArtifactPaths:   paths,
		}
	}
	return entries, nil
}

// storeIndex writes entries atomically.
func storeIndex(root string, entries map[string]Entry) error {
	file := indexFile{Version: indexVersion, Entries: make(map[string]indexEntry, len(entries))}
	for key, e := range entries {
		rels := make([]string, 0, len(e.ArtifactPaths))
		for _, abs := range e.ArtifactPaths {
			rel, err := relativeTo(root, abs)
			if err != nil {
				return err
			}
			rels = append(rels, rel)
		}
		file.Entries[key] = indexEntry{
			Key:             key,
			LastCheckedAt:   e.LastCheckedAt.UTC().Format(time.RFC3339Nano),
			ResolvedVersion: e.ResolvedVersion,
			ArtifactPaths:   rels,
		}
	}

	data, err := cueutil.Marshal(file)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", IndexFile, err)
	}
	return writeFileAtomic(filepath.Join(root, IndexFile), data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("publishing %s: %w", path, err)
	}
	return nil
}

// relativeTo converts an absolute cache path into its slash-separated
// form relative to root.
func relativeTo(root, abs string) (string, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", ErrOutsideCache, abs)
	}
	return filepath.ToSlash(rel), nil
}

func resolveRelative(root, rel string) (string, error) {
	native := filepath.FromSlash(rel)
	if !filepath.IsLocal(native) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("%w: %s", ErrOutsideCache, rel)
	}
	return filepath.Join(root, native), nil
}
