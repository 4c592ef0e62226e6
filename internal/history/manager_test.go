// SPDX-License-Identifier: MPL-2.0

package history

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/graviton-app/graviton/internal/testutil"
)

func openTest(t *testing.T, opts ...Option) (*Manager, *testutil.FakeClock) {
	t.Helper()
	clock := testutil.NewFakeClock(time.Time{})
	m, err := Open(t.TempDir(), append([]Option{WithClock(clock)}, opts...)...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return m, clock
}

func publishFile(t *testing.T, m *Manager, repoPath, content string) string {
	t.Helper()
	final, err := m.LocalPath(repoPath)
	if err != nil {
		t.Fatalf("LocalPath(%s) error = %v", repoPath, err)
	}
	tmp, err := m.CreateTemp(final)
	if err != nil {
		t.Fatalf("CreateTemp() error = %v", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Publish(m.Generation(), tmp.Name(), final); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	return final
}

func TestOpen_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for range 2 {
		m, err := Open(dir)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if info, err := os.Stat(m.ArtifactsRoot()); err != nil || !info.IsDir() {
			t.Fatalf("artifact root missing: %v", err)
		}
	}
}

func TestManager_PutGetPersist(t *testing.T) {
	t.Parallel()

	m, clock := openTest(t)
	jar := publishFile(t, m, "org/example/hello/1.0.0/hello-1.0.0.jar", "hello")

	entry := Entry{
		Key:             "org.example:hello",
		LastCheckedAt:   clock.Now(),
		ResolvedVersion: "1.0.0",
		ArtifactPaths:   []string{jar},
	}
	if err := m.Put(entry); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	reopened, err := Open(m.Root(), WithClock(clock))
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	got, ok := reopened.Get("org.example:hello")
	if !ok {
		t.Fatal("entry not persisted")
	}
	if !got.LastCheckedAt.Equal(entry.LastCheckedAt) || got.ResolvedVersion != "1.0.0" {
		t.Errorf("Get() = %+v, want %+v", got, entry)
	}
	if !slices.Equal(got.ArtifactPaths, entry.ArtifactPaths) {
		t.Errorf("ArtifactPaths = %v, want %v", got.ArtifactPaths, entry.ArtifactPaths)
	}

	index := string(testutil.MustReadFile(t, filepath.Join(m.Root(), IndexFile)))
	if strings.Contains(index, m.Root()) {
		t.Errorf("index stores absolute paths:\n%s", index)
	}
}

func TestManager_KeysDoNotAlias(t *testing.T) {
	t.Parallel()

	m, clock := openTest(t)
	if err := m.Put(Entry{Key: "g:a", LastCheckedAt: clock.Now(), ResolvedVersion: "2.0"}); err != nil {
		t.Fatal(err)
	}

	if _, ok := m.Get("g:a:2.0"); ok {
		t.Error("dynamic entry must not satisfy a pinned lookup")
	}
	if err := m.Put(Entry{Key: "g:a:1.0", LastCheckedAt: clock.Now(), ResolvedVersion: "1.0"}); err != nil {
		t.Fatal(err)
	}
	if e, _ := m.Get("g:a"); e.ResolvedVersion != "2.0" {
		t.Errorf("pinned put overwrote dynamic entry: %+v", e)
	}
}

func TestManager_IsFresh(t *testing.T) {
	t.Parallel()

	m, clock := openTest(t, WithFreshnessWindow(time.Hour))
	e := Entry{Key: "g:a", LastCheckedAt: clock.Now(), ResolvedVersion: "1"}

	if !m.IsFresh(e) {
		t.Error("entry should be fresh right after checking")
	}
	clock.Advance(59 * time.Minute)
	if !m.IsFresh(e) {
		t.Error("entry should be fresh inside the window")
	}
	clock.Advance(time.Minute)
	if m.IsFresh(e) {
		t.Error("entry should be stale at the window boundary")
	}
	if m.Window() != time.Hour {
		t.Errorf("Window() = %v", m.Window())
	}

	future := Entry{Key: "g:a", LastCheckedAt: clock.Now().Add(time.Hour), ResolvedVersion: "1"}
	if m.IsFresh(future) {
		t.Error("entries from the future are stale")
	}
}

func TestManager_DefaultWindow(t *testing.T) {
	t.Parallel()

	m, _ := openTest(t)
	if m.Window() != DefaultFreshnessWindow {
		t.Errorf("Window() = %v, want %v", m.Window(), DefaultFreshnessWindow)
	}
}

func TestManager_Clear(t *testing.T) {
	t.Parallel()

	m, clock := openTest(t)
	jar := publishFile(t, m, "g/a/1/a-1.jar", "x")
	if err := m.Put(Entry{Key: "g:a:1", LastCheckedAt: clock.Now(), ResolvedVersion: "1", ArtifactPaths: []string{jar}}); err != nil {
		t.Fatal(err)
	}
	before := m.Generation()

	if err := m.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if m.Generation() == before {
		t.Error("Clear() must advance the generation")
	}
	if len(m.Entries()) != 0 {
		t.Errorf("Entries() = %v after clear", m.Entries())
	}
	if files := testutil.ListFiles(t, m.Root()); len(files) != 0 {
		t.Errorf("files left after clear: %v", files)
	}
	if _, err := os.Stat(m.ArtifactsRoot()); err != nil {
		t.Errorf("artifact root should be recreated: %v", err)
	}
}

func TestManager_PublishAfterClearIsInvalidated(t *testing.T) {
	t.Parallel()

	m, clock := openTest(t)
	final, err := m.LocalPath("g/a/1/a-1.jar")
	if err != nil {
		t.Fatal(err)
	}

	gen := m.Generation()
	tmp, err := m.CreateTemp(final)
	if err != nil {
		t.Fatal(err)
	}
	_ = tmp.Close()

	if err := m.Clear(); err != nil {
		t.Fatal(err)
	}

	if err := m.Publish(gen, tmp.Name(), final); !errors.Is(err, ErrCacheInvalidated) {
		t.Fatalf("Publish() error = %v, want ErrCacheInvalidated", err)
	}
	if err := m.Commit(gen, Entry{Key: "g:a:1", LastCheckedAt: clock.Now(), ResolvedVersion: "1"}); !errors.Is(err, ErrCacheInvalidated) {
		t.Fatalf("Commit() error = %v, want ErrCacheInvalidated", err)
	}
	if files := testutil.ListFiles(t, m.Root()); len(files) != 0 {
		t.Errorf("stale write left files behind: %v", files)
	}
}

func TestManager_CommitRejectsMissingPaths(t *testing.T) {
	t.Parallel()

	m, clock := openTest(t)
	missing, _ := m.LocalPath("g/a/1/a-1.jar")
	err := m.Commit(m.Generation(), Entry{Key: "g:a:1", LastCheckedAt: clock.Now(), ResolvedVersion: "1", ArtifactPaths: []string{missing}})
	if !errors.Is(err, ErrCacheInvalidated) {
		t.Fatalf("Commit() error = %v, want ErrCacheInvalidated", err)
	}
}

func TestManager_RejectsPathsOutsideCache(t *testing.T) {
	t.Parallel()

	m, clock := openTest(t)
	outside := filepath.Join(t.TempDir(), "evil.jar")

	if err := m.Put(Entry{Key: "g:a", LastCheckedAt: clock.Now(), ResolvedVersion: "1", ArtifactPaths: []string{outside}}); !errors.Is(err, ErrOutsideCache) {
		t.Errorf("Put() error = %v, want ErrOutsideCache", err)
	}
	if _, err := m.LocalPath("../../etc/passwd"); !errors.Is(err, ErrOutsideCache) {
		t.Errorf("LocalPath() error = %v, want ErrOutsideCache", err)
	}
	if _, err := m.CreateTemp(outside); !errors.Is(err, ErrOutsideCache) {
		t.Errorf("CreateTemp() error = %v, want ErrOutsideCache", err)
	}
}

func TestOpen_CorruptIndexClearsCache(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		index string
	}{
		{"not cue", "{{{ nonsense"},
		{"schema violation", "version: 1\nentries: {\"g:a\": {key: \"g:a\"}}"},
		{"escaping path", `version: 1
entries: "g:a": {key: "g:a", last_checked_at: "2020-01-01T00:00:00Z", resolved_version: "1", artifact_paths: ["../outside.jar"]}`},
		{"bad timestamp", `version: 1
entries: "g:a": {key: "g:a", last_checked_at: "yesterday", resolved_version: "1", artifact_paths: []}`},
		{"mismatched key", `version: 1
entries: "g:a": {key: "g:b", last_checked_at: "2020-01-01T00:00:00Z", resolved_version: "1", artifact_paths: []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			testutil.MustWriteFile(t, filepath.Join(dir, ArtifactsDir, "g", "a", "1", "a-1.jar"), []byte("old"))
			testutil.MustWriteFile(t, filepath.Join(dir, IndexFile), []byte(tt.index))

			m, err := Open(dir)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if len(m.Entries()) != 0 {
				t.Errorf("Entries() = %v, want none", m.Entries())
			}
			if files := testutil.ListFiles(t, dir); len(files) != 0 {
				t.Errorf("corrupt cache not cleared: %v", files)
			}
		})
	}
}

func TestLoadIndex_Valid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, IndexFile), []byte(`version: 1
entries: "org.example:hello:1.0.0": {
	key:              "org.example:hello:1.0.0"
	last_checked_at:  "2024-05-01T10:00:00Z"
	resolved_version: "1.0.0"
	artifact_paths: ["artifacts/org/example/hello/1.0.0/hello-1.0.0.jar"]
}
`))

	entries, err := loadIndex(dir)
	if err != nil {
		t.Fatalf("loadIndex() error = %v", err)
	}
	e := entries["org.example:hello:1.0.0"]
	want := filepath.Join(dir, "artifacts", "org", "example", "hello", "1.0.0", "hello-1.0.0.jar")
	if len(e.ArtifactPaths) != 1 || e.ArtifactPaths[0] != want {
		t.Errorf("ArtifactPaths = %v, want [%s]", e.ArtifactPaths, want)
	}
}

func TestManager_ConcurrentPutAndClear(t *testing.T) {
	t.Parallel()

	m, clock := openTest(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%5 == 0 {
				_ = m.Clear()
				return
			}
			gen := m.Generation()
			_ = m.Commit(gen, Entry{Key: "g:a", LastCheckedAt: clock.Now(), ResolvedVersion: "1"})
		}()
	}
	wg.Wait()

	// Whatever interleaving happened, the index on disk must load cleanly.
	if _, err := loadIndex(m.Root()); err != nil {
		t.Fatalf("index corrupt after concurrent use: %v", err)
	}
}
