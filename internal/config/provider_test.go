// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/graviton-app/graviton/internal/platform"
)

func TestProvider_Load(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `runtime: java_home: "/opt/jdk"`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{Dirs: platform.StaticDirs{Config: dir}})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Runtime.JavaHome != "/opt/jdk" {
		t.Errorf("JavaHome = %q", cfg.Runtime.JavaHome)
	}
}

func TestProvider_Load_Error(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "absent.cue")
	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: missing})
	if err == nil || cfg != nil {
		t.Fatalf("Load() = %v, %v, want an error", cfg, err)
	}
}

func TestLoadWithPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := writeConfig(t, dir, `ui: plain: true`)

	loaded, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}
	if loaded.Path != want || !loaded.UI.Plain {
		t.Errorf("LoadWithPath() = %+v from %q", loaded.Config, loaded.Path)
	}
}
