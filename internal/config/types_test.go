// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
	"time"
)

func TestRuntimeKind_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind RuntimeKind
		want bool
	}{
		{RuntimeJVM, true},
		{RuntimeContainer, true},
		{"", false},
		{"native", false},
		{"JVM", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.kind.IsValid()
			if isValid != tt.want {
				t.Errorf("RuntimeKind(%q).IsValid() = %v, want %v", tt.kind, isValid, tt.want)
			}
			if tt.want {
				if len(errs) > 0 {
					t.Errorf("unexpected errors: %v", errs)
				}
				return
			}
			if len(errs) == 0 || !errors.Is(errs[0], ErrInvalidRuntimeKind) {
				t.Errorf("error should wrap ErrInvalidRuntimeKind, got: %v", errs)
			}
		})
	}
}

func TestContainerEngine_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		engine ContainerEngine
		want   bool
	}{
		{ContainerEngineAuto, true},
		{ContainerEnginePodman, true},
		{ContainerEngineDocker, true},
		{"containerd", false},
		{"PODMAN", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.engine), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.engine.IsValid()
			if isValid != tt.want {
				t.Errorf("ContainerEngine(%q).IsValid() = %v, want %v", tt.engine, isValid, tt.want)
			}
			if !tt.want {
				var target *InvalidContainerEngineError
				if len(errs) == 0 || !errors.As(errs[0], &target) || target.Value != tt.engine {
					t.Errorf("expected InvalidContainerEngineError for %q, got: %v", tt.engine, errs)
				}
				if !errors.Is(errs[0], ErrInvalidContainerEngine) {
					t.Errorf("error should wrap ErrInvalidContainerEngine")
				}
			}
		})
	}
}

func TestRepositoryConfig_IsValid(t *testing.T) {
	t.Parallel()

	valid := DefaultConfig().Repository

	tests := []struct {
		name   string
		mutate func(*RepositoryConfig)
		want   bool
	}{
		{name: "defaults", mutate: func(*RepositoryConfig) {}, want: true},
		{name: "plain http", mutate: func(r *RepositoryConfig) { r.URL = "http://localhost:8081/maven" }, want: true},
		{name: "no scheme", mutate: func(r *RepositoryConfig) { r.URL = "repo.example.com" }},
		{name: "file scheme", mutate: func(r *RepositoryConfig) { r.URL = "file:///srv/maven" }},
		{name: "zero timeout", mutate: func(r *RepositoryConfig) { r.Timeout = 0 }},
		{name: "negative artifact timeout", mutate: func(r *RepositoryConfig) { r.ArtifactTimeout = -time.Second }},
		{name: "no parallelism", mutate: func(r *RepositoryConfig) { r.MaxParallelDownloads = 0 }},
		{name: "too much parallelism", mutate: func(r *RepositoryConfig) { r.MaxParallelDownloads = 65 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := valid
			tt.mutate(&r)
			isValid, errs := r.IsValid()
			if isValid != tt.want {
				t.Fatalf("IsValid() = %v (%v), want %v", isValid, errs, tt.want)
			}
			if !tt.want && !errors.Is(errs[0], ErrInvalidRepositoryConfig) {
				t.Errorf("error should wrap ErrInvalidRepositoryConfig, got: %v", errs[0])
			}
		})
	}
}

func TestConfig_IsValid_CollectsFieldErrors(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Repository.Timeout = 0
	cfg.History.FreshnessWindow = -time.Minute
	cfg.Runtime.Kind = "native"
	cfg.Runtime.Container.Engine = "lxc"

	isValid, errs := cfg.IsValid()
	if isValid || len(errs) != 1 {
		t.Fatalf("IsValid() = %v, %v", isValid, errs)
	}
	var cfgErr *InvalidConfigError
	if !errors.As(errs[0], &cfgErr) {
		t.Fatalf("expected InvalidConfigError, got %T", errs[0])
	}
	if len(cfgErr.FieldErrors) != 4 {
		t.Errorf("FieldErrors = %d, want 4: %v", len(cfgErr.FieldErrors), cfgErr.FieldErrors)
	}
	if !errors.Is(errs[0], ErrInvalidConfig) {
		t.Error("error should wrap ErrInvalidConfig")
	}
}
