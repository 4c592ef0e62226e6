// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/graviton-app/graviton/internal/fetch"
	"github.com/graviton-app/graviton/internal/history"
	"github.com/graviton-app/graviton/internal/maven"
	"github.com/graviton-app/graviton/internal/runtime"
	"github.com/graviton-app/graviton/internal/selfupdate"
)

const (
	// RuntimeJVM runs applications with a local java executable.
	// Defined locally so that loading configuration does not pull in the
	// runtime registry; the launcher converts at the boundary.
	RuntimeJVM RuntimeKind = "jvm"
	// RuntimeContainer runs applications inside a JRE image.
	RuntimeContainer RuntimeKind = "container"

	// ContainerEngineAuto picks podman when available, docker otherwise.
	ContainerEngineAuto ContainerEngine = ""
	// ContainerEnginePodman uses Podman as the container runtime.
	ContainerEnginePodman ContainerEngine = "podman"
	// ContainerEngineDocker uses Docker as the container runtime.
	ContainerEngineDocker ContainerEngine = "docker"

	maxParallelDownloads = 64
)

var (
	// ErrInvalidRuntimeKind is returned when a RuntimeKind value is not recognized.
	ErrInvalidRuntimeKind = errors.New("invalid runtime kind")
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidRepositoryConfig is the sentinel error wrapped by InvalidRepositoryConfigError.
	ErrInvalidRepositoryConfig = errors.New("invalid repository config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// RuntimeKind selects how applications are launched.
	RuntimeKind string

	// InvalidRuntimeKindError is returned when a RuntimeKind value is not recognized.
	// It wraps ErrInvalidRuntimeKind for errors.Is() compatibility.
	InvalidRuntimeKindError struct {
		Value RuntimeKind
	}

	// ContainerEngine specifies which container engine to use.
	ContainerEngine string

	// InvalidContainerEngineError is returned when a ContainerEngine value is not recognized.
	// It wraps ErrInvalidContainerEngine for errors.Is() compatibility.
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// InvalidRepositoryConfigError is returned when a RepositoryConfig has invalid fields.
	InvalidRepositoryConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// CachePath overrides the platform cache directory.
		CachePath string `json:"cache_path,omitempty" mapstructure:"cache_path"`
		// Repository configures the Maven repository client.
		Repository RepositoryConfig `json:"repository" mapstructure:"repository"`
		// History configures the cache index.
		History HistoryConfig `json:"history" mapstructure:"history"`
		// Update configures the background self-update.
		Update UpdateConfig `json:"update" mapstructure:"update"`
		// Runtime selects and configures the launch runtime.
		Runtime RuntimeConfig `json:"runtime" mapstructure:"runtime"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// RepositoryConfig configures the Maven repository client.
	RepositoryConfig struct {
		URL string `json:"url" mapstructure:"url"`
		// Timeout bounds metadata, POM and checksum requests.
		Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
		// ArtifactTimeout bounds jar downloads.
		ArtifactTimeout      time.Duration `json:"artifact_timeout" mapstructure:"artifact_timeout"`
		MaxParallelDownloads int           `json:"max_parallel_downloads" mapstructure:"max_parallel_downloads"`
		UserAgent            string        `json:"user_agent" mapstructure:"user_agent"`
	}

	// HistoryConfig configures the cache index.
	HistoryConfig struct {
		// FreshnessWindow is how long a resolved dynamic version is reused
		// without asking the repository again.
		FreshnessWindow time.Duration `json:"freshness_window" mapstructure:"freshness_window"`
	}

	// UpdateConfig configures the background self-update.
	UpdateConfig struct {
		// URL of the update descriptor. Empty disables updates.
		URL string `json:"url" mapstructure:"url"`
	}

	// RuntimeConfig selects and configures the launch runtime.
	RuntimeConfig struct {
		Kind RuntimeKind `json:"kind" mapstructure:"kind"`
		// JavaHome overrides JAVA_HOME for the jvm runtime.
		JavaHome string `json:"java_home,omitempty" mapstructure:"java_home"`
		// JVMArgs are passed to java before the class path.
		JVMArgs   []string        `json:"jvm_args,omitempty" mapstructure:"jvm_args"`
		Container ContainerConfig `json:"container" mapstructure:"container"`
	}

	// ContainerConfig configures the container runtime.
	ContainerConfig struct {
		Engine ContainerEngine `json:"engine,omitempty" mapstructure:"engine"`
		Image  string          `json:"image" mapstructure:"image"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging and detailed error output.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// Plain forces the text progress bar even on a terminal.
		Plain bool `json:"plain" mapstructure:"plain"`
		// DefaultCoordinate is shown in the usage when no coordinate is given.
		DefaultCoordinate string `json:"default_coordinate,omitempty" mapstructure:"default_coordinate"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Repository: RepositoryConfig{
			URL:                  maven.DefaultBaseURL,
			Timeout:              maven.DefaultTimeout,
			ArtifactTimeout:      maven.DefaultArtifactTimeout,
			MaxParallelDownloads: fetch.DefaultMaxParallel,
			UserAgent:            "graviton",
		},
		History: HistoryConfig{
			FreshnessWindow: history.DefaultFreshnessWindow,
		},
		Update: UpdateConfig{
			URL: selfupdate.DefaultUpdateURL,
		},
		Runtime: RuntimeConfig{
			Kind: RuntimeJVM,
			Container: ContainerConfig{
				Engine: ContainerEngineAuto,
				Image:  runtime.DefaultImage,
			},
		},
	}
}

// IsValid returns whether the RuntimeKind is one of the defined kinds.
func (k RuntimeKind) IsValid() (bool, []error) {
	switch k {
	case RuntimeJVM, RuntimeContainer:
		return true, nil
	default:
		return false, []error{&InvalidRuntimeKindError{Value: k}}
	}
}

// String returns the string representation of the RuntimeKind.
func (k RuntimeKind) String() string { return string(k) }

// Error implements the error interface.
func (e *InvalidRuntimeKindError) Error() string {
	return fmt.Sprintf("invalid runtime kind %q (valid: jvm, container)", e.Value)
}

// Unwrap returns ErrInvalidRuntimeKind for errors.Is() compatibility.
func (e *InvalidRuntimeKindError) Unwrap() error { return ErrInvalidRuntimeKind }

// IsValid returns whether the ContainerEngine is one of the defined engines.
// The zero value selects automatic detection and is valid.
func (e ContainerEngine) IsValid() (bool, []error) {
	switch e {
	case ContainerEngineAuto, ContainerEnginePodman, ContainerEngineDocker:
		return true, nil
	default:
		return false, []error{&InvalidContainerEngineError{Value: e}}
	}
}

// String returns the string representation of the ContainerEngine.
func (e ContainerEngine) String() string { return string(e) }

// Error implements the error interface.
func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: podman, docker, or empty for auto-detection)", e.Value)
}

// Unwrap returns ErrInvalidContainerEngine for errors.Is() compatibility.
func (e *InvalidContainerEngineError) Unwrap() error { return ErrInvalidContainerEngine }

// IsValid returns whether the RepositoryConfig can configure a client.
func (r RepositoryConfig) IsValid() (bool, []error) {
	var errs []error
	if u, err := url.Parse(r.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("repository.url %q is not an http(s) URL", r.URL))
	}
	if r.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("repository.timeout must be positive, got %s", r.Timeout))
	}
	if r.ArtifactTimeout <= 0 {
		errs = append(errs, fmt.Errorf("repository.artifact_timeout must be positive, got %s", r.ArtifactTimeout))
	}
	if r.MaxParallelDownloads < 1 || r.MaxParallelDownloads > maxParallelDownloads {
		errs = append(errs, fmt.Errorf("repository.max_parallel_downloads must be between 1 and %d, got %d",
			maxParallelDownloads, r.MaxParallelDownloads))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidRepositoryConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidRepositoryConfigError) Error() string {
	return fmt.Sprintf("invalid repository config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidRepositoryConfig for errors.Is() compatibility.
func (e *InvalidRepositoryConfigError) Unwrap() error { return ErrInvalidRepositoryConfig }

// IsValid returns whether all fields of the Config are valid.
func (c *Config) IsValid() (bool, []error) {
	var errs []error
	if _, fieldErrs := c.Repository.IsValid(); len(fieldErrs) > 0 {
		errs = append(errs, fieldErrs...)
	}
	if c.History.FreshnessWindow < 0 {
		errs = append(errs, fmt.Errorf("history.freshness_window must not be negative, got %s", c.History.FreshnessWindow))
	}
	if _, fieldErrs := c.Runtime.Kind.IsValid(); len(fieldErrs) > 0 {
		errs = append(errs, fieldErrs...)
	}
	if _, fieldErrs := c.Runtime.Container.Engine.IsValid(); len(fieldErrs) > 0 {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }
