// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Engine type constants.
const (
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"
)

// ErrEngineNotAvailable is the sentinel error wrapped by EngineNotAvailableError.
var ErrEngineNotAvailable = errors.New("container engine not available")

type (
	// Engine prepares container client invocations.
	Engine interface {
		// Name returns the engine name (docker or podman).
		Name() string
		// Available reports whether the engine can run containers.
		Available(ctx context.Context) bool
		// Version returns the engine version.
		Version(ctx context.Context) (string, error)
		// RunCommand returns an unstarted client process that runs a
		// container as described by opts.
		RunCommand(ctx context.Context, opts RunOptions) (*exec.Cmd, error)
	}

	// EngineType identifies the container engine type.
	EngineType string

	// RunOptions contains options for running a container.
	RunOptions struct {
		Image string
		// Command overrides the image entrypoint arguments.
		Command []string
		WorkDir string
		Env     map[string]string
		Volumes []VolumeMount
		// Remove automatically removes the container after exit.
		Remove bool
		Name   string
		// Interactive keeps stdin open.
		Interactive bool
		// TTY allocates a pseudo-TTY.
		TTY    bool
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// EngineNotAvailableError is returned when no usable engine was found.
	EngineNotAvailableError struct {
		Engine string
		Reason string
	}
)

// Error implements the error interface.
func (e *EngineNotAvailableError) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// Unwrap returns ErrEngineNotAvailable so callers can use errors.Is for programmatic detection.
func (e *EngineNotAvailableError) Unwrap() error { return ErrEngineNotAvailable }

// Validate returns an error if the options cannot produce a run command.
func (o RunOptions) Validate() error {
	var errs []error
	if o.Image == "" {
		errs = append(errs, errors.New("container image must not be empty"))
	}
	for _, v := range o.Volumes {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewEngine creates an engine of the preferred type, falling back to the
// other type when the preferred one is not available.
func NewEngine(ctx context.Context, preferred EngineType) (Engine, error) {
	var first, second Engine
	switch preferred {
	case EngineTypePodman:
		first, second = NewPodmanEngine(), NewDockerEngine()
	case EngineTypeDocker:
		first, second = NewDockerEngine(), NewPodmanEngine()
	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferred)
	}

	if first.Available(ctx) {
		return first, nil
	}
	if second.Available(ctx) {
		return second, nil
	}
	return nil, &EngineNotAvailableError{
		Engine: string(preferred),
		Reason: fmt.Sprintf("%s is not installed or not accessible, and %s fallback is also not available", first.Name(), second.Name()),
	}
}

// AutoDetectEngine tries Podman first, then Docker.
func AutoDetectEngine(ctx context.Context) (Engine, error) {
	engine, err := NewEngine(ctx, EngineTypePodman)
	if err != nil {
		return nil, &EngineNotAvailableError{
			Engine: "any",
			Reason: "no container engine (podman or docker) is available on this system",
		}
	}
	return engine, nil
}
