// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
)

// Runtime kind constants.
const (
	KindJVM       Kind = "jvm"
	KindContainer Kind = "container"
)

var (
	// ErrUnknownKind is returned by Registry.Get for a kind nobody registered.
	ErrUnknownKind = errors.New("unknown runtime")

	// ErrEmptyClassPath is returned when a request carries no artifacts.
	ErrEmptyClassPath = errors.New("empty class path")
)

type (
	// Kind names a runtime implementation.
	Kind string

	// Request describes one launch.
	Request struct {
		// ID correlates the launch in logs and names containers.
		ID string
		// LocalPaths is the class path, dependencies first and the
		// application jar last.
		LocalPaths []string
		// Entry overrides the Main-Class of the application jar.
		Entry string
		Args  []string

		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Process is a started application.
	Process interface {
		// Wait blocks until the application exits and returns its exit code.
		// A non-zero exit code is not an error.
		Wait() (ExitCode, error)
		// Signal forwards sig to the application.
		Signal(sig os.Signal) error
	}

	// Runtime starts applications.
	Runtime interface {
		Name() string
		Start(ctx context.Context, req Request) (Process, error)
	}

	// Registry holds the available runtimes by kind.
	Registry struct {
		runtimes map[Kind]Runtime
	}
)

// String returns the kind name.
func (k Kind) String() string { return string(k) }

// Validate returns an error for kinds other than jvm and container.
func (k Kind) Validate() error {
	switch k {
	case KindJVM, KindContainer:
		return nil
	default:
		return fmt.Errorf("%w %q (valid: %s, %s)", ErrUnknownKind, string(k), KindJVM, KindContainer)
	}
}

// Validate checks that the request can be launched.
func (r Request) Validate() error {
	if len(r.LocalPaths) == 0 {
		return ErrEmptyClassPath
	}
	return nil
}

// root returns the application jar.
func (r Request) root() string { return r.LocalPaths[len(r.LocalPaths)-1] }

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runtimes: make(map[Kind]Runtime)}
}

// Register adds rt under kind.
func (r *Registry) Register(kind Kind, rt Runtime) {
	r.runtimes[kind] = rt
}

// Get returns the runtime registered under kind.
func (r *Registry) Get(kind Kind) (Runtime, error) {
	rt, ok := r.runtimes[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, string(kind))
	}
	return rt, nil
}

// Kinds returns the registered kinds in name order.
func (r *Registry) Kinds() []Kind {
	return slices.Sorted(maps.Keys(r.runtimes))
}
