// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/graviton-app/graviton/internal/container"
)

const (
	// DefaultImage is the JRE image used when none is configured.
	DefaultImage = "eclipse-temurin:21-jre"

	// classPathDir is where artifacts are mounted inside the container.
	classPathDir = "/graviton/cp"
)

type (
	// Container runs applications inside a JRE image.
	Container struct {
		engine container.Engine
		image  string
		logger *slog.Logger
	}

	// ContainerOption configures a Container runtime.
	ContainerOption func(*Container)
)

// WithImage overrides DefaultImage.
func WithImage(image string) ContainerOption {
	return func(c *Container) {
		if image != "" {
			c.image = image
		}
	}
}

// WithContainerLogger sets the runtime's logger.
func WithContainerLogger(l *slog.Logger) ContainerOption {
	return func(c *Container) {
		c.logger = l
	}
}

// NewContainer creates a container runtime on engine.
func NewContainer(engine container.Engine, opts ...ContainerOption) *Container {
	c := &Container{engine: engine, image: DefaultImage, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Runtime.
func (c *Container) Name() string { return string(KindContainer) }

// RunOptions maps req onto a container run: every class path entry is
// mounted read-only and the application gets no host environment.
func (c *Container) RunOptions(req Request, entry string) container.RunOptions {
	mounts := make([]container.VolumeMount, len(req.LocalPaths))
	inside := make([]string, len(req.LocalPaths))
	for i, p := range req.LocalPaths {
		inside[i] = path.Join(classPathDir, fmt.Sprintf("%03d-%s", i, filepath.Base(p)))
		mounts[i] = container.VolumeMount{HostPath: p, ContainerPath: inside[i], ReadOnly: true}
	}

	command := []string{"java", "-cp", strings.Join(inside, ":"), entry}
	command = append(command, req.Args...)

	opts := container.RunOptions{
		Image:       c.image,
		Command:     command,
		Volumes:     mounts,
		Remove:      true,
		Interactive: req.Stdin != nil,
		Stdin:       req.Stdin,
		Stdout:      req.Stdout,
		Stderr:      req.Stderr,
	}
	if req.ID != "" {
		opts.Name = "graviton-" + req.ID
	}
	return opts
}

// Start implements Runtime.
func (c *Container) Start(ctx context.Context, req Request) (Process, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	entry, err := entryPoint(req)
	if err != nil {
		return nil, err
	}

	cmd, err := c.engine.RunCommand(ctx, c.RunOptions(req, entry))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.engine.Name(), err)
	}
	cmd.Env = append(applicationEnv(os.Environ()), cmd.Env...)

	c.logger.Debug("starting application container", "launch", req.ID, "engine", c.engine.Name(), "image", c.image, "main", entry)
	p, err := startCmd(cmd)
	if err != nil {
		return nil, err
	}
	return &containerProcess{Process: p, engine: c.engine.Name(), logger: c.logger}, nil
}

// containerProcess flags exits that came from the engine rather than the
// application, such as a missing image.
type containerProcess struct {
	Process
	engine string
	logger *slog.Logger
}

// Wait implements Process.
func (p *containerProcess) Wait() (ExitCode, error) {
	code, err := p.Process.Wait()
	if err == nil && code.IsEngineFailure() {
		p.logger.Warn("container engine failed to run the application", "engine", p.engine, "exit_code", code)
	}
	return code, err
}
