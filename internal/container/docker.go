// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"os/exec"
)

// DockerEngine implements the Engine interface using Docker CLI.
type DockerEngine struct {
	*BaseCLIEngine
}

// NewDockerEngine creates a new Docker engine.
func NewDockerEngine(opts ...BaseCLIEngineOption) *DockerEngine {
	path, _ := exec.LookPath("docker")
	return &DockerEngine{
		BaseCLIEngine: NewBaseCLIEngine(string(EngineTypeDocker), path, opts...),
	}
}

// Available checks if the Docker daemon answers.
func (e *DockerEngine) Available(ctx context.Context) bool {
	_, err := e.Version(ctx)
	return err == nil
}

// Version returns the Docker server version.
func (e *DockerEngine) Version(ctx context.Context) (string, error) {
	return e.version(ctx, "{{.Server.Version}}")
}
