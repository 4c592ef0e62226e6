// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"os"
	"os/exec"
	"strings"
)

// PodmanEngine implements the Engine interface using Podman CLI.
type PodmanEngine struct {
	*BaseCLIEngine
}

// NewPodmanEngine creates a new Podman engine. On Linux with SELinux
// enforcing, volume mounts are labeled with :z.
func NewPodmanEngine(opts ...BaseCLIEngineOption) *PodmanEngine {
	path, _ := exec.LookPath("podman")

	formatter := func(v VolumeMount) string {
		return FormatVolumeMount(withSELinuxLabel(v, isSELinuxEnabled()))
	}
	allOpts := append([]BaseCLIEngineOption{WithVolumeFormatter(formatter)}, opts...)

	return &PodmanEngine{
		BaseCLIEngine: NewBaseCLIEngine(string(EngineTypePodman), path, allOpts...),
	}
}

// Available checks if Podman can be queried.
func (e *PodmanEngine) Available(ctx context.Context) bool {
	_, err := e.Version(ctx)
	return err == nil
}

// Version returns the Podman version.
func (e *PodmanEngine) Version(ctx context.Context) (string, error) {
	return e.version(ctx, "{{.Version}}")
}

func isSELinuxEnabled() bool {
	data, err := os.ReadFile("/sys/fs/selinux/enforce")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "1"
}

// withSELinuxLabel adds the shared label unless the mount already has one.
func withSELinuxLabel(v VolumeMount, enabled bool) VolumeMount {
	if enabled && v.SELinux == SELinuxLabelNone {
		v.SELinux = SELinuxLabelShared
	}
	return v
}
