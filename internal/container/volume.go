// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// SELinuxLabelNone means no SELinux label is applied to volume mounts.
	SELinuxLabelNone SELinuxLabel = ""
	// SELinuxLabelShared allows sharing the volume between containers.
	SELinuxLabelShared SELinuxLabel = "z"
	// SELinuxLabelPrivate restricts the volume to a single container.
	SELinuxLabelPrivate SELinuxLabel = "Z"
)

var (
	// ErrInvalidSELinuxLabel is the sentinel error wrapped by InvalidSELinuxLabelError.
	ErrInvalidSELinuxLabel = errors.New("invalid SELinux label")

	// ErrInvalidVolumeMount is the sentinel error wrapped by InvalidVolumeMountError.
	ErrInvalidVolumeMount = errors.New("invalid volume mount")
)

type (
	// SELinuxLabel represents an SELinux volume labeling option.
	// The zero value ("") means no SELinux label is applied.
	SELinuxLabel string

	// InvalidSELinuxLabelError is returned when an SELinuxLabel is not a recognized label.
	InvalidSELinuxLabelError struct {
		Value SELinuxLabel
	}

	// VolumeMount represents a bind mount of a host path into the container.
	VolumeMount struct {
		HostPath      string
		ContainerPath string
		ReadOnly      bool
		SELinux       SELinuxLabel
	}

	// InvalidVolumeMountError is returned when a VolumeMount has one or more invalid fields.
	InvalidVolumeMountError struct {
		Value     VolumeMount
		FieldErrs []error
	}
)

// Error implements the error interface.
func (e *InvalidSELinuxLabelError) Error() string {
	return fmt.Sprintf("invalid SELinux label %q (valid: empty, z, Z)", e.Value)
}

// Unwrap returns ErrInvalidSELinuxLabel so callers can use errors.Is for programmatic detection.
func (e *InvalidSELinuxLabelError) Unwrap() error { return ErrInvalidSELinuxLabel }

// Validate returns an error if the SELinuxLabel is not one of the defined labels.
func (s SELinuxLabel) Validate() error {
	switch s {
	case SELinuxLabelNone, SELinuxLabelShared, SELinuxLabelPrivate:
		return nil
	default:
		return &InvalidSELinuxLabelError{Value: s}
	}
}

// Error implements the error interface for InvalidVolumeMountError.
func (e *InvalidVolumeMountError) Error() string {
	return fmt.Sprintf("invalid volume mount %s:%s: %v", e.Value.HostPath, e.Value.ContainerPath, errors.Join(e.FieldErrs...))
}

// Unwrap returns ErrInvalidVolumeMount for errors.Is() compatibility.
func (e *InvalidVolumeMountError) Unwrap() error { return ErrInvalidVolumeMount }

// Validate returns an error if any field of the VolumeMount is invalid.
func (v VolumeMount) Validate() error {
	var errs []error
	if strings.TrimSpace(v.HostPath) == "" {
		errs = append(errs, errors.New("host path must be non-empty"))
	}
	if !strings.HasPrefix(v.ContainerPath, "/") {
		errs = append(errs, fmt.Errorf("container path %q must be absolute", v.ContainerPath))
	}
	if err := v.SELinux.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidVolumeMountError{Value: v, FieldErrs: errs}
	}
	return nil
}

// String returns the mount in -v flag format.
func (v VolumeMount) String() string { return FormatVolumeMount(v) }

// FormatVolumeMount formats a volume mount as "host:container[:ro][,z]".
func FormatVolumeMount(mount VolumeMount) string {
	var result strings.Builder
	result.WriteString(mount.HostPath)
	result.WriteString(":")
	result.WriteString(mount.ContainerPath)

	var options []string
	if mount.ReadOnly {
		options = append(options, "ro")
	}
	if mount.SELinux != "" {
		options = append(options, string(mount.SELinux))
	}
	if len(options) > 0 {
		result.WriteString(":")
		result.WriteString(strings.Join(options, ","))
	}
	return result.String()
}

// ParseVolumeMount parses "host:container[:options]". Recognized options are
// ro, rw, z and Z.
func ParseVolumeMount(volume string) (VolumeMount, error) {
	var mount VolumeMount

	parts := strings.Split(volume, ":")
	if len(parts) >= 1 {
		mount.HostPath = parts[0]
	}
	if len(parts) >= 2 {
		mount.ContainerPath = parts[1]
	}
	if len(parts) >= 3 {
		for opt := range strings.SplitSeq(parts[2], ",") {
			switch opt {
			case "ro":
				mount.ReadOnly = true
			case "z", "Z":
				mount.SELinux = SELinuxLabel(opt)
			}
		}
	}

	if err := mount.Validate(); err != nil {
		return mount, err
	}
	return mount, nil
}
