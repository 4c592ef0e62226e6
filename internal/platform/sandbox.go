// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"os"
	"sync"
)

const (
	// SandboxNone indicates no sandbox environment detected.
	SandboxNone SandboxType = ""
	// SandboxFlatpak indicates a Flatpak sandbox environment.
	SandboxFlatpak SandboxType = "flatpak"
	// SandboxSnap indicates a Snap sandbox environment.
	SandboxSnap SandboxType = "snap"
)

// detectOnce caches the sandbox detection for the lifetime of the process.
// detectSandboxFrom must not panic: sync.OnceValue re-panics on every call.
var detectOnce = sync.OnceValue(func() SandboxType {
	return detectSandboxFrom(os.Getenv, statFile)
})

// SandboxType identifies the application sandbox, if any.
type SandboxType string

// DetectSandbox returns the sandbox the current process runs in.
//
// Detection methods:
//   - Flatpak: /.flatpak-info exists
//   - Snap: SNAP_NAME is set
func DetectSandbox() SandboxType {
	return detectOnce()
}

// HostSpawn returns the command and arguments that run a program on the
// host from inside the current sandbox. The command is empty outside one.
func HostSpawn() (string, []string) {
	st := DetectSandbox()
	return SpawnCommandFor(st), SpawnArgsFor(st)
}

// SpawnCommandFor returns the spawn command for a given sandbox type.
func SpawnCommandFor(st SandboxType) string {
	switch st {
	case SandboxFlatpak:
		return "flatpak-spawn"
	case SandboxSnap:
		return "snap"
	case SandboxNone:
		return ""
	}
	return ""
}

// SpawnArgsFor returns the arguments placed between the spawn command and
// the program.
func SpawnArgsFor(st SandboxType) []string {
	switch st {
	case SandboxFlatpak:
		return []string{"--host"}
	case SandboxSnap:
		return []string{"run", "--shell"}
	case SandboxNone:
		return nil
	}
	return nil
}

func detectSandboxFrom(lookupEnv func(string) string, statFile func(string) error) SandboxType {
	if err := statFile("/.flatpak-info"); err == nil {
		return SandboxFlatpak
	}
	if lookupEnv("SNAP_NAME") != "" {
		return SandboxSnap
	}
	return SandboxNone
}

func statFile(path string) error {
	_, err := os.Stat(path)
	return err
}
