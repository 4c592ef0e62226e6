// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// AppName names the per-application directories.
	AppName = "graviton"

	// Windows and Linux are the runtime.GOOS values with their own path
	// and process handling.
	Windows = "windows"
	Linux   = "linux"
)

var errNoBaseDir = errors.New("no base directory for this platform")

type (
	// DirResolver locates the per-user cache and configuration directories.
	DirResolver interface {
		CacheDir() (string, error)
		ConfigDir() (string, error)
	}

	// XDGDirs follows the XDG base directory specification on Linux and the
	// native conventions elsewhere: ~/Library/Caches on macOS and
	// %LOCALAPPDATA% on Windows.
	XDGDirs struct {
		App string
	}

	// StaticDirs returns fixed directories. Empty fields fall back to Fallback.
	StaticDirs struct {
		Cache    string
		Config   string
		Fallback DirResolver
	}
)

// DefaultDirs returns the resolver for AppName.
func DefaultDirs() DirResolver { return XDGDirs{App: AppName} }

// CacheDir implements DirResolver.
func (d XDGDirs) CacheDir() (string, error) {
	return join(xdg.CacheHome, d.App)
}

// ConfigDir implements DirResolver.
func (d XDGDirs) ConfigDir() (string, error) {
	return join(xdg.ConfigHome, d.App)
}

// CacheDir implements DirResolver.
func (d StaticDirs) CacheDir() (string, error) {
	if d.Cache != "" {
		return filepath.Abs(d.Cache)
	}
	if d.Fallback == nil {
		return "", errNoBaseDir
	}
	return d.Fallback.CacheDir()
}

// ConfigDir implements DirResolver.
func (d StaticDirs) ConfigDir() (string, error) {
	if d.Config != "" {
		return filepath.Abs(d.Config)
	}
	if d.Fallback == nil {
		return "", errNoBaseDir
	}
	return d.Fallback.ConfigDir()
}

func join(base, app string) (string, error) {
	if base == "" {
		return "", errNoBaseDir
	}
	return filepath.Join(base, app), nil
}
