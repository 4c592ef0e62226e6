// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"slices"
	"time"

	"github.com/graviton-app/graviton/pkg/coordinate"
)

// ResolvedArtifact is the outcome of a successful fetch. Callers receive
// their own copy and may keep it.
type ResolvedArtifact struct {
	// Coordinate is the coordinate as requested.
	Coordinate coordinate.Coordinate
	Version    string
	// LocalPaths lists the closure dependencies first and the root last.
	// Every path lies inside the cache.
	LocalPaths []string
	ResolvedAt time.Time
}

// Pinned returns the coordinate with its concrete version.
func (a *ResolvedArtifact) Pinned() coordinate.Coordinate {
	return a.Coordinate.WithVersion(a.Version)
}

// Clone returns a deep copy.
func (a *ResolvedArtifact) Clone() *ResolvedArtifact {
	if a == nil {
		return nil
	}
	c := *a
	c.LocalPaths = slices.Clone(a.LocalPaths)
	return &c
}
