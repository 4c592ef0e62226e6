// SPDX-License-Identifier: MPL-2.0

// Package coordinate defines the package coordinate model used throughout
// graviton: a (group, artifact, optional version) triple written as
// "group:artifact[:version]".
//
// A coordinate whose version is absent or equal to "latest" is dynamic and
// must be resolved against repository metadata before it can be fetched. A
// coordinate with any other version is pinned and is authoritative on its own.
package coordinate
