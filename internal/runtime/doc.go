// SPDX-License-Identifier: MPL-2.0

// Package runtime starts a fetched application in an isolated execution
// context. The jvm runtime runs a local java binary with a scrubbed
// environment; the container runtime runs the same class path inside a JRE
// image through Docker or Podman, mounting each artifact read-only.
package runtime
