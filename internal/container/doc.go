// SPDX-License-Identifier: MPL-2.0

// Package container drives Docker or Podman through their command line
// clients. Engines only prepare commands; starting, waiting and signalling
// the container client process is left to the caller.
//
// Engine selection uses NewEngine(EngineType) with automatic fallback to the
// other engine, or AutoDetectEngine() which tries Podman first.
package container
