// SPDX-License-Identifier: MPL-2.0

// Package fetch downloads a resolved coordinate and its runtime dependency
// closure into the history cache and returns the ordered list of local
// artifact paths.
//
// A fetch walks POMs (cache first), mediates versions nearest-wins per
// group:artifact, downloads missing jars in parallel with progress events,
// verifies them against the repository's SHA-1 sidecars and publishes them
// atomically. Identical fetches running at the same time share one
// operation; every caller gets its own Started/Stopped pair.
package fetch
