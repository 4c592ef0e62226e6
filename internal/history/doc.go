// SPDX-License-Identifier: MPL-2.0

// Package history owns the on-disk cache: the artifact tree under
// {cache}/artifacts and the history index {cache}/history.cue that maps
// coordinate keys to their last resolution.
//
// Keys are "group:artifact" for dynamic coordinates and
// "group:artifact:version" for pinned ones, so the two never alias.
// Artifact paths are persisted relative to the cache root and handed out as
// absolute paths.
//
// Every write into the artifact tree goes through Publish, which renames a
// temporary file into place only if the cache generation observed when the
// write began is still current. Clear bumps the generation under an
// exclusive lock, so a fetch racing a clear either fails with
// ErrCacheInvalidated or completes before the clear and is wiped by it.
package history
