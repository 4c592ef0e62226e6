// SPDX-License-Identifier: MPL-2.0

package history

import "errors"

var (
	// ErrCacheCorruption means the history index or artifact tree could not be
	// trusted. Open recovers from it by clearing the cache.
	ErrCacheCorruption = errors.New("cache corruption")

	// ErrCacheInvalidated means the cache was cleared while a write was in
	// progress; the write was discarded.
	ErrCacheInvalidated = errors.New("cache invalidated by a concurrent clear")

	// ErrOutsideCache means a path does not live under the cache root.
	ErrOutsideCache = errors.New("path outside cache root")
)
