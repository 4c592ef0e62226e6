// SPDX-License-Identifier: MPL-2.0

// Package platform hides operating system conventions: where the cache and
// configuration live, and whether the process runs inside a Flatpak or Snap
// sandbox that needs a host spawn helper to start java.
package platform
