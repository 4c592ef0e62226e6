// SPDX-License-Identifier: MPL-2.0

// Package launcher sequences one launch: optional cache clear, coordinate
// resolution, closure fetch and hand-off to a runtime. Every failure before
// the application runs is reported as a *StartError naming the stage that
// failed, with the original cause reachable through errors.Is and errors.As.
package launcher
