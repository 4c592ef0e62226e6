// SPDX-License-Identifier: MPL-2.0

// Package tui provides the progress sinks shown while graviton fetches an
// application: ProgressView, a Bubble Tea view for interactive terminals,
// and TextBar, a plain single-line bar for pipes and logs.
package tui
