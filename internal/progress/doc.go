// SPDX-License-Identifier: MPL-2.0

// Package progress defines the observable lifecycle of a fetch and the Sink
// capability through which front-ends consume it.
//
// A fetch reports exactly one Started event, zero or more Progress events and
// exactly one Stopped event, in that order. Progress events for the same name
// never decrease in DownloadedBytes and always carry the same TotalBytes,
// which is UnknownSize when the server sent no content length.
package progress
