// SPDX-License-Identifier: MPL-2.0

package progress

import "fmt"

// UnknownSize is reported as TotalBytes when the content length is unknown.
// Sinks render an indeterminate indicator for it.
const UnknownSize int64 = -1

type (
	// Event is one of Started, Progress or Stopped.
	Event interface {
		isEvent()
		fmt.Stringer
	}

	// Started opens a fetch. Name is the display name of the top-level coordinate.
	Started struct {
		Name string
	}

	// Progress reports bytes received for one artifact.
	Progress struct {
		Name            string
		TotalBytes      int64
		DownloadedBytes int64
	}

	// Stopped closes a fetch, whether it succeeded or failed.
	Stopped struct{}
)

func (Started) isEvent()  {}
func (Progress) isEvent() {}
func (Stopped) isEvent()  {}

func (e Started) String() string { return "started " + e.Name }

func (e Progress) String() string {
	if e.TotalBytes == UnknownSize {
		return fmt.Sprintf("progress %s %d/?", e.Name, e.DownloadedBytes)
	}
	return fmt.Sprintf("progress %s %d/%d", e.Name, e.DownloadedBytes, e.TotalBytes)
}

func (Stopped) String() string { return "stopped" }

// Indeterminate reports whether the total size is unknown.
func (e Progress) Indeterminate() bool { return e.TotalBytes < 0 }

// Fraction returns the completed share in [0, 1], or 0 when indeterminate.
func (e Progress) Fraction() float64 {
	if e.TotalBytes <= 0 {
		return 0
	}
	f := float64(e.DownloadedBytes) / float64(e.TotalBytes)
	return min(max(f, 0), 1)
}
