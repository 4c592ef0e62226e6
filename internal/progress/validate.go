// SPDX-License-Identifier: MPL-2.0

package progress

import (
	"errors"
	"fmt"
)

// ErrInvalidStream is wrapped by every error returned from ValidateStream.
var ErrInvalidStream = errors.New("invalid progress stream")

// ValidateStream checks events against the lifecycle contract.
func ValidateStream(events []Event) error {
	if len(events) < 2 {
		return fmt.Errorf("%w: expected at least Started and Stopped, got %d events", ErrInvalidStream, len(events))
	}
	if _, ok := events[0].(Started); !ok {
		return fmt.Errorf("%w: first event is %s, want Started", ErrInvalidStream, events[0])
	}
	if _, ok := events[len(events)-1].(Stopped); !ok {
		return fmt.Errorf("%w: last event is %s, want Stopped", ErrInvalidStream, events[len(events)-1])
	}

	type seen struct{ total, downloaded int64 }
	last := make(map[string]seen)
	for i, e := range events[1 : len(events)-1] {
		switch ev := e.(type) {
		case Started:
			return fmt.Errorf("%w: duplicate Started at %d", ErrInvalidStream, i+1)
		case Stopped:
			return fmt.Errorf("%w: Stopped at %d before the end", ErrInvalidStream, i+1)
		case Progress:
			prev, ok := last[ev.Name]
			if ok && prev.total != ev.TotalBytes {
				return fmt.Errorf("%w: total for %s changed from %d to %d", ErrInvalidStream, ev.Name, prev.total, ev.TotalBytes)
			}
			if ok && ev.DownloadedBytes < prev.downloaded {
				return fmt.Errorf("%w: downloaded bytes for %s went from %d to %d", ErrInvalidStream, ev.Name, prev.downloaded, ev.DownloadedBytes)
			}
			last[ev.Name] = seen{total: ev.TotalBytes, downloaded: ev.DownloadedBytes}
		}
	}
	return nil
}
