// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"io"

	"github.com/graviton-app/graviton/internal/progress"
)

// reporter emits Progress for one artifact. It keeps the reported total
// stable and the downloaded count non-decreasing across retries.
type reporter struct {
	name     string
	events   progress.Sink
	total    int64
	first    bool
	attempt  int64
	reported int64
}

func (r *reporter) begin(length int64) {
	if r.first {
		r.total = length
		r.first = false
	}
	r.attempt = 0
}

func (r *reporter) add(n int) {
	r.attempt += int64(n)
	if r.attempt <= r.reported {
		return
	}
	r.reported = r.attempt
	r.events.Emit(progress.Progress{Name: r.name, TotalBytes: r.total, DownloadedBytes: r.reported})
}

type progressReader struct {
	r      io.Reader
	report *reporter
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.report.add(n)
	}
	return n, err
}
