// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/graviton-app/graviton/internal/progress"
)

const textBarWidth = 30

type (
	// TextBar renders a fetch as a single ASCII progress line for
	// non-interactive output. Sizes are shown in kilobytes. When every
	// artifact that reported progress completed, Stopped prints how long
	// the download took.
	TextBar struct {
		out   io.Writer
		now   func() time.Time
		width int

		started   time.Time
		active    bool
		last      string
		ticks     int
		artifacts map[string]bool
	}

	// TextBarOption configures a TextBar.
	TextBarOption func(*TextBar)
)

// WithClock replaces time.Now for elapsed time reporting.
func WithClock(now func() time.Time) TextBarOption {
	return func(t *TextBar) {
		t.now = now
	}
}

// NewTextBar creates a TextBar writing to out.
func NewTextBar(out io.Writer, opts ...TextBarOption) *TextBar {
	t := &TextBar{out: out, now: time.Now, width: textBarWidth}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Emit implements progress.Sink.
func (t *TextBar) Emit(e progress.Event) {
	switch e := e.(type) {
	case progress.Started:
		t.started = t.now()
		t.active = true
		t.last = ""
		t.ticks = 0
		t.artifacts = make(map[string]bool)
	case progress.Progress:
		if !t.active {
			return
		}
		// Without a total, any event may be the last one.
		t.artifacts[e.Name] = e.Indeterminate() || e.DownloadedBytes >= e.TotalBytes
		if e.Indeterminate() {
			t.ticks++
		}
		t.draw(t.line(e))
	case progress.Stopped:
		if !t.active {
			return
		}
		t.active = false
		if t.last == "" {
			return
		}
		fmt.Fprintln(t.out)
		if t.complete() {
			fmt.Fprintf(t.out, "Downloaded successfully in %.1f seconds\n", t.now().Sub(t.started).Seconds())
		}
	}
}

// line renders one progress event.
func (t *TextBar) line(e progress.Progress) string {
	if e.Indeterminate() {
		return fmt.Sprintf("Update      [%s] %s %s", t.bounce(), formatKB(e.DownloadedBytes), e.Name)
	}
	filled := int(e.Fraction() * float64(t.width))
	bar := strings.Repeat("=", filled)
	if filled < t.width {
		bar += ">" + strings.Repeat(" ", t.width-filled-1)
	}
	totalKB := max(e.TotalBytes/1024, 1)
	return fmt.Sprintf("Update %3d%% [%s] %d/%d KB %s",
		int(e.Fraction()*100), bar, max(e.DownloadedBytes, 0)/1024, totalKB, e.Name)
}

// bounce returns an indeterminate marker that moves with each event.
func (t *TextBar) bounce() string {
	const marker = "<=>"
	span := t.width - len(marker)
	pos := t.ticks % (2 * span)
	if pos > span {
		pos = 2*span - pos
	}
	return strings.Repeat(" ", pos) + marker + strings.Repeat(" ", span-pos)
}

// draw rewrites the current line, skipping identical output.
func (t *TextBar) draw(line string) {
	if line == t.last {
		return
	}
	pad := ""
	if n := len(t.last) - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(t.out, "\r%s%s", line, pad)
	t.last = line
}

func (t *TextBar) complete() bool {
	for _, done := range t.artifacts {
		if !done {
			return false
		}
	}
	return true
}
