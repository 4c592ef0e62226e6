// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/graviton-app/graviton/internal/progress"
	"github.com/graviton-app/graviton/internal/testutil"
)

func newTestBar(t *testing.T) (*TextBar, *bytes.Buffer, *testutil.FakeClock) {
	t.Helper()
	var out bytes.Buffer
	clock := testutil.NewFakeClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	return NewTextBar(&out, WithClock(clock.Now)), &out, clock
}

func TestTextBar_CompletedDownload(t *testing.T) {
	t.Parallel()

	bar, out, clock := newTestBar(t)
	bar.Emit(progress.Started{Name: "org.example:hello:1.0"})
	bar.Emit(progress.Progress{Name: "hello-1.0.jar", TotalBytes: 2048, DownloadedBytes: 1024})
	clock.Advance(1500 * time.Millisecond)
	bar.Emit(progress.Progress{Name: "hello-1.0.jar", TotalBytes: 2048, DownloadedBytes: 2048})
	bar.Emit(progress.Stopped{})

	got := out.String()
	for _, want := range []string{
		"\rUpdate  50% [" + strings.Repeat("=", 15) + ">" + strings.Repeat(" ", 14) + "] 1/2 KB hello-1.0.jar",
		"\rUpdate 100% [" + strings.Repeat("=", 30) + "] 2/2 KB hello-1.0.jar",
		"\nDownloaded successfully in 1.5 seconds\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output lacks %q:\n%q", want, got)
		}
	}
}

func TestTextBar_IncompleteDownloadHasNoSuccessLine(t *testing.T) {
	t.Parallel()

	bar, out, _ := newTestBar(t)
	bar.Emit(progress.Started{Name: "x"})
	bar.Emit(progress.Progress{Name: "a.jar", TotalBytes: 4096, DownloadedBytes: 4096})
	bar.Emit(progress.Progress{Name: "b.jar", TotalBytes: 4096, DownloadedBytes: 1024})
	bar.Emit(progress.Stopped{})

	if strings.Contains(out.String(), "Downloaded successfully") {
		t.Errorf("failed download reported success:\n%q", out.String())
	}
	if !strings.HasSuffix(out.String(), "\n") {
		t.Error("the bar line should be terminated")
	}
}

func TestTextBar_NothingDownloaded(t *testing.T) {
	t.Parallel()

	bar, out, _ := newTestBar(t)
	bar.Emit(progress.Started{Name: "x"})
	bar.Emit(progress.Stopped{})

	if out.Len() != 0 {
		t.Errorf("cached launch printed %q", out.String())
	}
}

func TestTextBar_UnknownSize(t *testing.T) {
	t.Parallel()

	bar, out, _ := newTestBar(t)
	bar.Emit(progress.Started{Name: "x"})
	bar.Emit(progress.Progress{Name: "stream.jar", TotalBytes: progress.UnknownSize, DownloadedBytes: 3072})
	bar.Emit(progress.Progress{Name: "stream.jar", TotalBytes: progress.UnknownSize, DownloadedBytes: 5120})
	bar.Emit(progress.Stopped{})

	got := out.String()
	if !strings.Contains(got, "<=>") || !strings.Contains(got, "3 KB stream.jar") || !strings.Contains(got, "5 KB stream.jar") {
		t.Errorf("indeterminate bar not rendered:\n%q", got)
	}
	if !strings.Contains(got, "Downloaded successfully") {
		t.Errorf("unknown-size download should count as complete:\n%q", got)
	}
}

func TestTextBar_SkipsRepeatedLines(t *testing.T) {
	t.Parallel()

	bar, out, _ := newTestBar(t)
	bar.Emit(progress.Started{Name: "x"})
	// Both events round to the same kilobyte.
	bar.Emit(progress.Progress{Name: "a.jar", TotalBytes: 1 << 20, DownloadedBytes: 2048})
	bar.Emit(progress.Progress{Name: "a.jar", TotalBytes: 1 << 20, DownloadedBytes: 2100})

	if n := strings.Count(out.String(), "\r"); n != 1 {
		t.Errorf("line drawn %d times, want 1:\n%q", n, out.String())
	}
}

func TestTextBar_IgnoresEventsOutsideFetch(t *testing.T) {
	t.Parallel()

	bar, out, _ := newTestBar(t)
	bar.Emit(progress.Progress{Name: "a.jar", TotalBytes: 10, DownloadedBytes: 10})
	bar.Emit(progress.Stopped{})

	if out.Len() != 0 {
		t.Errorf("events before Started printed %q", out.String())
	}
}

func TestFormatKB(t *testing.T) {
	t.Parallel()

	tests := map[int64]string{
		0:       "0 KB",
		1023:    "0 KB",
		1024:    "1 KB",
		5 << 20: "5120 KB",
		-1:      "0 KB",
	}
	for in, want := range tests {
		if got := formatKB(in); got != want {
			t.Errorf("formatKB(%d) = %q, want %q", in, got, want)
		}
	}
}
