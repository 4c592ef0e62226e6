// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"fmt"
	"io"
	"strings"

	bprogress "github.com/charmbracelet/bubbles/progress"
	bspinner "github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/graviton-app/graviton/internal/progress"
)

const (
	defaultBarWidth = 40
	maxBarWidth     = 60
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	artifactStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED"))
)

type (
	// ProgressView renders a fetch as a live terminal view: a spinner with
	// the coordinate, and a bar for the artifact being downloaded. The bar
	// turns into a byte counter when the total size is unknown.
	//
	// Events run a bubbletea program between Started and Stopped; Emit on
	// Stopped returns once the view has been cleared.
	ProgressView struct {
		out     io.Writer
		program *tea.Program
		done    chan struct{}
	}

	// progressModel is the bubbletea model behind ProgressView.
	progressModel struct {
		name     string
		spinner  bspinner.Model
		bar      bprogress.Model
		current  progress.Progress
		received bool
		stopped  bool
	}

	progressMsg progress.Progress

	stoppedMsg struct{}
)

// NewProgressView creates a ProgressView writing to out.
func NewProgressView(out io.Writer) *ProgressView {
	return &ProgressView{out: out}
}

// Emit implements progress.Sink.
func (v *ProgressView) Emit(e progress.Event) {
	switch e := e.(type) {
	case progress.Started:
		if v.program != nil {
			return
		}
		v.program = tea.NewProgram(newProgressModel(e.Name),
			tea.WithOutput(v.out),
			tea.WithInput(nil),
			tea.WithoutSignalHandler(),
		)
		v.done = make(chan struct{})
		go func(p *tea.Program, done chan<- struct{}) {
			defer close(done)
			_, _ = p.Run()
		}(v.program, v.done)
	case progress.Progress:
		if v.program != nil {
			v.program.Send(progressMsg(e))
		}
	case progress.Stopped:
		if v.program == nil {
			return
		}
		v.program.Send(stoppedMsg{})
		<-v.done
		v.program = nil
	}
}

func newProgressModel(name string) progressModel {
	return progressModel{
		name: name,
		spinner: bspinner.New(
			bspinner.WithSpinner(bspinner.Dot),
			bspinner.WithStyle(spinnerStyle),
		),
		bar: bprogress.New(
			bprogress.WithDefaultGradient(),
			bprogress.WithWidth(defaultBarWidth),
			bprogress.WithoutPercentage(),
		),
	}
}

// Init implements tea.Model.
func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.current = progress.Progress(msg)
		m.received = true
		return m, nil
	case stoppedMsg:
		m.stopped = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width/2, 10), maxBarWidth)
		return m, nil
	case bspinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model. The stopped view is empty so the application's
// own output starts on a clean line.
func (m progressModel) View() string {
	if m.stopped {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(titleStyle.Render("Fetching " + m.name))

	if !m.received {
		return b.String()
	}

	b.WriteString("\n  ")
	if m.current.Indeterminate() {
		fmt.Fprintf(&b, "%s received", formatKB(m.current.DownloadedBytes))
	} else {
		b.WriteString(m.bar.ViewAs(m.current.Fraction()))
		fmt.Fprintf(&b, " %s / %s", formatKB(m.current.DownloadedBytes), formatKB(m.current.TotalBytes))
	}
	b.WriteString(" ")
	b.WriteString(artifactStyle.Render(m.current.Name))
	return b.String()
}

// formatKB renders n bytes in whole kilobytes.
func formatKB(n int64) string {
	return fmt.Sprintf("%d KB", max(n, 0)/1024)
}
