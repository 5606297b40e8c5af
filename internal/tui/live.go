// Package tui renders a live terminal view of the attractor output: a
// sparkline of force magnitude plus the latest state and command values.
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/nmlab/attractor/internal/attractor"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

const (
	frameInterval = 50 * time.Millisecond
	historyLen    = 120
)

type tickSample struct {
	state attractor.EffectorState
	cmd   attractor.ForceCommand
}

// LiveView buffers tick samples from the loop and drives a bubbletea
// program. It implements attractor.Observer; OnTick never blocks the loop,
// frames the view can't keep up with are dropped.
type LiveView struct {
	ch chan tickSample
}

func NewLiveView() *LiveView {
	return &LiveView{ch: make(chan tickSample, 1024)}
}

func (v *LiveView) OnTick(state attractor.EffectorState, cmd attractor.ForceCommand) {
	select {
	case v.ch <- tickSample{state: state, cmd: cmd}:
	default:
	}
}

// Run blocks until the user quits the view.
func (v *LiveView) Run() error {
	_, err := tea.NewProgram(newModel(v.ch)).Run()
	return err
}

type frameMsg time.Time

type model struct {
	ch      chan tickSample
	latest  tickSample
	seen    bool
	history []float64
	width   int
}

func newModel(ch chan tickSample) model {
	return model{
		ch:      ch,
		history: make([]float64, 0, historyLen),
		width:   80,
	}
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m model) Init() tea.Cmd { return frame() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case frameMsg:
		m = m.drain()
		return m, frame()
	}
	return m, nil
}

// drain consumes every buffered sample, keeping the last for display and
// appending each magnitude to the sparkline history.
func (m model) drain() model {
	for {
		select {
		case s := <-m.ch:
			m.latest = s
			m.seen = true
			m.history = append(m.history, s.cmd.Force.Len())
			if len(m.history) > historyLen {
				m.history = m.history[len(m.history)-historyLen:]
			}
		default:
			return m
		}
	}
}

func (m model) View() string {
	title := cyan.Render("attractor") + dim.Render("  force magnitude [N]")
	if !m.seen {
		return title + "\n\n" + dim.Render("waiting for ticks...") + "\n\n" + dim.Render("q to quit") + "\n"
	}

	graph := asciigraph.Plot(m.history,
		asciigraph.Height(10),
		asciigraph.Width(min(m.width-10, historyLen)),
	)

	f := m.latest.cmd.Force
	p := m.latest.state.Position
	status := fmt.Sprintf("tick %s  force %s  position %s",
		white.Render(fmt.Sprintf("%d", m.latest.cmd.Tick)),
		yellow.Render(fmt.Sprintf("[%7.2f %7.2f %7.2f]", f.X(), f.Y(), f.Z())),
		white.Render(fmt.Sprintf("[%6.3f %6.3f %6.3f]", p.X(), p.Y(), p.Z())),
	)

	return title + "\n\n" + graph + "\n\n" + status + "\n" + dim.Render("q to quit") + "\n"
}
