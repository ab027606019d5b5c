// Package telemetry provides observation surfaces for the controller: a
// terminal monitor fed from the broker and a small web bridge. Both are
// advisory only and never influence control.
package telemetry

import (
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/flightcore/internal/flight"
	"github.com/san-kum/flightcore/internal/geom"
)

const historyCapacity = 300

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// Feed is the shared cell between broker callbacks and the monitor UI.
type Feed struct {
	mu       sync.Mutex
	pose     geom.Pose
	cmd      flight.Command
	havePose bool
}

func NewFeed() *Feed { return &Feed{} }

func (f *Feed) SetPose(p geom.Pose) {
	f.mu.Lock()
	f.pose = p
	f.havePose = true
	f.mu.Unlock()
}

func (f *Feed) SetCommand(cmd flight.Command) {
	f.mu.Lock()
	f.cmd = cmd
	f.mu.Unlock()
}

func (f *Feed) read() (geom.Pose, flight.Command, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pose, f.cmd, f.havePose
}

type TickMsg time.Time

// Model renders live altitude and thrust graphs from the feed.
type Model struct {
	feed *Feed

	altHistory    []float64
	thrustHistory []float64
	paused        bool
}

func NewModel(feed *Feed) Model {
	return Model{
		feed:          feed,
		altHistory:    make([]float64, 0, historyCapacity),
		thrustHistory: make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		}
	case TickMsg:
		if !m.paused {
			pose, cmd, have := m.feed.read()
			if have {
				m.altHistory = appendCapped(m.altHistory, pose.Position.Z)
				m.thrustHistory = appendCapped(m.thrustHistory, cmd.Linear.Z)
			}
		}
		return m, tick()
	}
	return m, nil
}

func appendCapped(history []float64, v float64) []float64 {
	history = append(history, v)
	if len(history) > historyCapacity {
		history = history[len(history)-historyCapacity:]
	}
	return history
}

func (m Model) View() string {
	pose, cmd, have := m.feed.read()

	header := headerStyle.Render("flightcore monitor")
	if !have {
		return header + "\n" + valueStyle.Render("waiting for pose feed...") + "\n"
	}

	stats := lipgloss.JoinVertical(lipgloss.Left,
		labelStyle.Render("position")+valueStyle.Render(fmt.Sprintf("%.2f %.2f %.2f",
			pose.Position.X, pose.Position.Y, pose.Position.Z)),
		labelStyle.Render("yaw")+valueStyle.Render(fmt.Sprintf("%.2f rad", pose.Orientation.Yaw())),
		labelStyle.Render("cmd linear")+valueStyle.Render(fmt.Sprintf("%.2f %.2f %.0f",
			cmd.Linear.X, cmd.Linear.Y, cmd.Linear.Z)),
		labelStyle.Render("cmd yaw")+valueStyle.Render(fmt.Sprintf("%.2f", cmd.Angular.Z)),
	)

	var graphs string
	if len(m.altHistory) > 1 {
		graphs = graphStyle.Render(asciigraph.Plot(m.altHistory,
			asciigraph.Height(8),
			asciigraph.Width(70),
			asciigraph.Caption("altitude"),
		))
		graphs += "\n" + graphStyle.Render(asciigraph.Plot(m.thrustHistory,
			asciigraph.Height(8),
			asciigraph.Width(70),
			asciigraph.Caption("thrust command"),
		))
	}

	help := helpStyle.Render("space: pause  q: quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, stats, graphs, help) + "\n"
}
