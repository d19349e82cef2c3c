// Package tui is the live two-half link viewer behind ghanima-link watch.
// It steps a simulator in real time and lets the user plug USB in and out
// and inject faults while watching the halves renegotiate.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ghanima/half"
	"ghanima/host/sim"
	"ghanima/role"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Width(30)

	masterStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	slaveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	faultStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const (
	frameInterval = 50 * time.Millisecond
	historySize   = 8
)

// tickMsg advances the simulation by one frame
type tickMsg time.Time

// Model is the bubbletea model for the viewer
type Model struct {
	sim     *sim.Simulator
	speed   int // simulator ticks per frame
	paused  bool
	usb     [2]bool
	corrupt [2]bool
	width   int
}

// New wraps s. speed is the number of simulator ticks run per frame.
func New(s *sim.Simulator, speed int) Model {
	return Model{sim: s, speed: max(speed, 1)}
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the frame clock
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles key bindings and frame ticks
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "1":
			m.toggleUSB(role.Left)
		case "2":
			m.toggleUSB(role.Right)
		case "d":
			m.sim.DropNext(role.Left, 1)
		case "D":
			m.sim.DropNext(role.Right, 1)
		case "c":
			m.toggleCorrupt(role.Left)
		case "C":
			m.toggleCorrupt(role.Right)
		case "k":
			m.sim.PressKey(role.Left, half.KeyEvent{Pressed: true})
		case "K":
			m.sim.PressKey(role.Right, half.KeyEvent{Pressed: true})
		case " ", "space":
			m.paused = !m.paused
		case "s":
			// Single step while paused
			m.sim.Step()
		case "+", "=":
			m.speed = min(m.speed*2, 1024)
		case "-":
			m.speed = max(m.speed/2, 1)
		}
		return m, nil

	case tickMsg:
		if !m.paused {
			m.sim.Run(m.speed)
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) toggleUSB(side role.Side) {
	m.usb[side] = !m.usb[side]
	m.sim.SetUSB(side, m.usb[side])
}

func (m *Model) toggleCorrupt(side role.Side) {
	m.corrupt[side] = !m.corrupt[side]
	m.sim.SetCorrupt(side, m.corrupt[side])
}

// View renders both halves side by side above the change history
func (m Model) View() string {
	var sb strings.Builder

	state := "running"
	if m.paused {
		state = "paused"
	}
	sb.WriteString(titleStyle.Render(fmt.Sprintf("ghanima link  tick %d  x%d  %s", m.sim.Now(), m.speed, state)))
	sb.WriteString("\n")

	st := m.sim.Status()
	panels := make([]string, len(st))
	for i, s := range st {
		panels[i] = m.renderHalf(s)
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panels...))
	sb.WriteString("\n")

	sb.WriteString(renderHistory(m.sim.Changes()))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("1/2: usb  d/D: drop  c/C: corrupt  k/K: key  space: pause  s: step  +/-: speed  q: quit"))
	return sb.String()
}

func (m Model) renderHalf(s sim.Status) string {
	var lines []string

	r := slaveStyle.Render(s.Role.String())
	if s.Role == role.Master {
		r = masterStyle.Render(s.Role.String())
	}
	lines = append(lines, fmt.Sprintf("%s  %s", strings.ToUpper(s.Side.String()), r))
	lines = append(lines, fmt.Sprintf("state   %s", s.State))
	lines = append(lines, fmt.Sprintf("usb     %v", s.USB))
	if s.Alone {
		lines = append(lines, faultStyle.Render("alone"))
	}
	if m.corrupt[s.Side] {
		lines = append(lines, faultStyle.Render("corrupting"))
	}
	lines = append(lines,
		fmt.Sprintf("sent    %d", s.Stats.Tx.Frames),
		fmt.Sprintf("recv    %d", s.Stats.Rx.Received),
		fmt.Sprintf("dropped %d", s.Stats.Rx.Dropped()),
	)
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderHistory(changes []sim.Change) string {
	if len(changes) == 0 {
		return dimStyle.Render("no role changes yet")
	}
	if len(changes) > historySize {
		changes = changes[len(changes)-historySize:]
	}
	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		lines = append(lines, fmt.Sprintf("%8d  %-5s %s -> %s", c.Tick, c.Side, c.From, c.To))
	}
	return strings.Join(lines, "\n")
}
