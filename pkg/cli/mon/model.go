// Package mon renders live board telemetry in the terminal.
package mon

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
	"github.com/robotalks/dcmotor.go/pkg/l1/msgs"
)

// MaxFaults is the number of recent fault events kept on screen.
const MaxFaults = 5

// EventMsg delivers a board event to the model.
type EventMsg struct {
	Msg msgs.Message
	At  time.Time
}

type closedMsg struct{}

// Model is the bubbletea model showing the latest state per motor.
type Model struct {
	Title string

	events  <-chan msgs.Message
	states  [comm.MotorCount]*msgs.MotorStatus
	updated [comm.MotorCount]time.Time
	faults  []string
	closed  bool
}

// New creates a Model reading events until the channel is closed.
func New(title string, events <-chan msgs.Message) Model {
	return Model{Title: title, events: events}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.waitEvent()
}

func (m Model) waitEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return closedMsg{}
		}
		return EventMsg{Msg: msg, At: time.Now()}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case EventMsg:
		m = m.apply(msg)
		return m, m.waitEvent()
	case closedMsg:
		m.closed = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) apply(ev EventMsg) Model {
	switch e := ev.Msg.(type) {
	case *msgs.MotorStatus:
		if e.MotorId < comm.MotorCount {
			m.states[e.MotorId] = e
			m.updated[e.MotorId] = ev.At
		}
	case *msgs.MotorFault:
		line := fmt.Sprintf("%s %s", ev.At.Format("15:04:05.000"), e.Message)
		m.faults = append(m.faults, line)
		if len(m.faults) > MaxFaults {
			m.faults = append([]string(nil), m.faults[len(m.faults)-MaxFaults:]...)
		}
	}
	return m
}

// State returns the latest status of a motor, nil if none received.
func (m Model) State(id int) *msgs.MotorStatus {
	if id < 0 || id >= comm.MotorCount {
		return nil
	}
	return m.states[id]
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", m.Title)
	fmt.Fprintf(&b, "%-6s %8s %9s %-8s %s\n", "MOTOR", "SPEED", "CURRENT", "STATE", "UPDATED")
	for id, s := range m.states {
		if s == nil {
			fmt.Fprintf(&b, "%-6d %8s %9s %-8s %s\n", id, "-", "-", "-", "-")
			continue
		}
		fmt.Fprintf(&b, "%-6d %+8.3f %9s %-8s %s\n", id, s.Speed, formatCurrent(s.Current),
			formatState(s), m.updated[id].Format("15:04:05.000"))
	}
	if len(m.faults) > 0 {
		b.WriteString("\nfaults:\n")
		for _, line := range m.faults {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	if m.closed {
		b.WriteString("\nconnection closed\n")
	} else {
		b.WriteString("\npress q to quit\n")
	}
	return b.String()
}

func formatCurrent(amps float32) string {
	if amps < 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.3fA", amps)
}

func formatState(s *msgs.MotorStatus) string {
	switch {
	case s.Fault:
		return "FAULT"
	case s.Enabled:
		return "armed"
	}
	return "disarmed"
}
