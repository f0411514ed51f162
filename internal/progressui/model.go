// Package progressui renders a task's live progress as a Bubble Tea
// dashboard: one line per container showing its current step and the
// latest event posted for it. Grounded on the teacher pack's
// traiproject-same TUI (internal/tui/model.go), adapted from a vertex/tape
// log viewer to a fixed per-container status board.
package progressui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/crucible-run/crucible/internal/engine"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const tickInterval = 120 * time.Millisecond

type styles struct {
	running   lipgloss.Style
	ok        lipgloss.Style
	failed    lipgloss.Style
	pending   lipgloss.Style
	network   lipgloss.Style
}

func newStyles() styles {
	return styles{
		running: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
		pending: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		network: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	}
}

// row is one container's latest known status line.
type row struct {
	name    string
	status  string // "pending", "running", "healthy", "failed", "exited"
	message string
}

type tickMsg struct{}

type eventMsg struct {
	starting engine.Step
	event    engine.Event
}

// Model is the Bubble Tea model driving the dashboard.
type Model struct {
	taskName string
	rows     map[string]*row
	order    []string
	network  string
	frame    int
	done     bool
	exit     engine.TaskExitStatus
	styles   styles
	events   <-chan tea.Msg
}

// NewModel builds a Model that reads update messages from events until it
// is closed.
func NewModel(taskName string, events <-chan tea.Msg) *Model {
	return &Model{
		taskName: taskName,
		rows:     make(map[string]*row),
		styles:   newStyles(),
		events:   events,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return msg
	}
}

type doneMsg struct{}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.KeyMsg:
		if v.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	case tickMsg:
		m.frame++
		return m, tick()
	case eventMsg:
		m.apply(v)
		return m, waitForEvent(m.events)
	case doneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) apply(msg eventMsg) {
	if msg.starting != nil {
		m.applyStartingStep(msg.starting)
	}
	if msg.event != nil {
		m.applyEvent(msg.event)
	}
}

// applyStartingStep gives the row an immediate "running" marker the moment
// a step is dispatched, rather than waiting for its first event — the
// executor may take a moment to reach even the Started event for slow
// drivers.
func (m *Model) applyStartingStep(step engine.Step) {
	name := containerOf(step)
	if name == "" {
		return
	}
	r := m.rowFor(name)
	if r.status == "pending" {
		r.status = "running"
	}
}

func containerOf(step engine.Step) string {
	switch s := step.(type) {
	case engine.BuildImage:
		return s.Container
	case engine.PullImage:
		return s.Container
	case engine.CreateContainer:
		return s.Container
	case engine.StartContainer:
		return s.Container
	case engine.WaitForContainerToBecomeHealthy:
		return s.Container
	case engine.RunContainer:
		return s.Container
	case engine.StopContainer:
		return s.Container
	case engine.RemoveContainer:
		return s.Container
	default:
		return ""
	}
}

func (m *Model) rowFor(name string) *row {
	r, ok := m.rows[name]
	if !ok {
		r = &row{name: name, status: "pending"}
		m.rows[name] = r
		m.order = append(m.order, name)
	}
	return r
}

func (m *Model) applyEvent(e engine.Event) {
	switch ev := e.(type) {
	case engine.ImageBuildStarted:
		m.rowFor(ev.Container).status, m.rowFor(ev.Container).message = "running", "building image"
	case engine.ImageBuildProgress:
		m.rowFor(ev.Container).message = ev.Message
	case engine.ImageBuildSucceeded:
		m.rowFor(ev.Container).message = "image built"
	case engine.ImageBuildFailed:
		m.rowFor(ev.Container).status, m.rowFor(ev.Container).message = "failed", ev.Reason
	case engine.ImagePullStarted:
		m.rowFor(ev.Container).status, m.rowFor(ev.Container).message = "running", "pulling image"
	case engine.ImagePullSucceeded:
		m.rowFor(ev.Container).message = "image pulled"
	case engine.ImagePullFailed:
		m.rowFor(ev.Container).status, m.rowFor(ev.Container).message = "failed", ev.Reason
	case engine.TaskNetworkCreated:
		m.network = ev.NetworkID
	case engine.TaskNetworkCreationFailed:
		m.network = "failed: " + ev.Reason
	case engine.ContainerCreated:
		m.rowFor(ev.Container).message = "created"
	case engine.ContainerCreationFailed:
		m.rowFor(ev.Container).status, m.rowFor(ev.Container).message = "failed", ev.Reason
	case engine.ContainerStarted:
		m.rowFor(ev.Container).status, m.rowFor(ev.Container).message = "running", "started"
	case engine.ContainerStartFailed:
		m.rowFor(ev.Container).status, m.rowFor(ev.Container).message = "failed", ev.Reason
	case engine.ContainerBecameHealthy:
		m.rowFor(ev.Container).status, m.rowFor(ev.Container).message = "healthy", "healthy"
	case engine.ContainerDidNotBecomeHealthy:
		m.rowFor(ev.Container).status, m.rowFor(ev.Container).message = "failed", ev.Reason
	case engine.RunningContainerExited:
		m.rowFor(ev.Container).status = "exited"
		m.rowFor(ev.Container).message = fmt.Sprintf("exited %d", ev.ExitCode)
	case engine.ContainerStopped:
		m.rowFor(ev.Container).message = "stopped"
	case engine.ContainerStopFailed:
		m.rowFor(ev.Container).message = "stop failed: " + ev.Reason
	case engine.ContainerRemoved:
		m.rowFor(ev.Container).status, m.rowFor(ev.Container).message = "pending", "removed"
	case engine.ContainerRemovalFailed:
		m.rowFor(ev.Container).message = "remove failed: " + ev.Reason
	case engine.TaskNetworkDeleted:
		m.network = "deleted"
	case engine.TaskNetworkDeletionFailed:
		m.network = "deletion failed: " + ev.Reason
	}
}

func (m *Model) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "task %s\n", m.taskName)
	if m.network != "" {
		fmt.Fprintf(&b, "%s network: %s\n", m.styles.network.Render("●"), m.network)
	}

	names := append([]string(nil), m.order...)
	sort.Strings(names)
	for _, name := range names {
		r := m.rows[name]
		b.WriteString(m.renderRow(r))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderRow(r *row) string {
	var marker string
	switch r.status {
	case "running":
		marker = m.styles.running.Render(spinnerFrames[m.frame%len(spinnerFrames)])
	case "healthy", "exited":
		marker = m.styles.ok.Render("✔")
	case "failed":
		marker = m.styles.failed.Render("✘")
	default:
		marker = m.styles.pending.Render("○")
	}
	return fmt.Sprintf("%s %-20s %s", marker, r.name, r.message)
}
