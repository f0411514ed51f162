package progressui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/crucible-run/crucible/internal/engine"
)

// Dashboard is an engine.EventSink that feeds a running Bubble Tea program.
// It owns the channel the Model reads from and closes it once the task
// signals it is done, which is what lets the Bubble Tea event loop exit on
// its own.
type Dashboard struct {
	program *tea.Program
	events  chan tea.Msg
	once    sync.Once
}

// NewDashboard builds (but does not start) a Bubble Tea program for
// taskName and returns a Dashboard ready to be wired as the task's
// EventSink. Run must be called to actually drive the terminal; the run
// command calls it on its own goroutine while the task runs in another, and
// calls Close once the task finishes.
func NewDashboard(taskName string) *Dashboard {
	events := make(chan tea.Msg, 256)
	model := NewModel(taskName, events)
	return &Dashboard{
		program: tea.NewProgram(model),
		events:  events,
	}
}

// Run blocks until the dashboard quits (the task finished and Close was
// called, or the user pressed Ctrl-C).
func (d *Dashboard) Run() error {
	_, err := d.program.Run()
	return err
}

// Close signals the dashboard that no more events are coming.
func (d *Dashboard) Close() {
	d.once.Do(func() { close(d.events) })
}

func (d *Dashboard) OnStartingStep(step engine.Step) {
	d.send(eventMsg{starting: step})
}

func (d *Dashboard) OnEvent(event engine.Event) {
	d.send(eventMsg{event: event})
}

// send queues the message on the dashboard's buffered channel (256
// messages), in the order the state machine hands them over, and blocks
// only when that buffer is full rather than dropping a message, so the
// dashboard sees every step and event.
func (d *Dashboard) send(msg eventMsg) {
	defer func() { recover() }() // events channel may already be closed at shutdown
	d.events <- msg
}

var _ engine.EventSink = (*Dashboard)(nil)
