// Package plain is the non-TTY fallback for internal/progressui: it writes
// one line per step/event to an io.Writer instead of rendering a Bubble Tea
// dashboard, for use in CI logs or any context where a terminal isn't
// available.
package plain

import (
	"fmt"
	"io"

	"github.com/crucible-run/crucible/internal/engine"
)

// Logger is an engine.EventSink that writes plain text lines.
type Logger struct {
	w io.Writer
}

func New(w io.Writer) *Logger {
	return &Logger{w: w}
}

func (l *Logger) OnStartingStep(step engine.Step) {
	fmt.Fprintf(l.w, "-> %s\n", step)
}

func (l *Logger) OnEvent(event engine.Event) {
	fmt.Fprintf(l.w, "   %s\n", event)
}

var _ engine.EventSink = (*Logger)(nil)
