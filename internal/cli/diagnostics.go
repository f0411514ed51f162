package cli

import (
	"github.com/crucible-run/crucible/internal/engine"
	"github.com/crucible-run/crucible/internal/structlog"
)

// diagnosticsSink fans every step and event out to a structured JSON-lines
// logger in addition to whichever UI sink (the dashboard or the plain
// logger) is actually driving the terminal. This is what makes
// internal/structlog a consumer of the engine's event stream rather than an
// isolated writer only exercised by its own tests.
type diagnosticsSink struct {
	logger *structlog.Logger
	next   engine.EventSink
}

func newDiagnosticsSink(logger *structlog.Logger, next engine.EventSink) *diagnosticsSink {
	return &diagnosticsSink{logger: logger, next: next}
}

func (d *diagnosticsSink) OnStartingStep(step engine.Step) {
	d.logger.Info("step starting", map[string]interface{}{"step": step.String()})
	d.next.OnStartingStep(step)
}

func (d *diagnosticsSink) OnEvent(event engine.Event) {
	d.logger.Info("event", map[string]interface{}{"event": event.String()})
	d.next.OnEvent(event)
}

var _ engine.EventSink = (*diagnosticsSink)(nil)
