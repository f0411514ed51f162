package engine

import (
	"sync"

	"github.com/crucible-run/crucible/internal/graph"
)

// TaskStateMachine is the single source of truth for a task's execution.
// Every decision it makes is a pure function of the event log; the only
// mutable state besides the log itself is the current Stage and the set of
// steps already emitted (spec.md §4.4). All access is serialized through
// one mutex, matching the locking style the teacher uses for its in-memory
// stores.
type TaskStateMachine struct {
	mu   sync.Mutex
	cond *sync.Cond

	task graph.Task
	idx  map[string]graph.Container

	stage   Stage
	log     Log
	emitted map[Step]bool
	gen     uint64

	options RunOptions
	sink    EventSink
}

// EventSink observes every step the rules hand out and every event posted
// to the log, strictly before the log (and therefore the rules) act on it.
// internal/progressui is the production implementation; invariant P2 is
// precisely this: the UI never lags the state machine's own decisions.
type EventSink interface {
	OnStartingStep(step Step)
	OnEvent(event Event)
}

// SetEventSink wires sink so it is notified synchronously inside PostEvent,
// before the event is appended to the log. Must be called before the task
// starts running; it is not safe to change sinks mid-run.
func (m *TaskStateMachine) SetEventSink(sink EventSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
}

// NewTaskStateMachine builds a state machine for task, starting in the
// Running stage with an empty log. Callers must have already validated the
// task (graph.Task.Validate) before constructing one.
func NewTaskStateMachine(task graph.Task, options RunOptions) *TaskStateMachine {
	m := &TaskStateMachine{
		task:    task,
		idx:     task.ByName(),
		stage:   Running,
		emitted: make(map[Step]bool),
		options: options,
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Options returns the RunOptions the state machine was constructed with.
func (m *TaskStateMachine) Options() RunOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.options
}

// WaitForChange blocks until the generation has moved past since (a
// PostEvent has landed, or an executor worker has finished), then returns.
// The executor uses this to avoid busy-polling PopNextStep while steps are
// in flight but none has completed yet. since must be a
// generation returned by PopNextStep taken before the caller decided there
// was nothing to do; checking it under the same lock as the wait closes the
// gap a bare cond.Wait() would leave between "nothing to do" and "start
// waiting", where an intervening PostEvent's Broadcast would otherwise be
// missed.
func (m *TaskStateMachine) WaitForChange(since uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.gen == since {
		m.cond.Wait()
	}
}

// PopNextStep returns the next step the rules currently enable, marking it
// emitted so it is never handed out twice (invariant P1), along with the
// log generation this decision was made against. It returns ok=false when
// no rule currently fires; the caller should pass gen to WaitForChange
// before asking again.
func (m *TaskStateMachine) PopNextStep() (step Step, ok bool, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.stage {
	case Running:
		step, ok = runningNext(m.task, &m.log, m.emitted)
	case CleaningUp:
		step, ok = cleanupNext(m.task, &m.log, m.emitted)
	case Halted:
		// Nothing runs once halted: created resources are left exactly as
		// they were at the moment of failure (RunOptions.BehaviourAfterFailure
		// == DoNotCleanup).
	}
	if ok {
		m.emitted[step] = true
		if m.sink != nil {
			m.sink.OnStartingStep(step)
		}
	}
	return step, ok, m.gen
}

// PostEvent appends e to the log and reacts to it: it synthesizes an
// immediate ContainerBecameHealthy for containers with no declared health
// check as soon as they start, and advances the stage to CleaningUp the
// moment the main container exits or the log shows the Running stage can no
// longer make progress (to Halted instead, for a failure under
// BehaviourAfterFailure == DoNotCleanup).
// Callers (the executor, a step runner, a signal handler) must only ever
// reach the state machine through this method and PopNextStep, never infer
// state any other way (spec.md §3, invariant P2).
func (m *TaskStateMachine) PostEvent(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sink != nil {
		m.sink.OnEvent(e)
	}
	m.appendAndReact(e)
	m.gen++
	m.cond.Broadcast()
}

func (m *TaskStateMachine) appendAndReact(e Event) {
	m.log.Append(e)

	if started, ok := e.(ContainerStarted); ok {
		if c, present := m.idx[started.Container]; present && !c.HasHealthCheck() {
			m.log.Append(ContainerBecameHealthy{Container: started.Container})
		}
	}

	if m.stage != Running {
		return
	}
	if _, ok := m.log.mainExited(); ok {
		m.stage = CleaningUp
		return
	}
	if runningStageFailed(m.task, &m.log) {
		if m.options.BehaviourAfterFailure == DoNotCleanup {
			m.stage = Halted
		} else {
			m.stage = CleaningUp
		}
	}
}

// IsFinished reports whether the task has reached a terminal state: either
// the CleaningUp stage with nothing left to stop, remove, or delete, or the
// Halted stage, which has nothing left to do by definition.
// The executor must also confirm no step is still in flight before treating
// this as "done" (invariant P3) — the state machine alone cannot see that.
func (m *TaskStateMachine) IsFinished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage == Halted {
		return true
	}
	return m.stage == CleaningUp && cleanupDone(m.task, &m.log)
}

// CurrentStage reports the stage, mostly for UI and tests.
func (m *TaskStateMachine) CurrentStage() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

// NetworkID returns the task network's ID, once CreateTaskNetwork has
// succeeded.
func (m *TaskStateMachine) NetworkID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.log.networkCreated()
}

// ContainerID returns the Docker container ID assigned to name, once
// CreateContainer has succeeded for it.
func (m *TaskStateMachine) ContainerID(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.log.containerCreated(name)
}

// Container looks up a container's declaration by name.
func (m *TaskStateMachine) Container(name string) (graph.Container, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.idx[name]
	return c, ok
}

// Events returns a snapshot of the log appended so far.
func (m *TaskStateMachine) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.log.All()))
	copy(out, m.log.All())
	return out
}
