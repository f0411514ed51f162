package engine

import (
	"strings"

	"github.com/crucible-run/crucible/internal/graph"
)

// TaskExitStatus is the caller-facing outcome of a finished task run
// (spec.md §6, §7): either the main container's exit code, or a reason the
// task never got that far.
type TaskExitStatus struct {
	// Ran is true when the main container actually executed to completion
	// and cleanup tore down everything the task created; a cleanup failure
	// after the main container exited leaves Ran false.
	Ran      bool
	ExitCode int

	// Reason explains why Ran is false, or why cleanup itself failed.
	// Mirrors the teacher's Pod.Reason/Message pairing.
	Reason string
}

// exitStatus derives the final status from the log once the state machine
// has finished. spec.md §4.5's success rule: the task succeeded only if the
// main container ran and exited *and* cleanup tore down everything it
// created — a non-zero main exit code is not itself a "failure" of the
// engine, but a stop/remove/network-delete failure after a clean exit is
// (spec.md §7 kind 4): callers must still see a non-zero status naming what
// was left behind.
func exitStatus(task graph.Task, log *Log) TaskExitStatus {
	if code, ok := log.mainExited(); ok {
		names := make([]string, len(task.Containers))
		for i, c := range task.Containers {
			names[i] = c.Name
		}
		if remaining := log.remainingCleanupResources(names); len(remaining) > 0 {
			return TaskExitStatus{
				Reason: "main container exited but cleanup left resources behind: " + strings.Join(remaining, ", "),
			}
		}
		return TaskExitStatus{Ran: true, ExitCode: code}
	}
	if log.userInterrupted() {
		return TaskExitStatus{Reason: "interrupted before the main container ran"}
	}
	if log.networkCreationFailed() {
		return TaskExitStatus{Reason: "failed to create task network"}
	}
	if e, ok := log.find(func(e Event) bool { _, ok := e.(ExecutionFailedEvent); return ok }); ok {
		return TaskExitStatus{Reason: e.(ExecutionFailedEvent).Message}
	}

	for _, e := range log.All() {
		switch ev := e.(type) {
		case ImageBuildFailed:
			return TaskExitStatus{Reason: "image build failed for container " + ev.Container + ": " + ev.Reason}
		case ImagePullFailed:
			return TaskExitStatus{Reason: "image pull failed for container " + ev.Container + ": " + ev.Reason}
		case ContainerCreationFailed:
			return TaskExitStatus{Reason: "failed to create container " + ev.Container + ": " + ev.Reason}
		case ContainerStartFailed:
			return TaskExitStatus{Reason: "failed to start container " + ev.Container + ": " + ev.Reason}
		case ContainerDidNotBecomeHealthy:
			return TaskExitStatus{Reason: "container " + ev.Container + " did not become healthy: " + ev.Reason}
		}
	}

	return TaskExitStatus{Reason: "task ended without the main container ever running"}
}

// ExitStatus computes the caller-facing result from the state machine's
// current log. Only meaningful once IsFinished reports true.
func (m *TaskStateMachine) ExitStatus() TaskExitStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := exitStatus(m.task, &m.log)
	if m.stage == Halted {
		status.Reason += " (resources left in place: behaviourAfterFailure=DoNotCleanup)"
	}
	return status
}
