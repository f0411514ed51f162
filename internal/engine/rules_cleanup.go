package engine

import "github.com/crucible-run/crucible/internal/graph"

// cleanupNext scans the CleaningUp stage's rules in a fixed order: every
// container that ever reached ContainerCreated must be stopped (if it was
// started) and then removed before the task network is allowed to go away.
// spec.md §4.3's cleanup rules.
func cleanupNext(task graph.Task, log *Log, emitted map[Step]bool) (Step, bool) {
	for _, c := range task.Containers {
		if step, ok := tryStep(StopContainer{Container: c.Name}, emitted, needsStop(log, c.Name)); ok {
			return step, true
		}
	}

	for _, c := range task.Containers {
		if step, ok := tryStep(RemoveContainer{Container: c.Name}, emitted, readyToRemove(log, c.Name)); ok {
			return step, true
		}
	}

	if step, ok := tryStep(DeleteTaskNetwork{}, emitted, deleteNetworkEnabled(task, log)); ok {
		return step, true
	}

	return nil, false
}

func needsStop(log *Log, name string) bool {
	if !log.containerEverCreated(name) {
		return false
	}
	if !log.containerStarted(name) {
		return false
	}
	return !log.containerStopAttempted(name)
}

func readyToRemove(log *Log, name string) bool {
	if !log.containerEverCreated(name) {
		return false
	}
	if log.containerRemoveAttempted(name) {
		return false
	}
	// A container that was never started can be removed straight away; one
	// that was started must be stopped first.
	return !log.containerStarted(name) || log.containerStopAttempted(name)
}

func deleteNetworkEnabled(task graph.Task, log *Log) bool {
	if _, ok := log.networkCreated(); !ok {
		return false
	}
	if log.networkDeleted() || log.networkDeletionFailed() {
		return false
	}
	for _, c := range task.Containers {
		if log.containerEverCreated(c.Name) && !log.containerRemoveAttempted(c.Name) {
			return false
		}
	}
	return true
}

// cleanupDone reports whether the CleaningUp stage has nothing left to do:
// every container is settled and the network has been deleted or its
// deletion has failed. This, combined with the executor observing zero
// in-flight steps, is what terminates a run (spec.md §4.5, invariant P3).
func cleanupDone(task graph.Task, log *Log) bool {
	for _, c := range task.Containers {
		if log.containerEverCreated(c.Name) && !log.containerRemoveAttempted(c.Name) {
			return false
		}
	}
	if _, ok := log.networkCreated(); ok {
		return log.networkDeleted() || log.networkDeletionFailed()
	}
	return true
}
