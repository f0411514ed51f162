package engine

// Log is the append-only event log the rules engine consults. It has no
// behaviour beyond pure queries over its slice — every transition in the
// engine is a function of this log and nothing else (spec.md §3, §9).
type Log struct {
	events []Event
}

// Append adds e to the log. The caller (TaskStateMachine) is responsible
// for serializing access.
func (l *Log) Append(e Event) {
	l.events = append(l.events, e)
}

// All returns the events appended so far, in order. The returned slice must
// not be mutated by callers.
func (l *Log) All() []Event {
	return l.events
}

func (l *Log) has(match func(Event) bool) bool {
	for _, e := range l.events {
		if match(e) {
			return true
		}
	}
	return false
}

func (l *Log) find(match func(Event) bool) (Event, bool) {
	for _, e := range l.events {
		if match(e) {
			return e, true
		}
	}
	return nil, false
}

// --- network queries ---

func (l *Log) networkCreated() (string, bool) {
	e, ok := l.find(func(e Event) bool { _, ok := e.(TaskNetworkCreated); return ok })
	if !ok {
		return "", false
	}
	return e.(TaskNetworkCreated).NetworkID, true
}

func (l *Log) networkCreationFailed() bool {
	return l.has(func(e Event) bool { _, ok := e.(TaskNetworkCreationFailed); return ok })
}

func (l *Log) networkDeleted() bool {
	return l.has(func(e Event) bool { _, ok := e.(TaskNetworkDeleted); return ok })
}

func (l *Log) networkDeletionFailed() bool {
	return l.has(func(e Event) bool { _, ok := e.(TaskNetworkDeletionFailed); return ok })
}

// --- image queries ---

func (l *Log) imageReady(container string) bool {
	return l.has(func(e Event) bool {
		switch ev := e.(type) {
		case ImageBuildSucceeded:
			return ev.Container == container
		case ImagePullSucceeded:
			return ev.Container == container
		}
		return false
	})
}

func (l *Log) imageFailed(container string) bool {
	return l.has(func(e Event) bool {
		switch ev := e.(type) {
		case ImageBuildFailed:
			return ev.Container == container
		case ImagePullFailed:
			return ev.Container == container
		}
		return false
	})
}

// --- container queries ---

func (l *Log) containerCreated(name string) (string, bool) {
	e, ok := l.find(func(e Event) bool { ev, ok := e.(ContainerCreated); return ok && ev.Container == name })
	if !ok {
		return "", false
	}
	return e.(ContainerCreated).ContainerID, true
}

func (l *Log) containerCreationFailed(name string) bool {
	return l.has(func(e Event) bool { ev, ok := e.(ContainerCreationFailed); return ok && ev.Container == name })
}

func (l *Log) containerStarted(name string) bool {
	return l.has(func(e Event) bool { ev, ok := e.(ContainerStarted); return ok && ev.Container == name })
}

func (l *Log) containerStartFailed(name string) bool {
	return l.has(func(e Event) bool { ev, ok := e.(ContainerStartFailed); return ok && ev.Container == name })
}

func (l *Log) containerHealthy(name string) bool {
	return l.has(func(e Event) bool { ev, ok := e.(ContainerBecameHealthy); return ok && ev.Container == name })
}

func (l *Log) containerUnhealthy(name string) bool {
	return l.has(func(e Event) bool {
		ev, ok := e.(ContainerDidNotBecomeHealthy)
		return ok && ev.Container == name
	})
}

func (l *Log) healthWaitStarted(name string) bool {
	return l.containerHealthy(name) || l.containerUnhealthy(name)
}

func (l *Log) mainExited() (int, bool) {
	e, ok := l.find(func(e Event) bool { _, ok := e.(RunningContainerExited); return ok })
	if !ok {
		return 0, false
	}
	return e.(RunningContainerExited).ExitCode, true
}

func (l *Log) containerStopped(name string) bool {
	return l.has(func(e Event) bool { ev, ok := e.(ContainerStopped); return ok && ev.Container == name })
}

func (l *Log) containerStopFailed(name string) bool {
	return l.has(func(e Event) bool { ev, ok := e.(ContainerStopFailed); return ok && ev.Container == name })
}

func (l *Log) containerStopAttempted(name string) bool {
	return l.containerStopped(name) || l.containerStopFailed(name)
}

func (l *Log) containerRemoved(name string) bool {
	return l.has(func(e Event) bool { ev, ok := e.(ContainerRemoved); return ok && ev.Container == name })
}

func (l *Log) containerRemovalFailed(name string) bool {
	return l.has(func(e Event) bool { ev, ok := e.(ContainerRemovalFailed); return ok && ev.Container == name })
}

func (l *Log) containerRemoveAttempted(name string) bool {
	return l.containerRemoved(name) || l.containerRemovalFailed(name)
}

// containerEverCreated reports whether the container reached at least
// ContainerCreated, regardless of what happened to it afterwards. Cleanup
// rules use this to decide which containers need stopping/removing.
func (l *Log) containerEverCreated(name string) bool {
	_, ok := l.containerCreated(name)
	return ok
}

// remainingCleanupResources reports the created resources cleanup could not
// tear down: containers whose stop or removal failed, plus the task network
// if its deletion failed. spec.md §4.5/§7 kind 4 — a clean main-container
// exit is not itself task success if something it created is still there
// afterwards.
func (l *Log) remainingCleanupResources(containers []string) []string {
	var remaining []string
	for _, name := range containers {
		if !l.containerEverCreated(name) {
			continue
		}
		if l.containerStopFailed(name) {
			remaining = append(remaining, name+" (failed to stop)")
			continue
		}
		if l.containerRemovalFailed(name) {
			remaining = append(remaining, name+" (failed to remove)")
		}
	}
	if l.networkDeletionFailed() {
		remaining = append(remaining, "task network (failed to delete)")
	}
	return remaining
}

func (l *Log) executionFailed() bool {
	return l.has(func(e Event) bool { _, ok := e.(ExecutionFailedEvent); return ok })
}

func (l *Log) userInterrupted() bool {
	return l.has(func(e Event) bool { _, ok := e.(UserInterruptedExecution); return ok })
}
