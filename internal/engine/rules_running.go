package engine

import "github.com/crucible-run/crucible/internal/graph"

// runningNext scans the Running stage's rules in a fixed, deterministic
// order and returns the first step whose enabling predicate holds and
// whose suppression predicate (covered here by the emitted set, which the
// state machine guarantees at-most-once-per-step semantics against) does
// not. spec.md §4.3 canonical rules for the Running stage.
func runningNext(task graph.Task, log *Log, emitted map[Step]bool) (Step, bool) {
	if step, ok := tryStep(CreateTaskNetwork{}, emitted, networkRuleEnabled(log)); ok {
		return step, true
	}

	idx := task.ByName()

	for _, c := range task.Containers {
		var imageStep Step
		if c.Image.IsBuild() {
			imageStep = BuildImage{Container: c.Name}
		} else {
			imageStep = PullImage{Container: c.Name}
		}
		if step, ok := tryStep(imageStep, emitted, imageRuleEnabled(log, c.Name)); ok {
			return step, true
		}
	}

	for _, c := range task.Containers {
		if step, ok := tryStep(
			CreateContainer{Container: c.Name}, emitted, createRuleEnabled(log, c, idx),
		); ok {
			return step, true
		}
	}

	for _, c := range task.Containers {
		if step, ok := tryStep(
			StartContainer{Container: c.Name}, emitted, startRuleEnabled(log, c.Name),
		); ok {
			return step, true
		}
	}

	for _, c := range task.Containers {
		if !c.HasHealthCheck() {
			continue
		}
		if step, ok := tryStep(
			WaitForContainerToBecomeHealthy{Container: c.Name}, emitted, healthRuleEnabled(log, c.Name),
		); ok {
			return step, true
		}
	}

	if step, ok := tryStep(
		RunContainer{Container: task.Main}, emitted, runRuleEnabled(task, log, idx),
	); ok {
		return step, true
	}

	return nil, false
}

// tryStep applies the at-most-once suppression (already emitted) uniformly
// before consulting the rule-specific enabling predicate.
func tryStep(step Step, emitted map[Step]bool, enabled bool) (Step, bool) {
	if emitted[step] {
		return nil, false
	}
	if !enabled {
		return nil, false
	}
	return step, true
}

func networkRuleEnabled(log *Log) bool {
	if _, ok := log.networkCreated(); ok {
		return false
	}
	return !log.networkCreationFailed()
}

func imageRuleEnabled(log *Log, container string) bool {
	if log.networkCreationFailed() {
		return false
	}
	return !log.imageReady(container) && !log.imageFailed(container)
}

func createRuleEnabled(log *Log, c graph.Container, idx map[string]graph.Container) bool {
	if log.containerEverCreated(c.Name) || log.containerCreationFailed(c.Name) {
		return false
	}
	if !log.imageReady(c.Name) {
		return false
	}
	if _, ok := log.networkCreated(); !ok {
		return false
	}
	return depsSatisfied(c, log, idx)
}

// depsSatisfied implements spec.md §4.3's Create-container predicate: every
// dependency is healthy, or merely started if it declares no health check.
func depsSatisfied(c graph.Container, log *Log, idx map[string]graph.Container) bool {
	for _, dep := range c.DependsOn {
		depContainer, ok := idx[dep]
		if !ok {
			return false
		}
		if depContainer.HasHealthCheck() {
			if !log.containerHealthy(dep) {
				return false
			}
		} else if !log.containerStarted(dep) {
			return false
		}
	}
	return true
}

func startRuleEnabled(log *Log, container string) bool {
	if log.containerStarted(container) || log.containerStartFailed(container) {
		return false
	}
	_, ok := log.containerCreated(container)
	return ok
}

func healthRuleEnabled(log *Log, container string) bool {
	if log.healthWaitStarted(container) {
		return false
	}
	return log.containerStarted(container)
}

func runRuleEnabled(task graph.Task, log *Log, idx map[string]graph.Container) bool {
	if _, ok := log.mainExited(); ok {
		return false
	}
	main, ok := idx[task.Main]
	if !ok {
		return false
	}
	if main.HasHealthCheck() {
		if !log.containerHealthy(task.Main) {
			return false
		}
	} else if !log.containerStarted(task.Main) {
		return false
	}
	return depsSatisfied(main, log, idx)
}

// requiredClosure returns the set of container names reachable from root by
// following DependsOn edges, including root itself. Used to scope failure
// propagation: spec.md §9's open question ("does an image failure for an
// unrelated container abort the whole task?") is resolved here by treating
// failure as scoped to the transitive dependency closure of the main
// container — a failure outside that closure never forces cleanup on its
// own.
func requiredClosure(idx map[string]graph.Container, root string) map[string]bool {
	closure := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if closure[name] {
			return
		}
		closure[name] = true
		for _, dep := range idx[name].DependsOn {
			visit(dep)
		}
	}
	visit(root)
	return closure
}

// runningStageFailed decides whether the Running stage has hit a failure
// that it cannot make further progress past — distinct from the main
// container simply exiting (see (*TaskStateMachine).appendAndReact, which
// treats a normal exit and a failure differently when RunOptions.
// BehaviourAfterFailure is DoNotCleanup). spec.md §4.3, §4.6.
func runningStageFailed(task graph.Task, log *Log) bool {
	if log.executionFailed() {
		return true
	}
	if log.userInterrupted() {
		return true
	}
	if log.networkCreationFailed() {
		return true
	}

	idx := task.ByName()
	closure := requiredClosure(idx, task.Main)
	for name := range closure {
		if log.imageFailed(name) {
			return true
		}
		if log.containerCreationFailed(name) {
			return true
		}
		if log.containerStartFailed(name) {
			return true
		}
		if log.containerUnhealthy(name) {
			return true
		}
	}
	return false
}
