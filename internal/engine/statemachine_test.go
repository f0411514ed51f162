package engine

import (
	"testing"

	"github.com/crucible-run/crucible/internal/graph"
)

func simpleTask() graph.Task {
	return graph.Task{
		Name: "t",
		Main: "main",
		Containers: []graph.Container{
			{Name: "main", Image: graph.ImageSource{Image: "alpine"}},
		},
	}
}

func TestTaskStateMachine_HappyPath(t *testing.T) {
	task := simpleTask()
	sm := NewTaskStateMachine(task, DefaultRunOptions())

	step, ok, _ := sm.PopNextStep()
	if !ok {
		t.Fatal("expected CreateTaskNetwork to be enabled from the start")
	}
	if _, ok := step.(CreateTaskNetwork); !ok {
		t.Fatalf("expected CreateTaskNetwork, got %s", step)
	}

	step, ok, _ = sm.PopNextStep()
	if !ok {
		t.Fatal("expected PullImage to be enabled without waiting for the network")
	}
	if pull, ok := step.(PullImage); !ok || pull.Container != "main" {
		t.Fatalf("expected PullImage(main), got %s", step)
	}

	if _, ok, _ := sm.PopNextStep(); ok {
		t.Fatal("neither the network nor the image is ready yet, nothing else should be enabled")
	}

	sm.PostEvent(TaskNetworkCreated{NetworkID: "net1"})
	sm.PostEvent(ImagePullSucceeded{Container: "main"})

	step, ok, _ = sm.PopNextStep()
	if !ok {
		t.Fatal("expected CreateContainer to be enabled once the image is ready")
	}
	if _, ok := step.(CreateContainer); !ok {
		t.Fatalf("expected CreateContainer, got %s", step)
	}
	sm.PostEvent(ContainerCreated{Container: "main", ContainerID: "c1"})

	step, ok, _ = sm.PopNextStep()
	if !ok {
		t.Fatal("expected StartContainer to be enabled")
	}
	if _, ok := step.(StartContainer); !ok {
		t.Fatalf("expected StartContainer, got %s", step)
	}
	sm.PostEvent(ContainerStarted{Container: "main"})

	foundSyntheticHealthy := false
	for _, e := range sm.Events() {
		if h, ok := e.(ContainerBecameHealthy); ok && h.Container == "main" {
			foundSyntheticHealthy = true
		}
	}
	if !foundSyntheticHealthy {
		t.Fatal("expected a synthetic ContainerBecameHealthy for a container with no health check")
	}

	step, ok, _ = sm.PopNextStep()
	if !ok {
		t.Fatal("expected RunContainer to be enabled once main is healthy")
	}
	if _, ok := step.(RunContainer); !ok {
		t.Fatalf("expected RunContainer, got %s", step)
	}

	sm.PostEvent(RunningContainerExited{Container: "main", ExitCode: 0})

	if sm.CurrentStage() != CleaningUp {
		t.Fatal("expected stage to move to CleaningUp once main exits")
	}

	step, ok, _ = sm.PopNextStep()
	if !ok {
		t.Fatal("expected StopContainer during cleanup")
	}
	if _, ok := step.(StopContainer); !ok {
		t.Fatalf("expected StopContainer, got %s", step)
	}
	sm.PostEvent(ContainerStopped{Container: "main"})

	step, ok, _ = sm.PopNextStep()
	if !ok {
		t.Fatal("expected RemoveContainer during cleanup")
	}
	if _, ok := step.(RemoveContainer); !ok {
		t.Fatalf("expected RemoveContainer, got %s", step)
	}
	sm.PostEvent(ContainerRemoved{Container: "main"})

	step, ok, _ = sm.PopNextStep()
	if !ok {
		t.Fatal("expected DeleteTaskNetwork once every container is settled")
	}
	if _, ok := step.(DeleteTaskNetwork); !ok {
		t.Fatalf("expected DeleteTaskNetwork, got %s", step)
	}

	if sm.IsFinished() {
		t.Fatal("task should not be finished before the network is actually deleted")
	}
	sm.PostEvent(TaskNetworkDeleted{})

	if !sm.IsFinished() {
		t.Fatal("expected task to be finished")
	}

	status := sm.ExitStatus()
	if !status.Ran || status.ExitCode != 0 {
		t.Fatalf("unexpected exit status: %+v", status)
	}
}

func TestTaskStateMachine_StepNeverEmittedTwice(t *testing.T) {
	task := simpleTask()
	sm := NewTaskStateMachine(task, DefaultRunOptions())

	step, ok, _ := sm.PopNextStep()
	if !ok {
		t.Fatal("expected a first step")
	}
	seen := map[Step]bool{step: true}

	for i := 0; i < 100; i++ {
		if s, ok, _ := sm.PopNextStep(); ok {
			if seen[s] {
				t.Fatalf("step %s emitted twice", s)
			}
			seen[s] = true
		}
	}
}

func TestTaskStateMachine_ImageFailureForcesCleanup(t *testing.T) {
	task := simpleTask()
	sm := NewTaskStateMachine(task, DefaultRunOptions())

	if _, ok, _ := sm.PopNextStep(); !ok {
		t.Fatal("expected CreateTaskNetwork")
	}
	sm.PostEvent(TaskNetworkCreated{NetworkID: "net1"})

	if _, ok, _ := sm.PopNextStep(); !ok {
		t.Fatal("expected PullImage")
	}
	sm.PostEvent(ImagePullFailed{Container: "main", Reason: "no such image"})

	if sm.CurrentStage() != CleaningUp {
		t.Fatal("a failed image for the main container must force cleanup")
	}

	status := sm.ExitStatus()
	if status.Ran {
		t.Fatal("task should not report Ran when the main image never came up")
	}
}

func TestTaskStateMachine_CleanupFailureAfterSuccessIsNotASuccess(t *testing.T) {
	task := simpleTask()
	sm := NewTaskStateMachine(task, DefaultRunOptions())

	sm.PostEvent(TaskNetworkCreated{NetworkID: "net1"})
	sm.PostEvent(ImagePullSucceeded{Container: "main"})
	sm.PostEvent(ContainerCreated{Container: "main", ContainerID: "c1"})
	sm.PostEvent(ContainerStarted{Container: "main"})
	sm.PostEvent(RunningContainerExited{Container: "main", ExitCode: 0})
	sm.PostEvent(ContainerStopped{Container: "main"})
	sm.PostEvent(ContainerRemovalFailed{Container: "main", Reason: "container busy"})

	status := sm.ExitStatus()
	if status.Ran {
		t.Fatal("a removal failure during cleanup must not be reported as a successful run")
	}
	if status.Reason == "" {
		t.Fatal("expected a reason naming the resource cleanup left behind")
	}
}

func TestTaskStateMachine_DoNotCleanupHaltsInsteadOfTearingDown(t *testing.T) {
	task := simpleTask()
	opts := DefaultRunOptions()
	opts.BehaviourAfterFailure = DoNotCleanup
	sm := NewTaskStateMachine(task, opts)

	sm.PostEvent(TaskNetworkCreated{NetworkID: "net1"})
	sm.PostEvent(ImagePullSucceeded{Container: "main"})
	sm.PostEvent(ContainerCreated{Container: "main", ContainerID: "c1"})
	sm.PostEvent(ContainerStartFailed{Container: "main", Reason: "boom"})

	if sm.CurrentStage() != Halted {
		t.Fatalf("expected Halted stage with BehaviourAfterFailure=DoNotCleanup, got %s", sm.CurrentStage())
	}
	if !sm.IsFinished() {
		t.Fatal("a halted task has nothing left to do and should report finished")
	}
	if _, ok, _ := sm.PopNextStep(); ok {
		t.Fatal("no step should ever be enabled once halted, cleanup must not run")
	}

	status := sm.ExitStatus()
	if status.Ran {
		t.Fatal("a halted task never ran its main container to completion")
	}
}

func TestTaskStateMachine_UnrelatedImageFailureDoesNotAbortTask(t *testing.T) {
	task := graph.Task{
		Name: "t",
		Main: "main",
		Containers: []graph.Container{
			{Name: "main", Image: graph.ImageSource{Image: "alpine"}},
			{Name: "sidecar", Image: graph.ImageSource{Image: "busybox"}},
		},
	}
	sm := NewTaskStateMachine(task, DefaultRunOptions())

	sm.PostEvent(TaskNetworkCreated{NetworkID: "net1"})
	sm.PostEvent(ImagePullFailed{Container: "sidecar", Reason: "boom"})

	if sm.CurrentStage() == CleaningUp {
		t.Fatal("a sidecar the main container doesn't depend on should not force cleanup")
	}
}
