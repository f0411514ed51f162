package engine

import (
	"context"
	"fmt"
)

// run dispatches a single Step against driver, posting events to sm as it
// goes. Once the driver call is made it posts exactly one terminal event for
// the step (success or failure); image builds and pulls post a Started event
// first and any number of progress events before the terminal one, the other
// steps post only the terminal event. When it returns an error (a missing
// container, network, or unknown step) it has posted nothing, and the
// executor reports the error as an ExecutionFailedEvent.
func run(ctx context.Context, sm *TaskStateMachine, driver Driver, step Step) error {
	switch s := step.(type) {
	case BuildImage:
		return runBuildImage(ctx, sm, driver, s)
	case PullImage:
		return runPullImage(ctx, sm, driver, s)
	case CreateTaskNetwork:
		return runCreateTaskNetwork(ctx, sm, driver)
	case CreateContainer:
		return runCreateContainer(ctx, sm, driver, s)
	case StartContainer:
		return runStartContainer(ctx, sm, driver, s)
	case WaitForContainerToBecomeHealthy:
		return runWaitForHealthy(ctx, sm, driver, s)
	case RunContainer:
		return runRunContainer(ctx, sm, driver, s)
	case StopContainer:
		return runStopContainer(ctx, sm, driver, s)
	case RemoveContainer:
		return runRemoveContainer(ctx, sm, driver, s)
	case DeleteTaskNetwork:
		return runDeleteTaskNetwork(ctx, sm, driver)
	default:
		return fmt.Errorf("engine: unrecognized step %T", step)
	}
}

func runBuildImage(ctx context.Context, sm *TaskStateMachine, driver Driver, s BuildImage) error {
	c, ok := sm.Container(s.Container)
	if !ok {
		return fmt.Errorf("container %q not declared", s.Container)
	}
	sm.PostEvent(ImageBuildStarted{Container: s.Container})
	err := driver.BuildImage(ctx, c, func(p BuildProgress) {
		sm.PostEvent(ImageBuildProgress{
			Container: s.Container, CurrentStep: p.CurrentStep, TotalSteps: p.TotalSteps, Message: p.Message,
		})
	})
	if err != nil {
		sm.PostEvent(ImageBuildFailed{Container: s.Container, Reason: err.Error()})
		return nil
	}
	sm.PostEvent(ImageBuildSucceeded{Container: s.Container})
	return nil
}

func runPullImage(ctx context.Context, sm *TaskStateMachine, driver Driver, s PullImage) error {
	c, ok := sm.Container(s.Container)
	if !ok {
		return fmt.Errorf("container %q not declared", s.Container)
	}
	sm.PostEvent(ImagePullStarted{Container: s.Container})
	err := driver.PullImage(ctx, c, func(p BuildProgress) {
		sm.PostEvent(ImageBuildProgress{
			Container: s.Container, CurrentStep: p.CurrentStep, TotalSteps: p.TotalSteps, Message: p.Message,
		})
	})
	if err != nil {
		sm.PostEvent(ImagePullFailed{Container: s.Container, Reason: err.Error()})
		return nil
	}
	sm.PostEvent(ImagePullSucceeded{Container: s.Container})
	return nil
}

func runCreateTaskNetwork(ctx context.Context, sm *TaskStateMachine, driver Driver) error {
	id, err := driver.CreateNetwork(ctx, networkNameFor(sm))
	if err != nil {
		sm.PostEvent(TaskNetworkCreationFailed{Reason: err.Error()})
		return nil
	}
	sm.PostEvent(TaskNetworkCreated{NetworkID: id})
	return nil
}

func networkNameFor(sm *TaskStateMachine) string {
	return "crucible-" + sm.task.Name
}

func runCreateContainer(ctx context.Context, sm *TaskStateMachine, driver Driver, s CreateContainer) error {
	c, ok := sm.Container(s.Container)
	if !ok {
		return fmt.Errorf("container %q not declared", s.Container)
	}
	networkID, ok := sm.NetworkID()
	if !ok {
		return fmt.Errorf("container %q: task network not ready", s.Container)
	}
	if s.Container == sm.task.Main {
		if extra := sm.Options().AdditionalCommandArgs; len(extra) > 0 {
			c.Command = append(append([]string(nil), c.Command...), extra...)
		}
	}
	id, err := driver.CreateContainer(ctx, c, networkID)
	if err != nil {
		sm.PostEvent(ContainerCreationFailed{Container: s.Container, Reason: err.Error()})
		return nil
	}
	sm.PostEvent(ContainerCreated{Container: s.Container, ContainerID: id})
	return nil
}

func runStartContainer(ctx context.Context, sm *TaskStateMachine, driver Driver, s StartContainer) error {
	id, ok := sm.ContainerID(s.Container)
	if !ok {
		return fmt.Errorf("container %q: not yet created", s.Container)
	}
	if err := driver.StartContainer(ctx, id); err != nil {
		sm.PostEvent(ContainerStartFailed{Container: s.Container, Reason: err.Error()})
		return nil
	}
	sm.PostEvent(ContainerStarted{Container: s.Container})
	return nil
}

func runWaitForHealthy(ctx context.Context, sm *TaskStateMachine, driver Driver, s WaitForContainerToBecomeHealthy) error {
	c, ok := sm.Container(s.Container)
	if !ok {
		return fmt.Errorf("container %q not declared", s.Container)
	}
	id, ok := sm.ContainerID(s.Container)
	if !ok {
		return fmt.Errorf("container %q: not yet created", s.Container)
	}
	if err := driver.WaitForHealthy(ctx, id, c); err != nil {
		sm.PostEvent(ContainerDidNotBecomeHealthy{Container: s.Container, Reason: err.Error()})
		return nil
	}
	sm.PostEvent(ContainerBecameHealthy{Container: s.Container})
	return nil
}

func runRunContainer(ctx context.Context, sm *TaskStateMachine, driver Driver, s RunContainer) error {
	id, ok := sm.ContainerID(s.Container)
	if !ok {
		return fmt.Errorf("container %q: not yet created", s.Container)
	}
	code, err := driver.RunToCompletion(ctx, id)
	if err != nil {
		sm.PostEvent(ExecutionFailedEvent{Message: fmt.Sprintf("running main container %q: %s", s.Container, err)})
		return nil
	}
	sm.PostEvent(RunningContainerExited{Container: s.Container, ExitCode: code})
	return nil
}

func runStopContainer(ctx context.Context, sm *TaskStateMachine, driver Driver, s StopContainer) error {
	id, ok := sm.ContainerID(s.Container)
	if !ok {
		return fmt.Errorf("container %q: not yet created", s.Container)
	}
	if err := driver.StopContainer(ctx, id); err != nil {
		sm.PostEvent(ContainerStopFailed{Container: s.Container, Reason: err.Error()})
		return nil
	}
	sm.PostEvent(ContainerStopped{Container: s.Container})
	return nil
}

func runRemoveContainer(ctx context.Context, sm *TaskStateMachine, driver Driver, s RemoveContainer) error {
	id, ok := sm.ContainerID(s.Container)
	if !ok {
		return fmt.Errorf("container %q: not yet created", s.Container)
	}
	if err := driver.RemoveContainer(ctx, id); err != nil {
		sm.PostEvent(ContainerRemovalFailed{Container: s.Container, Reason: err.Error()})
		return nil
	}
	sm.PostEvent(ContainerRemoved{Container: s.Container})
	return nil
}

func runDeleteTaskNetwork(ctx context.Context, sm *TaskStateMachine, driver Driver) error {
	networkID, ok := sm.NetworkID()
	if !ok {
		return fmt.Errorf("task network was never created")
	}
	if err := driver.DeleteNetwork(ctx, networkID); err != nil {
		sm.PostEvent(TaskNetworkDeletionFailed{Reason: err.Error()})
		return nil
	}
	sm.PostEvent(TaskNetworkDeleted{})
	return nil
}
