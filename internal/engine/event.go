package engine

import "fmt"

// Event is an immutable observation appended to the task's event log. It is
// the sole driver of every state transition in the engine (spec.md §3);
// once appended an event is never mutated or removed. Like Step, Event is
// a closed sum type of comparable structs.
type Event interface {
	isEvent()
	String() string
}

type ImageBuildStarted struct{ Container string }

func (ImageBuildStarted) isEvent() {}
func (e ImageBuildStarted) String() string {
	return fmt.Sprintf("ImageBuildStarted(container: %q)", e.Container)
}

type ImageBuildProgress struct {
	Container    string
	CurrentStep  int
	TotalSteps   int
	Message      string
}

func (ImageBuildProgress) isEvent() {}
func (e ImageBuildProgress) String() string {
	return fmt.Sprintf(
		"ImageBuildProgressEvent(container: %q, current step: %d, total steps: %d, message: %q)",
		e.Container, e.CurrentStep, e.TotalSteps, e.Message,
	)
}

type ImageBuildSucceeded struct{ Container string }

func (ImageBuildSucceeded) isEvent() {}
func (e ImageBuildSucceeded) String() string {
	return fmt.Sprintf("ImageBuildSucceeded(container: %q)", e.Container)
}

type ImageBuildFailed struct {
	Container string
	Reason    string
}

func (ImageBuildFailed) isEvent() {}
func (e ImageBuildFailed) String() string {
	return fmt.Sprintf("ImageBuildFailed(container: %q, reason: %q)", e.Container, e.Reason)
}

type ImagePullStarted struct{ Container string }

func (ImagePullStarted) isEvent() {}
func (e ImagePullStarted) String() string {
	return fmt.Sprintf("ImagePullStarted(container: %q)", e.Container)
}

type ImagePullSucceeded struct{ Container string }

func (ImagePullSucceeded) isEvent() {}
func (e ImagePullSucceeded) String() string {
	return fmt.Sprintf("ImagePullSucceeded(container: %q)", e.Container)
}

type ImagePullFailed struct {
	Container string
	Reason    string
}

func (ImagePullFailed) isEvent() {}
func (e ImagePullFailed) String() string {
	return fmt.Sprintf("ImagePullFailed(container: %q, reason: %q)", e.Container, e.Reason)
}

type TaskNetworkCreated struct{ NetworkID string }

func (TaskNetworkCreated) isEvent() {}
func (e TaskNetworkCreated) String() string {
	return fmt.Sprintf("TaskNetworkCreated(networkId: %q)", e.NetworkID)
}

type TaskNetworkCreationFailed struct{ Reason string }

func (TaskNetworkCreationFailed) isEvent() {}
func (e TaskNetworkCreationFailed) String() string {
	return fmt.Sprintf("TaskNetworkCreationFailed(reason: %q)", e.Reason)
}

type ContainerCreated struct {
	Container   string
	ContainerID string
}

func (ContainerCreated) isEvent() {}
func (e ContainerCreated) String() string {
	return fmt.Sprintf("ContainerCreated(container: %q, containerId: %q)", e.Container, e.ContainerID)
}

type ContainerCreationFailed struct {
	Container string
	Reason    string
}

func (ContainerCreationFailed) isEvent() {}
func (e ContainerCreationFailed) String() string {
	return fmt.Sprintf("ContainerCreationFailed(container: %q, reason: %q)", e.Container, e.Reason)
}

type ContainerStarted struct{ Container string }

func (ContainerStarted) isEvent() {}
func (e ContainerStarted) String() string {
	return fmt.Sprintf("ContainerStarted(container: %q)", e.Container)
}

type ContainerStartFailed struct {
	Container string
	Reason    string
}

func (ContainerStartFailed) isEvent() {}
func (e ContainerStartFailed) String() string {
	return fmt.Sprintf("ContainerStartFailed(container: %q, reason: %q)", e.Container, e.Reason)
}

type ContainerBecameHealthy struct{ Container string }

func (ContainerBecameHealthy) isEvent() {}
func (e ContainerBecameHealthy) String() string {
	return fmt.Sprintf("ContainerBecameHealthy(container: %q)", e.Container)
}

type ContainerDidNotBecomeHealthy struct {
	Container string
	Reason    string
}

func (ContainerDidNotBecomeHealthy) isEvent() {}
func (e ContainerDidNotBecomeHealthy) String() string {
	return fmt.Sprintf("ContainerDidNotBecomeHealthy(container: %q, reason: %q)", e.Container, e.Reason)
}

// RunningContainerExited is posted for the main container only.
type RunningContainerExited struct {
	Container string
	ExitCode  int
}

func (RunningContainerExited) isEvent() {}
func (e RunningContainerExited) String() string {
	return fmt.Sprintf("RunningContainerExited(container: %q, exitCode: %d)", e.Container, e.ExitCode)
}

type ContainerStopped struct{ Container string }

func (ContainerStopped) isEvent() {}
func (e ContainerStopped) String() string {
	return fmt.Sprintf("ContainerStopped(container: %q)", e.Container)
}

type ContainerStopFailed struct {
	Container string
	Reason    string
}

func (ContainerStopFailed) isEvent() {}
func (e ContainerStopFailed) String() string {
	return fmt.Sprintf("ContainerStopFailed(container: %q, reason: %q)", e.Container, e.Reason)
}

type ContainerRemoved struct{ Container string }

func (ContainerRemoved) isEvent() {}
func (e ContainerRemoved) String() string {
	return fmt.Sprintf("ContainerRemoved(container: %q)", e.Container)
}

type ContainerRemovalFailed struct {
	Container string
	Reason    string
}

func (ContainerRemovalFailed) isEvent() {}
func (e ContainerRemovalFailed) String() string {
	return fmt.Sprintf("ContainerRemovalFailed(container: %q, reason: %q)", e.Container, e.Reason)
}

type TaskNetworkDeleted struct{}

func (TaskNetworkDeleted) isEvent()        {}
func (TaskNetworkDeleted) String() string  { return "TaskNetworkDeleted()" }

type TaskNetworkDeletionFailed struct{ Reason string }

func (TaskNetworkDeletionFailed) isEvent() {}
func (e TaskNetworkDeletionFailed) String() string {
	return fmt.Sprintf("TaskNetworkDeletionFailed(reason: %q)", e.Reason)
}

// ExecutionFailedEvent signals a catastrophic failure from any step or the
// dispatcher itself. Posted during the Running stage, it forces a
// Run -> Cleanup transition (Run -> Halted under DoNotCleanup).
type ExecutionFailedEvent struct{ Message string }

func (ExecutionFailedEvent) isEvent() {}
func (e ExecutionFailedEvent) String() string {
	return fmt.Sprintf("ExecutionFailedEvent(message: %q)", e.Message)
}

// UserInterruptedExecution is posted when the caller (e.g. a signal
// handler) asks the task to tear down early.
type UserInterruptedExecution struct{}

func (UserInterruptedExecution) isEvent()       {}
func (UserInterruptedExecution) String() string { return "UserInterruptedExecution()" }
