package engine

import "fmt"

// Step is one unit of executable work emitted by the rules engine. Steps
// are data only — no executable behaviour travels with them — so the set
// is modeled as a closed sum type rather than left open for extension
// (spec.md §9: "prefer a closed sum type + exhaustive match over virtual
// dispatch"). Every variant is comparable (only strings/ints as fields) so
// the state machine can use Step values directly as de-duplication keys.
type Step interface {
	isStep()
	String() string
}

// BuildImage builds the image for Container from its declared build
// context.
type BuildImage struct{ Container string }

func (BuildImage) isStep()           {}
func (s BuildImage) String() string  { return fmt.Sprintf("BuildImage(container: %q)", s.Container) }

// PullImage pulls the image declared by Container from a registry.
type PullImage struct{ Container string }

func (PullImage) isStep()          {}
func (s PullImage) String() string { return fmt.Sprintf("PullImage(container: %q)", s.Container) }

// CreateTaskNetwork creates the shared network all of the task's
// containers join.
type CreateTaskNetwork struct{}

func (CreateTaskNetwork) isStep()          {}
func (CreateTaskNetwork) String() string   { return "CreateTaskNetwork()" }

// CreateContainer creates (but does not start) Container.
type CreateContainer struct{ Container string }

func (CreateContainer) isStep() {}
func (s CreateContainer) String() string {
	return fmt.Sprintf("CreateContainer(container: %q)", s.Container)
}

// StartContainer starts a previously created Container.
type StartContainer struct{ Container string }

func (StartContainer) isStep() {}
func (s StartContainer) String() string {
	return fmt.Sprintf("StartContainer(container: %q)", s.Container)
}

// WaitForContainerToBecomeHealthy waits until Container's health check
// reports healthy, or gives up per its retry budget.
type WaitForContainerToBecomeHealthy struct{ Container string }

func (WaitForContainerToBecomeHealthy) isStep() {}
func (s WaitForContainerToBecomeHealthy) String() string {
	return fmt.Sprintf("WaitForContainerToBecomeHealthy(container: %q)", s.Container)
}

// RunContainer runs the task's main container to completion, blocking on
// its exit.
type RunContainer struct{ Container string }

func (RunContainer) isStep() {}
func (s RunContainer) String() string {
	return fmt.Sprintf("RunContainer(container: %q)", s.Container)
}

// StopContainer stops a running Container.
type StopContainer struct{ Container string }

func (StopContainer) isStep() {}
func (s StopContainer) String() string {
	return fmt.Sprintf("StopContainer(container: %q)", s.Container)
}

// RemoveContainer removes a stopped Container.
type RemoveContainer struct{ Container string }

func (RemoveContainer) isStep() {}
func (s RemoveContainer) String() string {
	return fmt.Sprintf("RemoveContainer(container: %q)", s.Container)
}

// DeleteTaskNetwork removes the task's shared network.
type DeleteTaskNetwork struct{}

func (DeleteTaskNetwork) isStep()        {}
func (DeleteTaskNetwork) String() string { return "DeleteTaskNetwork()" }
