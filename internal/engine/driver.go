package engine

import (
	"context"

	"github.com/crucible-run/crucible/internal/graph"
)

// BuildProgress is delivered for each line of build output a Driver wants
// surfaced as an ImageBuildProgress event.
type BuildProgress struct {
	CurrentStep int
	TotalSteps  int
	Message     string
}

// Driver is the container-engine contract the runner dispatches every Step
// against. internal/dockerdriver is the only production implementation;
// tests use an in-memory fake. Every method blocks until its operation
// reaches a terminal outcome and reports progress, if any, through the
// supplied callback rather than a channel, matching the synchronous style
// of the teacher's worker/docker client.
type Driver interface {
	BuildImage(ctx context.Context, c graph.Container, onProgress func(BuildProgress)) error
	PullImage(ctx context.Context, c graph.Container, onProgress func(BuildProgress)) error

	CreateNetwork(ctx context.Context, name string) (networkID string, err error)
	DeleteNetwork(ctx context.Context, networkID string) error

	CreateContainer(ctx context.Context, c graph.Container, networkID string) (containerID string, err error)
	StartContainer(ctx context.Context, containerID string) error

	// WaitForHealthy blocks until c's declared health check passes, its
	// retry budget is exhausted, or ctx is canceled.
	WaitForHealthy(ctx context.Context, containerID string, c graph.Container) error

	// RunToCompletion blocks until the container exits and returns its exit
	// code. Used only for the task's main container.
	RunToCompletion(ctx context.Context, containerID string) (exitCode int, err error)

	StopContainer(ctx context.Context, containerID string) error
	RemoveContainer(ctx context.Context, containerID string) error
}
