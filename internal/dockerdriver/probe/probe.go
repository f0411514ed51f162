// Package probe implements the three health check mechanisms a container
// can declare: HTTP, TCP, and exec. Adapted from the teacher's
// internal/worker/health package, generalized from a background ticker
// loop to a single blocking wait the engine's WaitForContainerToBecomeHealthy
// step drives.
package probe

import "context"

// Result is the outcome of one probe attempt.
type Result struct {
	Success bool
	Message string
}

// ExecClient runs a command inside a running container and reports its
// exit code and combined output.
type ExecClient interface {
	ExecInContainer(ctx context.Context, containerID string, cmd []string) (exitCode int, output string, err error)
}

// IPClient resolves the IP address a container can be reached at on the
// task network.
type IPClient interface {
	ContainerIP(ctx context.Context, containerID string) (string, error)
}
