package probe

import (
	"context"
	"fmt"

	"github.com/crucible-run/crucible/internal/graph"
)

// Exec runs the declared command inside the container and treats a zero
// exit code as healthy.
type Exec struct {
	exec ExecClient
}

func NewExec(exec ExecClient) *Exec {
	return &Exec{exec: exec}
}

func (p *Exec) Check(ctx context.Context, hc graph.HealthCheck, containerID string) Result {
	if len(hc.Command) == 0 {
		return Result{Message: "no command configured"}
	}

	execCtx, cancel := context.WithTimeout(ctx, hc.Timeout())
	defer cancel()

	exitCode, output, err := p.exec.ExecInContainer(execCtx, containerID, hc.Command)
	if err != nil {
		return Result{Message: fmt.Sprintf("exec failed: %v", err)}
	}

	if exitCode == 0 {
		if output != "" {
			return Result{Success: true, Message: fmt.Sprintf("command succeeded: %s", output)}
		}
		return Result{Success: true, Message: "command succeeded"}
	}
	if output != "" {
		return Result{Message: fmt.Sprintf("command failed (exit %d): %s", exitCode, output)}
	}
	return Result{Message: fmt.Sprintf("command failed with exit code %d", exitCode)}
}
