package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/crucible-run/crucible/internal/graph"
)

type prober interface {
	Check(ctx context.Context, hc graph.HealthCheck, containerID string) Result
}

// Checker blocks until a container's declared health check passes, its
// failure budget is exhausted, or ctx is canceled. Unlike the teacher's
// background Checker, which polls forever on a ticker and fires a callback,
// this is a single synchronous wait because the engine's
// WaitForContainerToBecomeHealthy step is itself one call that either
// succeeds or fails.
type Checker struct {
	http *HTTP
	tcp  *TCP
	exec *Exec
}

func NewChecker(execClient ExecClient, ipClient IPClient) *Checker {
	return &Checker{
		http: NewHTTP(ipClient),
		tcp:  NewTCP(ipClient),
		exec: NewExec(execClient),
	}
}

// Wait polls hc against containerID until MaxRetries consecutive failures
// (after InitialDelay) or a single success, whichever comes first.
func (c *Checker) Wait(ctx context.Context, hc graph.HealthCheck, containerID string) error {
	var p prober
	switch hc.Type {
	case graph.ProbeHTTP:
		p = c.http
	case graph.ProbeTCP:
		p = c.tcp
	case graph.ProbeExec:
		p = c.exec
	default:
		return fmt.Errorf("unknown probe type %q", hc.Type)
	}

	if hc.InitialDelay() > 0 {
		select {
		case <-time.After(hc.InitialDelay()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var lastMessage string
	failures := 0
	ticker := time.NewTicker(hc.Period())
	defer ticker.Stop()

	for {
		result := p.Check(ctx, hc, containerID)
		if result.Success {
			return nil
		}
		lastMessage = result.Message
		failures++
		if failures >= hc.MaxRetries() {
			return fmt.Errorf("gave up after %d attempts: %s", failures, lastMessage)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
