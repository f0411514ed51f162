package probe

import (
	"context"
	"fmt"
	"net"

	"github.com/crucible-run/crucible/internal/graph"
)

// TCP performs a plain TCP dial health check against a container's IP.
type TCP struct {
	ip IPClient
}

func NewTCP(ip IPClient) *TCP {
	return &TCP{ip: ip}
}

func (p *TCP) Check(ctx context.Context, hc graph.HealthCheck, containerID string) Result {
	if hc.Port <= 0 {
		return Result{Message: "invalid port configuration"}
	}

	ip, err := p.ip.ContainerIP(ctx, containerID)
	if err != nil {
		return Result{Message: fmt.Sprintf("failed to get container IP: %v", err)}
	}

	dialCtx, cancel := context.WithTimeout(ctx, hc.Timeout())
	defer cancel()

	addr := fmt.Sprintf("%s:%d", ip, hc.Port)
	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return Result{Message: fmt.Sprintf("connection failed: %v", err)}
	}
	_ = conn.Close()

	return Result{Success: true, Message: "TCP connection successful"}
}
