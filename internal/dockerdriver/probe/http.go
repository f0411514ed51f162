package probe

import (
	"context"
	"fmt"
	"net/http"

	"github.com/crucible-run/crucible/internal/graph"
)

// HTTP performs an HTTP GET health check against a container's IP.
type HTTP struct {
	client *http.Client
	ip     IPClient
}

func NewHTTP(ip IPClient) *HTTP {
	return &HTTP{client: &http.Client{}, ip: ip}
}

func (p *HTTP) Check(ctx context.Context, hc graph.HealthCheck, containerID string) Result {
	if hc.Port <= 0 {
		return Result{Message: "invalid port configuration"}
	}
	if hc.HTTPPath == "" {
		return Result{Message: "HTTP path not configured"}
	}

	ip, err := p.ip.ContainerIP(ctx, containerID)
	if err != nil {
		return Result{Message: fmt.Sprintf("failed to get container IP: %v", err)}
	}

	reqCtx, cancel := context.WithTimeout(ctx, hc.Timeout())
	defer cancel()

	url := fmt.Sprintf("http://%s:%d%s", ip, hc.Port, hc.HTTPPath)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Message: fmt.Sprintf("failed to create request: %v", err)}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return Result{Success: true, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	return Result{Message: fmt.Sprintf("HTTP %d (unhealthy)", resp.StatusCode)}
}
