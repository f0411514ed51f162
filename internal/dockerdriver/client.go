// Package dockerdriver is the production implementation of engine.Driver,
// built on the Docker SDK. It extends the teacher's worker/docker client
// with image builds, task networks, port/volume wiring, and health waits;
// everything else (pull, create, start, stop, remove) keeps the teacher's
// shape almost unchanged.
package dockerdriver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/go-connections/nat"
	units "github.com/docker/go-units"

	"github.com/crucible-run/crucible/internal/dockerdriver/probe"
	"github.com/crucible-run/crucible/internal/engine"
	"github.com/crucible-run/crucible/internal/graph"
)

// Client wraps Docker SDK functionality for building, networking, and
// running the containers of a single task.
type Client struct {
	cli     *client.Client
	checker *probe.Checker
}

// New creates a new Docker client, negotiating the API version the way the
// teacher's worker does.
func New() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	c := &Client{cli: cli}
	c.checker = probe.NewChecker(c, c)
	return c, nil
}

// Close closes the Docker client connection.
func (c *Client) Close() error {
	if c.cli != nil {
		return c.cli.Close()
	}
	return nil
}

var _ engine.Driver = (*Client)(nil)

// BuildImage builds c's Dockerfile-based image, streaming each JSON build
// message back through onProgress.
func (c *Client) BuildImage(ctx context.Context, cont graph.Container, onProgress func(engine.BuildProgress)) error {
	dockerfile := cont.Image.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}

	buildCtx, err := archive.TarWithOptions(cont.Image.BuildContext, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("failed to tar build context %s: %w", cont.Image.BuildContext, err)
	}
	defer buildCtx.Close()

	resp, err := c.cli.ImageBuild(ctx, buildCtx, buildOptions(cont, dockerfile))
	if err != nil {
		return fmt.Errorf("failed to build image for %s: %w", cont.Name, err)
	}
	defer resp.Body.Close()

	return streamBuildMessages(resp.Body, onProgress)
}

func buildOptions(cont graph.Container, dockerfile string) types.ImageBuildOptions {
	return types.ImageBuildOptions{
		Dockerfile: dockerfile,
		Tags:       []string{imageTagFor(cont)},
		Remove:     true,
	}
}

func imageTagFor(cont graph.Container) string {
	return "crucible/" + cont.Name + ":latest"
}

type buildMessage struct {
	Stream      string `json:"stream"`
	ErrorDetail *struct {
		Message string `json:"message"`
	} `json:"errorDetail"`
	Error string `json:"error"`
}

func streamBuildMessages(r io.Reader, onProgress func(engine.BuildProgress)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	step := 0
	for scanner.Scan() {
		var msg buildMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		if msg.Error != "" {
			return fmt.Errorf("build failed: %s", msg.Error)
		}
		if msg.ErrorDetail != nil {
			return fmt.Errorf("build failed: %s", msg.ErrorDetail.Message)
		}
		if msg.Stream != "" {
			step++
			if onProgress != nil {
				onProgress(engine.BuildProgress{CurrentStep: step, Message: msg.Stream})
			}
		}
	}
	return scanner.Err()
}

// PullImage pulls cont's registry image, reporting each JSON progress line.
func (c *Client) PullImage(ctx context.Context, cont graph.Container, onProgress func(engine.BuildProgress)) error {
	reader, err := c.cli.ImagePull(ctx, cont.Image.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", cont.Image.Image, err)
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		var msg struct {
			Status         string `json:"status"`
			Progress       string `json:"progress"`
			ProgressDetail struct {
				Current int64 `json:"current"`
				Total   int64 `json:"total"`
			} `json:"progressDetail"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		if onProgress == nil || msg.Status == "" {
			continue
		}
		message := msg.Status
		if msg.ProgressDetail.Total > 0 {
			message = fmt.Sprintf("%s (%s/%s)", msg.Status,
				units.BytesSize(float64(msg.ProgressDetail.Current)),
				units.BytesSize(float64(msg.ProgressDetail.Total)))
		}
		onProgress(engine.BuildProgress{Message: message})
	}
	return scanner.Err()
}

// CreateNetwork creates the shared network all of a task's containers join.
func (c *Client) CreateNetwork(ctx context.Context, name string) (string, error) {
	resp, err := c.cli.NetworkCreate(ctx, name, network.CreateOptions{Driver: "bridge"})
	if err != nil {
		return "", fmt.Errorf("failed to create network %s: %w", name, err)
	}
	return resp.ID, nil
}

// DeleteNetwork removes the task's shared network.
func (c *Client) DeleteNetwork(ctx context.Context, networkID string) error {
	if err := c.cli.NetworkRemove(ctx, networkID); err != nil {
		return fmt.Errorf("failed to remove network %s: %w", networkID, err)
	}
	return nil
}

// CreateContainer creates (but does not start) cont, joined to networkID,
// with its declared ports, volumes, working directory, and user wired in.
func (c *Client) CreateContainer(ctx context.Context, cont graph.Container, networkID string) (string, error) {
	ref := cont.Image.Ref()
	if cont.Image.IsBuild() {
		ref = imageTagFor(cont)
	}

	config := &container.Config{
		Image:        ref,
		Cmd:          cont.Command,
		Env:          envSlice(cont),
		WorkingDir:   cont.WorkingDir,
		ExposedPorts: exposedPorts(cont),
	}
	if cont.RunAsCurrentUser {
		config.User = fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())
	}

	portBindings, err := portBindings(cont)
	if err != nil {
		return "", fmt.Errorf("container %s: %w", cont.Name, err)
	}

	hostConfig := &container.HostConfig{
		Binds:        binds(cont),
		PortBindings: portBindings,
	}

	networkConfig := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			networkID: {},
		},
	}

	resp, err := c.cli.ContainerCreate(ctx, config, hostConfig, networkConfig, nil, containerNameFor(cont))
	if err != nil {
		return "", fmt.Errorf("failed to create container %s: %w", cont.Name, err)
	}
	return resp.ID, nil
}

func containerNameFor(cont graph.Container) string {
	return "crucible-" + cont.Name
}

func envSlice(cont graph.Container) []string {
	out := make([]string, 0, len(cont.Env))
	for k, v := range cont.Env {
		value := v.Literal
		if v.HostRef != "" {
			value = os.Getenv(v.HostRef)
		}
		out = append(out, k+"="+value)
	}
	return out
}

func exposedPorts(cont graph.Container) nat.PortSet {
	set := make(nat.PortSet, len(cont.Ports))
	for _, p := range cont.Ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		port, err := nat.NewPort(proto, strconv.Itoa(p.Container))
		if err != nil {
			continue
		}
		set[port] = struct{}{}
	}
	return set
}

func portBindings(cont graph.Container) (nat.PortMap, error) {
	bindings := make(nat.PortMap, len(cont.Ports))
	for _, p := range cont.Ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		port, err := nat.NewPort(proto, strconv.Itoa(p.Container))
		if err != nil {
			return nil, fmt.Errorf("invalid port %d/%s: %w", p.Container, proto, err)
		}
		bindings[port] = []nat.PortBinding{{HostPort: strconv.Itoa(p.Local)}}
	}
	return bindings, nil
}

func binds(cont graph.Container) []string {
	out := make([]string, 0, len(cont.Volumes))
	for _, v := range cont.Volumes {
		mode := v.Mode
		if mode == "" {
			mode = "rw"
		}
		out = append(out, fmt.Sprintf("%s:%s:%s", v.HostPath, v.ContainerPath, mode))
	}
	return out
}

// StartContainer starts a previously created container.
func (c *Client) StartContainer(ctx context.Context, containerID string) error {
	if err := c.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container %s: %w", containerID, err)
	}
	return nil
}

// WaitForHealthy blocks until cont's declared health check passes.
func (c *Client) WaitForHealthy(ctx context.Context, containerID string, cont graph.Container) error {
	if !cont.HasHealthCheck() {
		return nil
	}
	return c.checker.Wait(ctx, *cont.HealthCheck, containerID)
}

// RunToCompletion blocks until the container exits and returns its code.
func (c *Client) RunToCompletion(ctx context.Context, containerID string) (int, error) {
	statusCh, errCh := c.cli.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return -1, fmt.Errorf("error waiting for container %s: %w", containerID, err)
		}
		return 0, nil
	case status := <-statusCh:
		return int(status.StatusCode), nil
	}
}

// StopContainer stops a running container.
func (c *Client) StopContainer(ctx context.Context, containerID string) error {
	timeout := 10
	if err := c.cli.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", containerID, err)
	}
	return nil
}

// RemoveContainer removes a container.
func (c *Client) RemoveContainer(ctx context.Context, containerID string) error {
	if err := c.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", containerID, err)
	}
	return nil
}

// ContainerIP satisfies probe.IPClient, mirroring the teacher's
// GetContainerIP.
func (c *Client) ContainerIP(ctx context.Context, containerID string) (string, error) {
	inspect, err := c.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return "", fmt.Errorf("failed to inspect container %s: %w", containerID, err)
	}
	if inspect.NetworkSettings != nil {
		for _, net := range inspect.NetworkSettings.Networks {
			if net.IPAddress != "" {
				return net.IPAddress, nil
			}
		}
	}
	return "", fmt.Errorf("no IP address found for container %s", containerID)
}

// ExecInContainer satisfies probe.ExecClient, mirroring the teacher's
// ExecInContainer.
func (c *Client) ExecInContainer(ctx context.Context, containerID string, cmd []string) (int, string, error) {
	execConfig := container.ExecOptions{AttachStdout: true, AttachStderr: true, Cmd: cmd}

	execID, err := c.cli.ContainerExecCreate(ctx, containerID, execConfig)
	if err != nil {
		return -1, "", fmt.Errorf("failed to create exec: %w", err)
	}

	resp, err := c.cli.ContainerExecAttach(ctx, execID.ID, container.ExecStartOptions{})
	if err != nil {
		return -1, "", fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer resp.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Reader); err != nil {
		return -1, "", fmt.Errorf("failed to read exec output: %w", err)
	}

	inspectResp, err := c.cli.ContainerExecInspect(ctx, execID.ID)
	if err != nil {
		return -1, buf.String(), fmt.Errorf("failed to inspect exec: %w", err)
	}

	return inspectResp.ExitCode, buf.String(), nil
}
