// Package graph holds the task graph data model: container nodes, their
// dependency edges, health checks, and the DAG validation that runs before
// the engine ever sees a task.
package graph

import "time"

// ImageSource is either a buildable directory or a pullable registry image.
// Exactly one of the two fields is set.
type ImageSource struct {
	// BuildContext is a directory containing a Dockerfile. When set, the
	// container's image is produced by BuildImage rather than PullImage.
	BuildContext string `yaml:"build,omitempty"`

	// Dockerfile is the Dockerfile path relative to BuildContext. Defaults
	// to "Dockerfile" when BuildContext is set and this is empty.
	Dockerfile string `yaml:"dockerfile,omitempty"`

	// Image is a pullable image reference (e.g. "postgres:16").
	Image string `yaml:"image,omitempty"`
}

// IsBuild reports whether this source must be built rather than pulled.
func (s ImageSource) IsBuild() bool {
	return s.BuildContext != ""
}

// Ref returns the build context for build sources, the image reference
// otherwise. Image events in the engine are keyed on the container name,
// not on Ref.
func (s ImageSource) Ref() string {
	if s.IsBuild() {
		return s.BuildContext
	}
	return s.Image
}

// EnvValue is a container environment entry. Literal values are used
// as-is; a HostRef value names a host environment variable and stays
// unresolved in the graph. The container-engine driver looks it up in the
// process environment (which internal/taskfile may have populated from an
// optional .env file) when it creates the container.
type EnvValue struct {
	Literal string
	HostRef string
}

// PortMapping exposes a container port on the host. Both ports are in
// 1..65535; Protocol defaults to "tcp".
type PortMapping struct {
	Local     int    `yaml:"local"`
	Container int     `yaml:"container"`
	Protocol  string `yaml:"protocol,omitempty"`
}

// VolumeMount binds a host path into the container.
type VolumeMount struct {
	HostPath      string `yaml:"host"`
	ContainerPath string `yaml:"container"`
	Mode          string `yaml:"mode,omitempty"` // "ro", "rw"; default "rw"
}

// ProbeType is the kind of health check.
type ProbeType string

const (
	ProbeHTTP ProbeType = "http"
	ProbeTCP  ProbeType = "tcp"
	ProbeExec ProbeType = "exec"
)

// HealthCheck declares how to decide a container is ready to be depended on.
type HealthCheck struct {
	Type     ProbeType `yaml:"type"`
	HTTPPath string    `yaml:"httpPath,omitempty"`
	Port     int       `yaml:"port,omitempty"`
	Command  []string  `yaml:"command,omitempty"`

	Interval     int `yaml:"intervalSeconds,omitempty"`
	Retries      int `yaml:"retries,omitempty"`
	StartPeriod  int `yaml:"startPeriodSeconds,omitempty"`
	TimeoutSecs  int `yaml:"timeoutSeconds,omitempty"`
}

// Period returns the interval between probe attempts, defaulting to 5s.
func (h HealthCheck) Period() time.Duration {
	if h.Interval <= 0 {
		return 5 * time.Second
	}
	return time.Duration(h.Interval) * time.Second
}

// Timeout returns how long a single probe attempt may take, defaulting to
// 3s.
func (h HealthCheck) Timeout() time.Duration {
	if h.TimeoutSecs <= 0 {
		return 3 * time.Second
	}
	return time.Duration(h.TimeoutSecs) * time.Second
}

// InitialDelay returns how long to wait before the first probe attempt.
func (h HealthCheck) InitialDelay() time.Duration {
	return time.Duration(h.StartPeriod) * time.Second
}

// MaxRetries returns the number of consecutive probe failures tolerated
// before the container is declared unhealthy, defaulting to 3.
func (h HealthCheck) MaxRetries() int {
	if h.Retries <= 0 {
		return 3
	}
	return h.Retries
}

// Container is one node of the task graph: a unique name, an image source,
// an optional command, environment, mounts, ports, health check, and the
// names of the containers it depends on.
type Container struct {
	Name string `yaml:"name"`

	Image ImageSource `yaml:"image"`

	Command []string            `yaml:"command,omitempty"`
	Env     map[string]EnvValue `yaml:"-"`
	RawEnv  map[string]string   `yaml:"env,omitempty"`

	WorkingDir string        `yaml:"workingDir,omitempty"`
	Volumes    []VolumeMount `yaml:"volumes,omitempty"`
	Ports      []PortMapping `yaml:"ports,omitempty"`

	HealthCheck *HealthCheck `yaml:"healthCheck,omitempty"`

	RunAsCurrentUser bool `yaml:"runAsCurrentUser,omitempty"`

	// DependsOn names other containers in the same task that must be
	// healthy (or started, if they declare no health check) before this
	// one may be created.
	DependsOn []string `yaml:"dependsOn,omitempty"`
}

// HasHealthCheck reports whether c declares a health check.
func (c Container) HasHealthCheck() bool {
	return c.HealthCheck != nil
}
