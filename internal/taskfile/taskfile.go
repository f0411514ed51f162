// Package taskfile loads a task's YAML definition from disk, loads an
// optional .env file into the host environment, and translates each env
// entry into a literal or a {fromHost: VAR} host reference, handing the
// engine a validated graph.Task. Host references are left for the driver to
// look up when it creates the container. It is the task
// graph's only external collaborator: the engine never reads YAML or the
// environment itself.
package taskfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/crucible-run/crucible/internal/graph"
)

// rawEnvEntry lets an env value be either a literal string or a
// {fromHost: VAR_NAME} host reference.
type rawEnvEntry struct {
	Literal string
	HostRef string
}

func (e *rawEnvEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&e.Literal)
	}
	var ref struct {
		FromHost string `yaml:"fromHost"`
	}
	if err := value.Decode(&ref); err != nil {
		return fmt.Errorf("env entry: %w", err)
	}
	e.HostRef = ref.FromHost
	return nil
}

type containerDTO struct {
	Name             string                 `yaml:"name"`
	Image            graph.ImageSource      `yaml:"image"`
	Command          []string               `yaml:"command,omitempty"`
	Env              map[string]rawEnvEntry `yaml:"env,omitempty"`
	WorkingDir       string                 `yaml:"workingDir,omitempty"`
	Volumes          []graph.VolumeMount    `yaml:"volumes,omitempty"`
	Ports            []graph.PortMapping    `yaml:"ports,omitempty"`
	HealthCheck      *graph.HealthCheck     `yaml:"healthCheck,omitempty"`
	RunAsCurrentUser bool                   `yaml:"runAsCurrentUser,omitempty"`
	DependsOn        []string               `yaml:"dependsOn,omitempty"`
}

type taskDTO struct {
	Name               string         `yaml:"name"`
	Main               string         `yaml:"main"`
	Containers         []containerDTO `yaml:"containers"`
	LevelOfParallelism int            `yaml:"levelOfParallelism,omitempty"`
}

// Load reads the YAML task definition at path, loads a sibling .env file
// (if present) into the host environment, translates every container's
// environment into literals and host references, validates the resulting
// graph.Task, and returns it.
func Load(path string) (graph.Task, error) {
	dir := filepath.Dir(path)
	envFile := filepath.Join(dir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return graph.Task{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return graph.Task{}, fmt.Errorf("failed to read task file %s: %w", path, err)
	}

	var dto taskDTO
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return graph.Task{}, fmt.Errorf("failed to parse task file %s: %w", path, err)
	}

	task, err := resolve(dto)
	if err != nil {
		return graph.Task{}, err
	}

	if err := task.Validate(); err != nil {
		return graph.Task{}, fmt.Errorf("invalid task: %w", err)
	}
	return task, nil
}

func resolve(dto taskDTO) (graph.Task, error) {
	containers := make([]graph.Container, 0, len(dto.Containers))
	for _, c := range dto.Containers {
		env := make(map[string]graph.EnvValue, len(c.Env))
		rawEnv := make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			env[k] = graph.EnvValue{Literal: v.Literal, HostRef: v.HostRef}
			if v.HostRef != "" {
				rawEnv[k] = "$" + v.HostRef
			} else {
				rawEnv[k] = v.Literal
			}
		}

		containers = append(containers, graph.Container{
			Name:             c.Name,
			Image:            c.Image,
			Command:          c.Command,
			Env:              env,
			RawEnv:           rawEnv,
			WorkingDir:       c.WorkingDir,
			Volumes:          c.Volumes,
			Ports:            c.Ports,
			HealthCheck:      c.HealthCheck,
			RunAsCurrentUser: c.RunAsCurrentUser,
			DependsOn:        c.DependsOn,
		})
	}

	return graph.Task{
		Name:               dto.Name,
		Main:               dto.Main,
		Containers:         containers,
		LevelOfParallelism: dto.LevelOfParallelism,
	}, nil
}
