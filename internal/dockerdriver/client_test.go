package dockerdriver

import (
	"testing"

	"github.com/crucible-run/crucible/internal/graph"
)

func TestPortBindings(t *testing.T) {
	c := graph.Container{
		Name: "web",
		Ports: []graph.PortMapping{
			{Local: 8080, Container: 80},
			{Local: 9090, Container: 90, Protocol: "udp"},
		},
	}

	bindings, err := portBindings(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bindings) != 2 {
		t.Fatalf("expected 2 port bindings, got %d", len(bindings))
	}
}

func TestPortBindings_InvalidPort(t *testing.T) {
	c := graph.Container{
		Name:  "web",
		Ports: []graph.PortMapping{{Local: 8080, Container: -1}},
	}
	if _, err := portBindings(c); err == nil {
		t.Fatal("expected an error for an invalid container port")
	}
}

func TestBinds(t *testing.T) {
	c := graph.Container{
		Volumes: []graph.VolumeMount{
			{HostPath: "/host/data", ContainerPath: "/data"},
			{HostPath: "/host/ro", ContainerPath: "/ro", Mode: "ro"},
		},
	}

	got := binds(c)
	want := []string{"/host/data:/data:rw", "/host/ro:/ro:ro"}
	if len(got) != len(want) {
		t.Fatalf("expected %d binds, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bind %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestEnvSlice(t *testing.T) {
	t.Setenv("CRUCIBLE_TEST_HOST_VAR", "from-host")
	c := graph.Container{
		Env: map[string]graph.EnvValue{
			"LITERAL": {Literal: "value"},
			"HOSTED":  {HostRef: "CRUCIBLE_TEST_HOST_VAR"},
		},
	}

	got := envSlice(c)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(got), got)
	}

	found := map[string]bool{"LITERAL=value": true, "HOSTED=from-host": true}
	for _, entry := range got {
		if !found[entry] {
			t.Fatalf("unexpected env entry %q", entry)
		}
	}
}

func TestImageTagFor(t *testing.T) {
	c := graph.Container{Name: "web"}
	if got := imageTagFor(c); got != "crucible/web:latest" {
		t.Fatalf("unexpected tag: %q", got)
	}
}
