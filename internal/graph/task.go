package graph

import "fmt"

// Task is a named unit of work: one main container plus the transitive set
// of dependency containers it and they declare.
type Task struct {
	Name string `yaml:"name"`

	// Main is the name of the task's main container. Its exit ends the run.
	Main string `yaml:"main"`

	Containers []Container `yaml:"containers"`

	// LevelOfParallelism is the task's run configuration override: the
	// number of steps that may run at once. Prerequisite tasks are handled at a higher layer
	// (out of scope per spec.md §1) and are not modeled here.
	LevelOfParallelism int `yaml:"levelOfParallelism,omitempty"`
}

// ByName returns a lookup index of the task's containers.
func (t Task) ByName() map[string]Container {
	idx := make(map[string]Container, len(t.Containers))
	for _, c := range t.Containers {
		idx[c.Name] = c
	}
	return idx
}

// MainContainer returns the task's main container.
func (t Task) MainContainer() (Container, error) {
	idx := t.ByName()
	c, ok := idx[t.Main]
	if !ok {
		return Container{}, fmt.Errorf("task %q: main container %q not declared", t.Name, t.Main)
	}
	return c, nil
}

// Validate checks that every dependency name resolves, that the container
// names are unique, and that the dependency graph rooted at the main
// container is a DAG. It is the one gate the core execution engine relies
// on never seeing a cycle (spec.md §9 "Cyclic references").
func (t Task) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("task has no name")
	}
	if t.Main == "" {
		return fmt.Errorf("task %q: no main container declared", t.Name)
	}

	seen := make(map[string]bool, len(t.Containers))
	for _, c := range t.Containers {
		if c.Name == "" {
			return fmt.Errorf("task %q: container with empty name", t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("task %q: duplicate container name %q", t.Name, c.Name)
		}
		seen[c.Name] = true

		if c.Image.BuildContext == "" && c.Image.Image == "" {
			return fmt.Errorf("container %q: must declare either build or image", c.Name)
		}
		if c.Image.BuildContext != "" && c.Image.Image != "" {
			return fmt.Errorf("container %q: declares both build and image", c.Name)
		}

		for _, p := range c.Ports {
			if p.Local < 1 || p.Local > 65535 {
				return fmt.Errorf("container %q: invalid local port %d", c.Name, p.Local)
			}
			if p.Container < 1 || p.Container > 65535 {
				return fmt.Errorf("container %q: invalid container port %d", c.Name, p.Container)
			}
		}
	}

	idx := t.ByName()
	if _, ok := idx[t.Main]; !ok {
		return fmt.Errorf("task %q: main container %q not declared", t.Name, t.Main)
	}

	for _, c := range t.Containers {
		for _, dep := range c.DependsOn {
			if _, ok := idx[dep]; !ok {
				return fmt.Errorf("container %q: depends on undeclared container %q", c.Name, dep)
			}
		}
	}

	return detectCycle(idx)
}

// detectCycle runs a DFS with a coloring scheme (white/gray/black) over the
// dependency edges and reports the first cycle it finds.
func detectCycle(idx map[string]Container) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(idx))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("dependency cycle detected: %v -> %s", path, name)
		}

		color[name] = gray
		for _, dep := range idx[name].DependsOn {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}

	for name := range idx {
		if color[name] == white {
			if err := visit(name, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopologicalLayers groups containers into layers where every container in
// layer N depends only on containers in layers < N. Used by `crucible
// graph` to print the resolved plan; the engine itself never needs layers,
// it discovers readiness purely from the event log (spec.md §9).
func (t Task) TopologicalLayers() ([][]string, error) {
	idx := t.ByName()
	remaining := make(map[string][]string, len(idx))
	for name, c := range idx {
		remaining[name] = append([]string(nil), c.DependsOn...)
	}

	var layers [][]string
	for len(remaining) > 0 {
		var layer []string
		for name, deps := range remaining {
			if len(deps) == 0 {
				layer = append(layer, name)
			}
		}
		if len(layer) == 0 {
			return nil, fmt.Errorf("unresolved dependency cycle among: %v", keysOf(remaining))
		}
		for _, name := range layer {
			delete(remaining, name)
		}
		for name, deps := range remaining {
			remaining[name] = without(deps, layer)
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

func keysOf(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func without(items []string, remove []string) []string {
	out := items[:0:0]
	for _, it := range items {
		drop := false
		for _, r := range remove {
			if it == r {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, it)
		}
	}
	return out
}
