package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Executor is the bounded-parallelism worker pool that drains the state
// machine's rules until the task finishes. It never decides what to run —
// that is entirely the rules' job — it only bounds how many steps run at
// once and dispatches each to the step runner (spec.md §5, "Parallel
// Execution Manager").
type Executor struct {
	sm          *TaskStateMachine
	driver      Driver
	parallelism int
}

// NewExecutor builds an Executor. parallelism <= 0 is treated as 1.
func NewExecutor(sm *TaskStateMachine, driver Driver, parallelism int) *Executor {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Executor{sm: sm, driver: driver, parallelism: parallelism}
}

// Run drives the task to completion: it repeatedly pops the next enabled
// step, dispatches it to a worker (blocking only once parallelism workers
// are already busy), and waits for events between polls rather than
// busy-spinning. It returns once the state machine reports finished and no
// worker is still in flight (invariant P3).
func (x *Executor) Run(ctx context.Context) TaskExitStatus {
	sem := make(chan struct{}, x.parallelism)
	var wg sync.WaitGroup
	var inFlight int32

	for {
		if x.sm.IsFinished() && atomic.LoadInt32(&inFlight) == 0 {
			break
		}

		step, ok, gen := x.sm.PopNextStep()
		if !ok {
			if x.sm.IsFinished() && atomic.LoadInt32(&inFlight) == 0 {
				break
			}
			if ctx.Err() != nil {
				x.sm.PostEvent(UserInterruptedExecution{})
				continue
			}
			x.sm.WaitForChange(gen)
			continue
		}

		atomic.AddInt32(&inFlight, 1)
		sem <- struct{}{}
		wg.Add(1)
		go func(step Step) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				// Wake the main loop once inFlight has dropped, even if this
				// step's last event already landed, so it can see the task
				// is finished instead of waiting for an event that never comes.
				x.sm.mu.Lock()
				x.sm.gen++
				x.sm.cond.Broadcast()
				x.sm.mu.Unlock()
			}()
			defer atomic.AddInt32(&inFlight, -1)
			x.dispatch(ctx, step)
		}(step)
	}

	wg.Wait()
	return x.sm.ExitStatus()
}

// dispatch runs one step, converting both returned errors and panics from
// the step runner into an ExecutionFailedEvent so a single misbehaving step
// can never silently wedge the whole task.
func (x *Executor) dispatch(ctx context.Context, step Step) {
	defer func() {
		if r := recover(); r != nil {
			x.sm.PostEvent(ExecutionFailedEvent{Message: fmt.Sprintf("step %s panicked: %v", step, r)})
		}
	}()
	if err := run(ctx, x.sm, x.driver, step); err != nil {
		x.sm.PostEvent(ExecutionFailedEvent{Message: fmt.Sprintf("step %s: %s", step, err)})
	}
}
