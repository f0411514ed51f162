package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crucible-run/crucible/internal/dockerdriver"
	"github.com/crucible-run/crucible/internal/engine"
	"github.com/crucible-run/crucible/internal/progressui"
	"github.com/crucible-run/crucible/internal/progressui/plain"
	"github.com/crucible-run/crucible/internal/structlog"
	"github.com/crucible-run/crucible/internal/taskfile"
)

var (
	runNoTUI            bool
	runNoCleanup        bool
	runNotInterruptible bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the task",
	Long:  `Build/pull images, bring up the task's container DAG, run the main container to exit, and tear everything down.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := taskfile.Load(TaskFilePath())
		if err != nil {
			return fmt.Errorf("failed to load task file: %w", err)
		}

		driver, err := dockerdriver.New()
		if err != nil {
			return fmt.Errorf("failed to connect to docker: %w", err)
		}
		defer driver.Close()

		opts := engine.DefaultRunOptions()
		opts.LevelOfParallelism = task.LevelOfParallelism
		opts.AdditionalCommandArgs = args
		opts.Interruptible = !runNotInterruptible
		if runNoCleanup {
			opts.BehaviourAfterFailure = engine.DoNotCleanup
		}

		sm := engine.NewTaskStateMachine(task, opts)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if opts.Interruptible {
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-quit
				sm.PostEvent(engine.UserInterruptedExecution{})
			}()
		} else {
			signal.Ignore(os.Interrupt, syscall.SIGTERM)
		}

		status, err := runWithUI(ctx, task.Name, opts.LevelOfParallelism, sm, driver)
		if err != nil {
			return err
		}

		if !status.Ran {
			return fmt.Errorf("task did not complete: %s", status.Reason)
		}
		if status.ExitCode != 0 {
			os.Exit(status.ExitCode)
		}
		return nil
	},
}

func runWithUI(ctx context.Context, taskName string, levelOfParallelism int, sm *engine.TaskStateMachine, driver engine.Driver) (engine.TaskExitStatus, error) {
	parallelism := levelOfParallelism
	if parallelism <= 0 {
		parallelism = 4
	}

	if runNoTUI || !isTerminal(os.Stdout) {
		sink := engine.EventSink(plain.New(os.Stdout))
		if IsVerbose() {
			sink = newDiagnosticsSink(structlog.New(os.Stderr), sink)
		}
		sm.SetEventSink(sink)
		exec := engine.NewExecutor(sm, driver, parallelism)
		return exec.Run(ctx), nil
	}

	dashboard := progressui.NewDashboard(taskName)
	sink := engine.EventSink(dashboard)
	if IsVerbose() {
		sink = newDiagnosticsSink(structlog.New(os.Stderr), sink)
	}
	sm.SetEventSink(sink)

	exec := engine.NewExecutor(sm, driver, parallelism)

	resultCh := make(chan engine.TaskExitStatus, 1)
	go func() {
		resultCh <- exec.Run(ctx)
		dashboard.Close()
	}()

	if err := dashboard.Run(); err != nil {
		return engine.TaskExitStatus{}, fmt.Errorf("dashboard: %w", err)
	}
	return <-resultCh, nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runNoTUI, "no-tui", false, "use plain-text progress output instead of the live dashboard")
	runCmd.Flags().BoolVar(&runNoCleanup, "no-cleanup-after-failure", false, "leave created resources in place for inspection if the task fails, instead of tearing them down")
	runCmd.Flags().BoolVar(&runNotInterruptible, "not-interruptible", false, "ignore Ctrl-C/SIGTERM instead of stopping the task")
	runCmd.Flags().SetInterspersed(false)
}
