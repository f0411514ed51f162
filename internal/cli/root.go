package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	taskFile string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "crucible",
	Short: "Crucible - runs a task's container DAG to completion",
	Long: `Crucible builds or pulls the images for a task's containers, brings them
up in dependency order on a private network, runs the task's main container
to exit, and tears everything back down.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&taskFile, "file", "f", "crucible.yaml", "task file to load")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() {
	if envFile := os.Getenv("CRUCIBLE_TASK_FILE"); envFile != "" && taskFile == "crucible.yaml" {
		taskFile = envFile
	}
}

// TaskFilePath returns the path to the task file, as given on the
// command line (or via CRUCIBLE_TASK_FILE).
func TaskFilePath() string {
	return taskFile
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
