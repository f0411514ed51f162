package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crucible-run/crucible/internal/taskfile"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the task file without running anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := taskfile.Load(TaskFilePath())
		if err != nil {
			return err
		}
		fmt.Printf("task %q is valid: %d container(s), main=%q\n", task.Name, len(task.Containers), task.Main)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
