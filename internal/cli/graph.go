package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crucible-run/crucible/internal/taskfile"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the task's containers grouped by dependency layer",
	Long:  `Resolves the task's dependency DAG into layers, where every container in a layer depends only on containers in earlier layers, and prints them without running anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := taskfile.Load(TaskFilePath())
		if err != nil {
			return err
		}

		layers, err := task.TopologicalLayers()
		if err != nil {
			return err
		}

		for i, layer := range layers {
			fmt.Printf("%d: %s\n", i, strings.Join(layer, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
