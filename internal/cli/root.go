package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hearth",
	Short: "Context-aware household task queue",
	Long: "hearth manages tasks with traits, recurrence, blockers, and requirements,\n" +
		"ranked into a queue by what you can actually do right now.",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(blockedCmd)
	rootCmd.AddCommand(sensorCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(uiCmd)
}
