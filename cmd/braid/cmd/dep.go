package cmd

import (
	"github.com/spf13/cobra"
)

// depCmd represents all the commands related to task dependencies
var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Commands to manage task dependencies",
	Long: `Commands to manage the dependency edges between tasks and the records
they depend on. Dependencies drive the execution sequence: a task runs
after everything it depends on.`,
}

func init() {
	rootCmd.AddCommand(depCmd)
}
