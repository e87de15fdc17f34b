package cmd

import (
	"github.com/spf13/cobra"
)

// recordCmd represents all the commands related to individual records
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Commands to manage records",
	Long: `Commands to manage the tracked records: tasks, documents and decisions.

Each record is stored as one markdown file with a metadata header under the
record directory.`,
}

func init() {
	rootCmd.AddCommand(recordCmd)
}
