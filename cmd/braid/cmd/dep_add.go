package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var depAdd = &cobra.Command{
	Use:   "add <task-id> <record-id>",
	Short: "Add a dependency between a task and a record",
	Long: `Add a dependency: the task given first depends on the record given second.
A dependency that would close a cycle is rejected and nothing changes.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		c, err := paramsToCore(ctx)
		if err != nil {
			wrapFatalln("initialize", err)
			return
		}
		if err := c.AddDependency(ctx, args[0], args[1]); err != nil {
			wrapFatalln("add dependency", err)
			return
		}
	},
}

func init() {
	depCmd.AddCommand(depAdd)
}
