package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var depRemove = &cobra.Command{
	Use:   "remove <task-id> <record-id>",
	Short: "Remove a dependency between a task and a record",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		c, err := paramsToCore(ctx)
		if err != nil {
			wrapFatalln("initialize", err)
			return
		}
		if err := c.RemoveDependency(ctx, args[0], args[1]); err != nil {
			wrapFatalln("remove dependency", err)
			return
		}
	},
}

func init() {
	depCmd.AddCommand(depRemove)
}
