package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var reorderCmd = &cobra.Command{
	Use:   "reorder <task-id>",
	Short: "Move a task within its layer",
	Long: `Move a task to a new position within its dependency layer. Normally only
the moved task is rewritten; when the keys around the target position are
exhausted, every task in the layer gets a fresh evenly spaced key.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		c, err := paramsToCore(ctx)
		if err != nil {
			wrapFatalln("initialize", err)
			return
		}
		if err := c.Reorder(ctx, args[0], params.reorder.Position); err != nil {
			wrapFatalln("reorder task", err)
			return
		}
	},
}

func init() {
	requiredFlags := []string{addPositionFlag(reorderCmd)}

	for _, flag := range requiredFlags {
		if err := reorderCmd.MarkFlagRequired(flag); err != nil {
			logFatalln(err)
		}
	}

	rootCmd.AddCommand(reorderCmd)
}
