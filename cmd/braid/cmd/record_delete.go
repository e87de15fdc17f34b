package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var recordDelete = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a record",
	Long: `Delete a record. Tasks depending on a deleted record keep their dependency
entry: they drop out of the execution sequence until the entry is removed
or the record recreated.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		c, err := paramsToCore(ctx)
		if err != nil {
			wrapFatalln("initialize", err)
			return
		}
		if err := c.DeleteRecord(ctx, args[0]); err != nil {
			wrapFatalln("delete record", err)
			return
		}
	},
}

func init() {
	recordCmd.AddCommand(recordDelete)
}
