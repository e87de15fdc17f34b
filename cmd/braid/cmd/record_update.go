package cmd

import (
	"context"

	"github.com/oneconcern/braid/pkg/model"
	"github.com/spf13/cobra"
)

var recordUpdate = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a record",
	Long: `Update the fields of an existing record. Only flags that are set change
the record. When --hash is given, the update fails if the record changed
since that hash was read.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		c, err := paramsToCore(ctx)
		if err != nil {
			wrapFatalln("initialize", err)
			return
		}
		r, err := c.GetRecord(ctx, args[0])
		if err != nil {
			wrapFatalln("get record", err)
			return
		}
		expected := params.record.Hash
		if expected == "" {
			expected = r.ContentHash
		}
		if cmd.Flags().Changed("title") {
			r.Title = params.record.Title
		}
		if cmd.Flags().Changed("status") {
			r.Status = model.Status(params.record.Status)
		}
		if cmd.Flags().Changed("body") {
			r.Body = params.record.Body
		}
		if cmd.Flags().Changed("label") {
			r.Labels = params.record.Labels
		}
		if cmd.Flags().Changed("depends-on") {
			r.Dependencies = params.record.Dependencies
		}
		updated, err := c.UpdateRecord(ctx, r, expected)
		if err != nil {
			wrapFatalln("update record", err)
			return
		}
		infoLogger.Println(updated.ContentHash)
	},
}

func init() {
	addTitleFlag(recordUpdate)
	addStatusFlag(recordUpdate)
	addBodyFlag(recordUpdate)
	addLabelsFlag(recordUpdate)
	addDependenciesFlag(recordUpdate)
	addHashFlag(recordUpdate)

	recordCmd.AddCommand(recordUpdate)
}
