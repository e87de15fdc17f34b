package cmd

import (
	"context"

	"github.com/oneconcern/braid/pkg/model"
	"github.com/spf13/cobra"
)

var recordCreate = &cobra.Command{
	Use:   "create {task|doc|decision}",
	Short: "Create a new record",
	Long: `Create a new record of the given kind. The id, the creation date and a
default status are assigned automatically; a new task is placed at the end
of the execution sequence.`,
	Example: `% braid record create task --title "Fix login flow" --depends-on task-2
task-7`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		c, err := paramsToCore(ctx)
		if err != nil {
			wrapFatalln("initialize", err)
			return
		}
		r := model.Record{
			Kind:         kindOf(args[0]),
			Title:        params.record.Title,
			Status:       model.Status(params.record.Status),
			Labels:       params.record.Labels,
			Dependencies: params.record.Dependencies,
			Body:         params.record.Body,
		}
		created, err := c.CreateRecord(ctx, r)
		if err != nil {
			wrapFatalln("create record", err)
			return
		}
		infoLogger.Println(created.ID)
	},
}

func init() {
	requiredFlags := []string{addTitleFlag(recordCreate)}

	addStatusFlag(recordCreate)
	addBodyFlag(recordCreate)
	addLabelsFlag(recordCreate)
	addDependenciesFlag(recordCreate)

	for _, flag := range requiredFlags {
		if err := recordCreate.MarkFlagRequired(flag); err != nil {
			logFatalln(err)
		}
	}

	recordCmd.AddCommand(recordCreate)
}
