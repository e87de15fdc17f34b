package cmd

import (
	"context"
	"strings"

	"github.com/oneconcern/braid/pkg/model"
	"github.com/oneconcern/braid/pkg/store"
	"github.com/spf13/cobra"
)

var recordList = &cobra.Command{
	Use:   "list",
	Short: "List records",
	Long:  `List records, optionally filtered by kind, status or label.`,
	Example: `% braid record list --kind task --status open
task-1 , task , open , Wire up authentication`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		c, err := paramsToCore(ctx)
		if err != nil {
			wrapFatalln("initialize", err)
			return
		}
		var opts []store.ListOption
		if params.list.Kind != "" {
			opts = append(opts, store.KindFilter(kindOf(params.list.Kind)))
		}
		if params.list.Status != "" {
			opts = append(opts, store.StatusFilter(model.Status(params.list.Status)))
		}
		if params.list.Label != "" {
			opts = append(opts, store.LabelFilter(params.list.Label))
		}
		records, err := c.ListRecords(ctx, opts...)
		if err != nil {
			wrapFatalln("list records", err)
			return
		}
		for i := range records {
			r := &records[i]
			fields := []string{r.ID, string(r.Kind), string(r.Status), r.Title}
			infoLogger.Println(strings.Join(fields, " , "))
		}
	},
}

func init() {
	addKindFilterFlag(recordList)
	addStatusFilterFlag(recordList)
	addLabelFilterFlag(recordList)

	recordCmd.AddCommand(recordList)
}
