package cmd

import (
	"context"

	"github.com/oneconcern/braid/pkg/model"
	"github.com/spf13/cobra"
)

var recordGet = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one record",
	Long: `Show one record in its stored file form, including the content hash to
pass back on update for conflict detection.`,
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
		data, err := model.Serialize(&r)
		if err != nil {
			wrapFatalln("render record", err)
			return
		}
		infoLogger.Printf("# hash: %s\n%s", r.ContentHash, data)
	},
}

func init() {
	recordCmd.AddCommand(recordGet)
}
