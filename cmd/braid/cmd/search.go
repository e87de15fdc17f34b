package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <term>...",
	Short: "Search records",
	Long: `Search record titles, labels and bodies. Results are ranked by how often
the terms occur in each record.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		c, err := paramsToCore(ctx)
		if err != nil {
			wrapFatalln("initialize", err)
			return
		}
		for _, hit := range c.Search(strings.Join(args, " ")) {
			infoLogger.Println(hit.ID)
		}
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
