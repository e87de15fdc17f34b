package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <branch>",
	Short: "Merge the records of another branch",
	Long: `Merge the records visible on another git branch into the local record
directory. Identical records merge silently; a record whose id collides
with a different local record is renumbered and reported, with dependency
edges following the rename.`,
	Example: `% braid merge feature/login
merged 12 records, 1 conflict
task-5 -> task-6 (rewrote task-4)`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		c, err := paramsToCore(ctx)
		if err != nil {
			wrapFatalln("initialize", err)
			return
		}
		res, err := c.MergeBranch(ctx, args[0])
		if err != nil {
			wrapFatalln("merge branch", err)
			return
		}
		plural := ""
		if len(res.Conflicts) != 1 {
			plural = "s"
		}
		infoLogger.Printf("merged %d records, %d conflict%s", len(res.Resolved), len(res.Conflicts), plural)
		for _, conflict := range res.Conflicts {
			line := fmt.Sprintf("%s -> %s", conflict.OriginalID, conflict.RenamedID)
			if len(conflict.RewrittenEdges) > 0 {
				rewrote := make([]string, 0, len(conflict.RewrittenEdges))
				for _, edge := range conflict.RewrittenEdges {
					rewrote = append(rewrote, edge.From)
				}
				line += fmt.Sprintf(" (rewrote %s)", strings.Join(rewrote, " "))
			}
			infoLogger.Println(line)
		}
	},
}

func init() {
	addGitDirFlag(mergeCmd)
	rootCmd.AddCommand(mergeCmd)
}
