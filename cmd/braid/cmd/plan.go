package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the execution sequence",
	Long: `Show the execution sequence: tasks grouped by dependency layer, ordered
within each layer by their manual ordering. Tasks with a dependency on a
missing record appear in the unscheduled group.`,
	Example: `% braid plan
layer 0: task-1 task-4
layer 1: task-2
layer 2: task-3`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		c, err := paramsToCore(ctx)
		if err != nil {
			wrapFatalln("initialize", err)
			return
		}
		layers := c.Layers()

		depths := make([]int, 0, len(layers))
		for depth := range layers {
			depths = append(depths, depth)
		}
		sort.Ints(depths)
		for _, depth := range depths {
			name := fmt.Sprintf("layer %d", depth)
			if depth < 0 {
				name = "unscheduled"
			}
			infoLogger.Printf("%s: %s", name, strings.Join(layers[depth], " "))
		}
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}
