package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lewtec/yolomark/internal/domain"
	"github.com/lewtec/yolomark/internal/index"
	"github.com/lewtec/yolomark/internal/store"
	"github.com/lewtec/yolomark/workspace"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dataset totals and the per-class distribution",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openWorkspace(cmd)
		if err != nil {
			return err
		}

		ix := index.New()
		stats := ix.Rebuild(env.store, env.images)
		counts := classCounts(env.store, env.images)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Images:      %d\n", stats.TotalImages)
		fmt.Fprintf(out, "Annotated:   %d\n", stats.Annotated)
		fmt.Fprintf(out, "Unannotated: %d\n", stats.TotalImages-stats.Annotated)
		fmt.Fprintf(out, "Boxes:       %d\n", stats.TotalBoxes)
		fmt.Fprintf(out, "Classes:     %d\n", len(stats.ClassesUsed))
		if len(counts) > 0 {
			fmt.Fprintln(out)
			for _, id := range workspace.SortedClassIDs(counts) {
				fmt.Fprintf(out, "  %3d %-20s %d\n", id, workspace.ClassName(env.classes, id), counts[id])
			}
		}
		return nil
	},
}

// classCounts tallies boxes per class over the whole dataset. Unreadable
// label files count as empty, same as the index rebuild.
func classCounts(st *store.Store, images []string) map[int]int {
	counts := map[int]int{}
	for _, img := range images {
		anns, _, err := st.Load(img)
		if err != nil {
			continue
		}
		for class, n := range domain.ClassCounts(anns) {
			counts[class] += n
		}
	}
	return counts
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
