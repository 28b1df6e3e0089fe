package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lewtec/yolomark/internal/history"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past batch annotation jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		env, err := openWorkspace(cmd)
		if err != nil {
			return err
		}

		dbPath := filepath.Join(env.root, historyFile)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "no batch jobs recorded yet")
			return nil
		}
		db, err := history.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, e := range entries {
			status := "finished"
			if e.Cancelled {
				status = "cancelled"
			}
			fmt.Fprintf(out, "%s  %-16s %-9s processed=%d/%d added=%d dupes=%d skipped=%d\n",
				e.StartedAt.Format("2006-01-02 15:04:05"), e.Mode, status,
				e.Processed, e.Total, e.Added, e.SkippedDupes, e.SkippedImages)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of jobs to show")
}
