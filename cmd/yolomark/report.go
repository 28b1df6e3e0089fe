package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lewtec/yolomark/internal/index"
	"github.com/lewtec/yolomark/workspace"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write an HTML report of the dataset",
	Long: `Renders dataset totals, the per-class distribution and the findings of a
validation dry run into a standalone HTML file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")

		env, err := openWorkspace(cmd)
		if err != nil {
			return err
		}

		ix := index.New()
		stats := ix.Rebuild(env.store, env.images)
		counts := classCounts(env.store, env.images)
		validation, err := workspace.Validate(env.fs, env.store, env.images, len(env.classes), false)
		if err != nil {
			return err
		}
		dupes, err := workspace.FindDuplicates(env.fs, env.images)
		if err != nil {
			return err
		}

		data := workspace.BuildReportData(stats, counts, env.classes, validation, dupes)

		if !filepath.IsAbs(outPath) {
			outPath = filepath.Join(env.root, outPath)
		}
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("while creating report file: %w", err)
		}
		defer f.Close()
		if err := workspace.RenderReport(f, data); err != nil {
			return fmt.Errorf("while rendering report: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", outPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("out", "o", "report.html", "Output file, relative to the workspace")
}
