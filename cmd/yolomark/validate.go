package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/lewtec/yolomark/workspace"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check label files for malformed lines and out-of-bounds boxes",
	Long: `Scans every label file and reports malformed lines, boxes outside the
unit square and class IDs the manifest does not know. With --fix, corrected
files are rewritten and files left with no valid lines are removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fix, _ := cmd.Flags().GetBool("fix")
		dump, _ := cmd.Flags().GetBool("dump")

		env, err := openWorkspace(cmd)
		if err != nil {
			return err
		}

		rep, err := workspace.Validate(env.fs, env.store, env.images, len(env.classes), fix)
		if err != nil {
			return err
		}

		if dump {
			spew.Fdump(cmd.OutOrStdout(), rep)
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "checked %d label files\n", rep.FilesChecked)
		fmt.Fprintf(out, "  malformed lines:      %d\n", rep.MalformedRemoved)
		fmt.Fprintf(out, "  boxes clamped:        %d\n", rep.ValuesClamped)
		fmt.Fprintf(out, "  unknown class IDs:    %d\n", rep.BadClassIDs)
		if fix {
			fmt.Fprintf(out, "  files fixed:          %d\n", rep.FilesFixed)
			fmt.Fprintf(out, "  empty files removed:  %d\n", rep.EmptyFilesRemoved)
		}
		for _, issue := range rep.Issues {
			fmt.Fprintf(out, "%s: %s\n", issue.Image, issue.Detail)
		}
		stems := workspace.FindDuplicateStems(env.images)
		for _, stem := range sortedKeys(stems) {
			fmt.Fprintf(out, "stem %q shared by %s (label file collision)\n",
				stem, strings.Join(stems[stem], ", "))
		}
		dupes, err := workspace.FindDuplicates(env.fs, env.images)
		if err != nil {
			return err
		}
		for _, hash := range sortedKeys(dupes) {
			fmt.Fprintf(out, "identical content: %s (sha256 %.12s)\n",
				strings.Join(dupes[hash], ", "), hash)
		}
		if !fix && (rep.MalformedRemoved > 0 || rep.ValuesClamped > 0) {
			fmt.Fprintln(out, "run again with --fix to rewrite the affected files")
		}
		return nil
	},
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().Bool("fix", false, "Rewrite corrected label files")
	validateCmd.Flags().Bool("dump", false, "Dump the raw report structure")
}
