/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lewtec/yolomark/internal/filter"
	"github.com/lewtec/yolomark/internal/index"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query <mode>",
	Short: "List the images matching a filter mode or custom query",
	Long: strings.TrimSpace(`
Modes: all, unannotated, overlapping, suspicious, has:CLASS, missing:CLASS,
only:CLASS, or a custom class-count query.

A custom query is a list of conditions joined by AND/OR, evaluated left to
right with no precedence. Each condition compares the number of boxes of a
class: =, !=, <, >, <=, >=.

Examples:
  yolomark query unannotated
  yolomark query has:cat
  yolomark query "cat>=2 and dog=0"
    `),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showIDs, err := cmd.Flags().GetBool("ids")
		if err != nil {
			return err
		}
		env, err := openWorkspace(cmd)
		if err != nil {
			return err
		}

		mode, err := filter.ParseMode(args[0], env.classes)
		if err != nil {
			return err
		}

		ix := index.New()
		ix.Rebuild(env.store, env.images)
		engine := filter.NewEngine(ix, env.store)
		ids := index.AssignIDs(env.images)

		for _, img := range engine.Apply(env.images, mode) {
			if showIDs {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", ids.ID(img), img)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), img)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().BoolP("ids", "i", false, "Show the persistent image ID before each path")
	// Cobra supports local flags which will only run when this command
	// is called directly, e.g.:
	// queryCmd.Flags().BoolP("toggle", "t", false, "Help message for toggle")
}
