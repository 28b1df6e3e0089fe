package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/lewtec/yolomark/internal/index"
	"github.com/lewtec/yolomark/internal/store"
	"github.com/lewtec/yolomark/workspace"
)

// classesCmd represents the classes command
var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List or extend the class manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		add, _ := cmd.Flags().GetStringSlice("add")

		env, err := openWorkspace(cmd)
		if err != nil {
			return err
		}

		if len(add) > 0 {
			classes := append(env.classes, add...)
			if err := workspace.SaveClasses(env.fs, classes); err != nil {
				return err
			}
			env.classes = classes
			log.Printf("Classes: added %d classes, manifest now has %d", len(add), len(classes))
		}

		counts := classCounts(env.store, env.images)
		for id, name := range env.classes {
			fmt.Fprintf(cmd.OutOrStdout(), "%3d %-20s %d\n", id, name, counts[id])
		}
		return nil
	},
}

// clearClassCmd represents the clear-class command
var clearClassCmd = &cobra.Command{
	Use:   "clear-class <class>",
	Short: "Remove every box of one class across the whole dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		class, err := resolveClassID(args[0], env.classes)
		if err != nil {
			return err
		}

		ix := index.New()
		ix.Rebuild(env.store, env.images)
		session := store.NewSession(env.store, nil, ix)

		removed := 0
		touched := 0
		for _, img := range env.images {
			if !ix.Classes(img)[class] {
				continue
			}
			if err := session.Open(img); err != nil {
				return err
			}
			n, err := session.ClearClass(class)
			if err != nil {
				return err
			}
			removed += n
			touched++
		}

		fmt.Fprintf(cmd.OutOrStdout(), "removed %d boxes of %s from %d images\n",
			removed, workspace.ClassName(env.classes, class), touched)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classesCmd)
	rootCmd.AddCommand(clearClassCmd)

	classesCmd.Flags().StringSlice("add", nil, "Class name to append to the manifest, repeatable")
}
