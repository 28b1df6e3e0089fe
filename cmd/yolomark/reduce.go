package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lewtec/yolomark/internal/reduce"
)

// reduceCmd represents the reduce command
var reduceCmd = &cobra.Command{
	Use:   "reduce",
	Short: "Downsample the dataset to a target image count",
	Long: strings.TrimSpace(`
Cuts the sorted image list into contiguous segments and keeps one image per
segment. Excluded images (and their label files) are moved to the
skipped_images/ folder, or deleted permanently with --action delete.

Methods:
  uniform     pick the middle of each segment (deterministic)
  stratified  pick a random image per segment (seedable, preserves distribution)
    `),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetInt("target")
		methodName, _ := cmd.Flags().GetString("method")
		actionName, _ := cmd.Flags().GetString("action")
		seed, _ := cmd.Flags().GetInt64("seed")

		var method reduce.Method
		switch methodName {
		case "stratified":
			method = reduce.Stratified
		case "uniform":
			method = reduce.Uniform
		default:
			return fmt.Errorf("unknown method %q", methodName)
		}
		var action reduce.Action
		switch actionName {
		case "move":
			action = reduce.Move
		case "delete":
			action = reduce.Delete
		default:
			return fmt.Errorf("unknown action %q", actionName)
		}
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		env, err := openWorkspace(cmd)
		if err != nil {
			return err
		}

		// The reducer works on base names under images/.
		names := make([]string, len(env.images))
		for i, img := range env.images {
			names[i] = strings.TrimPrefix(img, "images/")
		}

		plan, err := reduce.Select(names, target, method, seed)
		if err != nil {
			return err
		}
		done, err := reduce.Apply(env.fs, plan, action)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "reduced dataset to %d images (%s), %d images %sd\n",
			len(plan.Kept), method, done, actionName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reduceCmd)

	reduceCmd.Flags().IntP("target", "t", 0, "Number of images to keep")
	reduceCmd.Flags().StringP("method", "m", "stratified", "Sampling method: stratified or uniform")
	reduceCmd.Flags().StringP("action", "a", "move", "What to do with excluded images: move or delete")
	reduceCmd.Flags().Int64("seed", 0, "Random seed for stratified sampling (0 = time-based)")
}
