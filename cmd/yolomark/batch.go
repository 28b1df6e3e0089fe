/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lewtec/yolomark/internal/batch"
	"github.com/lewtec/yolomark/internal/domain"
	"github.com/lewtec/yolomark/internal/geom"
	"github.com/lewtec/yolomark/internal/history"
)

const historyFile = "yolomark-history.db"

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Auto-annotate the dataset from precomputed detections",
	Long: strings.TrimSpace(`
Runs a batch annotation job over every image in the workspace. Detections
come from a predictions directory: for images/frame_001.jpg the job reads
<predictions>/frame_001.txt, one detection per line as
"class cx cy w h [score]" (score defaults to 1.0).

Merge modes:
  add-missing       append detections that do not duplicate an existing box
  unannotated-only  only touch images that have no annotations yet
  overwrite         replace all boxes of the allowed classes, keep the rest

Interrupting with Ctrl-C cancels the job after the current image; files
already written stay written. Every job is recorded in the workspace's
job history database.
    `),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		predictionsDir, err := flags.GetString("predictions")
		if err != nil || predictionsDir == "" {
			return fmt.Errorf("--predictions directory is required")
		}
		modeName, _ := flags.GetString("mode")
		confidence, _ := flags.GetFloat64("confidence")
		iou, _ := flags.GetFloat64("iou")
		classFlags, _ := flags.GetStringSlice("class-confidence")
		allowedFlag, _ := flags.GetString("classes")

		mode, err := parseMergeMode(modeName)
		if err != nil {
			return err
		}

		env, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		if len(env.images) == 0 {
			return fmt.Errorf("workspace has no images")
		}

		allowed, err := parseAllowedClasses(allowedFlag, env.classes)
		if err != nil {
			return err
		}
		perClass, err := parseClassConfidence(classFlags, env.classes)
		if err != nil {
			return err
		}

		job := batch.Job{
			Images:            env.images,
			AllowedClasses:    allowed,
			DefaultConfidence: confidence,
			ClassConfidence:   perClass,
			IoUThreshold:      iou,
			Mode:              mode,
		}
		pipeline := batch.New(env.store, &filePredictor{dir: predictionsDir})

		done, ok := pipeline.Start(job)
		if !ok {
			return fmt.Errorf("another batch job is already running")
		}
		started := time.Now()

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		defer signal.Stop(interrupt)

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		var result batch.Result
	wait:
		for {
			select {
			case result = <-done:
				break wait
			case <-interrupt:
				log.Printf("Batch: interrupt received, cancelling after the current image")
				pipeline.Cancel()
			case <-ticker.C:
				p := pipeline.Progress()
				log.Printf("Batch: %d/%d images, %d boxes added", p.Processed, p.Total, p.Added)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "processed %d images, added %d boxes, skipped %d duplicates, %d images unchanged\n",
			result.Processed, result.Added, result.SkippedDupes, result.SkippedImages)
		if result.Cancelled {
			fmt.Fprintln(cmd.OutOrStdout(), "job was cancelled; files already written were kept")
		}

		return recordJob(env.root, job, started, result)
	},
}

func recordJob(root string, job batch.Job, started time.Time, result batch.Result) error {
	db, err := history.Open(filepath.Join(root, historyFile))
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Record(context.Background(), history.Entry{
		StartedAt:     started,
		FinishedAt:    time.Now(),
		Mode:          job.Mode.String(),
		Total:         len(job.Images),
		Processed:     result.Processed,
		Added:         result.Added,
		SkippedDupes:  result.SkippedDupes,
		SkippedImages: result.SkippedImages,
		Cancelled:     result.Cancelled,
	})
	return err
}

func parseMergeMode(name string) (batch.MergeMode, error) {
	switch name {
	case "add-missing":
		return batch.AddMissing, nil
	case "unannotated-only":
		return batch.UnannotatedOnly, nil
	case "overwrite":
		return batch.Overwrite, nil
	}
	return 0, fmt.Errorf("unknown merge mode %q", name)
}

// parseAllowedClasses resolves the --classes list; empty means every class
// in the manifest.
func parseAllowedClasses(flag string, classes []string) (map[int]bool, error) {
	allowed := map[int]bool{}
	if flag == "" {
		if len(classes) == 0 {
			return nil, fmt.Errorf("the manifest has no classes; pass --classes explicitly")
		}
		for i := range classes {
			allowed[i] = true
		}
		return allowed, nil
	}
	for _, name := range strings.Split(flag, ",") {
		id, err := resolveClassID(strings.TrimSpace(name), classes)
		if err != nil {
			return nil, err
		}
		allowed[id] = true
	}
	return allowed, nil
}

// parseClassConfidence parses repeated "CLASS=THRESHOLD" flags.
func parseClassConfidence(flags []string, classes []string) (map[int]float64, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	perClass := map[int]float64{}
	for _, f := range flags {
		name, raw, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("class confidence %q must be CLASS=THRESHOLD", f)
		}
		id, err := resolveClassID(strings.TrimSpace(name), classes)
		if err != nil {
			return nil, err
		}
		threshold, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("class confidence %q has a bad threshold: %w", f, err)
		}
		perClass[id] = threshold
	}
	return perClass, nil
}

func resolveClassID(name string, classes []string) (int, error) {
	for i, n := range classes {
		if strings.EqualFold(n, name) {
			return i, nil
		}
	}
	if id, err := strconv.Atoi(name); err == nil && id >= 0 {
		return id, nil
	}
	return 0, fmt.Errorf("unknown class %q", name)
}

// filePredictor reads detections from per-image text files instead of
// running a model. The file shares the image's base name with a .txt
// extension, one detection per line: "class cx cy w h [score]".
type filePredictor struct {
	dir string
}

func (p *filePredictor) Predict(imagePath string) ([]domain.Detection, error) {
	base := path.Base(imagePath)
	stem := strings.TrimSuffix(base, path.Ext(base))
	data, err := os.ReadFile(filepath.Join(p.dir, stem+".txt"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []domain.Detection
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		class, err := strconv.Atoi(fields[0])
		if err != nil || class < 0 {
			continue
		}
		vals := make([]float64, 0, 5)
		for _, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				break
			}
			vals = append(vals, v)
		}
		if len(vals) < 4 {
			continue
		}
		score := 1.0
		if len(vals) >= 5 {
			score = vals[4]
		}
		out = append(out, domain.Detection{
			Class: class,
			Score: score,
			Box:   geom.Box{CX: vals[0], CY: vals[1], W: vals[2], H: vals[3]},
		})
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("predictions", "p", "", "Directory of per-image detection files")
	batchCmd.Flags().StringP("mode", "m", "add-missing", "Merge mode: add-missing, unannotated-only or overwrite")
	batchCmd.Flags().Float64P("confidence", "c", 0.5, "Default confidence threshold")
	batchCmd.Flags().StringSlice("class-confidence", nil, "Per-class threshold as CLASS=THRESHOLD, repeatable")
	batchCmd.Flags().Float64("iou", 0.3, "IoU threshold for duplicate suppression")
	batchCmd.Flags().String("classes", "", "Comma-separated classes to accept (default: all manifest classes)")
}
