// batch runs the auto-annotation pipeline: a single background worker walks
// the image list, asks the inference provider for detections, merges them
// with the existing labels under the selected policy and writes the result.
// At most one job runs at a time.
package batch

import (
	"log"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/lewtec/yolomark/internal/domain"
	"github.com/lewtec/yolomark/internal/store"
)

// MergeMode governs how new detections combine with existing annotations.
type MergeMode int

const (
	// AddMissing appends detections that do not duplicate an existing box.
	AddMissing MergeMode = iota
	// UnannotatedOnly skips any image that already has annotations.
	UnannotatedOnly
	// Overwrite replaces all annotations of the allowed classes, keeping
	// lines of other classes untouched.
	Overwrite
)

func (m MergeMode) String() string {
	switch m {
	case AddMissing:
		return "add-missing"
	case UnannotatedOnly:
		return "unannotated-only"
	case Overwrite:
		return "overwrite"
	}
	return "unknown"
}

// Job describes one batch run over a fixed image list.
type Job struct {
	Images            []string
	AllowedClasses    map[int]bool
	DefaultConfidence float64
	ClassConfidence   map[int]float64
	IoUThreshold      float64
	Mode              MergeMode
}

func (j Job) threshold(class int) float64 {
	if t, ok := j.ClassConfidence[class]; ok {
		return t
	}
	return j.DefaultConfidence
}

// Progress is written by the worker and polled from other goroutines, so
// every field is atomic.
type Progress struct {
	Total         atomic.Int64
	Processed     atomic.Int64
	Added         atomic.Int64
	SkippedDupes  atomic.Int64
	SkippedImages atomic.Int64
}

// Snapshot is a point-in-time copy of the counters, safe to hand around.
type Snapshot struct {
	Total         int
	Processed     int
	Added         int
	SkippedDupes  int
	SkippedImages int
}

// Result is the final tally of a finished (or cancelled) job.
type Result struct {
	Processed     int
	Added         int
	SkippedDupes  int
	SkippedImages int
	Cancelled     bool
}

// Pipeline owns the single worker slot. Start refuses a second concurrent
// job; Cancel asks the running worker to stop after its current image.
type Pipeline struct {
	store     *store.Store
	predictor domain.Predictor

	running  atomic.Bool
	cancel   atomic.Bool
	progress Progress
}

func New(st *store.Store, p domain.Predictor) *Pipeline {
	return &Pipeline{store: st, predictor: p}
}

func (p *Pipeline) Running() bool { return p.running.Load() }

// Cancel flags the running job. The worker finishes its current image first;
// files already written stay written.
func (p *Pipeline) Cancel() {
	if p.running.Load() {
		p.cancel.Store(true)
	}
}

// Progress snapshots the live counters of the running (or last) job.
func (p *Pipeline) Progress() Snapshot {
	return Snapshot{
		Total:         int(p.progress.Total.Load()),
		Processed:     int(p.progress.Processed.Load()),
		Added:         int(p.progress.Added.Load()),
		SkippedDupes:  int(p.progress.SkippedDupes.Load()),
		SkippedImages: int(p.progress.SkippedImages.Load()),
	}
}

// Start launches the job on a background worker and returns a channel that
// delivers the final Result. ok is false when a job is already running.
func (p *Pipeline) Start(job Job) (<-chan Result, bool) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, false
	}
	p.cancel.Store(false)
	p.progress.Total.Store(int64(len(job.Images)))
	p.progress.Processed.Store(0)
	p.progress.Added.Store(0)
	p.progress.SkippedDupes.Store(0)
	p.progress.SkippedImages.Store(0)

	done := make(chan Result, 1)
	go func() {
		res := p.run(job)
		p.running.Store(false)
		done <- res
	}()
	return done, true
}

func (p *Pipeline) run(job Job) Result {
	log.Printf("Batch: starting %s job over %d images", job.Mode, len(job.Images))
	cancelled := false
	for _, img := range job.Images {
		if p.cancel.Load() {
			cancelled = true
			break
		}
		p.annotateImage(job, img)
		p.progress.Processed.Add(1)
	}
	res := Result{
		Processed:     int(p.progress.Processed.Load()),
		Added:         int(p.progress.Added.Load()),
		SkippedDupes:  int(p.progress.SkippedDupes.Load()),
		SkippedImages: int(p.progress.SkippedImages.Load()),
		Cancelled:     cancelled,
	}
	log.Printf("Batch: finished, processed=%d added=%d skipped_dupes=%d skipped_images=%d cancelled=%v",
		res.Processed, res.Added, res.SkippedDupes, res.SkippedImages, res.Cancelled)
	return res
}

// annotateImage handles one image. Any per-image failure is logged and
// counted as a skip; it never aborts the rest of the job.
func (p *Pipeline) annotateImage(job Job, img string) {
	existing, _, err := p.store.Load(img)
	if err != nil {
		log.Printf("Batch: while loading labels for %s: %v", img, err)
		p.progress.SkippedImages.Add(1)
		return
	}
	if job.Mode == UnannotatedOnly && len(existing) > 0 {
		p.progress.SkippedImages.Add(1)
		return
	}

	detections, err := p.predictor.Predict(img)
	if err != nil {
		log.Printf("Batch: while predicting %s: %v", img, err)
		p.progress.SkippedImages.Add(1)
		return
	}

	var accepted []domain.Annotation
	for _, d := range detections {
		if !job.AllowedClasses[d.Class] {
			continue
		}
		if d.Score < job.threshold(d.Class) {
			continue
		}
		cand := d.Annotation().Clamped()
		// Suppress duplicates of the existing boxes (except in Overwrite,
		// where those are being replaced) and of detections already
		// accepted earlier in this same pass.
		against := accepted
		if job.Mode != Overwrite {
			against = append(append([]domain.Annotation{}, existing...), accepted...)
		}
		if domain.DuplicateOrOverlapping(cand, against, job.IoUThreshold, domain.DefaultCoordTolerance) {
			p.progress.SkippedDupes.Add(1)
			continue
		}
		accepted = append(accepted, cand)
	}

	if job.Mode == Overwrite {
		if err := p.overwrite(job, img, accepted); err != nil {
			log.Printf("Batch: while writing labels for %s: %v", img, err)
			p.progress.SkippedImages.Add(1)
			return
		}
		if len(accepted) == 0 {
			p.progress.SkippedImages.Add(1)
		} else {
			p.progress.Added.Add(int64(len(accepted)))
		}
		return
	}

	if len(accepted) == 0 {
		p.progress.SkippedImages.Add(1)
		return
	}
	if err := p.store.Append(img, accepted); err != nil {
		log.Printf("Batch: while writing labels for %s: %v", img, err)
		p.progress.SkippedImages.Add(1)
		return
	}
	p.progress.Added.Add(int64(len(accepted)))
}

// overwrite keeps the existing lines whose class is outside the allowed set
// (unparseable lines included) and replaces everything else with the new
// detections. An empty merged set still writes an empty file.
func (p *Pipeline) overwrite(job Job, img string, accepted []domain.Annotation) error {
	lines, err := p.store.RawLines(img)
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(lines)+len(accepted))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			if class, err := strconv.Atoi(fields[0]); err == nil && job.AllowedClasses[class] {
				continue
			}
		}
		kept = append(kept, line)
	}
	for _, a := range accepted {
		kept = append(kept, strings.TrimSuffix(store.FormatLine(a), "\n"))
	}
	return p.store.WriteLines(img, kept)
}
