package batch

import (
	"errors"
	"testing"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/util"

	"github.com/lewtec/yolomark/internal/domain"
	"github.com/lewtec/yolomark/internal/geom"
	"github.com/lewtec/yolomark/internal/store"
)

// fakePredictor serves canned detections per image path and records which
// images it was asked about.
type fakePredictor struct {
	detections map[string][]domain.Detection
	errors     map[string]error
	calls      []string
}

func (f *fakePredictor) Predict(imagePath string) ([]domain.Detection, error) {
	f.calls = append(f.calls, imagePath)
	if err := f.errors[imagePath]; err != nil {
		return nil, err
	}
	return f.detections[imagePath], nil
}

func det(class int, score, cx, cy, w, h float64) domain.Detection {
	return domain.Detection{Class: class, Score: score, Box: geom.Box{CX: cx, CY: cy, W: w, H: h}}
}

func writeLabel(t *testing.T, fs billy.Filesystem, path, content string) {
	t.Helper()
	if err := util.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readLabel(t *testing.T, fs billy.Filesystem, path string) string {
	t.Helper()
	data, err := util.ReadFile(fs, path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func runJob(t *testing.T, p *Pipeline, job Job) Result {
	t.Helper()
	done, ok := p.Start(job)
	if !ok {
		t.Fatal("job did not start")
	}
	return <-done
}

func baseJob(mode MergeMode, images ...string) Job {
	return Job{
		Images:            images,
		AllowedClasses:    map[int]bool{0: true, 1: true},
		DefaultConfidence: 0.5,
		IoUThreshold:      0.3,
		Mode:              mode,
	}
}

func TestAddMissingSkipsDuplicates(t *testing.T) {
	fs := memfs.New()
	writeLabel(t, fs, "labels/a.txt", "0 0.500000 0.500000 0.200000 0.200000\n")
	pred := &fakePredictor{detections: map[string][]domain.Detection{
		"images/a.jpg": {
			det(0, 0.9, 0.51, 0.49, 0.19, 0.21), // overlaps the existing class-0 box
			det(1, 0.9, 0.51, 0.49, 0.19, 0.21), // same spot, different class
		},
	}}
	p := New(store.New(fs), pred)

	res := runJob(t, p, baseJob(AddMissing, "images/a.jpg"))
	if res.SkippedDupes != 1 {
		t.Errorf("SkippedDupes = %d, want 1", res.SkippedDupes)
	}
	if res.Added != 1 {
		t.Errorf("Added = %d, want 1 (different class is never a duplicate)", res.Added)
	}

	content := readLabel(t, fs, "labels/a.txt")
	want := "0 0.500000 0.500000 0.200000 0.200000\n1 0.510000 0.490000 0.190000 0.210000\n"
	if content != want {
		t.Errorf("label file = %q, want %q", content, want)
	}
}

func TestAddMissingIntraPassDedupe(t *testing.T) {
	fs := memfs.New()
	pred := &fakePredictor{detections: map[string][]domain.Detection{
		"images/a.jpg": {
			det(0, 0.9, 0.5, 0.5, 0.2, 0.2),
			det(0, 0.8, 0.505, 0.5, 0.2, 0.2), // near-identical to the first
		},
	}}
	p := New(store.New(fs), pred)

	res := runJob(t, p, baseJob(AddMissing, "images/a.jpg"))
	if res.Added != 1 || res.SkippedDupes != 1 {
		t.Errorf("Added = %d SkippedDupes = %d, want 1 and 1", res.Added, res.SkippedDupes)
	}
}

func TestConfidenceThresholds(t *testing.T) {
	fs := memfs.New()
	pred := &fakePredictor{detections: map[string][]domain.Detection{
		"images/a.jpg": {
			det(0, 0.4, 0.2, 0.2, 0.1, 0.1), // below default 0.5
			det(1, 0.4, 0.5, 0.5, 0.1, 0.1), // class 1 threshold lowered to 0.3
			det(2, 0.99, 0.8, 0.8, 0.1, 0.1), // class not allowed
		},
	}}
	p := New(store.New(fs), pred)

	job := baseJob(AddMissing, "images/a.jpg")
	job.ClassConfidence = map[int]float64{1: 0.3}
	res := runJob(t, p, job)
	if res.Added != 1 {
		t.Errorf("Added = %d, want 1", res.Added)
	}
	content := readLabel(t, fs, "labels/a.txt")
	if content != "1 0.500000 0.500000 0.100000 0.100000\n" {
		t.Errorf("label file = %q", content)
	}
}

func TestUnannotatedOnlySkipsWithoutPredict(t *testing.T) {
	fs := memfs.New()
	writeLabel(t, fs, "labels/a.txt", "0 0.500000 0.500000 0.200000 0.200000\n")
	pred := &fakePredictor{detections: map[string][]domain.Detection{
		"images/b.jpg": {det(1, 0.9, 0.5, 0.5, 0.2, 0.2)},
	}}
	p := New(store.New(fs), pred)

	res := runJob(t, p, baseJob(UnannotatedOnly, "images/a.jpg", "images/b.jpg"))
	if res.SkippedImages != 1 || res.Added != 1 || res.Processed != 2 {
		t.Errorf("result = %+v", res)
	}
	if len(pred.calls) != 1 || pred.calls[0] != "images/b.jpg" {
		t.Errorf("Predict called for %v, want only images/b.jpg", pred.calls)
	}
}

func TestOverwritePreservesOtherClasses(t *testing.T) {
	fs := memfs.New()
	writeLabel(t, fs, "labels/a.txt", "0 0.200000 0.200000 0.100000 0.100000\n3 0.800000 0.800000 0.100000 0.100000\nnot a box\n")
	pred := &fakePredictor{detections: map[string][]domain.Detection{
		"images/a.jpg": {det(0, 0.9, 0.5, 0.5, 0.2, 0.2)},
	}}
	p := New(store.New(fs), pred)

	job := baseJob(Overwrite, "images/a.jpg")
	job.AllowedClasses = map[int]bool{0: true}
	res := runJob(t, p, job)
	if res.Added != 1 {
		t.Errorf("Added = %d, want 1", res.Added)
	}

	content := readLabel(t, fs, "labels/a.txt")
	want := "3 0.800000 0.800000 0.100000 0.100000\nnot a box\n0 0.500000 0.500000 0.200000 0.200000\n"
	if content != want {
		t.Errorf("label file = %q, want %q", content, want)
	}
}

func TestOverwriteWithNoDetectionsPrunes(t *testing.T) {
	fs := memfs.New()
	writeLabel(t, fs, "labels/a.txt", "0 0.200000 0.200000 0.100000 0.100000\n1 0.800000 0.800000 0.100000 0.100000\n")
	pred := &fakePredictor{}
	p := New(store.New(fs), pred)

	job := baseJob(Overwrite, "images/a.jpg")
	job.AllowedClasses = map[int]bool{0: true}
	res := runJob(t, p, job)
	if res.SkippedImages != 1 {
		t.Errorf("SkippedImages = %d, want 1", res.SkippedImages)
	}

	content := readLabel(t, fs, "labels/a.txt")
	if content != "1 0.800000 0.800000 0.100000 0.100000\n" {
		t.Errorf("label file = %q, want only the class-1 line", content)
	}
}

func TestOverwriteCanEmptyTheFile(t *testing.T) {
	fs := memfs.New()
	writeLabel(t, fs, "labels/a.txt", "0 0.200000 0.200000 0.100000 0.100000\n")
	p := New(store.New(fs), &fakePredictor{})

	job := baseJob(Overwrite, "images/a.jpg")
	job.AllowedClasses = map[int]bool{0: true}
	runJob(t, p, job)

	if content := readLabel(t, fs, "labels/a.txt"); content != "" {
		t.Errorf("label file = %q, want an empty file, not a missing one", content)
	}
}

func TestPredictErrorSkipsOneImage(t *testing.T) {
	fs := memfs.New()
	pred := &fakePredictor{
		errors: map[string]error{"images/a.jpg": errors.New("inference backend down")},
		detections: map[string][]domain.Detection{
			"images/b.jpg": {det(0, 0.9, 0.5, 0.5, 0.2, 0.2)},
		},
	}
	p := New(store.New(fs), pred)

	res := runJob(t, p, baseJob(AddMissing, "images/a.jpg", "images/b.jpg"))
	if res.Processed != 2 || res.SkippedImages != 1 || res.Added != 1 {
		t.Errorf("result = %+v, want the failure contained to one image", res)
	}
}

func TestCancellation(t *testing.T) {
	fs := memfs.New()
	p := New(store.New(fs), nil)
	// The predictor cancels the pipeline from inside the first Predict call,
	// so the worker observes the flag before starting the second image.
	p.predictor = predictorFunc(func(imagePath string) ([]domain.Detection, error) {
		p.Cancel()
		return []domain.Detection{det(0, 0.9, 0.5, 0.5, 0.2, 0.2)}, nil
	})

	res := runJob(t, p, baseJob(AddMissing, "images/a.jpg", "images/b.jpg", "images/c.jpg"))
	if !res.Cancelled {
		t.Error("result should report cancellation")
	}
	if res.Processed != 1 {
		t.Errorf("Processed = %d, want 1 (current image finishes, rest skipped)", res.Processed)
	}
	// The already-written file stays written.
	if content := readLabel(t, fs, "labels/a.txt"); content == "" {
		t.Error("cancellation must not roll back written files")
	}
}

type predictorFunc func(string) ([]domain.Detection, error)

func (f predictorFunc) Predict(imagePath string) ([]domain.Detection, error) { return f(imagePath) }

func TestSingleJobAtATime(t *testing.T) {
	fs := memfs.New()
	release := make(chan struct{})
	p := New(store.New(fs), nil)
	p.predictor = predictorFunc(func(string) ([]domain.Detection, error) {
		<-release
		return nil, nil
	})

	done, ok := p.Start(baseJob(AddMissing, "images/a.jpg"))
	if !ok {
		t.Fatal("first job did not start")
	}
	if _, ok := p.Start(baseJob(AddMissing, "images/b.jpg")); ok {
		t.Error("second job must be refused while one is running")
	}
	close(release)
	<-done
	if _, ok := p.Start(baseJob(AddMissing, "images/b.jpg")); !ok {
		t.Error("a new job should start once the first finished")
	}
}
