// reduce downsamples a dataset to a target image count, keeping the name
// ordering as the timeline: the sorted list is cut into contiguous segments
// and one image survives per segment. Excluded images are quarantined under
// skipped_images/ or deleted outright.
package reduce

import (
	"fmt"
	"log"
	"math/rand"
	"path"
	"strings"

	"github.com/go-git/go-billy/v6"
)

// Method selects how the survivor of each segment is picked.
type Method int

const (
	// Stratified picks a seeded-random index within each segment.
	Stratified Method = iota
	// Uniform picks the midpoint of each segment, deterministically.
	Uniform
)

func (m Method) String() string {
	if m == Uniform {
		return "uniform"
	}
	return "stratified"
}

// Action says what happens to the excluded complement.
type Action int

const (
	// Move relocates excluded files to skipped_images/, preserving the
	// images/labels split.
	Move Action = iota
	// Delete removes them permanently.
	Delete
)

// QuarantineDir is where Move puts excluded files, relative to the
// workspace root.
const QuarantineDir = "skipped_images"

// Plan partitions the input list: Kept ∪ Excluded is the original set,
// the two are disjoint, and len(Kept) equals the target count.
type Plan struct {
	Kept     []string
	Excluded []string
}

// Select computes the sample. files must be sorted and de-duplicated; the
// file at each chosen index is kept, everything else is excluded. Order is
// preserved in both halves.
func Select(files []string, k int, method Method, seed int64) (Plan, error) {
	n := len(files)
	if k <= 0 {
		return Plan{}, fmt.Errorf("target count must be positive, got %d", k)
	}
	if k >= n {
		return Plan{}, fmt.Errorf("target count %d does not reduce %d images", k, n)
	}

	keep := make(map[int]bool, k)
	switch method {
	case Uniform:
		// Float segment width keeps the midpoints evenly spread over long
		// runs where n is not a multiple of k.
		base := float64(n) / float64(k)
		for i := 0; i < k; i++ {
			idx := int((float64(i) + 0.5) * base)
			if idx > n-1 {
				idx = n - 1
			}
			keep[idx] = true
		}
	default:
		rnd := rand.New(rand.NewSource(seed))
		base := n / k
		rem := n % k
		start := 0
		for i := 0; i < k; i++ {
			segSize := base
			if i < rem {
				segSize++
			}
			keep[start+rnd.Intn(segSize)] = true
			start += segSize
		}
	}

	plan := Plan{Kept: make([]string, 0, k), Excluded: make([]string, 0, n-k)}
	for i, f := range files {
		if keep[i] {
			plan.Kept = append(plan.Kept, f)
		} else {
			plan.Excluded = append(plan.Excluded, f)
		}
	}
	return plan, nil
}

// Apply carries out the plan on disk. files in the plan are image base
// names under images/; each excluded image takes its labels/ twin with it.
// A failure on one file is logged and skips that file only.
func Apply(fs billy.Filesystem, plan Plan, action Action) (int, error) {
	if action == Move {
		for _, d := range []string{path.Join(QuarantineDir, "images"), path.Join(QuarantineDir, "labels")} {
			if err := fs.MkdirAll(d, 0o755); err != nil {
				return 0, fmt.Errorf("while creating quarantine directory %s: %w", d, err)
			}
		}
	}

	done := 0
	for _, f := range plan.Excluded {
		img := path.Join("images", f)
		lbl := path.Join("labels", labelName(f))

		if action == Move {
			if err := fs.Rename(img, path.Join(QuarantineDir, "images", f)); err != nil {
				log.Printf("Reduce: while moving %s: %v", img, err)
				continue
			}
			if _, err := fs.Stat(lbl); err == nil {
				if err := fs.Rename(lbl, path.Join(QuarantineDir, "labels", labelName(f))); err != nil {
					log.Printf("Reduce: while moving %s: %v", lbl, err)
				}
			}
		} else {
			if err := fs.Remove(img); err != nil {
				log.Printf("Reduce: while deleting %s: %v", img, err)
				continue
			}
			if _, err := fs.Stat(lbl); err == nil {
				if err := fs.Remove(lbl); err != nil {
					log.Printf("Reduce: while deleting %s: %v", lbl, err)
				}
			}
		}
		done++
	}
	return done, nil
}

func labelName(imageName string) string {
	ext := path.Ext(imageName)
	return strings.TrimSuffix(imageName, ext) + ".txt"
}
