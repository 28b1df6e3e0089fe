// index keeps the derived class-membership view of the dataset: for every
// image, which class IDs its label file currently contains.
package index

import (
	"strconv"
	"strings"

	"github.com/lewtec/yolomark/internal/store"
)

// Stats are dataset-wide aggregates accumulated during a rebuild.
type Stats struct {
	TotalImages int
	Annotated   int
	TotalBoxes  int
	ClassesUsed map[int]bool
}

// Index maps image paths to the set of class IDs present in their label
// files. It is owned by the UI thread; the batch worker never touches it,
// so no locking is needed.
type Index struct {
	classes map[string]map[int]bool
	stats   Stats
}

func New() *Index {
	return &Index{
		classes: map[string]map[int]bool{},
		stats:   Stats{ClassesUsed: map[int]bool{}},
	}
}

// Rebuild scans every label file from scratch, replacing all entries and
// accumulating dataset stats in the same pass. Entries are never patched
// incrementally across bulk mutations; a rebuild is the freshness guarantee.
func (ix *Index) Rebuild(st *store.Store, imagePaths []string) Stats {
	ix.classes = make(map[string]map[int]bool, len(imagePaths))
	stats := Stats{TotalImages: len(imagePaths), ClassesUsed: map[int]bool{}}

	for _, p := range imagePaths {
		set := map[int]bool{}
		ix.classes[p] = set

		lines, err := st.RawLines(p)
		if err != nil {
			continue // unreadable label file: treat as unannotated
		}
		if len(lines) == 0 {
			continue
		}
		stats.Annotated++
		for _, line := range lines {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			if len(fields) >= 5 {
				stats.TotalBoxes++
			}
			class, err := strconv.Atoi(fields[0])
			if err != nil || class < 0 {
				continue
			}
			set[class] = true
			stats.ClassesUsed[class] = true
		}
	}

	ix.stats = stats
	return stats
}

// Classes returns the class set for one image. Unknown paths report an empty set.
func (ix *Index) Classes(path string) map[int]bool {
	return ix.classes[path]
}

// SetEntry refreshes a single image's class set after a per-image save.
func (ix *Index) SetEntry(path string, classes map[int]bool) {
	ix.classes[path] = classes
}

// Remove drops an image from the index (image deleted from disk).
func (ix *Index) Remove(path string) {
	delete(ix.classes, path)
}

// Stats returns the aggregates from the most recent rebuild. Per-entry
// updates since then are not reflected; rebuild before trusting them.
func (ix *Index) Stats() Stats {
	return ix.stats
}
