package workspace

import (
	"fmt"
	"log"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v6"

	"github.com/lewtec/yolomark/internal/domain"
	"github.com/lewtec/yolomark/internal/geom"
	"github.com/lewtec/yolomark/internal/store"
)

// Issue is one finding against one image's label file.
type Issue struct {
	Image  string
	Detail string
}

// Report summarizes a validation pass.
type Report struct {
	FilesChecked      int
	FilesFixed        int
	EmptyFilesRemoved int
	MalformedRemoved  int
	ValuesClamped     int
	BadClassIDs       int
	Issues            []Issue
}

// Validate walks every label file, dropping malformed lines and clamping
// boxes back into the unit square. classCount bounds the known class IDs;
// IDs past it are flagged but kept (the manifest may just be stale). With
// fix set, corrected files are rewritten and files left with no valid
// lines are removed.
func Validate(fs billy.Filesystem, st *store.Store, images []string, classCount int, fix bool) (*Report, error) {
	rep := &Report{}
	for _, img := range images {
		lines, err := st.RawLines(img)
		if err != nil {
			rep.Issues = append(rep.Issues, Issue{img, fmt.Sprintf("unreadable label file: %v", err)})
			continue
		}
		if lines == nil {
			continue
		}
		rep.FilesChecked++

		var kept []string
		modified := false
		for i, line := range lines {
			ann, ok := parseStrict(line)
			if !ok {
				rep.MalformedRemoved++
				modified = true
				rep.Issues = append(rep.Issues, Issue{img, fmt.Sprintf("line %d: removed (malformed)", i+1)})
				continue
			}
			if classCount > 0 && ann.Class >= classCount {
				rep.BadClassIDs++
				rep.Issues = append(rep.Issues, Issue{img, fmt.Sprintf("line %d: class ID %d exceeds max %d (kept, but may be wrong)", i+1, ann.Class, classCount-1)})
			}
			clamped := ann.Clamped()
			if clamped.Box != ann.Box {
				rep.ValuesClamped++
				modified = true
				rep.Issues = append(rep.Issues, Issue{img, fmt.Sprintf("line %d: box clamped into bounds", i+1)})
			}
			kept = append(kept, strings.TrimSuffix(store.FormatLine(clamped), "\n"))
		}

		if !modified || !fix {
			continue
		}
		if len(kept) == 0 {
			if err := fs.Remove(store.LabelPath(img)); err != nil {
				return nil, fmt.Errorf("while removing empty label file for %s: %w", img, err)
			}
			rep.EmptyFilesRemoved++
			rep.Issues = append(rep.Issues, Issue{img, "file removed (no valid lines remaining)"})
			continue
		}
		if err := st.WriteLines(img, kept); err != nil {
			return nil, err
		}
		rep.FilesFixed++
	}
	log.Printf("Validate: checked %d files, fixed %d, removed %d malformed lines, clamped %d values",
		rep.FilesChecked, rep.FilesFixed, rep.MalformedRemoved, rep.ValuesClamped)
	return rep, nil
}

// parseStrict is like the codec parser but without its clamping, so the
// caller can tell a bad value from a merely out-of-bounds one.
func parseStrict(line string) (domain.Annotation, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return domain.Annotation{}, false
	}
	class, err := strconv.Atoi(fields[0])
	if err != nil || class < 0 {
		return domain.Annotation{}, false
	}
	vals := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return domain.Annotation{}, false
		}
		vals[i] = v
	}
	return domain.Annotation{Class: class, Box: geom.Box{CX: vals[0], CY: vals[1], W: vals[2], H: vals[3]}}, true
}

// FindDuplicates groups images whose bytes hash identically. Only groups
// with more than one member are returned, keyed by hash, members sorted.
func FindDuplicates(fs billy.Filesystem, images []string) (map[string][]string, error) {
	byHash := map[string][]string{}
	for _, img := range images {
		h, err := HashFile(fs, img)
		if err != nil {
			return nil, fmt.Errorf("while hashing %s: %w", img, err)
		}
		byHash[h] = append(byHash[h], img)
	}
	dupes := map[string][]string{}
	for h, members := range byHash {
		if len(members) > 1 {
			sort.Strings(members)
			dupes[h] = members
		}
	}
	return dupes, nil
}

// FindDuplicateStems groups images that share a base name without extension.
// Such images resolve to the same label file, so annotating one silently
// overwrites the other's labels.
func FindDuplicateStems(images []string) map[string][]string {
	byStem := map[string][]string{}
	for _, img := range images {
		base := path.Base(img)
		stem := strings.TrimSuffix(base, path.Ext(base))
		byStem[stem] = append(byStem[stem], img)
	}
	dupes := map[string][]string{}
	for stem, members := range byStem {
		if len(members) > 1 {
			sort.Strings(members)
			dupes[stem] = members
		}
	}
	return dupes
}
