package domain

import "github.com/lewtec/yolomark/internal/geom"

const (
	// DefaultCoordTolerance is the per-coordinate distance under which two
	// same-class boxes are treated as the same annotation.
	DefaultCoordTolerance = 0.02

	// TinyArea flags boxes smaller than 0.1% of the image.
	TinyArea = 0.001

	// ExtremeOverlapIoU flags pairs that are nearly identical boxes.
	ExtremeOverlapIoU = 0.8
)

// DuplicateOrOverlapping reports whether a candidate annotation duplicates or
// significantly overlaps an existing annotation of the same class.
//
// Two checks, in order: a near-exact coordinate match (catches subtle
// duplicates), then an IoU overlap check. Annotations of a different class
// never suppress the candidate.
func DuplicateOrOverlapping(cand Annotation, existing []Annotation, iouThreshold, coordTolerance float64) bool {
	for _, a := range existing {
		if a.Class != cand.Class {
			continue
		}
		if near(a.Box.CX, cand.Box.CX, coordTolerance) &&
			near(a.Box.CY, cand.Box.CY, coordTolerance) &&
			near(a.Box.W, cand.Box.W, coordTolerance) &&
			near(a.Box.H, cand.Box.H, coordTolerance) {
			return true
		}
		if geom.Overlap(cand.Box, a.Box, iouThreshold) {
			return true
		}
	}
	return false
}

func near(a, b, tolerance float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < tolerance
}

// HasOverlaps reports whether any two annotations on the image overlap with
// IoU above the threshold, regardless of class.
func HasOverlaps(anns []Annotation, threshold float64) bool {
	for i := 0; i < len(anns); i++ {
		for j := i + 1; j < len(anns); j++ {
			if geom.Overlap(anns[i].Box, anns[j].Box, threshold) {
				return true
			}
		}
	}
	return false
}

// Suspicious reports whether an annotation set looks wrong: a tiny box
// (optional, with per-class exclusions) or a pair of nearly identical boxes.
func Suspicious(anns []Annotation, includeTiny bool, tinyExclude map[int]bool) bool {
	if len(anns) == 0 {
		return false
	}
	if includeTiny {
		for _, a := range anns {
			if tinyExclude[a.Class] {
				continue
			}
			if a.Box.Area() < TinyArea {
				return true
			}
		}
	}
	return HasOverlaps(anns, ExtremeOverlapIoU)
}
