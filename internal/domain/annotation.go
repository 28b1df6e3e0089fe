package domain

import "github.com/lewtec/yolomark/internal/geom"

// Annotation is a single labeled object on an image, in normalized YOLO form.
type Annotation struct {
	Class int
	Box   geom.Box
}

// Clamped returns a copy of the annotation with its box forced into the unit square.
func (a Annotation) Clamped() Annotation {
	return Annotation{Class: a.Class, Box: geom.Clamp(a.Box)}
}

// ClassSet returns the set of class IDs present in an annotation list.
func ClassSet(anns []Annotation) map[int]bool {
	set := make(map[int]bool, len(anns))
	for _, a := range anns {
		set[a.Class] = true
	}
	return set
}

// ClassCounts returns per-class annotation counts for an annotation list.
func ClassCounts(anns []Annotation) map[int]int {
	counts := map[int]int{}
	for _, a := range anns {
		counts[a.Class]++
	}
	return counts
}

// Copy deep-copies an annotation list. Undo snapshots must not alias live state.
func Copy(anns []Annotation) []Annotation {
	if anns == nil {
		return nil
	}
	out := make([]Annotation, len(anns))
	copy(out, anns)
	return out
}
