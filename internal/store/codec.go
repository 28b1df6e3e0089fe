package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lewtec/yolomark/internal/domain"
	"github.com/lewtec/yolomark/internal/geom"
)

// ParseLine parses one label file line ("<class> <cx> <cy> <w> <h>").
// Malformed lines report ok=false and are dropped by callers, never fatal.
func ParseLine(line string) (domain.Annotation, bool) {
	parts := strings.Fields(line)
	if len(parts) < 5 {
		return domain.Annotation{}, false
	}
	class, err := strconv.Atoi(parts[0])
	if err != nil || class < 0 {
		return domain.Annotation{}, false
	}
	var coords [4]float64
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil {
			return domain.Annotation{}, false
		}
		coords[i] = v
	}
	return domain.Annotation{
		Class: class,
		Box:   geom.Box{CX: coords[0], CY: coords[1], W: coords[2], H: coords[3]},
	}, true
}

// FormatLine renders an annotation as a label file line, newline terminated.
// The caller is responsible for clamping first.
func FormatLine(a domain.Annotation) string {
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f\n", a.Class, a.Box.CX, a.Box.CY, a.Box.W, a.Box.H)
}

// Decode parses a whole label file. Bad lines are dropped, every surviving
// annotation is clamped into the unit square, and clamped reports whether any
// value changed (the caller should then re-save the corrected set).
func Decode(data []byte) (anns []domain.Annotation, clamped bool) {
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		a, ok := ParseLine(line)
		if !ok {
			continue
		}
		fixed := a.Clamped()
		if fixed != a {
			clamped = true
		}
		anns = append(anns, fixed)
	}
	return anns, clamped
}

// Encode renders annotations as label file content, clamping each one.
func Encode(anns []domain.Annotation) []byte {
	var sb strings.Builder
	for _, a := range anns {
		sb.WriteString(FormatLine(a.Clamped()))
	}
	return []byte(sb.String())
}
