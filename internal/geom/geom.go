// geom holds the pure box arithmetic the rest of the engine is built on.
package geom

import "math"

// MinSide is the smallest width/height a box may have after clamping.
const MinSide = 0.001

// Box is a bounding box in normalized YOLO center form: center coordinates
// and dimensions as fractions of the image size.
type Box struct {
	CX float64
	CY float64
	W  float64
	H  float64
}

func (b Box) Area() float64 {
	return b.W * b.H
}

// IoU returns the intersection-over-union of two boxes, in [0, 1].
func IoU(a, b Box) float64 {
	aXMin, aXMax := a.CX-a.W/2, a.CX+a.W/2
	aYMin, aYMax := a.CY-a.H/2, a.CY+a.H/2
	bXMin, bXMax := b.CX-b.W/2, b.CX+b.W/2
	bYMin, bYMax := b.CY-b.H/2, b.CY+b.H/2

	interX := math.Max(0, math.Min(aXMax, bXMax)-math.Max(aXMin, bXMin))
	interY := math.Max(0, math.Min(aYMax, bYMax)-math.Max(aYMin, bYMin))
	inter := interX * interY

	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Overlap reports whether two boxes overlap significantly (IoU above threshold).
func Overlap(a, b Box, threshold float64) bool {
	return IoU(a, b) > threshold
}

// Clamp forces a box into the unit square. The center is clamped to [0, 1]
// and the dimensions are shrunk so the box edges cannot leave it. Dimensions
// never drop below MinSide.
func Clamp(b Box) Box {
	cx := math.Max(0, math.Min(1, b.CX))
	cy := math.Max(0, math.Min(1, b.CY))
	w := math.Max(MinSide, math.Min(math.Abs(b.W), math.Min(2*cx, 2*(1-cx))))
	h := math.Max(MinSide, math.Min(math.Abs(b.H), math.Min(2*cy, 2*(1-cy))))
	return Box{CX: cx, CY: cy, W: w, H: h}
}
