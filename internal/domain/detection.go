package domain

import "github.com/lewtec/yolomark/internal/geom"

// Detection is an object that a model has found in an image.
type Detection struct {
	Class int
	Score float64
	Box   geom.Box
}

// Annotation converts a detection into an annotation, dropping the score.
func (d Detection) Annotation() Annotation {
	return Annotation{Class: d.Class, Box: d.Box}
}

// Predictor is given an image and returns zero or more detected objects.
// Boxes come back in normalized center form. The engine makes no assumption
// about the order of the results.
type Predictor interface {
	Predict(imagePath string) ([]Detection, error)
}
