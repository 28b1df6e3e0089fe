package store

import (
	"path"
	"strings"
)

// LabelPath maps an image path to the label file the engine writes.
// images/foo.jpg maps to labels/foo.txt next to the images directory; images
// outside an images/ directory get a labels/ subdirectory alongside them.
func LabelPath(imagePath string) string {
	dir := path.Dir(imagePath)
	base := path.Base(imagePath)
	stem := strings.TrimSuffix(base, path.Ext(base))

	if path.Base(dir) == "images" {
		return path.Join(path.Dir(dir), "labels", stem+".txt")
	}
	return path.Join(dir, "labels", stem+".txt")
}

// sameDirLabelPath is the read-only fallback: a .txt sitting next to the image.
func sameDirLabelPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, path.Ext(imagePath)) + ".txt"
}
