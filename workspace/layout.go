package workspace

import (
	"fmt"
	"log"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/util"
	"gopkg.in/yaml.v3"
)

const (
	ImagesDir    = "images"
	LabelsDir    = "labels"
	ManifestFile = "data.yaml"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// Ensure creates the images/ and labels/ directories and a default class
// manifest if the workspace does not have them yet.
func Ensure(fs billy.Filesystem) error {
	for _, d := range []string{ImagesDir, LabelsDir} {
		if err := fs.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("while creating workspace directory %s: %w", d, err)
		}
	}
	if _, err := fs.Stat(ManifestFile); err == nil {
		return nil
	}
	log.Printf("Workspace: creating default %s", ManifestFile)
	manifest := struct {
		Path  string         `yaml:"path"`
		Train string         `yaml:"train"`
		Val   string         `yaml:"val"`
		Names map[int]string `yaml:"names"`
	}{Path: ".", Train: ImagesDir, Val: ImagesDir, Names: map[int]string{}}
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("while encoding default manifest: %w", err)
	}
	if err := util.WriteFile(fs, ManifestFile, data, 0o644); err != nil {
		return fmt.Errorf("while writing default manifest: %w", err)
	}
	return nil
}

// ScanImages lists the workspace images as sorted, de-duplicated paths
// relative to the workspace root ("images/frame_001.jpg"). Non-image files
// are ignored; the extension check is case-insensitive.
func ScanImages(fs billy.Filesystem) ([]string, error) {
	entries, err := fs.ReadDir(ImagesDir)
	if err != nil {
		return nil, fmt.Errorf("while listing %s: %w", ImagesDir, err)
	}
	seen := map[string]bool{}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !imageExts[strings.ToLower(path.Ext(e.Name()))] {
			continue
		}
		p := path.Join(ImagesDir, e.Name())
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}
