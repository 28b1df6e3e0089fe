package workspace

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/util"
	"gopkg.in/yaml.v3"
)

// LoadClasses reads the ordered class-name list from the manifest. The
// `names` key may be either a list or an {index: name} map; a map is
// densified up to its highest index. A missing manifest or a manifest
// without names yields an empty list.
func LoadClasses(fs billy.Filesystem) ([]string, error) {
	data, err := util.ReadFile(fs, ManifestFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("while reading %s: %w", ManifestFile, err)
	}

	var manifest struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("while parsing %s: %w", ManifestFile, err)
	}

	switch manifest.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := manifest.Names.Decode(&names); err != nil {
			return nil, fmt.Errorf("while decoding class names: %w", err)
		}
		return names, nil
	case yaml.MappingNode:
		byIndex := map[int]string{}
		if err := manifest.Names.Decode(&byIndex); err != nil {
			return nil, fmt.Errorf("while decoding class names: %w", err)
		}
		if len(byIndex) == 0 {
			return nil, nil
		}
		max := 0
		for i := range byIndex {
			if i < 0 {
				return nil, fmt.Errorf("class index %d is negative", i)
			}
			if i > max {
				max = i
			}
		}
		names := make([]string, max+1)
		for i, n := range byIndex {
			names[i] = n
		}
		return names, nil
	}
	return nil, nil
}

// SaveClasses writes the class list back as an {index: name} map plus the
// nc count, preserving any other keys the manifest already has.
func SaveClasses(fs billy.Filesystem, classes []string) error {
	doc := map[string]interface{}{}
	if data, err := util.ReadFile(fs, ManifestFile); err == nil {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("while parsing %s: %w", ManifestFile, err)
		}
	}

	names := make(map[int]string, len(classes))
	for i, n := range classes {
		names[i] = n
	}
	doc["names"] = names
	doc["nc"] = len(classes)

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("while encoding %s: %w", ManifestFile, err)
	}
	if err := util.WriteFile(fs, ManifestFile, data, 0o644); err != nil {
		return fmt.Errorf("while writing %s: %w", ManifestFile, err)
	}
	return nil
}

// ClassName resolves a class ID for display, falling back to the raw ID
// when the manifest has no name for it.
func ClassName(classes []string, id int) string {
	if id >= 0 && id < len(classes) && classes[id] != "" {
		return classes[id]
	}
	return fmt.Sprintf("class %d", id)
}

// SortedClassIDs returns the keys of a class-keyed map in ascending order.
func SortedClassIDs[V any](m map[int]V) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
