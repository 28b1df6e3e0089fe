package index

// IDMap assigns every image its persistent ID: the 1-based rank of its path
// in the full sorted, de-duplicated image list. IDs are stable across
// filtering and across deletions of other images. They are never persisted,
// only recomputed from the directory scan on every workspace (re)load.
type IDMap struct {
	byPath map[string]int
	byID   map[int]string
}

// AssignIDs builds the ID map from a sorted, de-duplicated path list.
func AssignIDs(sortedPaths []string) *IDMap {
	m := &IDMap{
		byPath: make(map[string]int, len(sortedPaths)),
		byID:   make(map[int]string, len(sortedPaths)),
	}
	for i, p := range sortedPaths {
		m.byPath[p] = i + 1
		m.byID[i+1] = p
	}
	return m
}

// ID returns the persistent ID for a path, or 0 if unknown.
func (m *IDMap) ID(path string) int {
	return m.byPath[path]
}

// Path resolves a persistent ID back to its image path.
func (m *IDMap) Path(id int) (string, bool) {
	p, ok := m.byID[id]
	return p, ok
}

func (m *IDMap) Len() int { return len(m.byPath) }
