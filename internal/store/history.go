package store

import "github.com/lewtec/yolomark/internal/domain"

// DefaultUndoLimit bounds undo memory.
const DefaultUndoLimit = 50

// Snapshot is an undo/redo entry: one image's full annotation list.
type Snapshot struct {
	Path        string
	Annotations []domain.Annotation
}

// Deletion is an entry of the separate deletion-undo stack. Deleting an image
// removes bytes outside the annotation model, so the whole files are kept.
type Deletion struct {
	ImagePath string
	LabelPath string
	ImageData []byte
	LabelText string
	HadLabel  bool
}

// History holds the two undo stacks. Annotation undo and deletion undo are
// independent stacks probed in fixed priority order, not interleaved by time.
type History struct {
	limit    int
	undo     []Snapshot
	redo     []Snapshot
	deletion []Deletion
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultUndoLimit
	}
	return &History{limit: limit}
}

// PushUndo snapshots an image's annotations before a mutation. It clears the
// redo stack and evicts the oldest entry once the bound is exceeded.
func (h *History) PushUndo(path string, anns []domain.Annotation) {
	h.redo = h.redo[:0]
	h.undo = append(h.undo, Snapshot{Path: path, Annotations: domain.Copy(anns)})
	if len(h.undo) > h.limit {
		h.undo = h.undo[1:]
	}
}

func (h *History) PopUndo() (Snapshot, bool) {
	if len(h.undo) == 0 {
		return Snapshot{}, false
	}
	s := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	return s, true
}

func (h *History) PopRedo() (Snapshot, bool) {
	if len(h.redo) == 0 {
		return Snapshot{}, false
	}
	s := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	return s, true
}

// pushRedo and restoreUndo move state between the stacks during undo/redo
// without clearing anything.
func (h *History) pushRedo(path string, anns []domain.Annotation) {
	h.redo = append(h.redo, Snapshot{Path: path, Annotations: domain.Copy(anns)})
}

func (h *History) restoreUndo(path string, anns []domain.Annotation) {
	h.undo = append(h.undo, Snapshot{Path: path, Annotations: domain.Copy(anns)})
}

func (h *History) PushDeletion(d Deletion) {
	h.deletion = append(h.deletion, d)
}

func (h *History) PopDeletion() (Deletion, bool) {
	if len(h.deletion) == 0 {
		return Deletion{}, false
	}
	d := h.deletion[len(h.deletion)-1]
	h.deletion = h.deletion[:len(h.deletion)-1]
	return d, true
}

func (h *History) UndoDepth() int     { return len(h.undo) }
func (h *History) RedoDepth() int     { return len(h.redo) }
func (h *History) DeletionDepth() int { return len(h.deletion) }
