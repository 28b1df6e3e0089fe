package store

import (
	"fmt"

	"github.com/lewtec/yolomark/internal/domain"
)

// IndexUpdater receives per-image class-set updates on every save, so that
// filter evaluation stays consistent with disk during single-image edits.
type IndexUpdater interface {
	SetEntry(path string, classes map[int]bool)
	Remove(path string)
}

// Session owns the in-memory annotation list of the currently open image.
// Every mutation goes through it, which is what enforces the
// dirty-before-navigate and undo-before-mutate invariants.
type Session struct {
	store   *Store
	history *History
	index   IndexUpdater

	path        string
	annotations []domain.Annotation
	dirty       bool
}

func NewSession(st *Store, h *History, idx IndexUpdater) *Session {
	if h == nil {
		h = NewHistory(DefaultUndoLimit)
	}
	return &Session{store: st, history: h, index: idx}
}

func (s *Session) Path() string { return s.path }

// Annotations returns a copy of the open image's annotation list.
func (s *Session) Annotations() []domain.Annotation {
	return domain.Copy(s.annotations)
}

func (s *Session) History() *History { return s.history }

// Open flushes the current image (if it was mutated) and loads another one.
// If loading clamped any value, the corrected set is persisted immediately.
func (s *Session) Open(imagePath string) error {
	if err := s.Save(false); err != nil {
		return err
	}
	anns, clamped, err := s.store.Load(imagePath)
	if err != nil {
		return err
	}
	s.path = imagePath
	s.annotations = anns
	s.dirty = false
	if clamped && len(anns) > 0 {
		// Self-heal: write the corrected annotations back right away.
		if err := s.Save(true); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the open image's annotations to disk and refreshes its index
// entry. force bypasses the dirty check; the write itself is unconditional
// once it runs. In-memory state is untouched when the write fails.
func (s *Session) Save(force bool) error {
	if s.path == "" {
		return nil
	}
	if !s.dirty && !force {
		return nil
	}
	if err := s.store.Save(s.path, s.annotations); err != nil {
		return err
	}
	if s.index != nil {
		s.index.SetEntry(s.path, domain.ClassSet(s.annotations))
	}
	s.dirty = false
	return nil
}

// Add appends an annotation to the open image and saves.
func (s *Session) Add(a domain.Annotation) error {
	if s.path == "" {
		return fmt.Errorf("no image open")
	}
	s.history.PushUndo(s.path, s.annotations)
	s.annotations = append(s.annotations, a.Clamped())
	s.dirty = true
	return s.Save(false)
}

// RemoveAt deletes the annotation at index i and saves.
func (s *Session) RemoveAt(i int) error {
	if s.path == "" {
		return fmt.Errorf("no image open")
	}
	if i < 0 || i >= len(s.annotations) {
		return fmt.Errorf("annotation index %d out of range", i)
	}
	s.history.PushUndo(s.path, s.annotations)
	s.annotations = append(s.annotations[:i], s.annotations[i+1:]...)
	s.dirty = true
	return s.Save(false)
}

// ReplaceAll swaps the whole annotation list (move, paste, bulk edits) and saves.
func (s *Session) ReplaceAll(anns []domain.Annotation) error {
	if s.path == "" {
		return fmt.Errorf("no image open")
	}
	s.history.PushUndo(s.path, s.annotations)
	clamped := make([]domain.Annotation, len(anns))
	for i, a := range anns {
		clamped[i] = a.Clamped()
	}
	s.annotations = clamped
	s.dirty = true
	return s.Save(false)
}

// ClearClass removes all annotations of one class from the open image and
// saves. Returns how many were removed.
func (s *Session) ClearClass(class int) (int, error) {
	if s.path == "" {
		return 0, fmt.Errorf("no image open")
	}
	kept := s.annotations[:0:0]
	for _, a := range s.annotations {
		if a.Class != class {
			kept = append(kept, a)
		}
	}
	removed := len(s.annotations) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	s.history.PushUndo(s.path, s.annotations)
	s.annotations = kept
	s.dirty = true
	return removed, s.Save(false)
}

// Undo reverts the most recent change. The annotation-undo stack is probed
// first; only when it is empty does a deleted-file restore happen. The
// returned path is the image the undo applied to; ok is false when there was
// nothing to undo. A failed deletion restore still consumes the stack entry.
func (s *Session) Undo() (string, bool, error) {
	if snap, ok := s.history.PopUndo(); ok {
		if s.path != "" {
			s.history.pushRedo(s.path, s.annotations)
		}
		if snap.Path != s.path {
			if err := s.Open(snap.Path); err != nil {
				return snap.Path, true, err
			}
		}
		s.annotations = domain.Copy(snap.Annotations)
		s.dirty = true
		return snap.Path, true, s.Save(true)
	}

	if d, ok := s.history.PopDeletion(); ok {
		if err := s.store.RestoreImage(d); err != nil {
			return d.ImagePath, true, err
		}
		if s.index != nil {
			anns, _ := Decode([]byte(d.LabelText))
			s.index.SetEntry(d.ImagePath, domain.ClassSet(anns))
		}
		return d.ImagePath, true, nil
	}

	return "", false, nil
}

// Redo re-applies the most recently undone annotation change. The current
// state goes back onto the undo stack first.
func (s *Session) Redo() (string, bool, error) {
	snap, ok := s.history.PopRedo()
	if !ok {
		return "", false, nil
	}
	if s.path != "" {
		s.history.restoreUndo(s.path, s.annotations)
	}
	if snap.Path != s.path {
		if err := s.Open(snap.Path); err != nil {
			return snap.Path, true, err
		}
	}
	s.annotations = domain.Copy(snap.Annotations)
	s.dirty = true
	return snap.Path, true, s.Save(true)
}

// DeleteImage removes the open image and its label file from disk, keeping
// their bytes on the deletion-undo stack.
func (s *Session) DeleteImage() error {
	if s.path == "" {
		return fmt.Errorf("no image open")
	}
	del := Deletion{ImagePath: s.path, LabelPath: LabelPath(s.path)}
	if data, err := s.store.ReadImageBytes(s.path); err == nil {
		del.ImageData = data
	}
	if text, ok, err := s.store.LabelText(s.path); err == nil && ok {
		del.LabelText = text
		del.HadLabel = true
	}
	s.history.PushDeletion(del)

	if err := s.store.RemoveImage(s.path); err != nil {
		return err
	}
	if s.index != nil {
		s.index.Remove(s.path)
	}
	// Do not let a later save resurrect the deleted labels.
	s.path = ""
	s.annotations = nil
	s.dirty = false
	return nil
}
