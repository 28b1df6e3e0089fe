// store owns per-image annotation state on disk: the YOLO label file codec,
// label path resolution, undo/redo history, and the editing session.
package store

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/util"

	"github.com/lewtec/yolomark/internal/domain"
)

// Store reads and writes label files under a workspace filesystem.
type Store struct {
	fs billy.Filesystem
}

func New(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

// Load reads the annotations for an image. The primary label path is tried
// first, then the same-directory .txt fallback (read only). A missing file
// means zero annotations, not an error. clamped reports whether any loaded
// value had to be corrected; the caller must then persist the corrected set.
func (s *Store) Load(imagePath string) (anns []domain.Annotation, clamped bool, err error) {
	readPath := LabelPath(imagePath)
	if !s.exists(readPath) {
		fallback := sameDirLabelPath(imagePath)
		if !s.exists(fallback) {
			return nil, false, nil
		}
		readPath = fallback
	}
	data, err := util.ReadFile(s.fs, readPath)
	if err != nil {
		return nil, false, fmt.Errorf("while reading label file %s: %w", readPath, err)
	}
	anns, clamped = Decode(data)
	return anns, clamped, nil
}

// Save writes all annotations (re-clamped) to the primary label path,
// creating parent directories as needed. The write is unconditional.
func (s *Store) Save(imagePath string, anns []domain.Annotation) error {
	lbl := LabelPath(imagePath)
	if err := s.fs.MkdirAll(path.Dir(lbl), 0o755); err != nil {
		return fmt.Errorf("while creating label directory for %s: %w", imagePath, err)
	}
	if err := util.WriteFile(s.fs, lbl, Encode(anns), 0o644); err != nil {
		return fmt.Errorf("while writing label file %s: %w", lbl, err)
	}
	return nil
}

// Append appends annotations to the primary label file, creating it if absent.
func (s *Store) Append(imagePath string, anns []domain.Annotation) error {
	lbl := LabelPath(imagePath)
	if err := s.fs.MkdirAll(path.Dir(lbl), 0o755); err != nil {
		return fmt.Errorf("while creating label directory for %s: %w", imagePath, err)
	}
	f, err := s.fs.OpenFile(lbl, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("while opening label file %s for append: %w", lbl, err)
	}
	defer f.Close()
	if _, err := f.Write(Encode(anns)); err != nil {
		return fmt.Errorf("while appending to label file %s: %w", lbl, err)
	}
	return nil
}

// RawLines returns the raw, non-blank lines of the primary label file, without
// parsing them. Used where unparseable lines must be preserved verbatim.
func (s *Store) RawLines(imagePath string) ([]string, error) {
	lbl := LabelPath(imagePath)
	if !s.exists(lbl) {
		return nil, nil
	}
	data, err := util.ReadFile(s.fs, lbl)
	if err != nil {
		return nil, fmt.Errorf("while reading label file %s: %w", lbl, err)
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// WriteLines replaces the primary label file with the given lines. An empty
// slice writes an empty file, not "no file".
func (s *Store) WriteLines(imagePath string, lines []string) error {
	lbl := LabelPath(imagePath)
	if err := s.fs.MkdirAll(path.Dir(lbl), 0o755); err != nil {
		return fmt.Errorf("while creating label directory for %s: %w", imagePath, err)
	}
	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	if err := util.WriteFile(s.fs, lbl, []byte(content), 0o644); err != nil {
		return fmt.Errorf("while writing label file %s: %w", lbl, err)
	}
	return nil
}

// LabelText reads the primary label file verbatim. ok is false when the file
// does not exist.
func (s *Store) LabelText(imagePath string) (string, bool, error) {
	lbl := LabelPath(imagePath)
	if !s.exists(lbl) {
		return "", false, nil
	}
	data, err := util.ReadFile(s.fs, lbl)
	if err != nil {
		return "", false, fmt.Errorf("while reading label file %s: %w", lbl, err)
	}
	return string(data), true, nil
}

// ReadImageBytes reads the raw image file, for deletion-undo snapshots.
func (s *Store) ReadImageBytes(imagePath string) ([]byte, error) {
	return util.ReadFile(s.fs, imagePath)
}

// RemoveImage deletes an image and its label file from disk.
func (s *Store) RemoveImage(imagePath string) error {
	if s.exists(imagePath) {
		if err := s.fs.Remove(imagePath); err != nil {
			return fmt.Errorf("while deleting image %s: %w", imagePath, err)
		}
	}
	lbl := LabelPath(imagePath)
	if s.exists(lbl) {
		if err := s.fs.Remove(lbl); err != nil {
			return fmt.Errorf("while deleting label file %s: %w", lbl, err)
		}
	}
	return nil
}

// RestoreImage writes back a previously deleted image and label file.
func (s *Store) RestoreImage(d Deletion) error {
	if d.ImageData != nil {
		if err := s.fs.MkdirAll(path.Dir(d.ImagePath), 0o755); err != nil {
			return fmt.Errorf("while recreating image directory: %w", err)
		}
		if err := util.WriteFile(s.fs, d.ImagePath, d.ImageData, 0o644); err != nil {
			return fmt.Errorf("while restoring image %s: %w", d.ImagePath, err)
		}
	}
	if d.HadLabel {
		if err := s.fs.MkdirAll(path.Dir(d.LabelPath), 0o755); err != nil {
			return fmt.Errorf("while recreating label directory: %w", err)
		}
		if err := util.WriteFile(s.fs, d.LabelPath, []byte(d.LabelText), 0o644); err != nil {
			return fmt.Errorf("while restoring label %s: %w", d.LabelPath, err)
		}
	}
	return nil
}

func (s *Store) exists(p string) bool {
	_, err := s.fs.Stat(p)
	return err == nil
}
