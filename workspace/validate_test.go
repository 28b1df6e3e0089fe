package workspace

import (
	"strings"
	"testing"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/util"

	"github.com/lewtec/yolomark/internal/store"
)

func TestValidateFix(t *testing.T) {
	fs := memfs.New()
	write := func(path, content string) {
		t.Helper()
		if err := util.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// clean file, file with a malformed line, file with an out-of-bounds
	// box, file with only garbage.
	write("labels/clean.txt", "0 0.500000 0.500000 0.200000 0.200000\n")
	write("labels/mixed.txt", "garbage here\n1 0.500000 0.500000 0.200000 0.200000\n")
	write("labels/oob.txt", "0 1.500000 0.500000 0.200000 0.200000\n")
	write("labels/bad.txt", "not numbers at all\n")
	write("labels/stale.txt", "9 0.500000 0.500000 0.200000 0.200000\n")

	images := []string{"images/bad.jpg", "images/clean.jpg", "images/mixed.jpg", "images/oob.jpg", "images/stale.jpg"}
	st := store.New(fs)
	rep, err := Validate(fs, st, images, 2, true)
	if err != nil {
		t.Fatal(err)
	}

	if rep.FilesChecked != 5 {
		t.Errorf("FilesChecked = %d, want 5", rep.FilesChecked)
	}
	if rep.MalformedRemoved != 2 {
		t.Errorf("MalformedRemoved = %d, want 2", rep.MalformedRemoved)
	}
	if rep.ValuesClamped != 1 {
		t.Errorf("ValuesClamped = %d, want 1", rep.ValuesClamped)
	}
	if rep.BadClassIDs != 1 {
		t.Errorf("BadClassIDs = %d, want 1", rep.BadClassIDs)
	}
	if rep.FilesFixed != 2 {
		t.Errorf("FilesFixed = %d, want 2 (mixed and oob)", rep.FilesFixed)
	}
	if rep.EmptyFilesRemoved != 1 {
		t.Errorf("EmptyFilesRemoved = %d, want 1", rep.EmptyFilesRemoved)
	}

	// The clean file is untouched, the mixed file keeps its good line, the
	// garbage-only file is gone, the stale class is kept as-is.
	if data, _ := util.ReadFile(fs, "labels/mixed.txt"); string(data) != "1 0.500000 0.500000 0.200000 0.200000\n" {
		t.Errorf("mixed.txt = %q", data)
	}
	if _, err := fs.Stat("labels/bad.txt"); err == nil {
		t.Error("bad.txt should have been removed")
	}
	if data, _ := util.ReadFile(fs, "labels/stale.txt"); !strings.HasPrefix(string(data), "9 ") {
		t.Errorf("stale.txt should keep the out-of-range class, got %q", data)
	}
	// The out-of-bounds center is pulled back inside the unit square.
	if data, _ := util.ReadFile(fs, "labels/oob.txt"); string(data) != "0 1.000000 0.500000 0.001000 0.200000\n" {
		t.Errorf("oob.txt = %q", data)
	}
}

func TestValidateDryRun(t *testing.T) {
	fs := memfs.New()
	original := "garbage\n0 0.500000 0.500000 0.200000 0.200000\n"
	if err := util.WriteFile(fs, "labels/a.txt", []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	rep, err := Validate(fs, store.New(fs), []string{"images/a.jpg"}, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.MalformedRemoved != 1 || rep.FilesFixed != 0 {
		t.Errorf("report = %+v", rep)
	}
	if data, _ := util.ReadFile(fs, "labels/a.txt"); string(data) != original {
		t.Error("a dry run must not modify files")
	}
}

func TestFindDuplicates(t *testing.T) {
	fs := memfs.New()
	files := map[string]string{
		"images/a.jpg": "same bytes",
		"images/b.jpg": "same bytes",
		"images/c.jpg": "different",
	}
	for p, content := range files {
		if err := util.WriteFile(fs, p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	dupes, err := FindDuplicates(fs, []string{"images/a.jpg", "images/b.jpg", "images/c.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	if len(dupes) != 1 {
		t.Fatalf("got %d duplicate groups, want 1", len(dupes))
	}
	for _, members := range dupes {
		if len(members) != 2 || members[0] != "images/a.jpg" || members[1] != "images/b.jpg" {
			t.Errorf("group = %v", members)
		}
	}
}

func TestFindDuplicateStems(t *testing.T) {
	dupes := FindDuplicateStems([]string{
		"images/a.jpg", "images/a.png", "images/b.jpg",
	})
	if len(dupes) != 1 {
		t.Fatalf("got %d stem groups, want 1", len(dupes))
	}
	members, ok := dupes["a"]
	if !ok {
		t.Fatalf("missing group for stem a: %v", dupes)
	}
	if len(members) != 2 || members[0] != "images/a.jpg" || members[1] != "images/a.png" {
		t.Errorf("group = %v", members)
	}
}
