package main

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// executeCommand is a helper to run a cobra command and capture its output
func executeCommand(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	log.SetOutput(&errOut)
	defer log.SetOutput(os.Stderr) // Restore default logger

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)

	return out.String(), errOut.String(), err
}

// setupWorkspace builds a small on-disk workspace: two cat boxes on a.jpg,
// nothing on b.jpg.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mustWrite := func(rel, content string) {
		t.Helper()
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("data.yaml", "nc: 2\nnames: [cat, dog]\n")
	mustWrite("images/a.jpg", "fake image bytes")
	mustWrite("images/b.jpg", "other fake image bytes")
	mustWrite("labels/a.txt", "0 0.250000 0.250000 0.100000 0.100000\n0 0.750000 0.750000 0.100000 0.100000\n")
	return dir
}

func TestStatsCmd(t *testing.T) {
	dir := setupWorkspace(t)
	out, errOut, err := executeCommand("stats", "--workspace", dir)
	if err != nil {
		t.Fatalf("command execution failed: %v, output: %s", err, errOut)
	}
	for _, want := range []string{"Images:      2", "Annotated:   1", "Boxes:       2", "cat"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got: %s", want, out)
		}
	}
}

func TestQueryCmd(t *testing.T) {
	dir := setupWorkspace(t)

	t.Run("has mode", func(t *testing.T) {
		out, errOut, err := executeCommand("query", "has:cat", "--workspace", dir)
		if err != nil {
			t.Fatalf("command execution failed: %v, output: %s", err, errOut)
		}
		if strings.TrimSpace(out) != "images/a.jpg" {
			t.Errorf("expected only images/a.jpg, got: %s", out)
		}
	})

	t.Run("custom query", func(t *testing.T) {
		out, errOut, err := executeCommand("query", "cat>=2 and dog=0", "--workspace", dir)
		if err != nil {
			t.Fatalf("command execution failed: %v, output: %s", err, errOut)
		}
		if !strings.Contains(out, "images/a.jpg") {
			t.Errorf("expected images/a.jpg to match, got: %s", out)
		}
	})

	t.Run("unknown class fails", func(t *testing.T) {
		_, _, err := executeCommand("query", "has:bird", "--workspace", dir)
		if err == nil {
			t.Fatal("expected an error for an unknown class, but got none")
		}
	})
}

func TestValidateCmd(t *testing.T) {
	dir := setupWorkspace(t)
	if err := os.WriteFile(filepath.Join(dir, "labels", "b.txt"), []byte("garbage line\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, errOut, err := executeCommand("validate", "--workspace", dir, "--fix")
	if err != nil {
		t.Fatalf("command execution failed: %v, output: %s", err, errOut)
	}
	if !strings.Contains(out, "empty files removed:  1") {
		t.Errorf("expected the garbage-only file to be removed, got: %s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "labels", "b.txt")); !os.IsNotExist(err) {
		t.Error("labels/b.txt should be gone after --fix")
	}
}

func TestValidateCmdReportsDuplicates(t *testing.T) {
	dir := setupWorkspace(t)
	// Byte-identical copy of a.jpg plus a second extension sharing a's stem.
	for _, rel := range []string{"images/copy.jpg", "images/a.png"} {
		if err := os.WriteFile(filepath.Join(dir, rel), []byte("fake image bytes"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out, errOut, err := executeCommand("validate", "--workspace", dir)
	if err != nil {
		t.Fatalf("command execution failed: %v, output: %s", err, errOut)
	}
	if !strings.Contains(out, `stem "a" shared by images/a.jpg, images/a.png`) {
		t.Errorf("expected a stem collision warning, got: %s", out)
	}
	if !strings.Contains(out, "identical content: images/a.jpg, images/a.png, images/copy.jpg") {
		t.Errorf("expected an identical-content warning, got: %s", out)
	}
}

func TestBatchAndHistoryCmd(t *testing.T) {
	dir := setupWorkspace(t)
	predictions := filepath.Join(dir, "predictions")
	if err := os.MkdirAll(predictions, 0o755); err != nil {
		t.Fatal(err)
	}
	// One dog detection for the unannotated image.
	if err := os.WriteFile(filepath.Join(predictions, "b.txt"), []byte("1 0.5 0.5 0.2 0.2 0.9\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, errOut, err := executeCommand("batch", "--workspace", dir, "--predictions", predictions, "--mode", "add-missing")
	if err != nil {
		t.Fatalf("command execution failed: %v, output: %s", err, errOut)
	}
	if !strings.Contains(out, "added 1 boxes") {
		t.Errorf("expected one added box, got: %s", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "labels", "b.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "1 0.500000 0.500000 0.200000 0.200000\n" {
		t.Errorf("labels/b.txt = %q", data)
	}

	out, errOut, err = executeCommand("history", "--workspace", dir)
	if err != nil {
		t.Fatalf("command execution failed: %v, output: %s", err, errOut)
	}
	if !strings.Contains(out, "add-missing") || !strings.Contains(out, "added=1") {
		t.Errorf("expected the job in the history listing, got: %s", out)
	}
}

func TestReduceCmd(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "images"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, "images", f), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out, errOut, err := executeCommand("reduce", "--workspace", dir, "--target", "2", "--method", "uniform")
	if err != nil {
		t.Fatalf("command execution failed: %v, output: %s", err, errOut)
	}
	if !strings.Contains(out, "reduced dataset to 2 images") {
		t.Errorf("unexpected output: %s", out)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "images"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("images/ has %d entries after reduce, want 2", len(entries))
	}
	if _, err := os.Stat(filepath.Join(dir, "skipped_images", "images")); err != nil {
		t.Errorf("quarantine folder missing: %v", err)
	}
}
