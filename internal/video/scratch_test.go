package video

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestScratch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := NewScratch(dir, "job1")
	if err != nil {
		t.Fatalf("NewScratch: %v", err)
	}

	a := s.Path("a.mp4")
	b := s.Path("b.png")
	if filepath.Dir(a) != dir || !strings.HasPrefix(filepath.Base(a), "job1_") {
		t.Errorf("unexpected path %q", a)
	}

	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	// A tracked path that was never created is not an error.
	s.Path("never-written.mp4")

	if removed := s.Cleanup(); removed != 2 {
		t.Errorf("Cleanup removed %d, want 2", removed)
	}
	if left := dirEntries(t, dir); len(left) != 0 {
		t.Errorf("files left behind: %v", left)
	}
	if removed := s.Cleanup(); removed != 0 {
		t.Errorf("second Cleanup removed %d, want 0", removed)
	}
}

func TestScratchJobsDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	a, _ := NewScratch(dir, "job-a")
	b, _ := NewScratch(dir, "job-b")

	if a.Path("main.mp4") == b.Path("main.mp4") {
		t.Error("two jobs received the same scratch path")
	}
}
