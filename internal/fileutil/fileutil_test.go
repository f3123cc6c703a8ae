package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "render.mp4")
	dst := filepath.Join(dir, "exports", "nested", "copy.mp4")

	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := CopyVerified(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len(content)) {
		t.Fatalf("expected %d bytes, got %d", len(content), n)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}

	entries, err := os.ReadDir(filepath.Dir(dst))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no leftover temp files, got %d entries", len(entries))
	}
}

func TestCopyVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "dst.mp4")
	if _, err := CopyVerified(filepath.Join(dir, "nope"), dst); err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("destination must not exist after failure: %v", err)
	}
}

func TestCopyVerifiedRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := CopyVerified(dir, filepath.Join(dir, "out")); err == nil {
		t.Fatal("expected error when source is a directory")
	}
}

func TestResolveDestination(t *testing.T) {
	dir := t.TempDir()
	src := "/renders/job-1/subtitled_3.mp4"

	if got := ResolveDestination(src, dir); got != filepath.Join(dir, "subtitled_3.mp4") {
		t.Fatalf("existing dir: got %q", got)
	}
	if got := ResolveDestination(src, dir+"/new/"); got != filepath.Join(dir, "new", "subtitled_3.mp4") {
		t.Fatalf("trailing separator: got %q", got)
	}
	file := filepath.Join(dir, "final.mp4")
	if got := ResolveDestination(src, file); got != file {
		t.Fatalf("file path: got %q", got)
	}
}
