package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/config"
)

// clipSize is large enough for size checks in export and publish tests.
const clipSize = 256

// WriteFile writes size filler bytes to path, creating parent directories.
// A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(max(size, 1))), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteClip writes a placeholder source clip under the test's media
// directory, outside the output tree, and returns its path. Engines in tests
// never decode it.
func WriteClip(t testing.TB, cfg *config.Config, name string) string {
	t.Helper()
	path := filepath.Join(BaseDir(cfg), "media", name)
	WriteFile(t, path, clipSize)
	return path
}
