package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path, parent directories included, and fills it with
// size bytes of filler content. A size of zero or less still produces a
// non-empty file so retrieval verification treats it as a real artifact.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size < 1 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	filler := bytes.Repeat([]byte("stockpile"), 1820)
	for size > 0 {
		chunk := filler
		if size < int64(len(chunk)) {
			chunk = chunk[:size]
		}
		if _, err := f.Write(chunk); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		size -= int64(len(chunk))
	}
}
