package preflight_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stockpile/internal/preflight"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()

	result := preflight.CheckDirectoryAccess("Staging directory", dir)
	if !result.Passed {
		t.Fatalf("writable temp dir should pass: %+v", result)
	}

	missing := preflight.CheckDirectoryAccess("Staging directory", filepath.Join(dir, "absent"))
	if missing.Passed {
		t.Fatal("missing directory must fail")
	}
	if !strings.Contains(missing.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %q", missing.Detail)
	}
}

func TestCheckDirectoryAccessRejectsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file")
	if err := writeFile(path); err != nil {
		t.Fatal(err)
	}

	result := preflight.CheckDirectoryAccess("Cache directory", path)
	if result.Passed {
		t.Fatal("plain file must fail the directory check")
	}
	if !strings.Contains(result.Detail, "not a directory") {
		t.Fatalf("unexpected detail: %q", result.Detail)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()

	result := preflight.CheckFreeSpace("Staging free space", dir, 1)
	if !result.Passed {
		t.Fatalf("one byte minimum should pass: %+v", result)
	}

	huge := preflight.CheckFreeSpace("Staging free space", dir, 1<<62)
	if huge.Passed {
		t.Fatal("absurd minimum should fail")
	}
}

func TestAllPassed(t *testing.T) {
	passing := []preflight.Result{{Passed: true}, {Passed: true}}
	if !preflight.AllPassed(passing) {
		t.Fatal("all passing results should report true")
	}
	if preflight.AllPassed([]preflight.Result{{Passed: true}, {}}) {
		t.Fatal("a failing result should report false")
	}
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0o644)
}
