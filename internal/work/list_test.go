package work_test

import (
	"os"
	"path/filepath"
	"testing"

	"stockpile/internal/work"
)

func writeList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worklist.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write work list: %v", err)
	}
	return path
}

func TestLoadList(t *testing.T) {
	path := writeList(t, `
[[item]]
id = "pkg-audio"
label = "Audio Driver"
category = "driver"
sources = ["https://mirror.example/audio.pkg"]
destination = "/tmp/staging/audio.pkg"

  [item.installer]
  name = "Audio Driver"
  command_line = "installer.exe"
  arguments = "/quiet"
  package_identifier = "vendor.audio"

[[item]]
id = "pkg-chipset"
sources = ["https://mirror.example/chipset.pkg"]
destination = "/tmp/staging/chipset.pkg"
`)

	items, err := work.LoadList(path)
	if err != nil {
		t.Fatalf("LoadList: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Installer == nil || items[0].Installer.PackageIdentifier != "vendor.audio" {
		t.Fatalf("installer spec not parsed: %+v", items[0].Installer)
	}
	if items[1].DisplayLabel() != "pkg-chipset" {
		t.Fatalf("expected id fallback label, got %q", items[1].DisplayLabel())
	}
}

func TestLoadListRejectsDuplicatesAndGaps(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"duplicate id", `
[[item]]
id = "pkg-a"
sources = ["https://mirror.example/a"]
destination = "/tmp/a"
[[item]]
id = "pkg-a"
sources = ["https://mirror.example/a2"]
destination = "/tmp/a2"
`},
		{"missing destination", `
[[item]]
id = "pkg-a"
sources = ["https://mirror.example/a"]
`},
		{"no sources", `
[[item]]
id = "pkg-a"
destination = "/tmp/a"
`},
		{"empty list", "\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := work.LoadList(writeList(t, tc.content)); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestEventKindTerminal(t *testing.T) {
	if !work.EventSucceeded.Terminal() || !work.EventFailed.Terminal() {
		t.Fatal("terminal kinds misreported")
	}
	if work.EventAttempting.Terminal() || work.EventQueued.Terminal() {
		t.Fatal("non-terminal kinds misreported")
	}
}
