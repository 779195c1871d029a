package textutil_test

import (
	"testing"

	"stockpile/internal/textutil"
)

func TestDisplayTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"gpu_driver", "Gpu Driver"},
		{"build-tools", "Build Tools"},
		{"runtime", "Runtime"},
		{"  ", "Unknown"},
		{"", "Unknown"},
	}
	for _, tc := range cases {
		if got := textutil.DisplayTitle(tc.in); got != tc.want {
			t.Errorf("DisplayTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := textutil.SanitizeFileName("a/b:c*d?e"); got != "a-b-c-de" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
	if got := textutil.SanitizeFileName("   "); got != "" {
		t.Fatalf("whitespace should sanitize to empty, got %q", got)
	}
}

func TestTernary(t *testing.T) {
	if got := textutil.Ternary(true, "yes", "no"); got != "yes" {
		t.Fatalf("Ternary(true) = %q", got)
	}
	if got := textutil.Ternary(false, 1, 2); got != 2 {
		t.Fatalf("Ternary(false) = %d", got)
	}
}
