package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"stockpile/internal/testsupport"
)

func TestRunRetrievesFromCacheAndRecordsManifest(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithMethods("cachecopy"), testsupport.WithWorkers(2))

	// Seed the cache with the two good packages.
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.CacheDir, "pkgs", "toolchain.run"), 4096)
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.CacheDir, "pkgs", "runtime.run"), 2048)

	workList := writeWorkList(t, env.baseDir, fmt.Sprintf(`
[[item]]
id = "toolchain"
sources = ["pkgs/toolchain.run"]
destination = %q

[item.installer]
name = "Toolchain"
command_line = "toolchain.run"
package_identifier = "org.example.toolchain"

[[item]]
id = "runtime"
sources = ["pkgs/runtime.run"]
destination = %q

[item.installer]
name = "Runtime"
command_line = "runtime.run"
package_identifier = "org.example.runtime"

[[item]]
id = "missing"
sources = ["pkgs/absent.run"]
destination = %q
`,
		filepath.Join(env.cfg.Paths.StagingDir, "toolchain.run"),
		filepath.Join(env.cfg.Paths.StagingDir, "runtime.run"),
		filepath.Join(env.cfg.Paths.StagingDir, "absent.run"),
	))

	out, _, err := runCLI(t, []string{"run", workList, "--skip-preflight"}, env.configPath)
	if err == nil {
		t.Fatal("expected run to report the missing item as an error")
	}
	if !strings.Contains(err.Error(), "1 of 3 items failed") {
		t.Fatalf("unexpected error: %v", err)
	}
	requireContains(t, out, "toolchain")
	requireContains(t, out, "2 succeeded, 1 failed")

	// The manifest keeps only the successful installer entries, in
	// submission order.
	show, _, err := runCLI(t, []string{"manifest", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("manifest show: %v", err)
	}
	requireContains(t, show, "Toolchain")
	requireContains(t, show, "Runtime")
	if strings.Contains(show, "Missing") {
		t.Fatal("failed item must not reach the manifest")
	}
	if strings.Index(show, "Toolchain") > strings.Index(show, "Runtime") {
		t.Fatal("manifest entries should follow submission order")
	}
}

func TestRunSelectsLatestCandidate(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithMethods("cachecopy"))

	// Only the newer release exists in the cache, so the run succeeds only
	// when selection actually picked it.
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.CacheDir, "pkgs", "tool-551.0.run"), 512)

	workList := writeWorkList(t, env.baseDir, fmt.Sprintf(`
[[item]]
id = "tool"
destination = %q

[[item.candidate]]
version = "550.2"
locator = "pkgs/tool-550.2.run"
released_at = 2026-05-01T00:00:00Z

[[item.candidate]]
version = "551.0"
locator = "pkgs/tool-551.0.run"
released_at = 2026-05-03T00:00:00Z
`, filepath.Join(env.cfg.Paths.StagingDir, "tool.run")))

	out, _, err := runCLI(t, []string{"run", workList, "--skip-preflight"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	requireContains(t, out, "1 succeeded, 0 failed")
}

func TestRunStrictPolicyFailsAmbiguousItem(t *testing.T) {
	env := setupCLITestEnv(t,
		testsupport.WithMethods("cachecopy"),
		testsupport.WithSelectionPolicy("strict"),
	)
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.CacheDir, "pkgs", "tool-550.2.run"), 512)
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.CacheDir, "pkgs", "tool-551.0.run"), 512)

	workList := writeWorkList(t, env.baseDir, fmt.Sprintf(`
[[item]]
id = "tool"
destination = %q

[[item.candidate]]
version = "550.2"
locator = "pkgs/tool-550.2.run"

[[item.candidate]]
version = "551.0"
locator = "pkgs/tool-551.0.run"
`, filepath.Join(env.cfg.Paths.StagingDir, "tool.run")))

	out, _, err := runCLI(t, []string{"run", workList, "--skip-preflight"}, env.configPath)
	if err == nil {
		t.Fatal("expected ambiguous strict selection to fail the run")
	}
	if !strings.Contains(err.Error(), "1 of 1 items failed") {
		t.Fatalf("unexpected error: %v", err)
	}
	requireContains(t, out, "candidate selection")
	if _, statErr := os.Stat(filepath.Join(env.cfg.Paths.StagingDir, "tool.run")); statErr == nil {
		t.Fatal("ambiguous item must not be retrieved")
	}
}

func TestRunNotifiesOnItemFailure(t *testing.T) {
	var mu sync.Mutex
	var titles []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		titles = append(titles, r.Header.Get("Title"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := setupCLITestEnv(t,
		testsupport.WithMethods("cachecopy"),
		testsupport.WithNtfyTopic(server.URL),
	)

	workList := writeWorkList(t, env.baseDir, fmt.Sprintf(`
[[item]]
id = "missing"
label = "Missing Tool"
sources = ["pkgs/absent.run"]
destination = %q
`, filepath.Join(env.cfg.Paths.StagingDir, "absent.run")))

	if _, _, err := runCLI(t, []string{"run", workList, "--skip-preflight"}, env.configPath); err == nil {
		t.Fatal("expected run to fail")
	}

	mu.Lock()
	defer mu.Unlock()
	var sawItemFailure bool
	for _, title := range titles {
		if title == "Stockpile - Retrieval Failed" {
			sawItemFailure = true
		}
	}
	if !sawItemFailure {
		t.Fatalf("expected an item-failure notification, got titles %v", titles)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithMethods("cachecopy"))
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.CacheDir, "tool.run"), 128)

	workList := writeWorkList(t, env.baseDir, fmt.Sprintf(`
[[item]]
id = "tool"
sources = ["tool.run"]
destination = %q
`, filepath.Join(env.cfg.Paths.StagingDir, "tool.run")))

	if _, _, err := runCLI(t, []string{"run", workList, "--skip-preflight"}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "1")
	if strings.Contains(out, "No runs recorded") {
		t.Fatal("run should be present in history")
	}
}

func TestRunRejectsMissingWorkList(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"run", filepath.Join(env.baseDir, "absent.toml"), "--skip-preflight"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing work list")
	}
	if !strings.Contains(err.Error(), "load work list") {
		t.Fatalf("unexpected error: %v", err)
	}
}
