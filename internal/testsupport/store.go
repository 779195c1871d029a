package testsupport

import (
	"testing"
	"time"

	"stockpile/internal/config"
	"stockpile/internal/history"
	"stockpile/internal/logging"
	"stockpile/internal/manifest"
)

// MustOpenHistory opens a history.Store for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenManifest opens the manifest store described by the config.
func MustOpenManifest(t testing.TB, cfg *config.Config) *manifest.Store {
	t.Helper()

	store, err := manifest.NewStore(
		cfg.Paths.ManifestPath,
		cfg.Paths.LockDir,
		time.Duration(cfg.Workflow.LockTimeoutSeconds)*time.Second,
		logging.NewNop(),
	)
	if err != nil {
		t.Fatalf("manifest.NewStore: %v", err)
	}
	return store
}
