package preflight

import (
	"context"
	"path/filepath"

	"stockpile/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding source is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Staging directory (always checked)
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, minStagingBytes))

	if cfg.Paths.CacheDir != "" {
		results = append(results, CheckDirectoryReadable("Cache directory", cfg.Paths.CacheDir))
	}
	if cfg.Paths.ShareDir != "" {
		results = append(results, CheckDirectoryReadable("Share directory", cfg.Paths.ShareDir))
	}

	results = append(results, CheckDirectoryAccess("Lock directory", cfg.Paths.LockDir))
	results = append(results, CheckDirectoryAccess("Manifest directory", filepath.Dir(cfg.Paths.ManifestPath)))

	return results
}

// AllPassed reports whether every check in results succeeded.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
