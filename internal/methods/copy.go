package methods

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"stockpile/internal/config"
	"stockpile/internal/fileutil"
	"stockpile/internal/logging"
	"stockpile/internal/services"
	"stockpile/internal/work"
)

// CacheCopy satisfies an item from the local package cache.
type CacheCopy struct {
	dir    string
	logger *slog.Logger
}

// NewCacheCopy builds the cache lookup strategy rooted at dir.
func NewCacheCopy(dir string, logger *slog.Logger) *CacheCopy {
	return &CacheCopy{dir: dir, logger: logging.NewComponentLogger(logger, "cachecopy")}
}

func (c *CacheCopy) Name() string { return config.MethodCacheCopy }

func (c *CacheCopy) Fetch(ctx context.Context, item work.Item) (int64, error) {
	return copyFromRoot(ctx, "cachecopy", c.dir, item)
}

// ShareCopy satisfies an item from a mounted distribution share.
type ShareCopy struct {
	dir    string
	logger *slog.Logger
}

// NewShareCopy builds the share copy strategy rooted at dir.
func NewShareCopy(dir string, logger *slog.Logger) *ShareCopy {
	return &ShareCopy{dir: dir, logger: logging.NewComponentLogger(logger, "sharecopy")}
}

func (s *ShareCopy) Name() string { return config.MethodShareCopy }

func (s *ShareCopy) Fetch(ctx context.Context, item work.Item) (int64, error) {
	return copyFromRoot(ctx, "sharecopy", s.dir, item)
}

// copyFromRoot resolves each non-URL source relative to root and copies the
// first hit to the destination. A missing root or a miss on every source is
// an environment failure: the next method may still find the package.
func copyFromRoot(ctx context.Context, component, root string, item work.Item) (int64, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return 0, services.Wrap(services.ErrEnvironment, component, "fetch", "source directory not configured", nil)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return 0, services.Wrap(services.ErrEnvironment, component, "fetch", "source directory unavailable: "+root, err)
	}

	var lastErr error
	for _, source := range localSources(item.Sources) {
		if err := ctx.Err(); err != nil {
			return 0, services.Wrap(services.ErrTransient, component, "fetch", "cancelled", err)
		}
		candidate := filepath.Join(root, source)
		info, err := os.Stat(candidate)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				lastErr = services.Wrap(services.ErrTransient, component, "stat", candidate, err)
			}
			continue
		}
		if info.IsDir() {
			continue
		}
		if err := fileutil.CopyFileVerified(candidate, item.Destination); err != nil {
			lastErr = services.Wrap(services.ErrTransient, component, "copy", candidate, err)
			continue
		}
		return info.Size(), nil
	}

	if lastErr != nil {
		return 0, lastErr
	}
	return 0, services.Wrap(services.ErrEnvironment, component, "fetch", "no source present under "+root, nil)
}

// localSources keeps non-URL locators and flattens them to safe relative
// paths so a work list cannot escape the configured root.
func localSources(sources []string) []string {
	var out []string
	for _, source := range sources {
		trimmed := strings.TrimSpace(source)
		if trimmed == "" || strings.Contains(trimmed, "://") {
			continue
		}
		cleaned := filepath.Clean(strings.TrimPrefix(trimmed, "/"))
		if cleaned == "." || strings.HasPrefix(cleaned, "..") {
			continue
		}
		out = append(out, cleaned)
	}
	return out
}
