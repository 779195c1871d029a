package manifest

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"stockpile/internal/fileutil"
	"stockpile/internal/logging"
	"stockpile/internal/services"
)

const lockRetryDelay = 25 * time.Millisecond

// Store mediates all access to one manifest file. Mutations run under a
// cross-process advisory lock so concurrent workers, including workers in
// other processes, serialize on the same document. The lock file name is
// derived from a stable hash of the manifest path: unrelated manifests never
// contend.
type Store struct {
	path        string
	mu          sync.Mutex
	lock        *flock.Flock
	lockTimeout time.Duration
	logger      *slog.Logger
}

// NewStore builds a store for the manifest at path, with lock files kept in
// lockDir.
func NewStore(path, lockDir string, lockTimeout time.Duration, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("manifest path is required")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}
	if strings.TrimSpace(lockDir) == "" {
		lockDir = filepath.Dir(absPath)
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	if lockTimeout <= 0 {
		lockTimeout = 30 * time.Second
	}

	return &Store{
		path:        absPath,
		lock:        flock.New(filepath.Join(lockDir, lockName(absPath))),
		lockTimeout: lockTimeout,
		logger:      logging.NewComponentLogger(logger, "manifest"),
	}, nil
}

// Path returns the absolute manifest file path.
func (s *Store) Path() string { return s.path }

// LockPath returns the lock file guarding this manifest.
func (s *Store) LockPath() string { return s.lock.Path() }

// lockName derives a stable lock file name from the manifest path.
func lockName(path string) string {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(path))
	return fmt.Sprintf("manifest-%016x.lock", hasher.Sum64())
}

// AppendEntry adds one entry under the lock. When an entry with the same
// identity already exists the document is left untouched and appended is
// false.
func (s *Store) AppendEntry(ctx context.Context, entry Entry) (appended bool, err error) {
	err = s.withLock(ctx, "append", func() error {
		doc, loadErr := s.load()
		if loadErr != nil {
			return loadErr
		}
		if doc.contains(entry) {
			s.logger.Debug("duplicate entry skipped",
				logging.String("name", entry.Name),
				logging.String("package_identifier", entry.PackageIdentifier),
			)
			return nil
		}
		doc.append(entry)
		if persistErr := s.persist(doc); persistErr != nil {
			return persistErr
		}
		appended = true
		return nil
	})
	return appended, err
}

// ReorderToMatch rewrites the document so entries follow the caller's sort
// key (unknown entries last, ties by original position; DependencyFor
// entries immediately before their dependents) with dense 1..N priorities.
// Nothing is written when the document already matches. changed reports
// whether a write happened.
func (s *Store) ReorderToMatch(ctx context.Context, keyFn func(Entry) (int, bool)) (changed bool, err error) {
	if keyFn == nil {
		return false, errors.New("reorder key function is required")
	}
	err = s.withLock(ctx, "reorder", func() error {
		doc, loadErr := s.load()
		if loadErr != nil {
			return loadErr
		}
		before := append([]Entry(nil), doc.entries...)
		doc.reorder(keyFn)
		if sameOrder(before, doc.entries) {
			return nil
		}
		if persistErr := s.persist(doc); persistErr != nil {
			return persistErr
		}
		changed = true
		return nil
	})
	return changed, err
}

// Entries returns a snapshot of the document under the lock.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := s.withLock(ctx, "read", func() error {
		doc, loadErr := s.load()
		if loadErr != nil {
			return loadErr
		}
		entries = append([]Entry(nil), doc.entries...)
		return nil
	})
	return entries, err
}

// withLock serializes fn against every other goroutine and process touching
// this manifest. The flock only excludes other open file descriptions, so the
// mutex carries in-process exclusion while the flock covers other processes.
// A lock deadline is fatal for this one mutation only.
func (s *Store) withLock(ctx context.Context, operation string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := s.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !locked {
		return services.Wrap(services.ErrLockTimeout, "manifest", operation,
			fmt.Sprintf("could not lock %s within %s", s.path, s.lockTimeout), err)
	}
	defer func() {
		if unlockErr := s.lock.Unlock(); unlockErr != nil {
			s.logger.Warn("failed to release manifest lock", logging.Error(unlockErr))
		}
	}()

	return fn()
}

// load reads the document, treating a missing file as empty. A document
// that fails to parse is backed up under a timestamped name and replaced by
// an empty one; corruption never aborts the caller.
func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &document{}, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	doc, err := parseDocument(data)
	if err != nil {
		backup := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().UTC().Format("20060102T150405"))
		if renameErr := os.Rename(s.path, backup); renameErr != nil {
			return nil, fmt.Errorf("back up corrupt manifest: %w", renameErr)
		}
		s.logger.Warn("manifest was corrupt, starting over",
			logging.String("backup", backup),
			logging.Error(err),
		)
		return &document{}, nil
	}
	return doc, nil
}

func (s *Store) persist(doc *document) error {
	data, err := doc.marshal()
	if err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("persist manifest: %w", err)
	}
	return nil
}
