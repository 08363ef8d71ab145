package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"
)

// DefaultMaxAge is how long temp files survive before retention removes them
const DefaultMaxAge = 7 * 24 * time.Hour

// CleanupStale deletes files in a temp namespace whose modification time is
// older than maxAge. Each file is stat'ed at the moment it is visited and
// compared against a fresh clock reading, so files created by concurrent
// pipelines while the sweep runs are judged on their own age. Committed
// artifacts are immutable, so modification time equals creation time.
// Returns the removed paths relative to the storage root
func (s *Store) CleanupStale(ns Namespace, maxAge time.Duration) ([]string, error) {
	if !ns.IsTemp() {
		return nil, fmt.Errorf("%w: %s", ErrProtectedNamespace, ns)
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	var removed []string
	dir := s.Dir(ns)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := os.Lstat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}

		if s.now().Sub(info.ModTime()) <= maxAge {
			return nil
		}

		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}

		removed = append(removed, s.relative(path))
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clean %s: %w", ns, err)
	}

	if len(removed) > 0 {
		log.Printf("[ARTIFACTS]: Removed %d stale file(s) from %s", len(removed), ns)
	}

	return removed, nil
}

// CleanupTemp sweeps every temp namespace, continuing past failures
func (s *Store) CleanupTemp(maxAge time.Duration) ([]string, error) {
	var removed []string
	var errs []error

	for _, ns := range TempNamespaces {
		paths, err := s.CleanupStale(ns, maxAge)
		removed = append(removed, paths...)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return removed, errors.Join(errs...)
}
