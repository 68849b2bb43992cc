package rendercache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"pixelterm/internal/logging"
)

const (
	dirPrefix    = "pixelterm-"
	lockFileName = ".lock"
	// orphanGrace protects a directory that another process has created but
	// not locked yet.
	orphanGrace = time.Minute
)

func acquireLock(dir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: held by another process", dir)
	}
	return lock, nil
}

// resetDiskLocked empties the session directory, recreating it (and its
// lock) if it went missing.
func (c *Cache) resetDiskLocked() {
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(c.dir, 0o700); err != nil {
			c.diskEnabled = false
			c.warnIO("disk tier disabled", err, "cache directory could not be recreated", logging.String("dir", c.dir))
			return
		}
		if c.lock != nil {
			_ = c.lock.Unlock()
		}
		lock, err := acquireLock(c.dir)
		if err != nil {
			c.warnIO("cache lock lost", err, "directory may be swept by another process", logging.String("dir", c.dir))
			return
		}
		c.lock = lock
		return
	}
	if err != nil {
		c.warnIO("cache reset failed", err, "stale entries may remain", logging.String("dir", c.dir))
		return
	}
	for _, entry := range entries {
		if entry.Name() == lockFileName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.dir, entry.Name())); err != nil {
			c.warnIO("cache reset failed", err, "stale entry may remain", logging.String("entry", entry.Name()))
		}
	}
}

// SweepOrphans removes session directories under parent whose lock is not
// held by a live process. It returns the number of directories removed.
func SweepOrphans(parent string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(parent, dirPrefix+"*"))
	if err != nil {
		return 0, fmt.Errorf("rendercache: sweep %s: %w", parent, err)
	}
	removed := 0
	var errs []error
	for _, dir := range matches {
		info, err := os.Lstat(dir)
		if err != nil || !info.IsDir() || !strings.HasPrefix(filepath.Base(dir), dirPrefix) {
			continue
		}
		lockPath := filepath.Join(dir, lockFileName)
		if _, err := os.Stat(lockPath); errors.Is(err, fs.ErrNotExist) && time.Since(info.ModTime()) < orphanGrace {
			continue
		}
		lock := flock.New(lockPath)
		ok, err := lock.TryLock()
		if err != nil {
			errs = append(errs, fmt.Errorf("lock %s: %w", dir, err))
			continue
		}
		if !ok {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", dir, err))
		} else {
			removed++
		}
		_ = lock.Unlock()
	}
	return removed, errors.Join(errs...)
}
