package rendercache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"pixelterm/internal/fileutil"
	"pixelterm/internal/logging"
)

// MemoryRadius is the index distance kept in memory around the position.
const MemoryRadius = 1

// Generation identifies one activation of the cache. It changes on every
// Activate and InvalidateAll.
type Generation uint64

// Options configures a Cache.
type Options struct {
	// Parent is the directory that holds session directories. Empty means
	// os.TempDir().
	Parent string
	// SessionID names the session directory. Empty generates a UUID.
	SessionID string
	// DisableDisk runs with the memory tier only.
	DisableDisk bool
	Logger      *slog.Logger
}

// Stats describes cache usage.
type Stats struct {
	Dir           string
	DiskEnabled   bool
	Generation    Generation
	MemoryEntries int
	DiskEntries   int
	DiskBytes     int64
	Hits          uint64
	Misses        uint64
}

// Cache is the two-tier render cache. It is safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	logger *slog.Logger

	dir         string
	lock        *flock.Flock
	diskEnabled bool

	memory     map[string][]byte
	lookup     map[string]int
	position   int
	generation Generation
	hits       uint64
	misses     uint64
	closed     bool
}

// New creates a cache and its session directory. Orphaned session
// directories under the same parent are swept first. When the session
// directory cannot be created the cache runs with the memory tier only.
func New(opts Options) *Cache {
	c := &Cache{
		logger:   logging.NewComponentLogger(opts.Logger, "rendercache"),
		memory:   make(map[string][]byte),
		lookup:   make(map[string]int),
		position: -1,
	}
	if opts.DisableDisk {
		return c
	}

	parent := strings.TrimSpace(opts.Parent)
	if parent == "" {
		parent = os.TempDir()
	}
	if removed, err := SweepOrphans(parent); err != nil {
		c.logger.Debug("orphan sweep failed", logging.Error(err))
	} else if removed > 0 {
		c.logger.Info("removed orphaned cache directories", logging.Int("count", removed))
	}

	id := strings.TrimSpace(opts.SessionID)
	if id == "" {
		id = uuid.NewString()
	}
	dir := filepath.Join(parent, dirPrefix+id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		c.warnIO("disk tier disabled", err, "cache directory could not be created", logging.String("dir", dir))
		return c
	}
	lock, err := acquireLock(dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		c.warnIO("disk tier disabled", err, "cache directory could not be locked", logging.String("dir", dir))
		return c
	}
	c.dir = dir
	c.lock = lock
	c.diskEnabled = true
	c.logger.Debug("cache directory created", logging.String("dir", dir))
	return c
}

// Dir returns the session directory, or "" when the disk tier is off.
func (c *Cache) Dir() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.diskEnabled {
		return ""
	}
	return c.dir
}

// Generation returns the current generation.
func (c *Cache) Generation() Generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Activate discards every entry, installs the ordered path sequence and
// position, and returns the new generation.
func (c *Cache) Activate(paths []string, position int) Generation {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidateLocked()
	c.lookup = make(map[string]int, len(paths))
	for i, p := range paths {
		c.lookup[p] = i
	}
	c.position = position
	return c.generation
}

// InvalidateAll discards every entry in both tiers and starts a new
// generation. The path sequence is kept.
func (c *Cache) InvalidateAll() Generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
	return c.generation
}

func (c *Cache) invalidateLocked() {
	c.generation++
	clear(c.memory)
	if c.diskEnabled && !c.closed {
		c.resetDiskLocked()
	}
	c.logger.Debug("cache invalidated", logging.Uint64(logging.FieldGeneration, uint64(c.generation)))
}

// Get returns the output stored for path. Memory is consulted first, then
// disk; a disk hit is promoted into memory when path is within the memory
// radius. Disk read errors count as misses.
func (c *Cache) Get(path string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if out, ok := c.memory[path]; ok {
		c.hits++
		c.decision(path, "memory_hit")
		return out, true
	}
	if c.diskEnabled && !c.closed {
		out, err := os.ReadFile(c.entryPath(path))
		switch {
		case err == nil:
			if c.qualifiesLocked(path) {
				c.memory[path] = out
			}
			c.hits++
			c.decision(path, "disk_hit")
			return out, true
		case !errors.Is(err, fs.ErrNotExist):
			c.warnIO("cache read failed", err, "treated as a miss", logging.String(logging.FieldPath, path))
		}
	}
	c.misses++
	c.decision(path, "miss")
	return nil, false
}

// Put stores output for path in the current generation.
func (c *Cache) Put(path string, output []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(path, output)
}

// PutGeneration stores output for path only if gen is still current. It
// reports whether the write was applied.
func (c *Cache) PutGeneration(gen Generation, path string, output []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.logger.Debug("stale write dropped",
			logging.String(logging.FieldPath, path),
			logging.Uint64(logging.FieldGeneration, uint64(gen)),
			logging.String(logging.FieldDecisionType, "stale_write"),
		)
		return false
	}
	c.putLocked(path, output)
	return true
}

func (c *Cache) putLocked(path string, output []byte) {
	if c.closed {
		return
	}
	output = bytes.Clone(output)
	if output == nil {
		output = []byte{}
	}
	if c.diskEnabled {
		if err := fileutil.WriteFileAtomic(c.entryPath(path), output, 0o600); err != nil {
			c.warnIO("cache write failed", err, "entry kept in memory only", logging.String(logging.FieldPath, path))
		}
	}
	if c.qualifiesLocked(path) {
		c.memory[path] = output
	}
}

// HasDisk reports whether a disk entry exists for path.
func (c *Cache) HasDisk(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.diskEnabled || c.closed {
		return false
	}
	_, err := os.Stat(c.entryPath(path))
	return err == nil
}

// HasMemory reports whether path is held in the memory tier.
func (c *Cache) HasMemory(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.memory[path]
	return ok
}

// DiskEnabled reports whether the disk tier is in use.
func (c *Cache) DiskEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.diskEnabled && !c.closed
}

// Rebalance moves the position to pos, evicts memory entries farther than
// MemoryRadius from it and promotes disk entries that now qualify. Disk
// entries are never evicted here.
func (c *Cache) Rebalance(pos int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.position = pos
	evicted := 0
	for path := range c.memory {
		if !c.qualifiesLocked(path) {
			delete(c.memory, path)
			evicted++
		}
	}

	promoted := 0
	if c.diskEnabled && !c.closed {
		for path, idx := range c.lookup {
			if !withinRadius(idx, pos) {
				continue
			}
			if _, ok := c.memory[path]; ok {
				continue
			}
			out, err := os.ReadFile(c.entryPath(path))
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					c.warnIO("cache read failed", err, "entry not promoted", logging.String(logging.FieldPath, path))
				}
				continue
			}
			c.memory[path] = out
			promoted++
		}
	}
	if evicted > 0 || promoted > 0 {
		c.logger.Debug("memory tier rebalanced",
			logging.Int("position", pos),
			logging.Int("evicted", evicted),
			logging.Int("promoted", promoted),
		)
	}
}

// MemoryKeys returns the paths held in the memory tier, sorted.
func (c *Cache) MemoryKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.memory))
	for k := range c.memory {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Stats reports current usage.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		DiskEnabled:   c.diskEnabled && !c.closed,
		Generation:    c.generation,
		MemoryEntries: len(c.memory),
		Hits:          c.hits,
		Misses:        c.misses,
	}
	if s.DiskEnabled {
		s.Dir = c.dir
		files, size, err := fileutil.DirUsage(c.dir)
		if err != nil {
			c.warnIO("cache stat failed", err, "disk usage unknown")
		}
		s.DiskEntries = files
		s.DiskBytes = size
	}
	return s
}

// Close removes the session directory and releases its lock. Later calls
// are no-ops, and the cache stays usable as an always-miss cache.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	clear(c.memory)
	if !c.diskEnabled {
		return nil
	}
	c.diskEnabled = false
	err := os.RemoveAll(c.dir)
	if c.lock != nil {
		_ = c.lock.Unlock()
	}
	c.logger.Debug("cache directory removed", logging.String("dir", c.dir))
	return err
}

func (c *Cache) qualifiesLocked(path string) bool {
	idx, ok := c.lookup[path]
	return ok && withinRadius(idx, c.position)
}

func withinRadius(idx, pos int) bool {
	if pos < 0 {
		return false
	}
	d := idx - pos
	if d < 0 {
		d = -d
	}
	return d <= MemoryRadius
}

func (c *Cache) entryPath(path string) string {
	return filepath.Join(c.dir, EntryName(path))
}

// EntryName returns the disk file name for an image path.
func EntryName(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) decision(path, decision string) {
	c.logger.Debug("cache lookup",
		logging.String(logging.FieldPath, path),
		logging.String(logging.FieldDecisionType, decision),
	)
}

func (c *Cache) warnIO(msg string, err error, impact string, attrs ...logging.Attr) {
	attrs = append(attrs,
		logging.Error(err),
		logging.String(logging.FieldImpact, impact),
		logging.String(logging.FieldErrorHint, "check free space and permissions of the cache directory"),
	)
	logging.WarnWithContext(c.logger, msg, "cache_io_failed", attrs...)
}
