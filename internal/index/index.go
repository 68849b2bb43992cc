// Package index holds the ordered list of images in the active directory and
// the current position within it.
//
// An Index is owned by the foreground and is not safe for concurrent use.
// Background work receives copies of Paths and Position instead.
package index

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"pixelterm/internal/imagefs"
)

var (
	ErrPathNotFound      = errors.New("path not found")
	ErrNotADirectory     = errors.New("not a directory")
	ErrNotAFile          = errors.New("not a file")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrEmpty             = errors.New("no images in directory")
	ErrNoParent          = errors.New("already at filesystem root")
)

// Index is an ordered sequence of canonical image paths plus a position.
type Index struct {
	dir      string
	paths    []string
	lookup   map[string]int
	position int
}

// New returns an empty index.
func New() *Index {
	return &Index{position: -1}
}

// SetDirectory replaces the sequence with the supported images directly
// inside path and moves to the first one. The index is left untouched on
// error.
func (x *Index) SetDirectory(path string) error {
	dir, err := statDirectory(path)
	if err != nil {
		return err
	}
	paths, err := imagefs.List(dir)
	if err != nil {
		return err
	}
	x.install(dir, paths)
	if len(paths) > 0 {
		x.position = 0
	}
	return nil
}

// SetSingleFile activates the parent directory of path and positions at path.
func (x *Index) SetSingleFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotAFile, path)
	}
	if !imagefs.IsSupported(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	dir, err := imagefs.Canonical(filepath.Dir(abs))
	if err != nil {
		return err
	}
	canonical := filepath.Join(dir, filepath.Base(abs))
	paths, err := imagefs.List(dir)
	if err != nil {
		return err
	}
	x.install(dir, paths)
	if i, ok := x.lookup[canonical]; ok {
		x.position = i
	} else if len(paths) > 0 {
		x.position = 0
	}
	return nil
}

// Refresh rebuilds the sequence for the active directory, staying on the
// current image when it still exists and clamping the position otherwise.
func (x *Index) Refresh() error {
	if x.dir == "" {
		return fmt.Errorf("%w: no active directory", ErrPathNotFound)
	}
	current, hadCurrent := x.Current()
	oldPos := x.position

	dir, err := statDirectory(x.dir)
	if err != nil {
		return err
	}
	paths, err := imagefs.List(dir)
	if err != nil {
		return err
	}
	x.install(dir, paths)
	switch {
	case len(paths) == 0:
	case hadCurrent && x.has(current):
		x.position = x.lookup[current]
	case oldPos >= len(paths):
		x.position = len(paths) - 1
	case oldPos < 0:
		x.position = 0
	default:
		x.position = oldPos
	}
	return nil
}

// Advance moves to the next image, wrapping to the first.
func (x *Index) Advance() error {
	if len(x.paths) == 0 {
		return ErrEmpty
	}
	x.position = (x.position + 1) % len(x.paths)
	return nil
}

// Retreat moves to the previous image, wrapping to the last.
func (x *Index) Retreat() error {
	if len(x.paths) == 0 {
		return ErrEmpty
	}
	x.position = (x.position - 1 + len(x.paths)) % len(x.paths)
	return nil
}

// Jump moves to position i.
func (x *Index) Jump(i int) error {
	if i < 0 || i >= len(x.paths) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(x.paths))
	}
	x.position = i
	return nil
}

// Current returns the path at the current position.
func (x *Index) Current() (string, bool) {
	if x.position < 0 || x.position >= len(x.paths) {
		return "", false
	}
	return x.paths[x.position], true
}

// Position returns the current position, or -1 when the index is empty.
func (x *Index) Position() int { return x.position }

// Len returns the number of images.
func (x *Index) Len() int { return len(x.paths) }

// Directory returns the active directory.
func (x *Index) Directory() string { return x.dir }

// Paths returns a copy of the sequence.
func (x *Index) Paths() []string {
	return append([]string(nil), x.paths...)
}

// IndexOf returns the position of path, or -1.
func (x *Index) IndexOf(path string) int {
	if i, ok := x.lookup[path]; ok {
		return i
	}
	return -1
}

// Parent returns the directory above the active one.
func (x *Index) Parent() (string, error) {
	if x.dir == "" {
		return "", fmt.Errorf("%w: no active directory", ErrPathNotFound)
	}
	parent := filepath.Dir(x.dir)
	if parent == x.dir {
		return "", ErrNoParent
	}
	return parent, nil
}

// Subdirectory returns the path of the named child directory of the active
// directory after checking that it exists.
func (x *Index) Subdirectory(name string) (string, error) {
	if x.dir == "" {
		return "", fmt.Errorf("%w: no active directory", ErrPathNotFound)
	}
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", ErrNotADirectory, name)
	}
	return statDirectory(filepath.Join(x.dir, name))
}

// Window returns at most max consecutive paths around the current position
// and the index of the first one, keeping the current image roughly centered.
func (x *Index) Window(max int) (int, []string) {
	n := len(x.paths)
	if n == 0 || max <= 0 {
		return 0, nil
	}
	if max >= n {
		return 0, x.Paths()
	}
	start := x.position - max/2
	if start < 0 {
		start = 0
	}
	if start+max > n {
		start = n - max
	}
	return start, append([]string(nil), x.paths[start:start+max]...)
}

func (x *Index) install(dir string, paths []string) {
	x.dir = dir
	x.paths = paths
	x.lookup = make(map[string]int, len(paths))
	for i, p := range paths {
		x.lookup[p] = i
	}
	x.position = -1
}

func (x *Index) has(path string) bool {
	_, ok := x.lookup[path]
	return ok
}

func statDirectory(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotADirectory, path)
	}
	return imagefs.Canonical(path)
}
