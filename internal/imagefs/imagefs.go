// Package imagefs lists and classifies image files on disk.
package imagefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var supportedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
	".webp": {},
	".tiff": {},
	".tif":  {},
}

// Extensions returns the supported extensions, sorted, with leading dots.
func Extensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsSupported reports whether path has a supported image extension.
// The comparison is case-insensitive.
func IsSupported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Canonical returns an absolute, cleaned form of path with symlinks
// resolved. When resolution fails the absolute path is returned as is.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("imagefs: resolve %q: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// List returns the canonical paths of the supported regular files directly
// inside dir, sorted by file name.
func List(dir string) ([]string, error) {
	root, err := Canonical(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("imagefs: read %s: %w", root, err)
	}

	seen := make(map[string]struct{}, len(entries))
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !IsSupported(entry.Name()) {
			continue
		}
		full := filepath.Join(root, entry.Name())
		if !isRegular(entry, full) {
			continue
		}
		if _, dup := seen[full]; dup {
			continue
		}
		seen[full] = struct{}{}
		paths = append(paths, full)
	}
	sort.Slice(paths, func(i, j int) bool {
		return filepath.Base(paths[i]) < filepath.Base(paths[j])
	})
	return paths, nil
}

// Subdirectories returns the names of non-hidden directories directly
// inside dir, sorted.
func Subdirectories(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("imagefs: read %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if entry.IsDir() {
			names = append(names, name)
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(dir, name)); err == nil && info.IsDir() {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func isRegular(entry os.DirEntry, full string) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}
