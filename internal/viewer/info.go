package viewer

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Info describes an image file.
type Info struct {
	Name      string
	Directory string
	Path      string
	Position  int
	Total     int
	Bytes     int64
	Width     int
	Height    int
	Format    string
	ModTime   time.Time
	// DecodeErr is set when the header could not be read; Width, Height
	// are zero and Format falls back to the extension.
	DecodeErr error
}

var upper = cases.Upper(language.Und)

// Describe reads the file metadata and image header of path.
func Describe(path string) (Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("viewer: stat %s: %w", path, err)
	}
	info := Info{
		Name:      filepath.Base(path),
		Directory: filepath.Dir(path),
		Path:      path,
		Position:  -1,
		Bytes:     stat.Size(),
		ModTime:   stat.ModTime(),
	}

	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("viewer: open %s: %w", path, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		info.DecodeErr = err
		info.Format = upper.String(strings.TrimPrefix(filepath.Ext(path), "."))
		return info, nil
	}
	info.Width = cfg.Width
	info.Height = cfg.Height
	info.Format = upper.String(format)
	return info, nil
}

// HumanSize formats the file size for display, e.g. "1.2 MB".
func (i Info) HumanSize() string {
	if i.Bytes < 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(i.Bytes))
}

// Dimensions formats the pixel size, or "unknown".
func (i Info) Dimensions() string {
	if i.Width <= 0 || i.Height <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%dx%d", i.Width, i.Height)
}

// Counter formats the position as "n/total", or "" when unknown.
func (i Info) Counter() string {
	if i.Position < 0 || i.Total <= 0 {
		return ""
	}
	return fmt.Sprintf("%d/%d", i.Position+1, i.Total)
}
