// Package termsize reports the terminal size in character cells.
package termsize

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Fallback is used when no terminal size can be determined.
var Fallback = Size{Cols: 80, Rows: 24}

// ErrNotTerminal is returned when the file is not attached to a terminal.
var ErrNotTerminal = errors.New("not a terminal")

// Size is a terminal size in cells.
type Size struct {
	Cols int
	Rows int
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool { return s.Cols > 0 && s.Rows > 0 }

// FromFile queries the window size of the terminal behind f.
func FromFile(f *os.File) (Size, error) {
	if f == nil {
		return Size{}, ErrNotTerminal
	}
	ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		if errors.Is(err, unix.ENOTTY) {
			return Size{}, ErrNotTerminal
		}
		return Size{}, err
	}
	size := Size{Cols: int(ws.Col), Rows: int(ws.Row)}
	if !size.Valid() {
		return Size{}, ErrNotTerminal
	}
	return size, nil
}

// FromEnv reads COLUMNS and LINES.
func FromEnv() (Size, bool) {
	cols := envInt("COLUMNS")
	rows := envInt("LINES")
	size := Size{Cols: cols, Rows: rows}
	return size, size.Valid()
}

// Detect tries each file, then the environment, then Fallback.
func Detect(files ...*os.File) Size {
	for _, f := range files {
		if size, err := FromFile(f); err == nil {
			return size
		}
	}
	if size, ok := FromEnv(); ok {
		return size
	}
	return Fallback
}

// Viewport returns the area left for an image after reserving rows for
// status lines. Each dimension is at least one cell.
func (s Size) Viewport(reservedRows int) Size {
	return Size{
		Cols: max(s.Cols, 1),
		Rows: max(s.Rows-reservedRows, 1),
	}
}

func envInt(key string) int {
	value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || value < 0 {
		return 0
	}
	return value
}
