// Package renderer turns image files into terminal text by running an
// external text-art renderer.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRenderFailed marks every failed render.
	ErrRenderFailed = errors.New("render failed")
	// ErrUnavailable marks a render that failed because the renderer binary
	// could not be started.
	ErrUnavailable = errors.New("renderer unavailable")
)

// Options controls the output size of a render.
type Options struct {
	// Scale multiplies Width and Height. Zero means 1.0.
	Scale float64
	// Width and Height are the target size in terminal cells. Zero lets
	// the renderer pick its default.
	Width  int
	Height int
}

// Renderer produces terminal output for an image. Implementations must be
// safe for concurrent use.
type Renderer interface {
	Render(ctx context.Context, path string, opts Options) ([]byte, error)
}

// Func adapts a plain function to the Renderer interface.
type Func func(ctx context.Context, path string, opts Options) ([]byte, error)

// Render calls f.
func (f Func) Render(ctx context.Context, path string, opts Options) ([]byte, error) {
	return f(ctx, path, opts)
}

// RenderError reports a failed render of a single image.
type RenderError struct {
	Path   string
	Stderr string
	Err    error
}

func (e *RenderError) Error() string {
	msg := fmt.Sprintf("render %s: %v", e.Path, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + firstLine(stderr)
	}
	return msg
}

// Unwrap exposes both ErrRenderFailed and the underlying cause.
func (e *RenderError) Unwrap() []error {
	return []error{ErrRenderFailed, e.Err}
}

// EffectiveScale returns the scale with the zero value mapped to 1.0.
func (o Options) EffectiveScale() float64 {
	if o.Scale <= 0 {
		return 1.0
	}
	return o.Scale
}

// Size returns the scaled cell size, or ok=false when no size applies.
// Each dimension is at least one cell.
func (o Options) Size() (w, h int, ok bool) {
	if o.Width <= 0 || o.Height <= 0 {
		return 0, 0, false
	}
	scale := o.EffectiveScale()
	w = int(float64(o.Width)*scale + 0.5)
	h = int(float64(o.Height)*scale + 0.5)
	return max(w, 1), max(h, 1), true
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
