package viewer

import (
	"context"
	"fmt"
	"math"
	"time"

	"pixelterm/internal/index"
	"pixelterm/internal/logging"
	"pixelterm/internal/rendercache"
	"pixelterm/internal/renderer"
	"pixelterm/internal/termsize"
)

// Source says where a frame's output came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceRender Source = "render"
	SourceDirect Source = "direct"
)

// Request is the navigation state needed to render the current image.
type Request struct {
	Path       string
	Position   int
	Total      int
	Scale      float64
	Geometry   termsize.Size
	Generation rendercache.Generation
}

// Frame is the result of displaying one image. A failed render has no
// Output and a non-nil Err.
type Frame struct {
	Request
	Output  []byte
	Source  Source
	Elapsed time.Duration
	Err     error
}

// Request captures what Render needs for the current image. It must be
// called on the foreground goroutine.
func (s *Session) Request() (Request, error) {
	path, ok := s.index.Current()
	if !ok {
		return Request{}, index.ErrEmpty
	}
	return Request{
		Path:       path,
		Position:   s.index.Position(),
		Total:      s.index.Len(),
		Scale:      s.scale,
		Geometry:   s.Geometry(),
		Generation: s.cache.Generation(),
	}, nil
}

// Render produces the frame for req. It is safe to call from any
// goroutine.
func (s *Session) Render(ctx context.Context, req Request) Frame {
	start := time.Now()
	frame := Frame{Request: req}

	if !isDefaultScale(req.Scale) {
		out, err := s.renderer.Render(ctx, req.Path, renderer.Options{
			Scale:  req.Scale,
			Width:  req.Geometry.Cols,
			Height: req.Geometry.Rows,
		})
		frame.Source = SourceDirect
		frame.Elapsed = time.Since(start)
		if err != nil {
			frame.Err = err
			s.renderFailed(req.Path, err)
			return frame
		}
		frame.Output = out
		return frame
	}

	if out, ok := s.cache.Get(req.Path); ok {
		frame.Output = out
		frame.Source = SourceCache
		frame.Elapsed = time.Since(start)
		return frame
	}

	out, err := s.renderShared(ctx, req.Path, req.Geometry)
	frame.Source = SourceRender
	frame.Elapsed = time.Since(start)
	if err != nil {
		frame.Err = err
		s.renderFailed(req.Path, err)
		return frame
	}
	s.cache.PutGeneration(req.Generation, req.Path, out)
	frame.Output = out
	return frame
}

// Display renders the current image.
func (s *Session) Display(ctx context.Context) (Frame, error) {
	req, err := s.Request()
	if err != nil {
		return Frame{}, err
	}
	return s.Render(ctx, req), nil
}

// renderDefault is the preload worker's render function.
func (s *Session) renderDefault(ctx context.Context, path string) ([]byte, error) {
	return s.renderShared(ctx, path, s.Geometry())
}

// renderShared deduplicates concurrent default-size renders of the same
// image at the same geometry.
func (s *Session) renderShared(ctx context.Context, path string, size termsize.Size) ([]byte, error) {
	key := fmt.Sprintf("%s\x00%dx%d", path, size.Cols, size.Rows)
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.renderer.Render(ctx, path, renderer.Options{Width: size.Cols, Height: size.Rows})
	})
	if shared {
		s.logger.Debug("render shared",
			logging.String(logging.FieldPath, path),
			logging.String(logging.FieldDecisionType, "render_shared"),
		)
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *Session) renderFailed(path string, err error) {
	logging.WarnWithContext(s.logger, "render failed", "render_failed",
		logging.String(logging.FieldPath, path),
		logging.Error(err),
		logging.String(logging.FieldImpact, "image shown as an error message"),
		logging.String(logging.FieldErrorHint, "check that the file is a valid image"),
	)
}

func isDefaultScale(scale float64) bool {
	return scale <= 0 || math.Abs(scale-1.0) < 1e-9
}
