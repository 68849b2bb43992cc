package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"pixelterm/internal/config"
	"pixelterm/internal/history"
	"pixelterm/internal/imagefs"
	"pixelterm/internal/index"
	"pixelterm/internal/logging"
	"pixelterm/internal/preload"
	"pixelterm/internal/rendercache"
	"pixelterm/internal/renderer"
	"pixelterm/internal/termsize"
)

// History stores the last image viewed per directory.
type History interface {
	Lookup(ctx context.Context, dir string) (history.Entry, bool, error)
	Record(ctx context.Context, dir, imagePath string, position int) error
}

// Options configures a Session.
type Options struct {
	Renderer renderer.Renderer
	// History is optional; nil disables position memory.
	History History

	CacheDir    string
	DisableDisk bool
	SessionID   string

	DiskWindow     int
	PreloadEnabled bool
	Throttle       time.Duration

	Display config.Display
	// Geometry is the initial image area in terminal cells. The zero value
	// renders at the renderer's default size.
	Geometry termsize.Size

	Logger *slog.Logger
}

// OptionsFromConfig maps the configuration onto session options. Renderer
// and History are left for the caller.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CacheDir:       cfg.Cache.Dir,
		DiskWindow:     cfg.Cache.DiskWindow,
		PreloadEnabled: cfg.Cache.PreloadEnabled,
		Throttle:       cfg.PreloadThrottle(),
		Display:        cfg.Display,
	}
}

// Stats combines cache and preload counters.
type Stats struct {
	Cache   rendercache.Stats
	Preload preload.Stats
}

// Session is the application context for one viewer run.
type Session struct {
	index     *index.Index
	cache     *rendercache.Cache
	scheduler *preload.Scheduler
	renderer  renderer.Renderer
	history   History
	logger    *slog.Logger
	display   config.Display
	group     singleflight.Group

	// paths is the sequence installed by the last activation; it is
	// shared read-only with preload jobs.
	paths []string
	scale float64

	mu       sync.Mutex
	geometry termsize.Size

	closeOnce sync.Once
	closeErr  error
}

// New creates a session with an empty index. Call Start before Open so the
// preload worker runs.
func New(opts Options) (*Session, error) {
	if opts.Renderer == nil {
		return nil, errors.New("viewer: renderer is required")
	}
	display := opts.Display
	if display.ScaleStep <= 0 || display.MinScale <= 0 || display.MaxScale < display.MinScale {
		display = config.Default().Display
	}
	if display.DefaultScale <= 0 {
		display.DefaultScale = 1.0
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Session{
		index:    index.New(),
		renderer: opts.Renderer,
		history:  opts.History,
		logger:   logging.NewComponentLogger(logger, "viewer"),
		display:  display,
		scale:    clampScale(display.DefaultScale, display),
		geometry: opts.Geometry,
	}
	s.cache = rendercache.New(rendercache.Options{
		Parent:      opts.CacheDir,
		SessionID:   opts.SessionID,
		DisableDisk: opts.DisableDisk,
		Logger:      logger,
	})
	s.scheduler = preload.New(s.cache, s.renderDefault, preload.Options{
		Window:   opts.DiskWindow,
		Throttle: opts.Throttle,
		Enabled:  opts.PreloadEnabled,
		Logger:   logger,
	})
	return s, nil
}

// Start launches the preload worker.
func (s *Session) Start(ctx context.Context) {
	s.scheduler.Start(ctx)
}

// Open shows path. A file opens its directory positioned at the file; a
// directory opens at its remembered image, or the first one.
func (s *Session) Open(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", index.ErrPathNotFound, path)
		}
		return fmt.Errorf("viewer: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return s.openDirectory(ctx, path)
	}

	s.remember(ctx)
	if err := s.index.SetSingleFile(path); err != nil {
		return err
	}
	s.activate()
	return nil
}

// Next moves to the following image, wrapping around.
func (s *Session) Next() error {
	if err := s.index.Advance(); err != nil {
		return err
	}
	s.navigated()
	return nil
}

// Prev moves to the preceding image, wrapping around.
func (s *Session) Prev() error {
	if err := s.index.Retreat(); err != nil {
		return err
	}
	s.navigated()
	return nil
}

// Jump moves to position i.
func (s *Session) Jump(i int) error {
	if err := s.index.Jump(i); err != nil {
		return err
	}
	s.navigated()
	return nil
}

// First moves to the first image.
func (s *Session) First() error {
	if s.index.Len() == 0 {
		return index.ErrEmpty
	}
	return s.Jump(0)
}

// Last moves to the last image.
func (s *Session) Last() error {
	if s.index.Len() == 0 {
		return index.ErrEmpty
	}
	return s.Jump(s.index.Len() - 1)
}

// Refresh rereads the active directory. Every cached entry is discarded
// because files may have changed on disk.
func (s *Session) Refresh() error {
	if err := s.index.Refresh(); err != nil {
		return err
	}
	s.activate()
	return nil
}

// Up opens the parent of the active directory.
func (s *Session) Up(ctx context.Context) error {
	parent, err := s.index.Parent()
	if err != nil {
		return err
	}
	return s.openDirectory(ctx, parent)
}

// Enter opens the named subdirectory of the active directory.
func (s *Session) Enter(ctx context.Context, name string) error {
	sub, err := s.index.Subdirectory(name)
	if err != nil {
		return err
	}
	return s.openDirectory(ctx, sub)
}

// Subdirectories lists the child directories of the active directory.
func (s *Session) Subdirectories() ([]string, error) {
	if s.index.Directory() == "" {
		return nil, nil
	}
	return imagefs.Subdirectories(s.index.Directory())
}

// ZoomDirection selects a zoom step.
type ZoomDirection int

const (
	ZoomReset ZoomDirection = iota
	ZoomIn
	ZoomOut
)

// Zoom changes the display scale and returns the new value. The scale is
// clamped to the configured range.
func (s *Session) Zoom(dir ZoomDirection) float64 {
	switch dir {
	case ZoomIn:
		s.scale = clampScale(s.scale+s.display.ScaleStep, s.display)
	case ZoomOut:
		s.scale = clampScale(s.scale-s.display.ScaleStep, s.display)
	default:
		s.scale = clampScale(s.display.DefaultScale, s.display)
	}
	return s.scale
}

// Scale returns the current display scale.
func (s *Session) Scale() float64 { return s.scale }

// SetGeometry records the image area used for default-size renders. A
// change invalidates the cache and restarts preloading. It reports whether
// the geometry changed.
func (s *Session) SetGeometry(size termsize.Size) bool {
	s.mu.Lock()
	if s.geometry == size {
		s.mu.Unlock()
		return false
	}
	s.geometry = size
	s.mu.Unlock()

	gen := s.cache.InvalidateAll()
	s.logger.Debug("geometry changed",
		logging.Int("cols", size.Cols),
		logging.Int("rows", size.Rows),
		logging.Uint64(logging.FieldGeneration, uint64(gen)),
	)
	if s.index.Len() > 0 {
		s.schedule(gen)
	}
	return true
}

// Geometry returns the current image area.
func (s *Session) Geometry() termsize.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geometry
}

// Current returns the current image path.
func (s *Session) Current() (string, bool) { return s.index.Current() }

// Position returns the current position, or -1.
func (s *Session) Position() int { return s.index.Position() }

// Len returns the number of images in the active directory.
func (s *Session) Len() int { return s.index.Len() }

// Directory returns the active directory.
func (s *Session) Directory() string { return s.index.Directory() }

// Window returns up to max paths around the current image and the position
// of the first one.
func (s *Session) Window(max int) (int, []string) { return s.index.Window(max) }

// Info describes the current image.
func (s *Session) Info() (Info, error) {
	path, ok := s.index.Current()
	if !ok {
		return Info{}, index.ErrEmpty
	}
	info, err := Describe(path)
	if err != nil {
		return Info{}, err
	}
	info.Position = s.index.Position()
	info.Total = s.index.Len()
	return info, nil
}

// Stats returns cache and preload counters.
func (s *Session) Stats() Stats {
	return Stats{Cache: s.cache.Stats(), Preload: s.scheduler.Stats()}
}

// Resident returns the images currently held in the memory tier, sorted.
func (s *Session) Resident() []string {
	return s.cache.MemoryKeys()
}

// WaitIdle blocks until the preload worker has no work.
func (s *Session) WaitIdle(ctx context.Context) error {
	return s.scheduler.Wait(ctx)
}

// Close stops the worker, saves the position and removes the cache
// directory. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.scheduler.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		s.remember(ctx)
		cancel()
		s.closeErr = s.cache.Close()
	})
	return s.closeErr
}

func (s *Session) openDirectory(ctx context.Context, dir string) error {
	s.remember(ctx)
	if err := s.index.SetDirectory(dir); err != nil {
		return err
	}
	s.restore(ctx)
	s.activate()
	return nil
}

// activate installs the index sequence into a fresh cache generation and
// schedules preloading around the current position.
func (s *Session) activate() {
	s.paths = s.index.Paths()
	gen := s.cache.Activate(s.paths, s.index.Position())
	s.logger.Info("directory activated",
		logging.String("directory", s.index.Directory()),
		logging.Int("images", len(s.paths)),
		logging.Int("position", s.index.Position()),
		logging.Uint64(logging.FieldGeneration, uint64(gen)),
	)
	if len(s.paths) > 0 {
		s.schedule(gen)
	}
}

// navigated moves the memory tier and the preload window to the new
// position. The scheduler does both under one lock.
func (s *Session) navigated() {
	s.schedule(s.cache.Generation())
}

func (s *Session) schedule(gen rendercache.Generation) {
	s.scheduler.Schedule(preload.Snapshot{
		Paths:      s.paths,
		Position:   s.index.Position(),
		Generation: gen,
	})
}

func (s *Session) restore(ctx context.Context) {
	if s.history == nil || s.index.Len() == 0 {
		return
	}
	entry, ok, err := s.history.Lookup(ctx, s.index.Directory())
	if err != nil {
		logging.WarnWithContext(s.logger, "history lookup failed", "history_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "opening at the first image"),
		)
		return
	}
	if !ok {
		return
	}
	if i := s.index.IndexOf(entry.ImagePath); i >= 0 {
		_ = s.index.Jump(i)
		s.logger.Debug("position restored", logging.String(logging.FieldPath, entry.ImagePath), logging.Int("position", i))
	}
}

func (s *Session) remember(ctx context.Context) {
	if s.history == nil {
		return
	}
	path, ok := s.index.Current()
	if !ok {
		return
	}
	if err := s.history.Record(ctx, s.index.Directory(), path, s.index.Position()); err != nil {
		logging.WarnWithContext(s.logger, "history update failed", "history_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "position will not be restored"),
		)
	}
}

func clampScale(v float64, d config.Display) float64 {
	v = math.Round(v*1000) / 1000
	return math.Min(math.Max(v, d.MinScale), d.MaxScale)
}
