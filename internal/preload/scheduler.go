package preload

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"pixelterm/internal/logging"
	"pixelterm/internal/rendercache"
)

// DefaultWindow is the number of images preloaded on each side.
const DefaultWindow = 10

// DefaultThrottle is the pause between background renders.
const DefaultThrottle = 50 * time.Millisecond

// Cache is the subset of the render cache the worker writes to.
type Cache interface {
	HasDisk(path string) bool
	HasMemory(path string) bool
	DiskEnabled() bool
	PutGeneration(gen rendercache.Generation, path string, output []byte) bool
	Rebalance(pos int)
	Generation() rendercache.Generation
}

// RenderFunc renders one image at default size.
type RenderFunc func(ctx context.Context, path string) ([]byte, error)

// Snapshot is the navigation state a job works from. Paths must not be
// modified after it is submitted.
type Snapshot struct {
	Paths      []string
	Position   int
	Generation rendercache.Generation
}

// Options configures a Scheduler.
type Options struct {
	Window   int
	Throttle time.Duration
	Enabled  bool
	Logger   *slog.Logger
}

// Stats counts worker activity since the scheduler was created.
type Stats struct {
	Jobs       uint64
	Rendered   uint64
	Skipped    uint64
	Failed     uint64
	Superseded uint64
	Stale      uint64
}

type job struct {
	seq  uint64
	snap Snapshot
}

// Scheduler turns navigation snapshots into background preload jobs.
type Scheduler struct {
	cache   Cache
	render  RenderFunc
	window  int
	enabled bool
	limiter *rate.Limiter
	logger  *slog.Logger

	mu      sync.Mutex
	seq     uint64
	pending *job
	running bool
	idle    chan struct{}
	wake    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	stopped bool

	jobs, rendered, skipped, failed, superseded, stale atomic.Uint64
}

// New creates a scheduler. Call Start before scheduling work.
func New(cache Cache, render RenderFunc, opts Options) *Scheduler {
	window := opts.Window
	if window < 0 {
		window = 0
	}
	limit := rate.Inf
	if opts.Throttle > 0 {
		limit = rate.Every(opts.Throttle)
	}
	idle := make(chan struct{})
	close(idle)
	return &Scheduler{
		cache:   cache,
		render:  render,
		window:  window,
		enabled: opts.Enabled,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logging.NewComponentLogger(opts.Logger, "preload"),
		idle:    idle,
		wake:    make(chan struct{}, 1),
	}
}

// Enabled reports whether background rendering is on.
func (s *Scheduler) Enabled() bool { return s.enabled }

// Window returns the configured window size.
func (s *Scheduler) Window() int { return s.window }

// Range returns the half-open index range [start, end) preloaded around pos
// in a sequence of length n with window w.
func Range(n, pos, w int) (start, end int) {
	if n <= 0 || pos < 0 {
		return 0, 0
	}
	return max(0, pos-w), min(n, pos+w+1)
}

// Start launches the worker goroutine. It stops when ctx is cancelled or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop cancels the worker, kills an in-flight render, and waits for the
// goroutine to exit. Pending work is dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.pending = nil
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	s.markIdleLocked()
	s.mu.Unlock()
}

// Schedule moves the memory tier to snap.Position and submits a preload job
// for snap, superseding any earlier job. With preload disabled only the
// memory tier moves.
func (s *Scheduler) Schedule(snap Snapshot) {
	s.mu.Lock()
	// The sequence bump and the rebalance share s.mu with the worker's final
	// rebalance, so an older job can never move the position back.
	s.seq++
	s.cache.Rebalance(snap.Position)
	if !s.enabled || s.stopped {
		s.mu.Unlock()
		return
	}
	if s.pending != nil {
		s.superseded.Add(1)
	}
	s.pending = &job{seq: s.seq, snap: snap}
	if s.idleLocked() {
		s.idle = make(chan struct{})
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Idle reports whether no job is pending or running.
func (s *Scheduler) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idleLocked()
}

// Wait blocks until the scheduler is idle or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns activity counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Jobs:       s.jobs.Load(),
		Rendered:   s.rendered.Load(),
		Skipped:    s.skipped.Load(),
		Failed:     s.failed.Load(),
		Superseded: s.superseded.Load(),
		Stale:      s.stale.Load(),
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			next := s.pending
			s.pending = nil
			if next == nil {
				s.running = false
				s.markIdleLocked()
				s.mu.Unlock()
				break
			}
			s.running = true
			s.mu.Unlock()

			s.run(ctx, next)
			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (s *Scheduler) run(ctx context.Context, j *job) {
	s.jobs.Add(1)
	snap := j.snap
	window := s.window
	diskless := !s.cache.DiskEnabled()
	if diskless {
		// Without a disk tier only the memory radius can hold a render.
		window = min(window, rendercache.MemoryRadius)
	}
	start, end := Range(len(snap.Paths), snap.Position, window)
	began := time.Now()
	var rendered, skipped, failed int

	s.logger.Debug("preload job started",
		logging.Int("position", snap.Position),
		logging.Int("start", start),
		logging.Int("end", end),
		logging.Uint64(logging.FieldGeneration, uint64(snap.Generation)),
	)

	for i := start; i < end; i++ {
		if i == snap.Position {
			continue
		}
		if !s.current(j) {
			s.superseded.Add(1)
			s.logger.Debug("preload job superseded", logging.Int("position", snap.Position), logging.Int("rendered", rendered))
			return
		}
		if s.cache.Generation() != snap.Generation {
			s.stale.Add(1)
			s.logger.Debug("preload job stale", logging.Uint64(logging.FieldGeneration, uint64(snap.Generation)))
			return
		}

		path := snap.Paths[i]
		if s.cache.HasDisk(path) || (diskless && s.cache.HasMemory(path)) {
			skipped++
			s.skipped.Add(1)
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		out, err := s.render(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failed++
			s.failed.Add(1)
			logging.WarnWithContext(s.logger, "preload render failed", "preload_render_failed",
				logging.String(logging.FieldPath, path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "image will be rendered when displayed"),
				logging.String(logging.FieldErrorHint, "check that the file is a valid image"),
			)
			continue
		}
		if s.cache.PutGeneration(snap.Generation, path, out) {
			rendered++
			s.rendered.Add(1)
		}
	}

	s.finish(j)
	s.logger.Debug("preload job finished",
		logging.Int("position", snap.Position),
		logging.Int("rendered", rendered),
		logging.Int("skipped", skipped),
		logging.Int("failed", failed),
		logging.Duration("elapsed", time.Since(began)),
	)
}

// finish rebalances the memory tier around the job's position unless a newer
// job or generation has taken over.
func (s *Scheduler) finish(j *job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.seq == s.seq && s.cache.Generation() == j.snap.Generation {
		s.cache.Rebalance(j.snap.Position)
	}
}

// current reports whether j is still the newest submitted job.
func (s *Scheduler) current(j *job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return j.seq == s.seq
}

func (s *Scheduler) idleLocked() bool {
	select {
	case <-s.idle:
		return true
	default:
		return false
	}
}

func (s *Scheduler) markIdleLocked() {
	if !s.idleLocked() {
		close(s.idle)
	}
}
