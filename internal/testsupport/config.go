package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"pixelterm/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Cache.Dir = filepath.Join(base, "cache")
	cfgVal.Cache.ThrottleMS = 0
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Navigation.HistoryPath = filepath.Join(base, "state", "history.db")
	if err := os.MkdirAll(cfgVal.Cache.Dir, 0o755); err != nil {
		t.Fatalf("mkdir cache dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDiskWindow overrides the preload window on the test config.
func WithDiskWindow(w int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.DiskWindow = w
	}
}

// WithPreloadDisabled turns the background worker off.
func WithPreloadDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.PreloadEnabled = false
	}
}

// WithHistoryDisabled turns last-position memory off.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Navigation.RememberPosition = false
	}
}

// WithStubbedRenderer installs a fake renderer (see StubRenderer) and points
// the config at it.
func WithStubbedRenderer() ConfigOption {
	return func(b *configBuilder) {
		stub := StubRenderer(b.t, filepath.Join(b.baseDir, "bin"))
		b.cfg.Renderer.Binary = stub.Binary
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Logging.Dir)
}
