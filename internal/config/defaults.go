package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigPath      = "~/.config/pixelterm/config.toml"
	defaultDiskWindow      = 10
	defaultThrottleMS      = 50
	defaultRendererBinary  = "chafa"
	defaultScale           = 1.0
	defaultScaleStep       = 0.1
	defaultMinScale        = 0.1
	defaultMaxScale        = 3.0
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultHistoryFileName = "history.db"
	defaultLogDirName      = "logs"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	state := defaultStateDir()
	return Config{
		Cache: Cache{
			DiskWindow:     defaultDiskWindow,
			PreloadEnabled: true,
			ThrottleMS:     defaultThrottleMS,
			Dir:            os.TempDir(),
		},
		Renderer: Renderer{
			Binary: defaultRendererBinary,
		},
		Display: Display{
			DefaultScale: defaultScale,
			ScaleStep:    defaultScaleStep,
			MinScale:     defaultMinScale,
			MaxScale:     defaultMaxScale,
		},
		Navigation: Navigation{
			RememberPosition: true,
			HistoryPath:      filepath.Join(state, defaultHistoryFileName),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    filepath.Join(state, defaultLogDirName),
		},
	}
}
