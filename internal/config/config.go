package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Cache contains configuration for the predictive render cache.
type Cache struct {
	DiskWindow     int    `toml:"disk_window"`
	PreloadEnabled bool   `toml:"preload_enabled"`
	ThrottleMS     int    `toml:"throttle_ms"`
	Dir            string `toml:"dir"`
}

// Renderer contains configuration for the external text-art renderer.
type Renderer struct {
	Binary         string   `toml:"binary"`
	ExtraArgs      []string `toml:"extra_args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Display contains zoom settings.
type Display struct {
	DefaultScale float64 `toml:"default_scale"`
	ScaleStep    float64 `toml:"scale_step"`
	MinScale     float64 `toml:"min_scale"`
	MaxScale     float64 `toml:"max_scale"`
}

// Navigation contains configuration for position memory.
type Navigation struct {
	RememberPosition bool   `toml:"remember_position"`
	HistoryPath      string `toml:"history_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for PixelTerm.
//
// Configuration sections by subsystem:
//   - Cache: preload window, throttle, and session directory parent
//   - Renderer: renderer binary and arguments
//   - Display: zoom bounds
//   - Navigation: last-position history
//   - Logging: log format, level, and directory
type Config struct {
	Cache      Cache      `toml:"cache"`
	Renderer   Renderer   `toml:"renderer"`
	Display    Display    `toml:"display"`
	Navigation Navigation `toml:"navigation"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pixelterm.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and history directories. The cache
// directory is left alone; the render cache creates its own session
// directory inside it and degrades when that fails.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Logging.Dir}
	if c.Navigation.RememberPosition && strings.TrimSpace(c.Navigation.HistoryPath) != "" {
		dirs = append(dirs, filepath.Dir(c.Navigation.HistoryPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RendererBinary returns the renderer executable name.
func (c *Config) RendererBinary() string {
	if binary := strings.TrimSpace(c.Renderer.Binary); binary != "" {
		return binary
	}
	return defaultRendererBinary
}

// RendererTimeout returns the per-render timeout, zero meaning none.
func (c *Config) RendererTimeout() time.Duration {
	if c.Renderer.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Renderer.TimeoutSeconds) * time.Second
}

// PreloadThrottle returns the pause between background renders.
func (c *Config) PreloadThrottle() time.Duration {
	return time.Duration(c.Cache.ThrottleMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "pixelterm")
	}
	return "~/.local/state/pixelterm"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
