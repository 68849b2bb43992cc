package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"pixelterm/internal/config"
	"pixelterm/internal/history"
	"pixelterm/internal/logging"
	"pixelterm/internal/renderer"
)

type globalFlags struct {
	configPath string
	logLevel   string
	noPreload  bool
	diskWindow int
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.configPath))
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.applyOverrides(cfg); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) applyOverrides(cfg *config.Config) error {
	if c.flags.noPreload {
		cfg.Cache.PreloadEnabled = false
	}
	if c.flags.diskWindow >= 0 {
		cfg.Cache.DiskWindow = c.flags.diskWindow
	}
	if level := strings.ToLower(strings.TrimSpace(c.flags.logLevel)); level != "" {
		if level == "warning" {
			level = "warn"
		}
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// stderrLogger is used by one-shot commands. Without --log-level only
// warnings reach the terminal.
func (c *commandContext) stderrLogger() *slog.Logger {
	level := strings.TrimSpace(c.flags.logLevel)
	if level == "" {
		level = "warn"
	}
	return logging.NewStderr(level)
}

func newRenderer(cfg *config.Config, logger *slog.Logger) *renderer.Chafa {
	return renderer.NewChafa(cfg.RendererBinary(),
		renderer.WithExtraArgs(cfg.Renderer.ExtraArgs...),
		renderer.WithTimeout(cfg.RendererTimeout()),
		renderer.WithLogger(logger),
	)
}

// openHistory returns nil when position memory is disabled.
func openHistory(cfg *config.Config) (*history.Store, error) {
	if !cfg.Navigation.RememberPosition || strings.TrimSpace(cfg.Navigation.HistoryPath) == "" {
		return nil, nil
	}
	return history.Open(cfg.Navigation.HistoryPath)
}

func requireHistory(cfg *config.Config) (*history.Store, error) {
	if strings.TrimSpace(cfg.Navigation.HistoryPath) == "" {
		return nil, errors.New("navigation.history_path is not configured")
	}
	return history.Open(cfg.Navigation.HistoryPath)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
