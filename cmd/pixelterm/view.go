package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pixelterm/internal/config"
	"pixelterm/internal/deps"
	"pixelterm/internal/logging"
	"pixelterm/internal/preflight"
	"pixelterm/internal/termsize"
	"pixelterm/internal/tui"
	"pixelterm/internal/viewer"
)

// statusRows is the number of terminal rows the viewer keeps for its status
// and help bars.
const statusRows = 2

func runView(cmd *cobra.Command, ctx *commandContext, target string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	path, err := config.ExpandPath(target)
	if err != nil {
		return err
	}
	if err := deps.RequireAll(preflight.CheckSystemDeps(cfg)); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !isTerminal(out) {
		return printOnce(cmd.Context(), cfg, ctx.stderrLogger(), path, out, termsize.Size{})
	}

	sessionID := uuid.NewString()
	logger, err := logging.NewFromConfig(cfg, sessionID)
	if err != nil {
		return err
	}
	logger.Info("viewer starting",
		logging.String("path", path),
		logging.Bool("preload", cfg.Cache.PreloadEnabled),
		logging.Int("disk_window", cfg.Cache.DiskWindow),
	)

	hist, err := openHistory(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "positions will not be remembered"),
		)
		hist = nil
	}
	if hist != nil {
		defer hist.Close()
	}

	opts := viewer.OptionsFromConfig(cfg)
	opts.Renderer = newRenderer(cfg, logger)
	opts.SessionID = sessionID
	opts.Logger = logger
	opts.Geometry = termsize.Detect(os.Stdout, os.Stdin).Viewport(statusRows)
	if hist != nil {
		opts.History = hist
	}
	session, err := viewer.New(opts)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	session.Start(runCtx)
	if err := session.Open(runCtx, path); err != nil {
		_ = session.Close()
		return err
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return tui.Run(gctx, session, tea.WithOutput(out), tea.WithInput(cmd.InOrStdin()))
	})
	g.Go(func() error {
		<-gctx.Done()
		return session.Close()
	})
	err = g.Wait()

	stats := session.Stats()
	logger.Info("viewer stopped",
		logging.Uint64("cache_hits", stats.Cache.Hits),
		logging.Uint64("cache_misses", stats.Cache.Misses),
		logging.Uint64("preload_rendered", stats.Preload.Rendered),
	)
	return err
}

// printOnce writes the image at path (or the first image of a directory)
// to out without starting the background worker.
func printOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger, path string, out io.Writer, size termsize.Size) error {
	if !size.Valid() {
		if envSize, ok := termsize.FromEnv(); ok {
			size = envSize.Viewport(0)
		}
	}

	opts := viewer.OptionsFromConfig(cfg)
	opts.Renderer = newRenderer(cfg, logger)
	opts.PreloadEnabled = false
	opts.DisableDisk = true
	opts.Logger = logger
	opts.Geometry = size
	session, err := viewer.New(opts)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Open(ctx, path); err != nil {
		return err
	}
	frame, err := session.Display(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", session.Directory(), err)
	}
	if frame.Err != nil {
		return frame.Err
	}
	_, err = out.Write(frame.Output)
	return err
}
