package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pixelterm/internal/config"
	"pixelterm/internal/deps"
	"pixelterm/internal/imagefs"
	"pixelterm/internal/preflight"
	"pixelterm/internal/rendercache"
	"pixelterm/internal/termsize"
	"pixelterm/internal/viewer"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Render cache maintenance",
	}
	cacheCmd.AddCommand(newCacheSweepCommand(ctx))
	cacheCmd.AddCommand(newCacheWarmCommand(ctx))
	return cacheCmd
}

func newCacheSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove cache directories left behind by crashed sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			parent := cfg.Cache.Dir
			removed, err := rendercache.SweepOrphans(parent)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d orphaned cache %s from %s\n", removed, plural(removed, "directory", "directories"), parent)
			return err
		},
	}
}

func newCacheWarmCommand(ctx *commandContext) *cobra.Command {
	var width, height int

	cmd := &cobra.Command{
		Use:   "warm <dir>",
		Short: "Pre-render every image of a directory into a throwaway cache and report timings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := deps.RequireAll(preflight.CheckSystemDeps(cfg)); err != nil {
				return err
			}
			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			paths, err := imagefs.List(dir)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No images in %s\n", dir)
				return nil
			}

			logger := ctx.stderrLogger()
			opts := viewer.OptionsFromConfig(cfg)
			opts.Renderer = newRenderer(cfg, logger)
			opts.Logger = logger
			opts.PreloadEnabled = true
			opts.DiskWindow = len(paths)
			opts.Geometry = termsize.Size{Cols: width, Rows: height}
			session, err := viewer.New(opts)
			if err != nil {
				return err
			}
			defer session.Close()

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			session.Start(runCtx)

			start := time.Now()
			if err := session.Open(runCtx, dir); err != nil {
				return err
			}
			first := time.Now()
			if _, err := session.Display(runCtx); err != nil {
				return err
			}
			firstElapsed := time.Since(first)
			if err := session.WaitIdle(runCtx); err != nil {
				return err
			}
			elapsed := time.Since(start)

			stats := session.Stats()
			resident := session.Resident()
			for i, p := range resident {
				resident[i] = filepath.Base(p)
			}
			rows := [][]string{
				{"Directory", filepath.Clean(session.Directory())},
				{"Images", strconv.Itoa(len(paths))},
				{"First image", firstElapsed.Round(time.Millisecond).String()},
				{"Background renders", strconv.FormatUint(stats.Preload.Rendered, 10)},
				{"Failed", strconv.FormatUint(stats.Preload.Failed, 10)},
				{"Disk entries", strconv.Itoa(stats.Cache.DiskEntries)},
				{"Disk usage", humanize.Bytes(uint64(stats.Cache.DiskBytes))},
				{"In memory", strings.Join(resident, ", ")},
				{"Total time", elapsed.Round(time.Millisecond).String()},
			}
			if n := stats.Preload.Rendered; n > 0 {
				rows = append(rows, []string{"Per image", (elapsed / time.Duration(n)).Round(time.Millisecond).String()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValueTable(rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "Render width in cells (default: renderer default)")
	cmd.Flags().IntVar(&height, "height", 0, "Render height in cells (default: renderer default)")
	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
