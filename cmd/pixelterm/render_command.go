package main

import (
	"errors"

	"github.com/spf13/cobra"

	"pixelterm/internal/config"
	"pixelterm/internal/deps"
	"pixelterm/internal/preflight"
	"pixelterm/internal/termsize"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var width, height int

	cmd := &cobra.Command{
		Use:   "render <image|dir>",
		Short: "Print an image once and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if (width > 0) != (height > 0) {
				return errors.New("--width and --height must be set together")
			}
			if err := deps.RequireAll(preflight.CheckSystemDeps(cfg)); err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			size := termsize.Size{Cols: width, Rows: height}
			return printOnce(cmd.Context(), cfg, ctx.stderrLogger(), path, cmd.OutOrStdout(), size)
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "Output width in cells (default: renderer default or $COLUMNS)")
	cmd.Flags().IntVar(&height, "height", 0, "Output height in cells (default: renderer default or $LINES)")
	return cmd
}
