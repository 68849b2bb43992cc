package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pixelterm/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the renderer and the directories PixelTerm writes to",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)

			results := preflight.RunAll(cmd.Context(), cfg, newRenderer(cfg, ctx.stderrLogger()))

			lines := renderSectionHeader("Environment", colorize)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Cache", colorize)...)
			lines = append(lines,
				renderStatusLine("Preload", statusInfo, fmt.Sprintf("%s (window %d, throttle %s)",
					yesNo(cfg.Cache.PreloadEnabled), cfg.Cache.DiskWindow, cfg.PreloadThrottle()), colorize),
				renderStatusLine("Remember position", statusInfo, yesNo(cfg.Navigation.RememberPosition), colorize),
			)
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if preflight.Failed(results) {
				return errors.New("doctor: one or more checks failed")
			}
			return nil
		},
	}
}
