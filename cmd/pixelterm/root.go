package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	flags := &globalFlags{diskWindow: -1}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:   "pixelterm [path]",
		Short: "Terminal image viewer",
		Long: "PixelTerm shows the images of a directory in the terminal.\n\n" +
			"Images are drawn by chafa. Neighbouring images are pre-rendered in the\n" +
			"background so moving between them is instant. When stdout is not a\n" +
			"terminal the image at path is printed once.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) == 1 {
				target = args[0]
			}
			return runView(cmd, ctx, target)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	pf.StringVar(&flags.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&flags.noPreload, "no-preload", false, "Disable background pre-rendering")
	rootCmd.Flags().IntVar(&flags.diskWindow, "disk-window", -1, "Images to pre-render on each side (overrides cache.disk_window)")

	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newInfoCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
