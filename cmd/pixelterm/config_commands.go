package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pixelterm/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the configuration file",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand())
	return cmd
}

// resolveConfigTarget expands an explicit path or falls back to the default
// location.
func resolveConfigTarget(raw string) (string, error) {
	if raw = strings.TrimSpace(raw); raw != "" {
		return config.ExpandPath(raw)
	}
	return config.DefaultConfigPath()
}

func newConfigInitCommand() *cobra.Command {
	var (
		target    string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := resolveConfigTarget(target)
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}
			_, statErr := os.Stat(path)
			switch {
			case statErr == nil && !overwrite:
				return fmt.Errorf("%s already exists; pass --overwrite to replace it", path)
			case statErr != nil && !errors.Is(statErr, fs.ErrNotExist):
				return fmt.Errorf("check %s: %w", path, statErr)
			}
			if err := config.CreateSample(path); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "path", "p", "", "Where to write the file (default: user config dir)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Parse the configuration and print the effective settings",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var explicit string
			if f := cmd.Flag("config"); f != nil {
				explicit = f.Value.String()
			}
			cfg, resolved, exists, err := config.Load(explicit)
			if err != nil {
				return err
			}
			source := resolved
			if !exists {
				source += " (missing, defaults were used)"
			}
			rows := [][]string{
				{"Source", source},
				{"Renderer", cfg.RendererBinary()},
				{"Render timeout", cfg.RendererTimeout().String()},
				{"Preload", yesNo(cfg.Cache.PreloadEnabled)},
				{"Disk window", strconv.Itoa(cfg.Cache.DiskWindow)},
				{"Throttle", cfg.PreloadThrottle().String()},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderKeyValueTable(rows))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
