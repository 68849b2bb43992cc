package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pixelterm/internal/config"
	"pixelterm/internal/imagefs"
	"pixelterm/internal/index"
	"pixelterm/internal/viewer"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info <image>",
		Short: "Show image metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if !imagefs.IsSupported(path) {
				return fmt.Errorf("%w: %s", index.ErrUnsupportedFormat, path)
			}
			info, err := viewer.Describe(path)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"File", info.Name},
				{"Directory", info.Directory},
				{"Size", fmt.Sprintf("%s (%d bytes)", info.HumanSize(), info.Bytes)},
				{"Dimensions", info.Dimensions()},
				{"Format", info.Format},
				{"Modified", info.ModTime.Format("2006-01-02 15:04:05")},
			}
			if info.DecodeErr != nil {
				rows = append(rows, []string{"Header", info.DecodeErr.Error()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValueTable(rows))
			return nil
		},
	}
}
