package main

import (
	"github.com/spf13/cobra"

	"github.com/junsooki/HDMIView/internal/app"
)

var probe bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture device nodes and whether they can be opened",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.ListDevices(cmd.Context(), cmd.OutOrStdout(), cfg.Capture, probe, logger)
	},
}

func init() {
	devicesCmd.Flags().BoolVar(&probe, "probe", false, "Open each device and read one frame")
}
