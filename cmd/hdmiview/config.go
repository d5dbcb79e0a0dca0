package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/junsooki/HDMIView/internal/app"
)

var forceWrite bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Write the effective configuration (defaults plus flags) to a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.WriteConfig(args[0], cfg, forceWrite); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&forceWrite, "force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}
