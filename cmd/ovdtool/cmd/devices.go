package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(devicesCmd)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "list installed passthru devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		devs, err := newHost(cmd, cfg).ListDevices()
		if err != nil {
			return err
		}
		if len(devs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), yellow("No passthru devices found"))
			return nil
		}
		for _, d := range devs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n\t%s\n", green("#%d", d.ID), d.Name, d.DriverPath)
		}
		return nil
	},
}
