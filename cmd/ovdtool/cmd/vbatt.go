package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(vbattCmd)
}

var vbattCmd = &cobra.Command{
	Use:   "vbatt",
	Short: "read battery voltage on the vehicle connector",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		h := newHost(cmd, cfg)
		defer h.Close()
		if err := connect(cmd.Context(), h, cfg); err != nil {
			return err
		}
		mv, err := h.BatteryVoltage()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%.2f V\n", float64(mv)/1000)
		return nil
	},
}
