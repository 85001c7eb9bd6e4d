package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	dtcClearCmd.Flags().BoolP(flagYes, "y", false, "do not ask for confirmation")
	dtcCmd.AddCommand(dtcReadCmd, dtcClearCmd)
	rootCmd.AddCommand(dtcCmd)
}

var dtcCmd = &cobra.Command{
	Use:   "dtc",
	Short: "ECU trouble codes",
}

var dtcReadCmd = &cobra.Command{
	Use:   "read",
	Short: "read stored trouble codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer h.Close()
		return printDTCs(cmd.OutOrStdout(), h)
	},
}

var dtcClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear stored trouble codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer h.Close()

		if err := printDTCs(cmd.OutOrStdout(), h); err != nil {
			return err
		}
		if yes, _ := cmd.Flags().GetBool(flagYes); !yes && !yesNo("Clear ECU errors") {
			return nil
		}
		if err := h.ClearDTCs(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), green("ECU errors cleared successfully"))
		return nil
	},
}
