package cmd

import (
	"fmt"
	"strings"

	"github.com/roffe/passdiag"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <hex>",
	Short: "send a raw KWP2000 request, e.g. send 1A86",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer h.Close()

		resp, err := h.SendHex(strings.Join(args, ""))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), passdiag.HexString(resp))
		return nil
	},
}
