package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "ovdtool",
	Short:        "KWP2000 diagnostics over J2534 passthru devices",
	Long:         `Talk to ECUs through any installed SAE J2534 v04.04 passthru interface: read and clear trouble codes, send raw KWP2000 requests and check battery voltage.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

const (
	flagConfig   = "config"
	flagDevice   = "device"
	flagDriver   = "driver"
	flagECU      = "ecu"
	flagSimulate = "simulate"
	flagDebug    = "debug"
	flagYes      = "yes"
)

func init() {
	log.SetFlags(log.Lshortfile | log.LstdFlags)

	pf := rootCmd.PersistentFlags()
	pf.StringP(flagConfig, "c", "", "config file (default is config.yaml in the user config dir)")
	pf.StringP(flagDevice, "D", "", "passthru device name or index, prompt when several are installed")
	pf.String(flagDriver, "", "J2534 library to load instead of the discovered ones")
	pf.StringP(flagECU, "e", "", "ECU preset from the config")
	pf.BoolP(flagSimulate, "s", false, "use the built in ECU simulator instead of hardware")
	pf.BoolP(flagDebug, "d", false, "debug mode")
}
