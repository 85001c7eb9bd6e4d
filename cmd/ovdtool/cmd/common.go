package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/roffe/passdiag"
	"github.com/roffe/passdiag/pkg/config"
	"github.com/roffe/passdiag/pkg/host"
	"github.com/roffe/passdiag/pkg/kwp2000"
	"github.com/roffe/passdiag/pkg/simulator"
	"github.com/spf13/cobra"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if driver, _ := cmd.Flags().GetString(flagDriver); driver != "" {
		cfg.Driver = driver
	}
	if device, _ := cmd.Flags().GetString(flagDevice); device != "" {
		cfg.Device = device
	}
	return cfg, nil
}

func newHost(cmd *cobra.Command, cfg *config.Config) *host.Host {
	var opts []host.Option
	if simulate, _ := cmd.Flags().GetBool(flagSimulate); simulate {
		opts = append(opts, host.WithSimulator(demoECU()))
	}
	if cfg.Driver != "" {
		opts = append(opts, host.WithDevice(passdiag.DeviceDescriptor{Name: "configured driver", DriverPath: cfg.Driver}))
	}
	sessionOpts := []kwp2000.Option{kwp2000.WithSessionType(byte(cfg.SessionType))}
	if cfg.KeepAliveInterval > 0 {
		sessionOpts = append(sessionOpts, kwp2000.WithKeepAliveInterval(cfg.KeepAliveInterval))
	}
	opts = append(opts, host.WithSessionOptions(sessionOpts...))
	return host.New(opts...)
}

// demoECU is the simulator as served by --simulate.
func demoECU() *simulator.ECU {
	ecu := simulator.New()
	ecu.SetDTCs(
		simulator.DTC{Code: 0x0420, Status: 0x08},
		simulator.DTC{Code: 0xC100, Status: 0x09},
		simulator.DTC{Code: 0x9A27, Status: 0x20},
	)
	ecu.SetResponse([]byte{0x1A, 0x86}, []byte{0x5A, 0x86, 0x20, 0x34, 0x54, 0x41, 0x53, 0x02})
	ecu.SetResponse([]byte{0x21, 0x01}, []byte{0x7F, 0x21, 0x78}, []byte{0x61, 0x01, 0x0C, 0x1C})
	return ecu
}

// pickDevice selects by name or index, prompting when there is a choice.
func pickDevice(devs []passdiag.DeviceDescriptor, want string) (passdiag.DeviceDescriptor, error) {
	if len(devs) == 0 {
		return passdiag.DeviceDescriptor{}, errors.New("no passthru devices installed")
	}
	if want != "" {
		if idx, err := strconv.Atoi(want); err == nil && idx >= 0 && idx < len(devs) {
			return devs[idx], nil
		}
		for _, d := range devs {
			if strings.EqualFold(d.Name, want) {
				return d, nil
			}
		}
		return passdiag.DeviceDescriptor{}, fmt.Errorf("no device named %q", want)
	}
	if len(devs) == 1 {
		return devs[0], nil
	}
	names := make([]string, len(devs))
	for i, d := range devs {
		names[i] = d.Name
	}
	prompt := promptui.Select{
		Label: "Select passthru device",
		Items: names,
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return passdiag.DeviceDescriptor{}, fmt.Errorf("prompt failed %v", err)
	}
	return devs[idx], nil
}

// connect opens the selected device. Opening is retried since some
// interfaces need a moment after being plugged in.
func connect(ctx context.Context, h *host.Host, cfg *config.Config) error {
	devs, err := h.ListDevices()
	if err != nil {
		return err
	}
	dev, err := pickDevice(devs, cfg.Device)
	if err != nil {
		return err
	}
	return retry.Do(func() error {
		_, err := h.Connect(dev)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.RetryIf(func(err error) bool {
			var oe *passdiag.DeviceOpenError
			return errors.As(err, &oe)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("retry #%d: %v", n, err)
		}),
		retry.LastErrorOnly(true),
	)
}

// openSession connects and starts a diagnostic session with the selected
// ECU preset. The returned host must be closed.
func openSession(cmd *cobra.Command) (*host.Host, error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	ecuName, _ := cmd.Flags().GetString(flagECU)
	tc, err := cfg.Preset(ecuName)
	if err != nil {
		return nil, err
	}
	h := newHost(cmd, cfg)
	if err := connect(ctx, h, cfg); err != nil {
		h.Close()
		return nil, err
	}
	if _, err := h.OpenChannel(ctx, tc); err != nil {
		h.Close()
		return nil, err
	}
	if debug, _ := cmd.Flags().GetBool(flagDebug); debug {
		log.Printf("session %s on %s", h.Session().ID(), tc)
	}
	return h, nil
}

var (
	green  = color.New(color.FgGreen).SprintfFunc()
	yellow = color.New(color.FgYellow).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
)

func printDTCs(w io.Writer, h *host.Host) error {
	codes, err := h.ReadDTCs()
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		fmt.Fprintln(w, green("No ECU errors found"))
		return nil
	}
	fmt.Fprintln(w, yellow("Found %d errors", len(codes)))
	for _, c := range codes {
		fmt.Fprintf(w, "%s %-5s %s (%s)\n", yellow("%s", c.Code), c.SAECode(), c.Description, c.StatusString())
	}
	return nil
}

func yesNo(label string) bool {
	prompt := promptui.Select{
		Label:    label + " [Yes/No]",
		HideHelp: true,
		Items:    []string{"Yes", "No"},
	}
	_, result, err := prompt.Run()
	if err != nil {
		log.Printf("prompt failed %v", err)
		return false
	}
	return result == "Yes"
}
