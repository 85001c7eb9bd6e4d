package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/roffe/passdiag"
	"github.com/roffe/passdiag/pkg/host"
	"github.com/roffe/passdiag/pkg/kwp2000"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(shellCmd)
}

var errQuit = errors.New("quit")

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "interactive diagnostic session",
	Long:  `Keeps a diagnostic session open. Enter hex requests such as 1A86, or one of read, clear, vbatt and quit.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer h.Close()

		out := cmd.OutOrStdout()
		in := newTerminalInput(cmd.InOrStdin())
		errg, ctx := errgroup.WithContext(cmd.Context())
		errg.Go(func() error {
			// a lost session releases the prompt waiting for input
			defer in.Stop()
			return watchSession(ctx, out, h.Session())
		})
		errg.Go(func() error {
			return promptLoop(ctx, out, h, in)
		})
		if err := errg.Wait(); err != nil && !errors.Is(err, errQuit) {
			return err
		}
		return nil
	},
}

// watchSession reports session events and fails once the session is lost.
func watchSession(ctx context.Context, w io.Writer, s *kwp2000.Session) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.Events():
			switch ev.Type {
			case kwp2000.EventTerminated:
				fmt.Fprintln(w, red("Connection to ECU closed unexpectedly"))
				fmt.Fprintln(w, red("--> %s", s.LastError()))
				fmt.Fprintln(w, red("--> leaving shell"))
				return ev.Err
			case kwp2000.EventEnded:
				return nil
			}
		}
	}
}

func promptLoop(ctx context.Context, w io.Writer, h *host.Host, in *terminalInput) error {
	prompt := promptui.Prompt{
		Label: "request",
		Validate: func(s string) error {
			switch strings.TrimSpace(strings.ToLower(s)) {
			case "read", "clear", "vbatt", "quit", "exit":
				return nil
			}
			return kwp2000.ValidateHexPayload(s)
		},
	}
	for {
		prompt.Stdin = in.Reader()
		line, err := prompt.Run()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return errQuit
			}
			return err
		}
		switch strings.TrimSpace(strings.ToLower(line)) {
		case "quit", "exit":
			if err := h.EndSession(); err != nil {
				return err
			}
			return errQuit
		case "read":
			if err := printDTCs(w, h); err != nil {
				fmt.Fprintln(w, red("Error reading ECU errors: %v", err))
			}
		case "clear":
			if err := h.ClearDTCs(); err != nil {
				fmt.Fprintln(w, red("Error clearing ECU errors: %v", err))
				continue
			}
			fmt.Fprintln(w, green("ECU errors cleared successfully"))
		case "vbatt":
			mv, err := h.BatteryVoltage()
			if err != nil {
				fmt.Fprintln(w, red("%v", err))
				continue
			}
			fmt.Fprintf(w, "%.2f V\n", float64(mv)/1000)
		default:
			resp, err := h.SendHex(line)
			if err != nil {
				fmt.Fprintln(w, red("%v", err))
				continue
			}
			fmt.Fprintln(w, green("%s", passdiag.HexString(resp)))
		}
	}
}
