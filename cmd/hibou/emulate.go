package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/hibou/internal/emulator"
)

// emulateCmd represents the emulate command
var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Emulate a BleuIO dongle on a pseudo-terminal",
	Long: `Create a pseudo-terminal that answers AT commands like a BleuIO dongle
and, once scanning, reports advertisements of simulated HibouAir sensors.

Point the monitor at the printed link with --transport file.`,
	Example: `  hibou emulate
  hibou emulate --link /tmp/bleuio --interval 500ms --board co2:22005A --board pm:0A0B0C`,
	Args: cobra.NoArgs,
	RunE: runEmulate,
}

var (
	emulateLink     string
	emulateInterval time.Duration
	emulateBoards   []string
	emulateVerbose  bool
)

const defaultEmulatorLink = "/tmp/hibou-dongle"

func init() {
	addEmulateFlags(emulateCmd)
}

func addEmulateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&emulateLink, "link", defaultEmulatorLink, "Symlink to create for the emulated port")
	cmd.Flags().DurationVar(&emulateInterval, "interval", time.Second, "Interval between scan reports")
	cmd.Flags().StringArrayVar(&emulateBoards, "board", nil, "Simulated sensor as TYPE:ID (e.g. co2:22005A), repeatable")
	cmd.Flags().BoolVar(&emulateVerbose, "verbose", false, "Enable debug logging")
}

func runEmulate(cmd *cobra.Command, _ []string) error {
	if emulateInterval <= 0 {
		return fmt.Errorf("invalid interval %s: must be positive", emulateInterval)
	}

	sensors := make([]emulator.Sensor, 0, len(emulateBoards))
	for _, b := range emulateBoards {
		s, err := emulator.ParseSensor(b)
		if err != nil {
			return err
		}
		sensors = append(sensors, s)
	}

	logger, err := configureLogger(cmd, "verbose", nil)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nCtrl+C pressed, stopping emulator...")
			cancel()
		case <-ctx.Done():
		}
	}()

	p, err := emulator.OpenPTY(emulateLink, logger)
	if err != nil {
		return fmt.Errorf("failed to create pseudo-terminal: %w", err)
	}
	defer p.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Emulated BleuIO dongle on %s", p.TTYName())
	if p.Path() != p.TTYName() {
		fmt.Fprintf(out, " (linked at %s)", p.Path())
	}
	fmt.Fprintf(out, "\nRun: hibou monitor --transport file --port %s\n", p.Path())

	dongle := emulator.NewDongle(emulator.Options{
		Sensors:      sensors,
		ScanInterval: emulateInterval,
		Logger:       logger,
	})
	return dongle.Serve(ctx, p)
}
