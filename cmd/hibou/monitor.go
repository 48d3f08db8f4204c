package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/hibou/bleuio"
	"github.com/srg/hibou/internal/exporter"
	"github.com/srg/hibou/internal/groutine"
	"github.com/srg/hibou/pkg/config"
	"github.com/srg/hibou/registry"
	"golang.org/x/term"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor HibouAir sensors through a BleuIO dongle",
	Long: `Open the BleuIO dongle, switch it to verbose mode, scan for HibouAir
advertisements and show the latest reading of every sensor.

Without --watch the command scans for --duration and prints the result once.
With --watch it redraws the table whenever a reading arrives, until Ctrl+C
or --duration elapses.`,
	Example: `  hibou monitor --port /dev/ttyACM0
  hibou monitor -p /dev/ttyACM0 --watch --metrics :9120
  hibou monitor -p /tmp/hibou-dongle --transport file --format json
  hibou monitor -p /dev/ttyACM0 --send ati --verbose`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

var (
	monitorPort        string
	monitorTransport   string
	monitorFormat      string
	monitorDuration    time.Duration
	monitorWatch       bool
	monitorMetricsAddr string
	monitorReadTimeout time.Duration
	monitorVerbose     bool
	monitorSend        []string
)

const defaultMonitorDuration = 10 * time.Second

func init() {
	addMonitorFlags(monitorCmd)
}

func addMonitorFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&monitorPort, "port", "p", "", "Dongle serial port (e.g. /dev/ttyACM0)")
	cmd.Flags().StringVar(&monitorTransport, "transport", "serial", "Port transport (serial, file)")
	cmd.Flags().StringVarP(&monitorFormat, "format", "f", "table", "Output format (table, json)")
	cmd.Flags().DurationVarP(&monitorDuration, "duration", "d", defaultMonitorDuration, "Monitor duration (watch mode runs until Ctrl+C unless given)")
	cmd.Flags().BoolVarP(&monitorWatch, "watch", "w", false, "Continuously redraw readings")
	cmd.Flags().StringVar(&monitorMetricsAddr, "metrics", "", "Serve Prometheus metrics on this address (e.g. :9120)")
	cmd.Flags().DurationVar(&monitorReadTimeout, "read-timeout", bleuio.DefaultReadTimeout, "Wait for a dongle line before counting a timeout")
	cmd.Flags().BoolVar(&monitorVerbose, "verbose", false, "Enable debug logging")
	cmd.Flags().StringArrayVar(&monitorSend, "send", nil, "Send a command once scanning started (at, ati, at+central, repeatable)")
}

// parseSendCommands resolves the --send values in the order given.
func parseSendCommands(values []string) ([]bleuio.Command, error) {
	cmds := make([]bleuio.Command, 0, len(values))
	for _, v := range values {
		c, err := bleuio.ParseCommand(v)
		if err != nil {
			return nil, fmt.Errorf("invalid --send value '%s': %w", v, err)
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}

// monitorConfig merges the config file with the flags given explicitly.
func monitorConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = monitorPort
	}
	if flags.Changed("transport") {
		cfg.Transport = monitorTransport
	}
	if flags.Changed("format") {
		cfg.OutputFormat = monitorFormat
	}
	if flags.Changed("metrics") {
		cfg.MetricsAddr = monitorMetricsAddr
	}
	if flags.Changed("read-timeout") {
		cfg.ReadTimeout = monitorReadTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Port == "" {
		return nil, ErrNoPort
	}
	return cfg, nil
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	if monitorFormat != config.FormatTable && monitorFormat != config.FormatJSON {
		return fmt.Errorf("invalid format '%s': must be one of [table json]", monitorFormat)
	}

	sends, err := parseSendCommands(monitorSend)
	if err != nil {
		return err
	}

	cfg, err := monitorConfig(cmd)
	if err != nil {
		return err
	}

	// Configure logger based on --log-level and --verbose flags
	logger, err := configureLogger(cmd, "verbose", cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	duration := monitorDuration
	switch {
	case monitorWatch && !cmd.Flags().Changed("duration"):
		duration = 0 // Indefinite
	case !monitorWatch && duration <= 0:
		duration = defaultMonitorDuration
	}
	if duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	// Listen for Ctrl+C to stop
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nCtrl+C pressed, stopping monitor...")
			cancel()
		case <-ctx.Done():
		}
	}()

	reg := registry.New(logger)
	defer reg.Close()

	queue := bleuio.NewCommandQueue()
	defer queue.Close()

	var status *StatusLine
	if !monitorWatch && isTerminal(cmd.ErrOrStderr()) {
		status = NewStatusLine(cmd.ErrOrStderr(), "Monitoring HibouAir sensors", func() string {
			return sensorCount(reg.Len())
		}, bleuio.StateClosed.String(), bleuio.StateFailed.String())
	}

	opts := cfg.DriverOptions(logger)
	opts.OnStateChange = func(_, to bleuio.State) {
		if status != nil {
			status.SetPhase(to.String())
		}
		if to == bleuio.StateScanning {
			for _, c := range sends {
				if err := queue.Send(c); err != nil {
					logger.WithError(err).WithField("command", c.String()).Warn("Failed to queue command")
				}
			}
			sends = nil
		}
	}
	driver := bleuio.NewDriver(reg, queue, opts)

	if cfg.MetricsAddr != "" {
		srv, err := exporter.Listen(cfg.MetricsAddr, exporter.NewCollector(reg, driver), logger)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		groutine.Go(ctx, "metrics", logger, func(ctx context.Context) {
			if err := srv.Serve(ctx); err != nil {
				logger.WithError(err).Error("Metrics server failed")
			}
		})
	}

	if status != nil {
		status.Start("connecting")
		defer status.Stop()
	}

	driverErr := make(chan error, 1)
	groutine.Go(ctx, "bleuio-driver", logger, func(ctx context.Context) {
		driverErr <- driver.Run(ctx)
	})

	out := cmd.OutOrStdout()
	if monitorWatch {
		return watchReadings(out, reg, driverErr, cfg.RefreshInterval, cfg.OutputFormat, logger)
	}

	if err := <-driverErr; err != nil {
		return err
	}
	if status != nil {
		status.Stop()
	}

	readings := reg.Snapshot()
	sortByBoardID(readings)
	return writeReadings(out, cfg.OutputFormat, readings)
}

// watchReadings redraws the readings at most once per refresh interval while
// updates arrive, until the driver stops.
func watchReadings(out io.Writer, reg *registry.Registry, driverErr <-chan error,
	refresh time.Duration, format string, logger *logrus.Logger) error {

	redraw := isTerminal(out) && format == config.FormatTable

	draw := func() {
		readings := reg.Snapshot()
		sortByBoardID(readings)
		if redraw {
			clearScreen(out)
		}
		if err := writeReadings(out, format, readings); err != nil {
			logger.WithError(err).Warn("Failed to write readings")
		}
		if format == config.FormatTable {
			if last := reg.LastUpdate(); !last.IsZero() {
				fmt.Fprintf(out, "\nLast update: %s (%d readings)\n", last.Format(time.TimeOnly), reg.Count())
			}
		}
	}

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	dirty := false
	for {
		select {
		case err := <-driverErr:
			if dirty {
				draw()
			}
			return err
		case update := <-reg.Updates():
			if update.Type == registry.UpdateNew {
				logger.WithField("board_id", update.Reading.BoardIDString()).Debug("New sensor in watch view")
			}
			dirty = true
		case <-ticker.C:
			if dirty {
				draw()
				dirty = false
			}
		}
	}
}

func sensorCount(n int) string {
	switch n {
	case 0:
		return ""
	case 1:
		return "1 sensor"
	default:
		return fmt.Sprintf("%d sensors", n)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
