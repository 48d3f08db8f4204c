//go:build test

package main

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/hibou/bleuio"
	"github.com/srg/hibou/internal/emulator"
	"github.com/srg/hibou/internal/testutils"
	"github.com/stretchr/testify/suite"
)

// CommandTestSuite isolates command tests: flags are re-registered before
// every test, colors are off and the dongle port factory is restored after
// each test. All cmd/hibou test suites should embed it.
type CommandTestSuite struct {
	suite.Suite

	originalFactory func(bleuio.PortConfig) (bleuio.Port, error)
	originalNoColor bool

	mu     sync.Mutex
	opened []bleuio.PortConfig
	stop   []context.CancelFunc
	wire   bytes.Buffer
}

// recordingDevice copies everything the emulated dongle reads into record.
type recordingDevice struct {
	io.ReadWriter
	record func([]byte)
}

func (d recordingDevice) Read(p []byte) (int, error) {
	n, err := d.ReadWriter.Read(p)
	if n > 0 {
		d.record(p[:n])
	}
	return n, err
}

func (s *CommandTestSuite) SetupSuite() {
	s.originalFactory = bleuio.PortFactory
	s.originalNoColor = color.NoColor
	color.NoColor = true
}

func (s *CommandTestSuite) TearDownSuite() {
	bleuio.PortFactory = s.originalFactory
	color.NoColor = s.originalNoColor
}

func (s *CommandTestSuite) SetupTest() {
	monitorCmd.ResetFlags()
	addMonitorFlags(monitorCmd)
	decodeCmd.ResetFlags()
	addDecodeFlags(decodeCmd)
	emulateCmd.ResetFlags()
	addEmulateFlags(emulateCmd)

	s.mu.Lock()
	s.opened = nil
	s.wire.Reset()
	s.mu.Unlock()
}

func (s *CommandTestSuite) TearDownTest() {
	for _, cancel := range s.stop {
		cancel()
	}
	s.stop = nil
	bleuio.PortFactory = s.originalFactory
}

// UseEmulatedDongle makes every port open return an in-memory link served by
// a fresh emulated dongle.
func (s *CommandTestSuite) UseEmulatedDongle(opts emulator.Options) {
	if opts.ScanInterval == 0 {
		opts.ScanInterval = 10 * time.Millisecond
	}

	bleuio.PortFactory = func(cfg bleuio.PortConfig) (bleuio.Port, error) {
		port, device := testutils.NewPipeLink()

		ctx, cancel := context.WithCancel(context.Background())
		s.mu.Lock()
		s.opened = append(s.opened, cfg)
		s.stop = append(s.stop, cancel)
		s.mu.Unlock()

		go func() {
			_ = emulator.NewDongle(opts).Serve(ctx, recordingDevice{ReadWriter: device, record: s.recordWire})
			_ = device.Close()
		}()
		return port, nil
	}
}

func (s *CommandTestSuite) recordWire(p []byte) {
	s.mu.Lock()
	s.wire.Write(p)
	s.mu.Unlock()
}

// WrittenToDongle returns everything the host wrote to emulated dongles so far.
func (s *CommandTestSuite) WrittenToDongle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wire.String()
}

// OpenedPorts returns the configurations the port factory was called with.
func (s *CommandTestSuite) OpenedPorts() []bleuio.PortConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bleuio.PortConfig(nil), s.opened...)
}

// NewRoot returns a root command carrying the global flags and cmd.
func (s *CommandTestSuite) NewRoot(cmd *cobra.Command) *cobra.Command {
	root := &cobra.Command{Use: "hibou", SilenceErrors: true}
	root.PersistentFlags().String("log-level", "", "")
	root.PersistentFlags().String("config", "", "")
	root.AddCommand(cmd)
	return root
}

// ExecuteCommand runs cmd under a fresh root with args, returns output and error.
func (s *CommandTestSuite) ExecuteCommand(cmd *cobra.Command, args ...string) (string, error) {
	return s.ExecuteCommandContext(context.Background(), cmd, args...)
}

// ExecuteCommandContext is ExecuteCommand with a context.
func (s *CommandTestSuite) ExecuteCommandContext(ctx context.Context, cmd *cobra.Command, args ...string) (string, error) {
	root := s.NewRoot(cmd)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{cmd.Name()}, args...))
	err := root.ExecuteContext(ctx)
	return buf.String(), err
}
