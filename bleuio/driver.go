// Package bleuio drives a BleuIO USB dongle over its AT-command line protocol:
// it negotiates echo and verbose mode, starts a scan filtered on HibouAir
// manufacturer data and feeds decoded readings to a sink.
package bleuio

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/hibou/hibouair"
	"github.com/srg/hibou/internal/groutine"
)

const (
	// DefaultReadTimeout bounds the wait for the next line.
	DefaultReadTimeout = 5 * time.Second
	// DefaultMinPayloadLen is the hex length a scan payload must exceed to be
	// considered a full advertisement.
	DefaultMinPayloadLen = 60
)

// ReadingSink receives accepted readings.
type ReadingSink interface {
	Upsert(reading hibouair.Reading)
}

// Options configures a Driver. Zero values use the defaults.
type Options struct {
	PortPath      string
	BaudRate      int
	Transport     Transport
	ReadTimeout   time.Duration
	MinPayloadLen int
	Logger        *logrus.Logger
	// OnStateChange is called from the driver goroutine on every bootstrap
	// transition. It must not block.
	OnStateChange func(from, to State)
}

// Stats is a snapshot of driver counters.
type Stats struct {
	Lines           uint64
	Timeouts        uint64
	ParseErrors     uint64
	ShortPayloads   uint64
	DecodeErrors    uint64
	ForeignBeacons  uint64
	Accepted        uint64
	CommandsWritten uint64
	WriteErrors     uint64
}

type counters struct {
	lines           atomic.Uint64
	timeouts        atomic.Uint64
	parseErrors     atomic.Uint64
	shortPayloads   atomic.Uint64
	decodeErrors    atomic.Uint64
	foreignBeacons  atomic.Uint64
	accepted        atomic.Uint64
	commandsWritten atomic.Uint64
	writeErrors     atomic.Uint64
}

// Driver owns the dongle port and the bootstrap state. Run it once.
type Driver struct {
	sink     ReadingSink
	commands *CommandQueue
	opts     Options
	logger   *logrus.Logger

	boot  *Bootstrap
	state atomic.Int32
	stats counters

	port    Port
	pending []Command
}

// NewDriver creates a driver feeding sink and serving caller commands from
// commands. A nil commands queue means the driver runs until the context is
// cancelled or the port closes.
func NewDriver(sink ReadingSink, commands *CommandQueue, opts Options) *Driver {
	if opts.BaudRate == 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if opts.Transport == "" {
		opts.Transport = TransportSerial
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.MinPayloadLen <= 0 {
		opts.MinPayloadLen = DefaultMinPayloadLen
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	d := &Driver{
		sink:     sink,
		commands: commands,
		opts:     opts,
		logger:   logger,
	}
	d.boot = NewBootstrap(d.onTransition)
	return d
}

// State returns the current bootstrap state. Safe for concurrent use.
func (d *Driver) State() State {
	return State(d.state.Load())
}

// Stats returns a snapshot of the counters. Safe for concurrent use.
func (d *Driver) Stats() Stats {
	return Stats{
		Lines:           d.stats.lines.Load(),
		Timeouts:        d.stats.timeouts.Load(),
		ParseErrors:     d.stats.parseErrors.Load(),
		ShortPayloads:   d.stats.shortPayloads.Load(),
		DecodeErrors:    d.stats.decodeErrors.Load(),
		ForeignBeacons:  d.stats.foreignBeacons.Load(),
		Accepted:        d.stats.accepted.Load(),
		CommandsWritten: d.stats.commandsWritten.Load(),
		WriteErrors:     d.stats.writeErrors.Load(),
	}
}

type lineResult struct {
	line string
	err  error
}

// Run opens the port, bootstraps the dongle and processes its output until
// the context is cancelled, the command queue is closed or the port reaches
// end of stream; all of these end in StateClosed and a nil error. Open and
// read failures end in StateFailed and return a *ConnectionError.
func (d *Driver) Run(ctx context.Context) error {
	log := d.logger.WithField("port", d.opts.PortPath)

	port, err := PortFactory(PortConfig{
		Path:      d.opts.PortPath,
		BaudRate:  d.opts.BaudRate,
		Transport: d.opts.Transport,
	})
	if err != nil {
		d.boot.Fail()
		return &ConnectionError{Op: OpOpen, Port: d.opts.PortPath, Err: err}
	}
	d.port = port

	// Modem lines are best effort; some adapters and PTYs refuse them.
	if err := port.SetDTR(true); err != nil {
		log.WithError(err).Debug("Failed to assert DTR")
	}
	if err := port.SetRTS(true); err != nil {
		log.WithError(err).Debug("Failed to assert RTS")
	}

	log.WithField("baud_rate", d.opts.BaudRate).Info("Port opened")

	if cmd, ok := d.boot.Opened(); ok {
		d.pending = append(d.pending, cmd)
	}

	lines := make(chan lineResult)
	stop := make(chan struct{})
	readerDone := make(chan struct{})
	groutine.Go(ctx, "bleuio-line-reader", d.logger, func(ctx context.Context) {
		defer close(readerDone)
		readLines(port, lines, stop)
	})

	defer func() {
		close(stop)
		if err := port.Close(); err != nil {
			log.WithError(err).Debug("Failed to close port")
		}
		select {
		case <-readerDone:
		case <-time.After(time.Second):
			log.Warn("Line reader did not stop after port close")
		}
	}()

	var ready <-chan struct{}
	if d.commands != nil {
		ready = d.commands.Ready()
	}

	execReady := make(chan struct{})
	close(execReady)

	timer := time.NewTimer(d.opts.ReadTimeout)
	defer timer.Stop()

	for {
		var exec <-chan struct{}
		if len(d.pending) > 0 {
			exec = execReady
		}

		select {
		case <-ctx.Done():
			log.Debug("Context cancelled, closing")
			d.boot.Close()
			return nil

		case res := <-lines:
			timer.Reset(d.opts.ReadTimeout)
			if res.err != nil {
				if errors.Is(res.err, io.EOF) {
					log.Info("Port reached end of stream")
					d.boot.Close()
					return nil
				}
				d.boot.Fail()
				return &ConnectionError{Op: OpRead, Port: d.opts.PortPath, Err: res.err}
			}
			d.handleLine(res.line)

		case <-timer.C:
			d.stats.timeouts.Add(1)
			log.WithField("timeout", d.opts.ReadTimeout).Trace("No line received")
			timer.Reset(d.opts.ReadTimeout)

		case <-ready:
			cmds, closed := d.commands.drain()
			d.pending = append(d.pending, cmds...)
			if closed {
				for len(d.pending) > 0 {
					d.execNext()
				}
				log.Info("Command queue closed")
				d.boot.Close()
				return nil
			}

		case <-exec:
			d.execNext()
		}
	}
}

// readLines turns port bytes into lines until the port fails or stop closes.
// The final result always carries an error, io.EOF on a clean end of stream.
func readLines(r io.Reader, lines chan<- lineResult, stop <-chan struct{}) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			select {
			case lines <- lineResult{line: line}:
			case <-stop:
				return
			}
		}
		if err != nil {
			select {
			case lines <- lineResult{err: err}:
			case <-stop:
			}
			return
		}
	}
}

func (d *Driver) execNext() {
	cmd := d.pending[0]
	d.pending = d.pending[1:]

	log := d.logger.WithField("command", cmd.String())
	if _, err := d.port.Write(cmd.Bytes()); err != nil {
		d.stats.writeErrors.Add(1)
		log.WithError(err).Warn("Failed to write command")
		return
	}

	d.stats.commandsWritten.Add(1)
	d.boot.Written(cmd)
	log.Debug("Command written")
}

func (d *Driver) handleLine(raw string) {
	line := strings.TrimRight(raw, "\r\n")
	if line == "" {
		return
	}
	d.stats.lines.Add(1)

	resp, err := Classify(line)
	if err != nil {
		d.stats.parseErrors.Add(1)
		if next, ok := d.boot.PlainText(line); ok {
			d.pending = append(d.pending, next)
			return
		}
		d.logger.WithField("line", line).Trace("Ignoring plain-text line")
		return
	}

	switch r := resp.(type) {
	case Acknowledgement:
		d.boot.Acknowledge(r.ErrorCode)
		if r.ErrorCode != 0 {
			d.logger.WithFields(logrus.Fields{
				"code":    r.ErrorCode,
				"message": r.Message,
			}).Warn("Dongle reported an error")
		}
	case EndOfResponse:
		if next, ok := d.boot.EndOfResponse(); ok {
			d.pending = append(d.pending, next)
		}
	case ScanResult:
		d.handleScan(r)
	case Unrecognized:
		d.logger.WithField("line", line).Trace("Ignoring unrecognized object")
	}
}

func (d *Driver) handleScan(r ScanResult) {
	if len(r.Data) <= d.opts.MinPayloadLen {
		d.stats.shortPayloads.Add(1)
		return
	}

	log := d.logger.WithFields(logrus.Fields{
		"address":      r.Addr().String(),
		"address_type": r.AddressType(),
		"rssi":         r.RSSI,
	})

	reading, err := hibouair.DecodeHex(r.Data)
	if err != nil {
		d.stats.decodeErrors.Add(1)
		log.WithError(err).Debug("Dropping scan result")
		return
	}
	if reading.BeaconKind != hibouair.BeaconFull {
		d.stats.foreignBeacons.Add(1)
		log.WithError(ErrUnknownBeaconKind).WithField("beacon_kind", reading.BeaconKind).Debug("Dropping scan result")
		return
	}

	d.stats.accepted.Add(1)
	log.WithField("board_id", reading.BoardIDString()).Debug("Accepted scan result")
	d.sink.Upsert(reading)
}

func (d *Driver) onTransition(from, to State) {
	d.state.Store(int32(to))
	d.logger.WithFields(logrus.Fields{
		"from": from.String(),
		"to":   to.String(),
	}).Debug("Bootstrap state changed")

	if d.opts.OnStateChange != nil {
		d.opts.OnStateChange(from, to)
	}
}
