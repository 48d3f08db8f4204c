// Package emulator imitates a BleuIO dongle scanning HibouAir sensors, so the
// driver can be exercised without hardware.
package emulator

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/hibou/hibouair"
	"github.com/srg/hibou/internal/groutine"
)

// Sensor is an emulated HibouAir board.
type Sensor struct {
	BoardType hibouair.BoardType
	BoardID   uint32
	Address   string
	RSSI      int
	// BeaconKind overrides the beacon kind; zero means hibouair.BeaconFull.
	BeaconKind uint8
}

// DefaultSensors is the board set used when none is configured.
var DefaultSensors = []Sensor{
	{BoardType: hibouair.BoardCO2, BoardID: 0x22005A, Address: "[1]D0:76:50:80:01:75", RSSI: -56},
	{BoardType: hibouair.BoardPM, BoardID: 0x0A0B0C, Address: "[1]E4:2B:11:90:3C:02", RSSI: -71},
}

// MeasurementFunc produces the values a sensor reports on a scan tick.
type MeasurementFunc func(s Sensor, tick int) hibouair.Measurements

// Options configures a Dongle. Zero values use the defaults.
type Options struct {
	Sensors      []Sensor
	ScanInterval time.Duration
	Measurements MeasurementFunc
	Logger       *logrus.Logger
}

// Dongle answers AT commands the way BleuIO firmware does: it echoes input
// until ATE0, replies in plain text until ATV1 and in JSON objects after, and
// reports every sensor once per scan interval while FINDSCANDATA is active.
type Dongle struct {
	opts   Options
	logger *logrus.Logger

	echo     bool
	verbose  bool
	scanning bool
	filter   string
	seq      int
	tick     int
}

// NewDongle returns a dongle in its power-on state: echo on, verbose off.
func NewDongle(opts Options) *Dongle {
	if len(opts.Sensors) == 0 {
		opts.Sensors = DefaultSensors
	}
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = time.Second
	}
	if opts.Measurements == nil {
		opts.Measurements = DefaultMeasurements
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &Dongle{opts: opts, logger: logger, echo: true}
}

// Serve runs the dialogue on rw until ctx is done or rw fails. End of input is
// a clean stop and returns nil.
func (d *Dongle) Serve(ctx context.Context, rw io.ReadWriter) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	groutine.Go(ctx, "emulator-line-reader", d.logger, func(ctx context.Context) {
		br := bufio.NewReader(rw)
		for {
			line, err := br.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	})

	ticker := time.NewTicker(d.opts.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err == io.EOF {
				return nil
			}
			return err
		case line := <-lines:
			if err := d.handle(rw, line); err != nil {
				return err
			}
		case <-ticker.C:
			if !d.scanning {
				continue
			}
			d.tick++
			if err := d.reportScan(rw); err != nil {
				return err
			}
		}
	}
}

type commandEcho struct {
	C   int    `json:"C"`
	Cmd string `json:"cmd"`
}

type ack struct {
	A      int    `json:"A"`
	Err    int    `json:"err"`
	ErrMsg string `json:"errMsg"`
}

type reply struct {
	R    int    `json:"R"`
	Text string `json:"text"`
}

type end struct {
	E   int `json:"E"`
	Nol int `json:"nol"`
}

type scanData struct {
	S    int    `json:"S"`
	RSSI int    `json:"rssi"`
	Addr string `json:"addr"`
	Data string `json:"data"`
}

var firmwareInfo = []string{
	"Smart Sensor Devices AB",
	"DA14683",
	"BleuIO",
	"Firmware Version: 2.7.9.51",
	"",
	"Dual role",
	"Not Connected",
	"Not Advertising",
}

func (d *Dongle) handle(w io.Writer, raw string) error {
	line := strings.TrimRight(raw, "\r\n")
	cmd := strings.ToUpper(strings.TrimSpace(line))
	if cmd == "" {
		return nil
	}

	d.logger.WithField("command", cmd).Debug("Emulator received command")

	if d.echo {
		if err := writeLine(w, line); err != nil {
			return err
		}
	}

	switch {
	case cmd == "ATE0":
		d.echo = false
		return d.respond(w, cmd, 0, "ok", "ECHO OFF")
	case cmd == "ATE1":
		d.echo = true
		return d.respond(w, cmd, 0, "ok", "ECHO ON")
	case cmd == "ATV1":
		d.verbose = true
		return d.respond(w, cmd, 0, "ok", "VERBOSE ON")
	case cmd == "ATV0":
		d.verbose = false
		return d.respond(w, cmd, 0, "ok", "VERBOSE OFF")
	case cmd == "AT":
		return d.respond(w, cmd, 0, "ok", "OK")
	case cmd == "ATI":
		return d.respond(w, cmd, 0, "ok", firmwareInfo...)
	case cmd == "AT+CENTRAL":
		return d.respond(w, cmd, 0, "ok", "Central role set")
	case strings.HasPrefix(cmd, "AT+FINDSCANDATA="):
		d.filter = strings.TrimPrefix(cmd, "AT+FINDSCANDATA=")
		d.scanning = true
		return d.respond(w, cmd, 0, "ok", "SCANNING...")
	case cmd == "AT+CANCEL", line == "\x03":
		d.scanning = false
		return d.respond(w, cmd, 0, "ok", "SCAN COMPLETE")
	default:
		return d.respond(w, cmd, 5, "Invalid command", "ERROR")
	}
}

// respond writes the reply in the current mode: plain text lines, or the
// command echo, acknowledgement, replies and end marker as JSON objects.
func (d *Dongle) respond(w io.Writer, cmd string, code int, msg string, text ...string) error {
	if !d.verbose {
		for _, t := range text {
			if err := writeLine(w, t); err != nil {
				return err
			}
		}
		return nil
	}

	d.seq++
	objs := []any{
		commandEcho{C: d.seq, Cmd: cmd},
		ack{A: d.seq, Err: code, ErrMsg: msg},
	}
	for _, t := range text {
		objs = append(objs, reply{R: d.seq, Text: t})
	}
	objs = append(objs, end{E: d.seq, Nol: len(objs) + 1})

	for _, o := range objs {
		if err := writeJSON(w, o); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dongle) reportScan(w io.Writer) error {
	for _, s := range d.opts.Sensors {
		r := hibouair.NewReading(s.BoardType, s.BoardID, d.opts.Measurements(s, d.tick))
		if s.BeaconKind != 0 {
			r.BeaconKind = s.BeaconKind
		}
		data := hibouair.EncodeHex(r)

		if !d.matches(data) {
			continue
		}

		if !d.verbose {
			if err := writeLine(w, fmt.Sprintf("%s Device Data [FF]: %s", s.Address, data)); err != nil {
				return err
			}
			continue
		}

		d.seq++
		if err := writeJSON(w, scanData{S: d.seq, RSSI: s.RSSI, Addr: s.Address, Data: data}); err != nil {
			return err
		}
	}
	return nil
}

// matches applies the FINDSCANDATA filter, a hex fragment of the payload.
func (d *Dongle) matches(data string) bool {
	return d.filter == "" || strings.Contains(data, d.filter)
}

// DefaultMeasurements produces slowly drifting plausible indoor values.
func DefaultMeasurements(s Sensor, tick int) hibouair.Measurements {
	phase := float64(tick%20) / 10
	m := hibouair.Measurements{
		AmbientLight: uint16(120 + tick%30),
		Pressure:     1013.2 + phase,
		Temperature:  21.5 + phase,
		Humidity:     38.0 + phase*2,
		VOC:          0.35 + phase/10,
		VocKind:      hibouair.VocPpm,
	}

	switch s.BoardType {
	case hibouair.BoardPM:
		m.PM1 = 2.1 + phase
		m.PM25 = 4.6 + phase
		m.PM10 = 7.9 + phase
	default:
		m.CO2 = uint16(450 + (tick*7)%250)
	}
	return m
}

func writeLine(w io.Writer, s string) error {
	_, err := io.WriteString(w, s+"\r\n")
	return err
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeLine(w, string(b))
}
