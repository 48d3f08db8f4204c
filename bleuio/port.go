package bleuio

import (
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
)

// DefaultBaudRate is the line speed of the BleuIO dongle.
const DefaultBaudRate = 115200

// Transport selects how the port is opened.
type Transport string

const (
	// TransportSerial opens a serial device through go.bug.st/serial.
	TransportSerial Transport = "serial"
	// TransportFile opens a tty node directly, e.g. the emulator PTY.
	TransportFile Transport = "file"
)

// ParseTransport validates a transport name. Empty means TransportSerial.
func ParseTransport(s string) (Transport, error) {
	switch Transport(s) {
	case "", TransportSerial:
		return TransportSerial, nil
	case TransportFile:
		return TransportFile, nil
	default:
		return "", fmt.Errorf("unknown transport %q (expected %q or %q)", s, TransportSerial, TransportFile)
	}
}

// Port is the duplex byte stream to the dongle with its modem control lines.
type Port interface {
	io.ReadWriteCloser
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
}

// PortConfig describes the port to open.
type PortConfig struct {
	Path      string
	BaudRate  int
	Transport Transport
}

// PortFactory opens the dongle port.
// This is a variable so that it can be overridden in tests.
var PortFactory = func(cfg PortConfig) (Port, error) {
	if cfg.Transport == TransportFile {
		p, err := OpenFilePort(cfg.Path)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return openSerialPort(cfg)
}

func openSerialPort(cfg PortConfig) (Port, error) {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
		InitialStatusBits: &serial.ModemOutputBits{
			DTR: true,
			RTS: true,
		},
	}

	p, err := serial.Open(cfg.Path, mode)
	if err != nil {
		var portErr *serial.PortError
		if errors.As(err, &portErr) && portErr.Code() == serial.PortNotFound {
			return nil, fmt.Errorf("port %s not found: %w", cfg.Path, err)
		}
		return nil, err
	}
	return p, nil
}
