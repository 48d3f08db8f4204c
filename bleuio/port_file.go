//go:build linux || darwin

package bleuio

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// FilePort is a tty node opened as a plain file, in raw mode. It serves
// devices the serial library cannot configure, such as pseudo-terminals.
type FilePort struct {
	*os.File
	conn syscall.RawConn
}

// OpenFilePort opens path read-write without making it the controlling
// terminal and switches it to raw mode.
func OpenFilePort(path string) (*FilePort, error) {
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, err
	}

	p, err := NewFilePort(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	var rawErr error
	if err := p.conn.Control(func(fd uintptr) {
		_, rawErr = term.MakeRaw(int(fd))
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to access %s: %w", path, err)
	}
	if rawErr != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to set %s to raw mode: %w", path, rawErr)
	}

	return p, nil
}

// NewFilePort wraps an already open tty. The file descriptor is only
// reached through SyscallConn so the file stays in the runtime poller and
// Close interrupts a pending Read.
func NewFilePort(f *os.File) (*FilePort, error) {
	conn, err := f.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", f.Name(), err)
	}
	return &FilePort{File: f, conn: conn}, nil
}

// SetDTR raises or drops the DTR modem line.
func (p *FilePort) SetDTR(dtr bool) error {
	return p.setModemBits(unix.TIOCM_DTR, dtr)
}

// SetRTS raises or drops the RTS modem line.
func (p *FilePort) SetRTS(rts bool) error {
	return p.setModemBits(unix.TIOCM_RTS, rts)
}

func (p *FilePort) setModemBits(bits int, on bool) error {
	req := uint(unix.TIOCMBIC)
	if on {
		req = uint(unix.TIOCMBIS)
	}

	var ioctlErr error
	if err := p.conn.Control(func(fd uintptr) {
		ioctlErr = unix.IoctlSetPointerInt(int(fd), req, bits)
	}); err != nil {
		return err
	}
	return ioctlErr
}
