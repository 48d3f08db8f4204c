package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"
	"github.com/srg/hibou/internal/groutine"
	"golang.org/x/term"
)

// DefaultWriteBuffer is the number of output bytes queued for a slow reader.
const DefaultWriteBuffer = 64 * 1024

// PTY exposes the emulated dongle as a pseudo-terminal.
//
// Writes to the master are queued in a ring buffer and flushed by a background
// goroutine, so a dongle whose port nobody reads keeps running; bytes that do
// not fit are dropped and counted.
type PTY struct {
	logger *logrus.Logger
	master *os.File
	slave  *os.File // kept open so the master never sees a hangup
	link   string

	writeBuf *ringbuffer.RingBuffer
	notify   chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	dropped atomic.Uint64
	written atomic.Uint64
}

// PTYStats are the output counters of a PTY.
type PTYStats struct {
	QueuedBytes  int
	DroppedBytes uint64
	WrittenBytes uint64
}

// OpenPTY creates a raw-mode pseudo-terminal. If link is not empty, a symlink
// to the slave device is created there, replacing an existing symlink.
func OpenPTY(link string, logger *logrus.Logger) (*PTY, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	master, slave, err := createPTY()
	if err != nil {
		return nil, err
	}

	if link != "" {
		if fi, err := os.Lstat(link); err == nil {
			if fi.Mode()&os.ModeSymlink == 0 {
				_ = master.Close()
				_ = slave.Close()
				return nil, fmt.Errorf("refusing to replace %s: not a symlink", link)
			}
			_ = os.Remove(link)
		}
		if err := os.Symlink(slave.Name(), link); err != nil {
			_ = master.Close()
			_ = slave.Close()
			return nil, fmt.Errorf("failed to link %s to %s: %w", link, slave.Name(), err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &PTY{
		logger:   logger,
		master:   master,
		slave:    slave,
		link:     link,
		writeBuf: ringbuffer.New(DefaultWriteBuffer),
		notify:   make(chan struct{}, 1),
		cancel:   cancel,
	}

	p.wg.Add(1)
	groutine.Go(ctx, "pty-write-loop", logger, func(ctx context.Context) {
		defer p.wg.Done()
		p.writeLoop(ctx)
	})

	return p, nil
}

// Path returns the path clients open: the symlink if any, else the slave.
func (p *PTY) Path() string {
	if p.link != "" {
		return p.link
	}
	return p.slave.Name()
}

// TTYName returns the slave device path, e.g. /dev/pts/5.
func (p *PTY) TTYName() string {
	return p.slave.Name()
}

// Read reads client input from the master.
func (p *PTY) Read(b []byte) (int, error) {
	return p.master.Read(b)
}

// Write queues output for the client. It never blocks; the returned count is
// what fit into the buffer.
func (p *PTY) Write(data []byte) (int, error) {
	if p.closed.Load() {
		return 0, os.ErrClosed
	}
	if len(data) == 0 {
		return 0, nil
	}

	n, err := p.writeBuf.Write(data)
	if err != nil && !errors.Is(err, ringbuffer.ErrIsFull) {
		return n, err
	}
	if n < len(data) {
		dropped := len(data) - n
		p.dropped.Add(uint64(dropped))
		p.logger.Warnf("PTY write buffer overflow: dropped %d bytes", dropped)
	}

	select {
	case p.notify <- struct{}{}:
	default:
	}
	return len(data), nil
}

func (p *PTY) writeLoop(ctx context.Context) {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.notify:
		}

		for !p.writeBuf.IsEmpty() {
			n, err := p.writeBuf.TryRead(buf)
			if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
				p.logger.WithError(err).Warn("PTY write buffer read failed")
				break
			}
			if n == 0 {
				break
			}

			written, err := p.master.Write(buf[:n])
			p.written.Add(uint64(written))
			if err != nil {
				if errors.Is(err, os.ErrClosed) {
					return
				}
				p.logger.WithError(err).Warn("PTY write failed")
				break
			}
		}
	}
}

// Stats returns the output counters.
func (p *PTY) Stats() PTYStats {
	return PTYStats{
		QueuedBytes:  p.writeBuf.Length(),
		DroppedBytes: p.dropped.Load(),
		WrittenBytes: p.written.Load(),
	}
}

// Close stops the write loop, closes both ends and removes the symlink.
func (p *PTY) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.cancel()

	var errs []error
	if err := p.master.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close PTY master: %w", err))
	}
	if err := p.slave.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close PTY slave: %w", err))
	}
	p.wg.Wait()

	if p.link != "" {
		if err := os.Remove(p.link); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// createPTY creates a pseudo-terminal and configures the slave for raw mode.
func createPTY() (master *os.File, slave *os.File, err error) {
	master, slave, err = pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create PTY (check permissions and available PTY devices): %w", err)
	}

	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		ptyPath := slave.Name()
		_ = master.Close()
		_ = slave.Close()
		return nil, nil, fmt.Errorf("failed to set PTY(tty) %s to raw mode: %w", ptyPath, err)
	}

	return master, slave, nil
}
