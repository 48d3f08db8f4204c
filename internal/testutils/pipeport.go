//go:build test

package testutils

import (
	"bytes"
	"io"
	"sync"
	"sync/atomic"
)

// stream is one direction of an in-memory serial link. Writes never block,
// like a UART with a kernel buffer; reads block until data or close.
type stream struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	err    error // set once the writer side closed
	rdDone bool
}

func newStream() *stream {
	s := &stream{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.buf.Len() == 0 && s.err == nil && !s.rdDone {
		s.cond.Wait()
	}
	if s.rdDone {
		return 0, io.ErrClosedPipe
	}
	if s.buf.Len() > 0 {
		return s.buf.Read(p)
	}
	return 0, s.err
}

func (s *stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil || s.rdDone {
		return 0, io.ErrClosedPipe
	}
	n, _ := s.buf.Write(p)
	s.cond.Broadcast()
	return n, nil
}

// closeWrite ends the stream; buffered data is still delivered before err.
func (s *stream) closeWrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err == nil {
		s.err = err
	}
	s.cond.Broadcast()
}

// closeRead discards buffered data and fails pending reads and writes.
func (s *stream) closeRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rdDone = true
	s.buf.Reset()
	s.cond.Broadcast()
}

// PipePort is the host end of an in-memory serial link. It implements the
// dongle port contract, including modem control lines.
type PipePort struct {
	in, out *stream

	dtr, rts atomic.Bool
	closed   atomic.Bool
}

// PipeDevice is the dongle end of an in-memory serial link.
type PipeDevice struct {
	in, out *stream
}

// NewPipeLink returns both ends of a serial link: bytes the port writes are
// read by the device and vice versa.
func NewPipeLink() (*PipePort, *PipeDevice) {
	toHost, toDevice := newStream(), newStream()
	return &PipePort{in: toHost, out: toDevice}, &PipeDevice{in: toDevice, out: toHost}
}

func (p *PipePort) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *PipePort) Write(b []byte) (int, error) { return p.out.Write(b) }

// Close closes both directions; the device sees end of stream.
func (p *PipePort) Close() error {
	p.closed.Store(true)
	p.out.closeWrite(io.EOF)
	p.in.closeRead()
	return nil
}

func (p *PipePort) SetDTR(dtr bool) error {
	p.dtr.Store(dtr)
	return nil
}

func (p *PipePort) SetRTS(rts bool) error {
	p.rts.Store(rts)
	return nil
}

// DTR reports the last DTR level set.
func (p *PipePort) DTR() bool { return p.dtr.Load() }

// RTS reports the last RTS level set.
func (p *PipePort) RTS() bool { return p.rts.Load() }

// Closed reports whether Close was called.
func (p *PipePort) Closed() bool { return p.closed.Load() }

func (d *PipeDevice) Read(b []byte) (int, error)  { return d.in.Read(b) }
func (d *PipeDevice) Write(b []byte) (int, error) { return d.out.Write(b) }

// Hangup ends the device output; the port reads what was sent, then end of
// stream.
func (d *PipeDevice) Hangup() error {
	d.out.closeWrite(io.EOF)
	return nil
}

// Fail makes port reads fail with err once buffered output is consumed, as an
// unplugged adapter does.
func (d *PipeDevice) Fail(err error) error {
	d.out.closeWrite(err)
	return nil
}

// Close closes both directions of the device end.
func (d *PipeDevice) Close() error {
	d.out.closeWrite(io.EOF)
	d.in.closeRead()
	return nil
}
