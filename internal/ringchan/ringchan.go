// Package ringchan provides a bounded channel with overwrite-oldest semantics.
package ringchan

import (
	"sync"
	"sync/atomic"
)

// RingChannel is a bounded channel-like buffer with overwrite-oldest semantics.
//
// It wraps an underlying buffered channel and ensures producers never block:
// if the buffer is full, the oldest element is discarded.
//
// # Example
//
//	rc := ringchan.New[int](3)
//
//	// Writer: always succeeds, drops oldest if full.
//	for i := 0; i < 10; i++ {
//	    rc.Publish(i)
//	}
//	rc.Close()
//
//	// Reader: acts like a normal Go channel.
//	for v := range rc.C() {
//	    fmt.Println("got:", v)
//	}
//
// In the example above, only the last 3 values are printed because earlier
// ones were overwritten.
type RingChannel[T any] struct {
	ch chan T

	// mu serializes producers against each other and against Close, so a
	// publish never blocks on a slot another producer just took and never
	// sends on a closed channel.
	mu     sync.Mutex
	closed bool

	published   atomic.Int64
	overwritten atomic.Int64
	rejected    atomic.Int64
}

// Stats is a snapshot of RingChannel counters.
type Stats struct {
	Published   int64
	Overwritten int64
	Rejected    int64
}

// New creates a RingChannel with the given capacity.
func New[T any](capacity int) *RingChannel[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &RingChannel[T]{ch: make(chan T, capacity)}
}

// C returns the underlying receive-only channel.
// Consumers can range over it until it is closed.
func (rc *RingChannel[T]) C() <-chan T {
	return rc.ch
}

// Publish inserts v, discarding the oldest element if the buffer is full.
// It never blocks. It reports whether an element was dropped; publishing to a
// closed RingChannel is a counted no-op.
func (rc *RingChannel[T]) Publish(v T) (dropped bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.closed {
		rc.rejected.Add(1)
		return false
	}

	select {
	case rc.ch <- v:
	default:
		select {
		case <-rc.ch: // drop oldest
			rc.overwritten.Add(1)
			dropped = true
		default:
		}
		rc.ch <- v
	}
	rc.published.Add(1)

	return dropped
}

// Close closes the underlying channel. Buffered elements remain readable.
// Close is idempotent.
func (rc *RingChannel[T]) Close() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.closed {
		return
	}
	rc.closed = true
	close(rc.ch)
}

// Stats returns a snapshot of the counters.
func (rc *RingChannel[T]) Stats() Stats {
	return Stats{
		Published:   rc.published.Load(),
		Overwritten: rc.overwritten.Load(),
		Rejected:    rc.rejected.Load(),
	}
}
