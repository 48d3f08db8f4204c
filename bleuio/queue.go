package bleuio

import (
	"fmt"
	"sync"
)

// CommandQueue is an unbounded FIFO of caller commands consumed by the driver.
// Send never blocks. Close tells the driver no more commands will come, which
// ends the driver once already queued commands are written.
type CommandQueue struct {
	mu     sync.Mutex
	items  []Command
	closed bool
	notify chan struct{}
}

// NewCommandQueue creates an empty, open queue.
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{notify: make(chan struct{}, 1)}
}

// Send appends cmd. It fails after Close and for commands callers cannot queue.
func (q *CommandQueue) Send(cmd Command) error {
	if !cmd.Public() {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, cmd)
	q.mu.Unlock()

	q.signal()
	return nil
}

// Close marks the queue closed. It is idempotent.
func (q *CommandQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.signal()
}

// Len returns the number of commands not yet taken by the driver.
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Ready fires when commands were added or the queue was closed since the
// last drain.
func (q *CommandQueue) Ready() <-chan struct{} {
	return q.notify
}

// drain takes every queued command in order and reports whether the queue is
// closed.
func (q *CommandQueue) drain() ([]Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items, q.closed
}

func (q *CommandQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
