package bleuio

import (
	"errors"
	"fmt"
)

// ConnectionOp is the serial operation that failed.
type ConnectionOp string

const (
	OpOpen ConnectionOp = "open"
	OpRead ConnectionOp = "read"
)

// ConnectionError is a fatal serial failure. It ends the driver.
type ConnectionError struct {
	Op   ConnectionOp
	Port string
	Err  error
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := "serial connection failed"
	if e.Op != "" {
		msg = fmt.Sprintf("serial %s failed", e.Op)
	}
	if e.Port != "" {
		msg = fmt.Sprintf("%s on %s", msg, e.Port)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConnectionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is allows errors.Is to compare ConnectionError values by Op.
// A target without Op matches any ConnectionError.
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return t.Op == "" || e.Op == t.Op
}

var (
	ErrConnection = &ConnectionError{}
	ErrOpenFailed = &ConnectionError{Op: OpOpen}
	ErrReadFailed = &ConnectionError{Op: OpRead}
)

// ErrUnknownBeaconKind marks dropped scan results of other beacon kinds. The
// driver counts and logs it, it never returns it.
var ErrUnknownBeaconKind = errors.New("unknown beacon kind")

// Command queue errors
var (
	ErrQueueClosed    = errors.New("command queue closed")
	ErrUnknownCommand = errors.New("unknown command")
)
