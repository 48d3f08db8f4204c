package main

import (
	"errors"
	"fmt"

	"github.com/srg/hibou/bleuio"
	"github.com/srg/hibou/hibouair"
	"github.com/srg/hibou/pkg/config"
)

// Command-level errors
var (
	// ErrNoPort indicates that neither --port nor the config file named a dongle port.
	ErrNoPort = errors.New("no dongle port given")
)

// FormatUserError turns an error into a message for the terminal, adding a
// hint where the cause is usually a setup problem.
func FormatUserError(err error) string {
	var connErr *bleuio.ConnectionError

	switch {
	case errors.Is(err, ErrNoPort):
		return "no dongle port given; use --port or set port in the config file"
	case errors.As(err, &connErr) && connErr.Op == bleuio.OpOpen:
		return fmt.Sprintf("cannot open dongle port %s: %v (check the path and that you may access it)",
			connErr.Port, connErr.Err)
	case errors.As(err, &connErr) && connErr.Op == bleuio.OpRead:
		return fmt.Sprintf("lost connection to dongle on %s: %v", connErr.Port, connErr.Err)
	case errors.Is(err, config.ErrInvalidConfig):
		return err.Error()
	case errors.Is(err, hibouair.ErrNotFound), errors.Is(err, hibouair.ErrTooShort), errors.Is(err, hibouair.ErrInvalidEncoding):
		return fmt.Sprintf("not a HibouAir advertisement: %v", err)
	default:
		return err.Error()
	}
}
