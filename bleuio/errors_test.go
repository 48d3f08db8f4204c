package bleuio

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionError_Is(t *testing.T) {
	cause := errors.New("no such device")
	openErr := &ConnectionError{Op: OpOpen, Port: "/dev/ttyACM0", Err: cause}
	readErr := &ConnectionError{Op: OpRead, Port: "/dev/ttyACM0", Err: cause}

	assert.ErrorIs(t, openErr, ErrConnection)
	assert.ErrorIs(t, openErr, ErrOpenFailed)
	assert.NotErrorIs(t, openErr, ErrReadFailed)
	assert.ErrorIs(t, openErr, cause)

	assert.ErrorIs(t, readErr, ErrConnection)
	assert.ErrorIs(t, readErr, ErrReadFailed)
	assert.NotErrorIs(t, readErr, ErrOpenFailed)

	wrapped := fmt.Errorf("monitor: %w", readErr)
	assert.ErrorIs(t, wrapped, ErrReadFailed)

	var ce *ConnectionError
	assert.ErrorAs(t, wrapped, &ce)
	assert.Equal(t, OpRead, ce.Op)

	assert.NotErrorIs(t, ErrUnknownBeaconKind, ErrConnection)
}

func TestConnectionError_Error(t *testing.T) {
	err := &ConnectionError{Op: OpOpen, Port: "/dev/ttyACM0", Err: errors.New("permission denied")}
	assert.Equal(t, "serial open failed on /dev/ttyACM0: permission denied", err.Error())

	assert.Equal(t, "serial connection failed", (&ConnectionError{}).Error())
	assert.Equal(t, "serial read failed", ErrReadFailed.Error())
}
