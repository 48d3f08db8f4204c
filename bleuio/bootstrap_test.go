package bleuio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transition struct{ from, to State }

func newRecordedBootstrap() (*Bootstrap, *[]transition) {
	var log []transition
	b := NewBootstrap(func(from, to State) {
		log = append(log, transition{from, to})
	})
	return b, &log
}

// runBootstrap drives b like the driver does, confirming each step with
// confirm, and returns the commands written.
func runBootstrap(t *testing.T, b *Bootstrap, confirm func(b *Bootstrap) (Command, bool)) []Command {
	t.Helper()

	var written []Command
	cmd, ok := b.Opened()
	require.True(t, ok)

	for ok {
		b.Written(cmd)
		written = append(written, cmd)
		if b.State() == StateScanning {
			break
		}
		cmd, ok = confirm(b)
	}
	return written
}

func TestBootstrap_ReachesScanningWithThreeCommands(t *testing.T) {
	tests := []struct {
		name    string
		confirm func(b *Bootstrap) (Command, bool)
	}{
		{
			name: "zero-error end of response",
			confirm: func(b *Bootstrap) (Command, bool) {
				b.Acknowledge(0)
				return b.EndOfResponse()
			},
		},
		{
			name: "end of response without acknowledgement",
			confirm: func(b *Bootstrap) (Command, bool) {
				return b.EndOfResponse()
			},
		},
		{
			name: "plain-text confirmations",
			confirm: func(b *Bootstrap) (Command, bool) {
				if b.State() == StateEchoOff {
					return b.PlainText("ECHO OFF")
				}
				return b.PlainText("VERBOSE ON")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, log := newRecordedBootstrap()

			written := runBootstrap(t, b, tt.confirm)

			assert.Equal(t, []Command{cmdEchoOff, cmdVerboseOn, AtFindScanData}, written)
			assert.Equal(t, []string{"ATE0", "ATV1", "AT+FINDSCANDATA=FF5B07"},
				[]string{written[0].String(), written[1].String(), written[2].String()})
			assert.Equal(t, StateScanning, b.State())
			assert.Equal(t, []transition{
				{StateOpening, StateEchoOff},
				{StateEchoOff, StateVerboseOn},
				{StateVerboseOn, StateScanning},
			}, *log)
		})
	}
}

func TestBootstrap_ConfirmationRequiresWrittenCommand(t *testing.T) {
	b := NewBootstrap(nil)
	_, ok := b.Opened()
	require.True(t, ok)

	_, ok = b.EndOfResponse()
	assert.False(t, ok, "end of response before ATE0 was written MUST NOT confirm")
	assert.Equal(t, StateEchoOff, b.State())

	b.Written(At)
	_, ok = b.EndOfResponse()
	assert.False(t, ok, "caller commands MUST NOT stand in for ATE0")

	b.Written(cmdEchoOff)
	cmd, ok := b.EndOfResponse()
	assert.True(t, ok)
	assert.Equal(t, cmdVerboseOn, cmd)
}

func TestBootstrap_CallerCommandKeepsCorrelation(t *testing.T) {
	b := NewBootstrap(nil)
	b.Opened()
	b.Written(cmdEchoOff)
	b.Written(AtInfo)

	cmd, ok := b.EndOfResponse()
	assert.True(t, ok)
	assert.Equal(t, cmdVerboseOn, cmd)
}

func TestBootstrap_ErrorCodeBlocksStep(t *testing.T) {
	b := NewBootstrap(nil)
	b.Opened()
	b.Written(cmdEchoOff)

	b.Acknowledge(3)
	_, ok := b.EndOfResponse()
	assert.False(t, ok)
	assert.Equal(t, StateEchoOff, b.State())
	assert.Equal(t, int64(3), b.LastErrorCode())

	// The carried code is never cleared by an end marker, only by the next
	// acknowledgement; plain text still confirms.
	cmd, ok := b.PlainText("ECHO OFF")
	assert.True(t, ok)
	assert.Equal(t, cmdVerboseOn, cmd)
	assert.Equal(t, int64(3), b.LastErrorCode())

	b.Written(cmdVerboseOn)
	_, ok = b.EndOfResponse()
	assert.False(t, ok)

	b.Acknowledge(0)
	cmd, ok = b.EndOfResponse()
	assert.True(t, ok)
	assert.Equal(t, AtFindScanData, cmd)
}

func TestBootstrap_PlainTextOnlyMatchesCurrentStep(t *testing.T) {
	b := NewBootstrap(nil)
	b.Opened()

	_, ok := b.PlainText("VERBOSE ON")
	assert.False(t, ok)
	_, ok = b.PlainText("echo off")
	assert.False(t, ok, "literal match is case-sensitive")
	_, ok = b.PlainText("OK")
	assert.False(t, ok)
	assert.Equal(t, StateEchoOff, b.State())
}

func TestBootstrap_ScanningIgnoresConfirmations(t *testing.T) {
	b := NewBootstrap(nil)
	runBootstrap(t, b, func(b *Bootstrap) (Command, bool) { return b.EndOfResponse() })
	require.Equal(t, StateScanning, b.State())

	_, ok := b.EndOfResponse()
	assert.False(t, ok)
	_, ok = b.PlainText("ECHO OFF")
	assert.False(t, ok)

	b.Acknowledge(7)
	assert.Equal(t, int64(7), b.LastErrorCode())
	assert.Equal(t, StateScanning, b.State())
}

func TestBootstrap_TerminalStates(t *testing.T) {
	t.Run("open failure", func(t *testing.T) {
		b, log := newRecordedBootstrap()
		b.Fail()
		assert.Equal(t, StateFailed, b.State())

		_, ok := b.Opened()
		assert.False(t, ok)
		b.Close()
		assert.Equal(t, StateFailed, b.State(), "terminal state MUST NOT change")
		assert.Equal(t, []transition{{StateOpening, StateFailed}}, *log)
	})

	t.Run("close while bootstrapping", func(t *testing.T) {
		b := NewBootstrap(nil)
		b.Opened()
		b.Close()
		assert.Equal(t, StateClosed, b.State())

		b.Written(cmdEchoOff)
		_, ok := b.EndOfResponse()
		assert.False(t, ok)
		b.Fail()
		assert.Equal(t, StateClosed, b.State())
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "opening", StateOpening.String())
	assert.Equal(t, "echo-off", StateEchoOff.String())
	assert.Equal(t, "verbose-on", StateVerboseOn.String())
	assert.Equal(t, "scanning", StateScanning.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())

	assert.True(t, StateClosed.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateScanning.Terminal())
}
