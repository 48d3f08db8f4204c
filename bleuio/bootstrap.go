package bleuio

// State is the bootstrap state of the driver.
type State int32

const (
	StateOpening State = iota
	StateEchoOff
	StateVerboseOn
	StateScanning
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateEchoOff:
		return "echo-off"
	case StateVerboseOn:
		return "verbose-on"
	case StateScanning:
		return "scanning"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// Plain-text confirmations sent by the dongle in non-verbose mode.
const (
	replyEchoOff   = "ECHO OFF"
	replyVerboseOn = "VERBOSE ON"
)

// Bootstrap is the dongle negotiation state machine. It performs no I/O: each
// confirmed step returns the next command for the caller to write, and the
// caller reports back what it actually wrote.
//
// Acknowledgements and end markers are correlated by arrival order only; the
// dongle answers one command at a time and bootstrap commands are never
// pipelined.
type Bootstrap struct {
	state    State
	lastErr  int64   // error code of the latest acknowledgement
	sent     Command // latest bootstrap command written
	onChange func(from, to State)
}

// NewBootstrap returns a machine in StateOpening. onChange, if set, is called
// on every transition.
func NewBootstrap(onChange func(from, to State)) *Bootstrap {
	return &Bootstrap{state: StateOpening, onChange: onChange}
}

// State returns the current state.
func (b *Bootstrap) State() State {
	return b.state
}

// LastErrorCode returns the error code carried from the latest
// acknowledgement, 0 before any.
func (b *Bootstrap) LastErrorCode() int64 {
	return b.lastErr
}

// Opened records a successful port open and returns the first command.
func (b *Bootstrap) Opened() (Command, bool) {
	if b.state != StateOpening {
		return 0, false
	}
	b.transition(StateEchoOff)
	return cmdEchoOff, true
}

// Written records a command written to the port.
// Only bootstrap commands take part in step confirmation.
func (b *Bootstrap) Written(cmd Command) {
	if cmd == cmdEchoOff || cmd == cmdVerboseOn {
		b.sent = cmd
	}
}

// Acknowledge carries the error code of an acknowledgement to the next
// end-of-response.
func (b *Bootstrap) Acknowledge(code int64) {
	b.lastErr = code
}

// EndOfResponse confirms the pending step when the carried error code is 0
// and the awaited command was written. It returns the next command to write.
func (b *Bootstrap) EndOfResponse() (Command, bool) {
	if b.lastErr != 0 {
		return 0, false
	}

	switch {
	case b.state == StateEchoOff && b.sent == cmdEchoOff:
		return b.confirm()
	case b.state == StateVerboseOn && b.sent == cmdVerboseOn:
		return b.confirm()
	default:
		return 0, false
	}
}

// PlainText handles a line that is not structured output. The literal
// confirmation of the current step advances the machine.
func (b *Bootstrap) PlainText(line string) (Command, bool) {
	switch {
	case b.state == StateEchoOff && line == replyEchoOff:
		return b.confirm()
	case b.state == StateVerboseOn && line == replyVerboseOn:
		return b.confirm()
	default:
		return 0, false
	}
}

// Close moves to StateClosed unless already terminal.
func (b *Bootstrap) Close() {
	if !b.state.Terminal() {
		b.transition(StateClosed)
	}
}

// Fail moves to StateFailed unless already terminal.
func (b *Bootstrap) Fail() {
	if !b.state.Terminal() {
		b.transition(StateFailed)
	}
}

func (b *Bootstrap) confirm() (Command, bool) {
	switch b.state {
	case StateEchoOff:
		b.transition(StateVerboseOn)
		return cmdVerboseOn, true
	case StateVerboseOn:
		b.transition(StateScanning)
		return AtFindScanData, true
	default:
		return 0, false
	}
}

func (b *Bootstrap) transition(to State) {
	from := b.state
	b.state = to
	if b.onChange != nil {
		b.onChange(from, to)
	}
}
