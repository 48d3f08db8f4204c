package bleuio

import (
	"fmt"
	"strings"
)

// Command is an AT command the driver can write to the dongle.
type Command int

const (
	// At checks the dongle is responsive.
	At Command = iota + 1
	// AtInfo requests firmware information.
	AtInfo
	// AtCentral switches the dongle to the central role.
	AtCentral
	// AtFindScanData starts a scan filtered on HibouAir manufacturer data.
	AtFindScanData

	// Bootstrap-only commands; callers cannot queue them.
	cmdEchoOff
	cmdVerboseOn
)

// scanFilter is the manufacturer data prefix FINDSCANDATA filters on:
// AD type 0xFF followed by company id 0x075B little-endian.
const scanFilter = "FF5B07"

var commandText = map[Command]string{
	At:             "AT",
	AtInfo:         "ATI",
	AtCentral:      "AT+CENTRAL",
	AtFindScanData: "AT+FINDSCANDATA=" + scanFilter,
	cmdEchoOff:     "ATE0",
	cmdVerboseOn:   "ATV1",
}

// String returns the AT text of the command, without line terminator.
func (c Command) String() string {
	if s, ok := commandText[c]; ok {
		return s
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Bytes returns the command as written to the wire.
func (c Command) Bytes() []byte {
	return []byte(c.String() + "\r\n")
}

// Public reports whether callers may queue the command.
func (c Command) Public() bool {
	return c >= At && c <= AtFindScanData
}

var commandNames = map[string]Command{
	"at":             At,
	"atinfo":         AtInfo,
	"ati":            AtInfo,
	"atcentral":      AtCentral,
	"at+central":     AtCentral,
	"atfindscandata": AtFindScanData,
	"findscandata":   AtFindScanData,
	strings.ToLower(commandText[AtFindScanData]): AtFindScanData,
}

// ParseCommand resolves a command from its name or its AT text,
// case-insensitively. Only public commands are recognized.
func ParseCommand(s string) (Command, error) {
	if c, ok := commandNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}
