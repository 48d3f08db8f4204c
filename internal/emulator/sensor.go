package emulator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/srg/hibou/hibouair"
)

const defaultRSSI = -60

func boardKey(name string) string {
	r := strings.NewReplacer("/", "", " ", "", "-", "", "_", "")
	return strings.ToLower(r.Replace(name))
}

// ParseSensor parses a sensor description of the form TYPE:ID, where TYPE is
// a board name such as co2, pm or temp-hum and ID is the hex board id. The
// advertiser address is derived from the id.
func ParseSensor(s string) (Sensor, error) {
	name, id, ok := strings.Cut(s, ":")
	if !ok {
		return Sensor{}, fmt.Errorf("invalid sensor %q: expected TYPE:ID", s)
	}

	boardID, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(id), "0x"), 16, 24)
	if err != nil {
		return Sensor{}, fmt.Errorf("invalid sensor %q: board id must be up to 6 hex digits", s)
	}

	key := boardKey(name)
	for code := 1; code <= 0xFF; code++ {
		t := hibouair.ParseBoardType(uint8(code))
		if t == hibouair.BoardUnknown || boardKey(t.String()) != key {
			continue
		}
		return Sensor{
			BoardType: t,
			BoardID:   uint32(boardID),
			Address:   fmt.Sprintf("[1]D0:76:50:%02X:%02X:%02X", byte(boardID>>16), byte(boardID>>8), byte(boardID)),
			RSSI:      defaultRSSI,
		}, nil
	}
	return Sensor{}, fmt.Errorf("invalid sensor %q: unknown board type %q", s, name)
}
