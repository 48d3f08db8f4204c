package testutils

import (
	"encoding/json"
	"sort"

	"github.com/srg/hibou/hibouair"
)

// ReadingJSON is the comparison shape of a reading in JSON assertions.
type ReadingJSON struct {
	BoardID      string  `json:"board_id"`
	BoardType    string  `json:"board_type"`
	BeaconKind   uint8   `json:"beacon_kind"`
	AmbientLight uint16  `json:"ambient_light"`
	Pressure     float64 `json:"pressure"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	VOC          float64 `json:"voc"`
	VocKind      string  `json:"voc_kind"`
	PM1          float64 `json:"pm1_0"`
	PM25         float64 `json:"pm2_5"`
	PM10         float64 `json:"pm10"`
	CO2          uint16  `json:"co2"`
}

// NewReadingJSON converts a reading to its comparison shape.
func NewReadingJSON(r hibouair.Reading) ReadingJSON {
	return ReadingJSON{
		BoardID:      r.BoardIDString(),
		BoardType:    r.BoardType().String(),
		BeaconKind:   r.BeaconKind,
		AmbientLight: r.AmbientLight,
		Pressure:     r.Pressure(),
		Temperature:  r.Temperature(),
		Humidity:     r.Humidity(),
		VOC:          r.VOC(),
		VocKind:      r.VocKind.String(),
		PM1:          r.PM1(),
		PM25:         r.PM25(),
		PM10:         r.PM10(),
		CO2:          r.CO2(),
	}
}

// ReadingsToJSON converts readings to a JSON array sorted by board id.
func ReadingsToJSON(readings []hibouair.Reading) string {
	out := make([]ReadingJSON, 0, len(readings))
	for _, r := range readings {
		out = append(out, NewReadingJSON(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BoardID < out[j].BoardID })

	return MustJSON(out)
}

func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
