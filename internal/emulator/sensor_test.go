package emulator

import (
	"testing"

	"github.com/srg/hibou/hibouair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSensor(t *testing.T) {
	tests := []struct {
		in   string
		want Sensor
	}{
		{
			in:   "co2:22005A",
			want: Sensor{BoardType: hibouair.BoardCO2, BoardID: 0x22005A, Address: "[1]D0:76:50:22:00:5A", RSSI: -60},
		},
		{
			in:   "PM:0x0a0b0c",
			want: Sensor{BoardType: hibouair.BoardPM, BoardID: 0x0A0B0C, Address: "[1]D0:76:50:0A:0B:0C", RSSI: -60},
		},
		{
			in:   "temp-hum:1",
			want: Sensor{BoardType: hibouair.BoardTempHum, BoardID: 1, Address: "[1]D0:76:50:00:00:01", RSSI: -60},
		},
		{
			in:   "co2_noise:ABCDEF",
			want: Sensor{BoardType: hibouair.BoardCO2Noise, BoardID: 0xABCDEF, Address: "[1]D0:76:50:AB:CD:EF", RSSI: -60},
		},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSensor(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSensor_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"co2", "expected TYPE:ID"},
		{"co2:XYZ", "board id must be up to 6 hex digits"},
		{"co2:1000000", "board id must be up to 6 hex digits"},
		{"radon:01", `unknown board type "radon"`},
		{"unknown:01", `unknown board type "unknown"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseSensor(tt.in)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
