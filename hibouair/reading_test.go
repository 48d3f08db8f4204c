package hibouair

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBoardType(t *testing.T) {
	known := map[uint8]BoardType{
		0x00: BoardUnknown,
		0x02: BoardTempHum,
		0x03: BoardPM,
		0x04: BoardCO2,
		0x05: BoardNO2OutdoorWiFi,
		0x06: BoardCO2Battery,
		0x07: BoardNO2OutdoorLTEM,
		0x08: BoardPIR,
		0x09: BoardCO2Noise,
		0x0A: BoardDuoMaster,
		0x0B: BoardDuoSlave,
		0x14: BoardMatrix,
	}

	for code := 0; code <= 0xFF; code++ {
		want, ok := known[uint8(code)]
		if !ok {
			want = BoardUnknown
		}
		assert.Equal(t, want, ParseBoardType(uint8(code)), "code 0x%02X", code)
	}
}

func TestBoardType_Names(t *testing.T) {
	tests := []struct {
		board BoardType
		name  string
		title string
	}{
		{BoardCO2, "CO2", "CO2 Sensor"},
		{BoardPM, "PM", "PM Sensor"},
		{BoardTempHum, "Temp/Hum", "Sensor"},
		{BoardCO2Noise, "CO2 Noise", "Sensor"},
		{BoardMatrix, "Matrix", "Sensor"},
		{BoardUnknown, "Unknown", "Sensor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.board.String())
			assert.Equal(t, tt.title, tt.board.Title())
		})
	}
}

func TestFormatBoardID(t *testing.T) {
	sixHex := regexp.MustCompile(`^[0-9A-F]{6}$`)

	ids := []uint32{0, 1, 0xABC, 0x22005A, 0xFFFFFF, 0x1000000, 0xDEADBEEF, ^uint32(0)}
	for _, id := range ids {
		s := FormatBoardID(id)
		assert.Regexp(t, sixHex, s, "id 0x%X", id)
	}

	assert.Equal(t, "000ABC", FormatBoardID(0xABC))
	assert.Equal(t, "ADBEEF", FormatBoardID(0xDEADBEEF))
}

func TestReading_CO2ByteSwap(t *testing.T) {
	r := Reading{CO2Raw: 0xC001}
	assert.Equal(t, uint16(0x01C0), r.CO2())
	assert.Equal(t, uint16(448), r.CO2())

	r.CO2Raw = 0x0000
	assert.Equal(t, uint16(0), r.CO2())

	r.CO2Raw = 0x1234
	assert.Equal(t, uint16(0x3412), r.CO2())
}

func TestReading_VOC(t *testing.T) {
	tests := []struct {
		name string
		raw  uint16
		kind VocKind
		want float64
		view string
		unit string
	}{
		{name: "ppm scaled", raw: 62, kind: VocPpm, want: 0.62, view: "0.6 ppm", unit: "ppm"},
		{name: "iaq raw", raw: 150, kind: VocIaq, want: 150, view: "150.0 IAQ", unit: "IAQ"},
		{name: "resistance raw", raw: 4000, kind: VocResistance, want: 4000, view: "", unit: ""},
		{name: "old raw", raw: 12, kind: VocOld, want: 12, view: "", unit: ""},
		{name: "unknown kind raw", raw: 7, kind: VocKind(9), want: 7, view: "", unit: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Reading{VocRaw: tt.raw, VocKind: tt.kind}
			assert.InDelta(t, tt.want, r.VOC(), 1e-9)
			assert.Equal(t, tt.view, r.VocView())
			assert.Equal(t, tt.unit, r.VocKind.Unit())
		})
	}
}

func TestReading_SignedTemperature(t *testing.T) {
	r := Reading{TemperatureRaw: -55}
	assert.Equal(t, -5.5, r.Temperature())
}

func TestVocKind_String(t *testing.T) {
	assert.Equal(t, "Ppm", VocPpm.String())
	assert.Equal(t, "IAQ", VocIaq.String())
	assert.Equal(t, "Unknown (0x07)", VocKind(7).String())
}

func TestReading_String(t *testing.T) {
	r := Reading{
		ManufacturerID: CompanyID,
		BeaconKind:     BeaconFull,
		BoardTypeCode:  uint8(BoardCO2),
		BoardIDBytes:   [3]byte{0x22, 0x00, 0x5A},
		PressureRaw:    10170,
		CO2Raw:         0xC001,
		VocKind:        VocPpm,
	}

	s := r.String()
	assert.Contains(t, s, "mfid: 0x075B")
	assert.Contains(t, s, "board: CO2")
	assert.Contains(t, s, "id: 22005A")
	assert.Contains(t, s, "bar: 1017.0")
	assert.Contains(t, s, "co2: 448")
}
