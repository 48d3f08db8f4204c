// Package hibouair decodes the manufacturer-specific advertisements broadcast by
// HibouAir environmental sensors.
//
// A HibouAir advertisement carries a fixed 26-byte record behind the Bluetooth SIG
// company identifier 0x075B. The record is parsed field by field at fixed offsets
// (see the offset constants in codec.go); no native struct layout is involved.
package hibouair

import (
	"fmt"
	"math/bits"
)

const (
	// CompanyID is the Bluetooth SIG company identifier carried by HibouAir sensors.
	CompanyID uint16 = 0x075B

	// BeaconFull is the beacon kind carrying the complete sensor payload.
	BeaconFull uint8 = 0x05

	// ReadingSize is the size of the fixed record, starting at the company id.
	ReadingSize = 26
)

// BoardType identifies the kind of HibouAir board that sent a reading.
type BoardType uint8

const (
	BoardUnknown        BoardType = 0x00
	BoardTempHum        BoardType = 0x02
	BoardPM             BoardType = 0x03
	BoardCO2            BoardType = 0x04
	BoardNO2OutdoorWiFi BoardType = 0x05
	BoardCO2Battery     BoardType = 0x06
	BoardNO2OutdoorLTEM BoardType = 0x07
	BoardPIR            BoardType = 0x08
	BoardCO2Noise       BoardType = 0x09
	BoardDuoMaster      BoardType = 0x0A
	BoardDuoSlave       BoardType = 0x0B
	BoardMatrix         BoardType = 0x14
)

// ParseBoardType maps a raw board code to a BoardType.
// Codes outside the known set map to BoardUnknown.
func ParseBoardType(code uint8) BoardType {
	switch t := BoardType(code); t {
	case BoardTempHum, BoardPM, BoardCO2, BoardNO2OutdoorWiFi, BoardCO2Battery,
		BoardNO2OutdoorLTEM, BoardPIR, BoardCO2Noise, BoardDuoMaster, BoardDuoSlave, BoardMatrix:
		return t
	default:
		return BoardUnknown
	}
}

// String returns the short board name used in tables.
func (t BoardType) String() string {
	switch t {
	case BoardTempHum:
		return "Temp/Hum"
	case BoardPM:
		return "PM"
	case BoardCO2:
		return "CO2"
	case BoardNO2OutdoorWiFi:
		return "NO2 Outdoor WiFi"
	case BoardCO2Battery:
		return "CO2 Battery"
	case BoardNO2OutdoorLTEM:
		return "NO2 Outdoor LTEM NBIOT"
	case BoardPIR:
		return "PIR"
	case BoardCO2Noise:
		return "CO2 Noise"
	case BoardDuoMaster:
		return "Duo Master"
	case BoardDuoSlave:
		return "Duo Slave"
	case BoardMatrix:
		return "Matrix"
	default:
		return "Unknown"
	}
}

// Title returns a panel heading for the board.
func (t BoardType) Title() string {
	switch t {
	case BoardCO2:
		return "CO2 Sensor"
	case BoardPM:
		return "PM Sensor"
	default:
		return "Sensor"
	}
}

// VocKind tells how the VOC field of a reading is to be interpreted.
type VocKind uint8

const (
	VocOld        VocKind = 0
	VocResistance VocKind = 1
	VocPpm        VocKind = 2
	VocIaq        VocKind = 3
)

func (k VocKind) String() string {
	switch k {
	case VocOld:
		return "Old"
	case VocResistance:
		return "Resistance"
	case VocPpm:
		return "Ppm"
	case VocIaq:
		return "IAQ"
	default:
		return fmt.Sprintf("Unknown (0x%02X)", uint8(k))
	}
}

// Unit returns the display unit of a VOC value of this kind.
func (k VocKind) Unit() string {
	switch k {
	case VocPpm:
		return "ppm"
	case VocIaq:
		return "IAQ"
	default:
		return ""
	}
}

// Reading is a decoded HibouAir record. The exported fields hold the raw wire
// values; the methods convert them to physical quantities.
type Reading struct {
	ManufacturerID uint16
	BeaconKind     uint8
	BoardTypeCode  uint8
	BoardIDBytes   [3]byte
	AmbientLight   uint16
	PressureRaw    uint16
	TemperatureRaw int16
	HumidityRaw    uint16
	VocRaw         uint16
	PM1Raw         uint16
	PM25Raw        uint16
	PM10Raw        uint16
	// CO2Raw is kept as stored; the sensor writes it with the opposite byte
	// order to every other field.
	CO2Raw  uint16
	VocKind VocKind
}

// BoardType returns the board type, BoardUnknown for unrecognized codes.
func (r Reading) BoardType() BoardType {
	return ParseBoardType(r.BoardTypeCode)
}

// BoardID assembles the 3-byte board id big-endian.
func (r Reading) BoardID() uint32 {
	return uint32(r.BoardIDBytes[0])<<16 | uint32(r.BoardIDBytes[1])<<8 | uint32(r.BoardIDBytes[2])
}

// BoardIDString renders the board id as 6 uppercase hex digits.
func (r Reading) BoardIDString() string {
	return FormatBoardID(r.BoardID())
}

// FormatBoardID renders a board id as exactly 6 uppercase hex digits.
// Board ids are 24 bits wide; higher bits are ignored.
func FormatBoardID(id uint32) string {
	return fmt.Sprintf("%06X", id&0xFFFFFF)
}

// Pressure returns barometric pressure in hPa.
func (r Reading) Pressure() float64 {
	return float64(r.PressureRaw) / 10
}

// Temperature returns temperature in °C.
func (r Reading) Temperature() float64 {
	return float64(r.TemperatureRaw) / 10
}

// Humidity returns relative humidity in %rh.
func (r Reading) Humidity() float64 {
	return float64(r.HumidityRaw) / 10
}

// PM1 returns PM1.0 concentration in µg/m³.
func (r Reading) PM1() float64 {
	return float64(r.PM1Raw) / 10
}

// PM25 returns PM2.5 concentration in µg/m³.
func (r Reading) PM25() float64 {
	return float64(r.PM25Raw) / 10
}

// PM10 returns PM10 concentration in µg/m³.
func (r Reading) PM10() float64 {
	return float64(r.PM10Raw) / 10
}

// CO2 returns the CO2 concentration in ppm.
func (r Reading) CO2() uint16 {
	return bits.ReverseBytes16(r.CO2Raw)
}

// VOC returns the VOC value, scaled to ppm for VocPpm readings.
func (r Reading) VOC() float64 {
	v := float64(r.VocRaw)
	if r.VocKind == VocPpm {
		v /= 100
	}
	return v
}

// VocView formats the VOC value with its unit, or returns "" for kinds that
// have no meaningful display.
func (r Reading) VocView() string {
	switch r.VocKind {
	case VocPpm, VocIaq:
		return fmt.Sprintf("%.1f %s", r.VOC(), r.VocKind.Unit())
	default:
		return ""
	}
}

func (r Reading) String() string {
	return fmt.Sprintf(
		"HibouAir(mfid: 0x%04X, beacon: 0x%02X, board: %s, id: %s, als: %d, bar: %.1f, temp: %.1f, hum: %.1f, voc: %.2f, pm1_0: %.1f, pm2_5: %.1f, pm10: %.1f, co2: %d, voc_type: %s)",
		r.ManufacturerID, r.BeaconKind, r.BoardType(), r.BoardIDString(), r.AmbientLight,
		r.Pressure(), r.Temperature(), r.Humidity(), r.VOC(), r.PM1(), r.PM25(), r.PM10(), r.CO2(), r.VocKind,
	)
}
