package hibouair

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// adTypeManufacturerData is the AD type of manufacturer-specific data.
const adTypeManufacturerData = 0xFF

// Field offsets inside the record, counted from the company id.
const (
	offManufacturerID = 0
	offBeaconKind     = 2
	offBoardType      = 3
	offBoardID        = 4
	offAmbientLight   = 7
	offPressure       = 9
	offTemperature    = 11
	offHumidity       = 13
	offVoc            = 15
	offPM1            = 17
	offPM25           = 19
	offPM10           = 21
	offCO2            = 23
	offVocKind        = 25
)

var (
	// ErrInvalidEncoding is returned when a hex advertisement cannot be decoded.
	ErrInvalidEncoding = errors.New("invalid advertisement encoding")
	// ErrTooShort is returned when HibouAir manufacturer data is shorter than ReadingSize.
	ErrTooShort = errors.New("manufacturer data too short for HibouAir record")
	// ErrNotFound is returned when an advertisement carries no HibouAir manufacturer data.
	ErrNotFound = errors.New("no HibouAir manufacturer data (0xFF, company 0x075B) in advertisement")
)

// DecodeHex decodes a hex-encoded advertisement payload, as reported by the
// BleuIO dongle, into a Reading.
func DecodeHex(s string) (Reading, error) {
	buf, err := hex.DecodeString(s)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return DecodeAdvertisement(buf)
}

// DecodeAdvertisement walks the AD structures of a raw advertisement and
// decodes the first manufacturer-specific structure carrying CompanyID.
//
// A truncated structure ends the walk; it is reported as ErrNotFound unless a
// matching structure was found before it.
func DecodeAdvertisement(buf []byte) (Reading, error) {
	for i := 0; i < len(buf); {
		length := int(buf[i])
		if length == 0 {
			break
		}
		end := i + 1 + length
		if end > len(buf) {
			break
		}

		if buf[i+1] == adTypeManufacturerData && length >= 3 {
			if binary.LittleEndian.Uint16(buf[i+2:]) == CompanyID {
				return ParseManufacturerData(buf[i+2 : end])
			}
		}

		i = end
	}

	return Reading{}, ErrNotFound
}

// ParseManufacturerData decodes a record from manufacturer data that starts at
// the company id. Bytes past ReadingSize are ignored.
func ParseManufacturerData(data []byte) (Reading, error) {
	if len(data) < ReadingSize {
		return Reading{}, fmt.Errorf("%w: %d bytes, expected %d", ErrTooShort, len(data), ReadingSize)
	}

	le := binary.LittleEndian
	r := Reading{
		ManufacturerID: le.Uint16(data[offManufacturerID:]),
		BeaconKind:     data[offBeaconKind],
		BoardTypeCode:  data[offBoardType],
		AmbientLight:   le.Uint16(data[offAmbientLight:]),
		PressureRaw:    le.Uint16(data[offPressure:]),
		TemperatureRaw: int16(le.Uint16(data[offTemperature:])),
		HumidityRaw:    le.Uint16(data[offHumidity:]),
		VocRaw:         le.Uint16(data[offVoc:]),
		PM1Raw:         le.Uint16(data[offPM1:]),
		PM25Raw:        le.Uint16(data[offPM25:]),
		PM10Raw:        le.Uint16(data[offPM10:]),
		CO2Raw:         le.Uint16(data[offCO2:]),
		VocKind:        VocKind(data[offVocKind]),
	}
	copy(r.BoardIDBytes[:], data[offBoardID:offBoardID+3])

	return r, nil
}

// Encode returns the 26-byte wire record of r.
func Encode(r Reading) []byte {
	data := make([]byte, ReadingSize)

	le := binary.LittleEndian
	le.PutUint16(data[offManufacturerID:], r.ManufacturerID)
	data[offBeaconKind] = r.BeaconKind
	data[offBoardType] = r.BoardTypeCode
	copy(data[offBoardID:offBoardID+3], r.BoardIDBytes[:])
	le.PutUint16(data[offAmbientLight:], r.AmbientLight)
	le.PutUint16(data[offPressure:], r.PressureRaw)
	le.PutUint16(data[offTemperature:], uint16(r.TemperatureRaw))
	le.PutUint16(data[offHumidity:], r.HumidityRaw)
	le.PutUint16(data[offVoc:], r.VocRaw)
	le.PutUint16(data[offPM1:], r.PM1Raw)
	le.PutUint16(data[offPM25:], r.PM25Raw)
	le.PutUint16(data[offPM10:], r.PM10Raw)
	le.PutUint16(data[offCO2:], r.CO2Raw)
	data[offVocKind] = uint8(r.VocKind)

	return data
}

// EncodeAdvertisement wraps the record of r in a complete advertisement: a
// flags structure followed by the manufacturer-specific structure.
func EncodeAdvertisement(r Reading) []byte {
	record := Encode(r)

	adv := make([]byte, 0, 3+2+len(record))
	adv = append(adv, 0x02, 0x01, 0x06)
	adv = append(adv, byte(1+len(record)), adTypeManufacturerData)
	return append(adv, record...)
}

// EncodeHex is EncodeAdvertisement rendered as uppercase hex, the way the
// BleuIO dongle reports scan data.
func EncodeHex(r Reading) string {
	return fmt.Sprintf("%X", EncodeAdvertisement(r))
}

// NewReading builds a full-beacon reading from physical values. It is the
// inverse of the Reading accessors, rounded to the wire resolution.
func NewReading(boardType BoardType, boardID uint32, m Measurements) Reading {
	r := Reading{
		ManufacturerID: CompanyID,
		BeaconKind:     BeaconFull,
		BoardTypeCode:  uint8(boardType),
		BoardIDBytes:   [3]byte{byte(boardID >> 16), byte(boardID >> 8), byte(boardID)},
		AmbientLight:   m.AmbientLight,
		PressureRaw:    uint16(m.Pressure*10 + 0.5),
		TemperatureRaw: int16(roundHalfAway(m.Temperature * 10)),
		HumidityRaw:    uint16(m.Humidity*10 + 0.5),
		PM1Raw:         uint16(m.PM1*10 + 0.5),
		PM25Raw:        uint16(m.PM25*10 + 0.5),
		PM10Raw:        uint16(m.PM10*10 + 0.5),
		CO2Raw:         m.CO2<<8 | m.CO2>>8,
		VocKind:        m.VocKind,
	}
	if m.VocKind == VocPpm {
		r.VocRaw = uint16(m.VOC*100 + 0.5)
	} else {
		r.VocRaw = uint16(m.VOC + 0.5)
	}
	return r
}

// Measurements are physical sensor values, used to build readings.
type Measurements struct {
	AmbientLight uint16
	Pressure     float64
	Temperature  float64
	Humidity     float64
	VOC          float64
	VocKind      VocKind
	PM1          float64
	PM25         float64
	PM10         float64
	CO2          uint16
}

func roundHalfAway(v float64) float64 {
	if v < 0 {
		return v - 0.5
	}
	return v + 0.5
}
