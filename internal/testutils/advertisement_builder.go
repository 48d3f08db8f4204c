package testutils

import (
	"encoding/json"
	"fmt"

	"github.com/srg/hibou/hibouair"
)

// AdvertisementBuilder builds HibouAir advertisements for testing.
// It provides a fluent API over physical values; unset values stay zero.
type AdvertisementBuilder struct {
	boardType  hibouair.BoardType
	boardID    uint32
	beaconKind uint8
	m          hibouair.Measurements

	address string
	rssi    int
}

// NewAdvertisementBuilder creates a builder for a full-beacon CO2 board with
// a random-type address.
func NewAdvertisementBuilder() *AdvertisementBuilder {
	return &AdvertisementBuilder{
		boardType:  hibouair.BoardCO2,
		beaconKind: hibouair.BeaconFull,
		address:    "[1]D0:76:50:80:01:75",
		rssi:       -60,
	}
}

// WithBoard sets the board type and id.
func (b *AdvertisementBuilder) WithBoard(t hibouair.BoardType, id uint32) *AdvertisementBuilder {
	b.boardType = t
	b.boardID = id
	return b
}

// WithBeaconKind overrides the beacon kind.
func (b *AdvertisementBuilder) WithBeaconKind(kind uint8) *AdvertisementBuilder {
	b.beaconKind = kind
	return b
}

// WithAddress sets the advertiser address as the dongle reports it.
func (b *AdvertisementBuilder) WithAddress(addr string) *AdvertisementBuilder {
	b.address = addr
	return b
}

// WithRSSI sets the signal strength reported with the scan result.
func (b *AdvertisementBuilder) WithRSSI(rssi int) *AdvertisementBuilder {
	b.rssi = rssi
	return b
}

// WithClimate sets pressure (hPa), temperature (°C) and humidity (%rh).
func (b *AdvertisementBuilder) WithClimate(pressure, temperature, humidity float64) *AdvertisementBuilder {
	b.m.Pressure = pressure
	b.m.Temperature = temperature
	b.m.Humidity = humidity
	return b
}

// WithCO2 sets the CO2 concentration in ppm.
func (b *AdvertisementBuilder) WithCO2(ppm uint16) *AdvertisementBuilder {
	b.m.CO2 = ppm
	return b
}

// WithPM sets PM1.0, PM2.5 and PM10 in µg/m³.
func (b *AdvertisementBuilder) WithPM(pm1, pm25, pm10 float64) *AdvertisementBuilder {
	b.m.PM1 = pm1
	b.m.PM25 = pm25
	b.m.PM10 = pm10
	return b
}

// WithVOC sets the VOC value and its kind.
func (b *AdvertisementBuilder) WithVOC(value float64, kind hibouair.VocKind) *AdvertisementBuilder {
	b.m.VOC = value
	b.m.VocKind = kind
	return b
}

// WithAmbientLight sets the ambient light level.
func (b *AdvertisementBuilder) WithAmbientLight(lux uint16) *AdvertisementBuilder {
	b.m.AmbientLight = lux
	return b
}

// Build returns the reading the advertisement carries.
func (b *AdvertisementBuilder) Build() hibouair.Reading {
	r := hibouair.NewReading(b.boardType, b.boardID, b.m)
	r.BeaconKind = b.beaconKind
	return r
}

// Hex returns the advertisement as the uppercase hex the dongle reports.
func (b *AdvertisementBuilder) Hex() string {
	return hibouair.EncodeHex(b.Build())
}

// ScanLine returns the verbose-mode scan result line for the advertisement,
// without line terminator.
func (b *AdvertisementBuilder) ScanLine(seq int) string {
	line, err := json.Marshal(struct {
		S    int    `json:"S"`
		RSSI int    `json:"rssi"`
		Addr string `json:"addr"`
		Data string `json:"data"`
	}{seq, b.rssi, b.address, b.Hex()})
	if err != nil {
		panic(fmt.Sprintf("ScanLine: %v", err))
	}
	return string(line)
}
