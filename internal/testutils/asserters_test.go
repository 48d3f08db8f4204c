//go:build test

package testutils

import (
	"fmt"
	"testing"

	"github.com/srg/hibou/hibouair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingT struct {
	errors []string
}

func (r *recordingT) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestTextAsserter(t *testing.T) {
	t.Run("ignores trailing whitespace and outer blank lines by default", func(t *testing.T) {
		rt := &recordingT{}
		NewTextAsserter(rt).Assert("\nBOARD  CO2   \nA      448\t\n\n", "BOARD  CO2\nA      448")
		assert.Empty(t, rt.errors)
	})

	t.Run("reports a unified diff on mismatch", func(t *testing.T) {
		rt := &recordingT{}
		NewTextAsserter(rt).Assert("BOARD CO2\nA 449", "BOARD CO2\nA 448")
		require.Len(t, rt.errors, 1)
		assert.Contains(t, rt.errors[0], "-A 448")
		assert.Contains(t, rt.errors[0], "+A 449")
	})

	t.Run("empty lines are significant unless ignored", func(t *testing.T) {
		ta := NewTextAsserter(&recordingT{})
		assert.NotEmpty(t, ta.Diff("a\n\nb", "a\nb"))

		ta = NewTextAsserter(&recordingT{}, WithIgnoreEmptyLines(true))
		assert.Empty(t, ta.Diff("a\n\nb", "a\nb"))
	})

	t.Run("color escapes are stripped by default", func(t *testing.T) {
		ta := NewTextAsserter(&recordingT{})
		assert.Empty(t, ta.Diff("\x1b[32m448 ppm\x1b[0m", "448 ppm"))

		ta = NewTextAsserter(&recordingT{}, WithStripANSI(false))
		assert.NotEmpty(t, ta.Diff("\x1b[32m448 ppm\x1b[0m", "448 ppm"))
	})

	t.Run("colored diff highlights whitespace", func(t *testing.T) {
		ta := NewTextAsserter(&recordingT{}, WithEnableColors(true))
		diff := ta.Diff("a b", "a  b")
		assert.Contains(t, diff, "a··b")
	})
}

func TestJSONAsserter(t *testing.T) {
	t.Run("extra keys are ignored by default", func(t *testing.T) {
		rt := &recordingT{}
		NewJSONAsserter(rt).Assert(`{"a":1,"b":2}`, `{"a":1}`)
		assert.Empty(t, rt.errors)
	})

	t.Run("presence placeholder matches any value", func(t *testing.T) {
		rt := &recordingT{}
		NewJSONAsserter(rt).Assert(`{"a":1,"at":"2024-05-01"}`, `{"a":1,"at":"<<PRESENCE>>"}`)
		assert.Empty(t, rt.errors)
	})

	t.Run("presence placeholder requires the key", func(t *testing.T) {
		rt := &recordingT{}
		NewJSONAsserter(rt).Assert(`{"a":1}`, `{"a":1,"at":"<<PRESENCE>>"}`)
		assert.Len(t, rt.errors, 1)
	})

	t.Run("value mismatch fails", func(t *testing.T) {
		rt := &recordingT{}
		NewJSONAsserter(rt).Assert(`{"a":1}`, `{"a":2}`)
		assert.Len(t, rt.errors, 1)
	})

	t.Run("array order can be ignored", func(t *testing.T) {
		rt := &recordingT{}
		NewJSONAsserter(rt).
			WithOptions(WithIgnoreArrayOrder(true)).
			Assert(`[{"id":"B"},{"id":"A"}]`, `[{"id":"A"},{"id":"B"}]`)
		assert.Empty(t, rt.errors)
	})

	t.Run("ignored fields are dropped on both sides", func(t *testing.T) {
		rt := &recordingT{}
		NewJSONAsserter(rt).
			WithOptions(WithIgnoredFields("seen"), WithIgnoreExtraKeys(false)).
			Assert(`{"a":1,"seen":5}`, `{"a":1,"seen":9}`)
		assert.Empty(t, rt.errors)
	})

	t.Run("float tolerance", func(t *testing.T) {
		ja := NewJSONAsserter(&recordingT{})
		assert.NotEmpty(t, ja.Diff(`{"temperature":19.80000001}`, `{"temperature":19.8}`))

		ja = NewJSONAsserter(&recordingT{}).WithOptions(WithFloatTolerance(1e-6))
		assert.Empty(t, ja.Diff(`{"temperature":19.80000001}`, `{"temperature":19.8}`))
		assert.NotEmpty(t, ja.Diff(`{"temperature":19.9}`, `{"temperature":19.8}`))
	})

	t.Run("extra keys fail when not ignored", func(t *testing.T) {
		ja := NewJSONAsserter(&recordingT{}).WithOptions(WithIgnoreExtraKeys(false))
		assert.NotEmpty(t, ja.Diff(`[{"a":1,"b":2}]`, `[{"a":1}]`))
	})
}

func TestJSONAsserter_AssertReadings(t *testing.T) {
	readings := []hibouair.Reading{
		NewAdvertisementBuilder().WithBoard(hibouair.BoardPM, 0x0A0B0C).WithPM(1.5, 3, 4.5).Build(),
		NewAdvertisementBuilder().WithBoard(hibouair.BoardCO2, 0x000001).WithCO2(612).Build(),
	}

	rt := &recordingT{}
	NewJSONAsserter(rt).AssertReadings(readings, `[
		{"board_id": "000001", "board_type": "CO2", "co2": 612},
		{"board_id": "0A0B0C", "board_type": "PM", "pm1_0": 1.5, "pm2_5": 3, "pm10": 4.5}
	]`)
	assert.Empty(t, rt.errors)
}

func TestAdvertisementBuilder(t *testing.T) {
	b := NewAdvertisementBuilder().
		WithBoard(hibouair.BoardCO2, 0x22005A).
		WithClimate(1017, 19.8, 27.9).
		WithVOC(0.62, hibouair.VocPpm).
		WithCO2(448)

	assert.Equal(t, "0201061BFF5B07050422005A0000BA27C60017013E0000000000000001C002", b.Hex())

	r, err := hibouair.DecodeHex(b.Hex())
	require.NoError(t, err)
	assert.Equal(t, b.Build(), r)

	line := b.WithAddress("[0]AA:BB:CC:DD:EE:FF").WithRSSI(-42).ScanLine(7)
	NewJSONAsserter(t).Assert(line, `{"S":7,"rssi":-42,"addr":"[0]AA:BB:CC:DD:EE:FF","data":"<<PRESENCE>>"}`)

	foreign := NewAdvertisementBuilder().WithBeaconKind(0x04).Build()
	assert.Equal(t, uint8(0x04), foreign.BeaconKind)
}
