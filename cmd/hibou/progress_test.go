package main

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStatusLine_Render(t *testing.T) {
	sensors := "2 sensors"
	s := NewStatusLine(&syncBuffer{}, "Monitoring", func() string { return sensors })
	s.setPhase("Scanning")
	assert.Equal(t, "Monitoring (Scanning..., 2 sensors)", s.render())

	s.phaseStart = time.Now().Add(-3 * time.Second)
	assert.Equal(t, "Monitoring (Scanning 3s, 2 sensors)", s.render())

	sensors = ""
	assert.Equal(t, "Monitoring (Scanning 3s)", s.render())

	// A new phase restarts the timer.
	s.setPhase("Closed")
	assert.Equal(t, "Monitoring (Closed...)", s.render())
}

func TestStatusLine_StopPhase(t *testing.T) {
	out := &syncBuffer{}
	s := NewStatusLine(out, "Monitoring", nil, "Closed")
	s.Start("connecting")
	assert.Contains(t, out.String(), "Monitoring (connecting...)")

	s.SetPhase("Scanning")
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Monitoring (Scanning")
	}, 2*time.Second, 10*time.Millisecond)

	s.SetPhase("Closed")
	assert.True(t, strings.HasSuffix(out.String(), clearLineSequence))
	assert.NotContains(t, out.String(), "(Closed")

	length := len(out.String())
	s.Stop()
	assert.Len(t, out.String(), length)
}

func TestStatusLine_StartTwicePanics(t *testing.T) {
	s := NewStatusLine(&syncBuffer{}, "Monitoring", nil)
	s.Start("connecting")
	defer s.Stop()

	assert.Panics(t, func() { s.Start("connecting") })
}

func TestStatusLine_StopWithoutStart(t *testing.T) {
	out := &syncBuffer{}
	s := NewStatusLine(out, "Monitoring", nil)
	assert.NotPanics(t, s.Stop)
	assert.Empty(t, out.String())
}

func TestSensorCount(t *testing.T) {
	assert.Equal(t, "", sensorCount(0))
	assert.Equal(t, "1 sensor", sensorCount(1))
	assert.Equal(t, "12 sensors", sensorCount(12))
}
