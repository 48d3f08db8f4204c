package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/srg/hibou/hibouair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(boardID uint32, co2 uint16) hibouair.Reading {
	return hibouair.NewReading(hibouair.BoardCO2, boardID, hibouair.Measurements{
		Pressure:    1013.2,
		Temperature: 21.5,
		Humidity:    40,
		CO2:         co2,
	})
}

func TestRegistry_Empty(t *testing.T) {
	r := New(nil)

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Snapshot())
	assert.True(t, r.LastUpdate().IsZero())
	assert.Equal(t, uint64(0), r.Count())
	assert.Zero(t, r.DroppedUpdates())

	_, ok := r.Get(0x22005A)
	assert.False(t, ok)
}

func TestRegistry_UpsertKeepsLatestPerBoard(t *testing.T) {
	r := New(nil)

	r.Upsert(reading(0x22005A, 400))
	r.Upsert(reading(0x22005A, 800))

	assert.Equal(t, 1, r.Len(), "same board id MUST occupy a single entry")
	assert.Equal(t, uint64(2), r.Count())

	got, ok := r.Get(0x22005A)
	require.True(t, ok)
	assert.Equal(t, uint16(800), got.CO2(), "latest reading MUST win")
}

func TestRegistry_SizeBoundedByDistinctBoards(t *testing.T) {
	r := New(nil)

	ids := []uint32{1, 2, 3, 2, 1, 3, 3, 4}
	for i, id := range ids {
		r.Upsert(reading(id, uint16(400+i)))
	}

	assert.Equal(t, 4, r.Len())
	assert.Len(t, r.Snapshot(), 4)
	assert.Equal(t, uint64(len(ids)), r.Count())
}

func TestRegistry_LastUpdate(t *testing.T) {
	r := New(nil)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	r.Upsert(reading(7, 500))

	assert.True(t, fixed.Equal(r.LastUpdate()))
}

func TestRegistry_Updates(t *testing.T) {
	r := New(nil)

	r.Upsert(reading(0xAA, 400))
	r.Upsert(reading(0xAA, 410))
	r.Upsert(reading(0xBB, 420))
	r.Close()

	var types []UpdateType
	var ids []uint32
	for u := range r.Updates() {
		types = append(types, u.Type)
		ids = append(ids, u.Reading.BoardID())
	}

	assert.Equal(t, []UpdateType{UpdateNew, UpdateReplaced, UpdateNew}, types)
	assert.Equal(t, []uint32{0xAA, 0xAA, 0xBB}, ids)
}

func TestRegistry_UpdatesNeverBlockWriter(t *testing.T) {
	r := New(nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < DefaultUpdateBuffer*3; i++ {
			r.Upsert(reading(uint32(i%5), 400))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Upsert blocked on an unread update stream")
	}
	r.Close()

	n := 0
	for range r.Updates() {
		n++
	}
	assert.Equal(t, DefaultUpdateBuffer, n)
	assert.Equal(t, uint64(DefaultUpdateBuffer*2), r.DroppedUpdates())
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	r := New(nil)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					for _, rd := range r.Snapshot() {
						assert.NotZero(t, rd.BoardID())
					}
				}
			}
		}()
	}

	for i := 1; i <= 500; i++ {
		r.Upsert(reading(uint32(i%20+1), uint16(i)))
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, 20, r.Len())
}

func TestUpdateType_String(t *testing.T) {
	assert.Equal(t, "new", UpdateNew.String())
	assert.Equal(t, "replaced", UpdateReplaced.String())
}
