// Package registry keeps the latest HibouAir reading per board.
package registry

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/hibou/hibouair"
	"github.com/srg/hibou/internal/ringchan"
)

// UpdateType marks whether a board was seen for the first time or replaced.
type UpdateType int

const (
	UpdateNew UpdateType = iota
	UpdateReplaced
)

func (t UpdateType) String() string {
	if t == UpdateNew {
		return "new"
	}
	return "replaced"
}

// Update is published for every accepted reading.
type Update struct {
	Type    UpdateType
	Reading hibouair.Reading
	At      time.Time
}

// DefaultUpdateBuffer is the number of updates kept for slow observers.
const DefaultUpdateBuffer = 100

// Registry maps board id to its latest reading.
//
// It is written by a single producer (the protocol driver) and read
// concurrently by any number of consumers. Entries are never evicted.
type Registry struct {
	readings *hashmap.Map[uint32, hibouair.Reading]
	updates  *ringchan.RingChannel[Update]
	logger   *logrus.Logger

	lastUpdate atomic.Int64 // unix nanoseconds, 0 until the first upsert
	count      atomic.Uint64

	now func() time.Time
}

// New creates an empty registry. A nil logger discards output.
func New(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &Registry{
		readings: hashmap.New[uint32, hibouair.Reading](),
		updates:  ringchan.New[Update](DefaultUpdateBuffer),
		logger:   logger,
		now:      time.Now,
	}
}

// Upsert stores r under its board id, replacing any previous reading, and
// records the update time and count.
func (r *Registry) Upsert(reading hibouair.Reading) {
	id := reading.BoardID()
	at := r.now()

	_, existed := r.readings.Get(id)
	r.readings.Set(id, reading)
	r.lastUpdate.Store(at.UnixNano())
	r.count.Add(1)

	update := Update{Type: UpdateReplaced, Reading: reading, At: at}
	if !existed {
		update.Type = UpdateNew
		r.logger.WithFields(logrus.Fields{
			"board_id":   reading.BoardIDString(),
			"board_type": reading.BoardType().String(),
		}).Info("Discovered new sensor")
	}

	if r.updates.Publish(update) {
		r.logger.Debug("Update buffer full, oldest update dropped")
	}
}

// Get returns the latest reading of the given board.
func (r *Registry) Get(boardID uint32) (hibouair.Reading, bool) {
	return r.readings.Get(boardID)
}

// Snapshot returns the latest reading of every board, in no particular order.
func (r *Registry) Snapshot() []hibouair.Reading {
	out := make([]hibouair.Reading, 0, r.readings.Len())
	r.readings.Range(func(_ uint32, reading hibouair.Reading) bool {
		out = append(out, reading)
		return true
	})
	return out
}

// Len returns the number of distinct boards seen.
func (r *Registry) Len() int {
	return r.readings.Len()
}

// LastUpdate returns the time of the most recent upsert, or the zero time if
// nothing was stored yet.
func (r *Registry) LastUpdate() time.Time {
	ns := r.lastUpdate.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Count returns the number of accepted readings since creation.
func (r *Registry) Count() uint64 {
	return r.count.Load()
}

// DroppedUpdates returns the number of update events discarded because the
// buffer was full.
func (r *Registry) DroppedUpdates() uint64 {
	return uint64(r.updates.Stats().Overwritten)
}

// Updates returns the update event stream. Events are dropped oldest-first
// when no one keeps up; the channel is closed by Close.
func (r *Registry) Updates() <-chan Update {
	return r.updates.C()
}

// Close ends the update stream. Stored readings stay readable.
func (r *Registry) Close() {
	r.updates.Close()
}
