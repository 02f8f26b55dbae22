// Package clock provides a monotonically-increasing id source for the
// simulation harness: flood ids need to be unique per initiator even
// when a controller triggers several floods within the same wall-clock
// second, which a raw time.Now().Unix() cannot guarantee.
//
// Adapted from the teacher's core/clock.Clock (MeshCore's RTCClock
// equivalent), generalized from a uint32 timestamp source to a
// uint64 flood-id allocator; the strictly-increasing-on-collision
// behavior is the part worth keeping.
package clock

import (
	"sync"
	"time"
)

// Clock allocates strictly increasing uint64 flood ids seeded from
// wall-clock time.
type Clock struct {
	mu     sync.Mutex
	lastID uint64
	nowFn  func() uint64 // overridable for testing
}

// New creates a Clock seeded from the system clock.
func New() *Clock {
	return &Clock{
		nowFn: func() uint64 {
			return uint64(time.Now().UnixNano())
		},
	}
}

// NextFloodID returns a strictly increasing id. If the wall clock
// hasn't advanced past the last returned value, the internal counter
// is bumped by 1, matching the teacher's GetCurrentTimeUnique
// collision handling.
func (c *Clock) NextFloodID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nowFn()
	if id <= c.lastID {
		c.lastID++
		return c.lastID
	}
	c.lastID = id
	return id
}
