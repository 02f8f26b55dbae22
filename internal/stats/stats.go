// Package stats aggregates per-drone event counters for the
// simulation harness. Nothing here feeds back into routing decisions;
// it exists purely so a simulation controller can report what
// happened, grounded on device/router.RouterCounters' atomic
// counter/snapshot shape.
package stats

import (
	"sync"
	"sync/atomic"

	"github.com/dronemesh/corerouter/event"
	"github.com/dronemesh/corerouter/packet"
)

// Counters tracks one drone's event totals. Sent/Dropped/Shortcut are
// safe for concurrent access via atomic operations; the per-neighbor
// counter map is additionally protected by a mutex (its keys grow as AddSender
// commands introduce new neighbors) with a mutex.
type Counters struct {
	Sent     atomic.Uint64
	Dropped  atomic.Uint64
	Shortcut atomic.Uint64

	mu          sync.Mutex
	perNeighbor map[packet.NodeId]*atomic.Uint64
}

// NewCounters returns a zeroed Counters.
func NewCounters() *Counters {
	return &Counters{perNeighbor: make(map[packet.NodeId]*atomic.Uint64)}
}

// Snapshot is a plain-value copy of Counters for reporting.
type Snapshot struct {
	Sent        uint64
	Dropped     uint64
	Shortcut    uint64
	PerNeighbor map[packet.NodeId]uint64
}

// Record updates the counters for one event. It is called from a
// collector goroutine reading a drone's EventOut channel. Each event
// on a channel reaches only one reader, so Collect and
// transcript.Mirror ranging over the same channel would split the
// stream between them; cmd/simulate reads once and hands each event
// to both.
func (c *Counters) Record(e event.Event) {
	switch e.Kind {
	case event.KindPacketSent:
		c.Sent.Add(1)
		c.recordNeighbor(e.Packet)
	case event.KindPacketDropped:
		c.Dropped.Add(1)
	case event.KindControllerShortcut:
		c.Shortcut.Add(1)
	}
}

func (c *Counters) recordNeighbor(p packet.Packet) {
	next, ok := p.RoutingHeader.CurrentHop()
	if !ok {
		return
	}

	c.mu.Lock()
	counter, exists := c.perNeighbor[next]
	if !exists {
		counter = &atomic.Uint64{}
		c.perNeighbor[next] = counter
	}
	c.mu.Unlock()

	counter.Add(1)
}

// Snapshot returns a consistent point-in-time copy of all counters.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	perNeighbor := make(map[packet.NodeId]uint64, len(c.perNeighbor))
	for id, counter := range c.perNeighbor {
		perNeighbor[id] = counter.Load()
	}
	c.mu.Unlock()

	return Snapshot{
		Sent:        c.Sent.Load(),
		Dropped:     c.Dropped.Load(),
		Shortcut:    c.Shortcut.Load(),
		PerNeighbor: perNeighbor,
	}
}

// Collect drains eventsIn into c until the channel closes. Meant to
// run in its own goroutine per drone, mirroring transcript.Mirror's
// shape.
func Collect(eventsIn <-chan event.Event, c *Counters) {
	for e := range eventsIn {
		c.Record(e)
	}
}
