package stats

import (
	"testing"

	"github.com/dronemesh/corerouter/event"
	"github.com/dronemesh/corerouter/packet"
)

func sentTo(hop packet.NodeId) event.Event {
	return event.PacketSent(packet.Packet{
		Kind:          packet.KindMsgFragment,
		RoutingHeader: packet.SourceRoutingHeader{Hops: []packet.NodeId{1, hop}, HopIndex: 1},
	})
}

func TestCounters_RecordTotals(t *testing.T) {
	c := NewCounters()

	c.Record(sentTo(3))
	c.Record(sentTo(4))
	c.Record(event.PacketDropped(packet.Packet{}))
	c.Record(event.ControllerShortcut(packet.Packet{}))

	snap := c.Snapshot()
	if snap.Sent != 2 {
		t.Errorf("Sent = %d, want 2", snap.Sent)
	}
	if snap.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", snap.Dropped)
	}
	if snap.Shortcut != 1 {
		t.Errorf("Shortcut = %d, want 1", snap.Shortcut)
	}
}

func TestCounters_PerNeighborBreakdown(t *testing.T) {
	c := NewCounters()

	c.Record(sentTo(3))
	c.Record(sentTo(3))
	c.Record(sentTo(4))

	snap := c.Snapshot()
	if snap.PerNeighbor[3] != 2 {
		t.Errorf("PerNeighbor[3] = %d, want 2", snap.PerNeighbor[3])
	}
	if snap.PerNeighbor[4] != 1 {
		t.Errorf("PerNeighbor[4] = %d, want 1", snap.PerNeighbor[4])
	}
}

func TestCollect_DrainsUntilClosed(t *testing.T) {
	c := NewCounters()
	eventsIn := make(chan event.Event, 2)
	eventsIn <- sentTo(3)
	eventsIn <- event.PacketDropped(packet.Packet{})
	close(eventsIn)

	Collect(eventsIn, c)

	snap := c.Snapshot()
	if snap.Sent != 1 || snap.Dropped != 1 {
		t.Fatalf("snapshot = %+v, want Sent=1 Dropped=1", snap)
	}
}
