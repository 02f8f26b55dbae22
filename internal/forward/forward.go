// Package forward advances a validated packet's hop cursor and enqueues
// it on the correct outbound channel, evicting a neighbor whose channel
// has gone away (spec.md §4.4).
package forward

import (
	"fmt"

	"github.com/dronemesh/corerouter/packet"
)

// Neighbors is the mutable view of a drone's neighbor map the
// forwarder needs: look up an outbound channel by id, and evict one
// whose peer has disappeared.
type Neighbors interface {
	Get(id packet.NodeId) (chan<- packet.Packet, bool)
	Remove(id packet.NodeId)
}

// Error reports that a packet could not be forwarded to Node, either
// because it was never a known neighbor or because its outbound
// channel is no longer accepting sends.
type Error struct {
	Node packet.NodeId
}

func (e *Error) Error() string {
	return fmt.Sprintf("forward: neighbor %v unreachable", e.Node)
}

// Forward advances p's hop cursor by one and attempts a non-blocking
// send of the result on the new current hop's outbound channel. On
// success it returns the exact packet handed to the channel (the
// caller should report this value, not p, as the PacketSent event —
// see spec.md §9). On failure the neighbor is evicted from n before
// Forward returns, and the caller is expected to re-run Nack synthesis
// against the original p with the returned Error's Node.
//
// Forwarding never blocks: a full or closed outbound channel is
// treated identically to an unknown one, per spec.md §4.4's
// non-blocking mandate.
func Forward(n Neighbors, p packet.Packet) (sent packet.Packet, err error) {
	out := p.Clone()
	out.RoutingHeader.HopIndex++

	next, ok := out.RoutingHeader.CurrentHop()
	if !ok {
		return packet.Packet{}, &Error{Node: next}
	}

	ch, ok := n.Get(next)
	if !ok {
		return packet.Packet{}, &Error{Node: next}
	}

	if !trySend(ch, out) {
		n.Remove(next)
		return packet.Packet{}, &Error{Node: next}
	}

	return out, nil
}

// trySend attempts a non-blocking send on ch, treating both a full
// buffer and a closed channel as failure. Go channels panic on a send
// to a closed channel rather than returning an error the way the
// teacher's transport.SendPacket does; recover is the only way to
// observe that failure without the sender and receiver coordinating
// out of band, which the channel-typed neighbor model in spec.md §6
// does not provide for.
func trySend(ch chan<- packet.Packet, p packet.Packet) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	select {
	case ch <- p:
		return true
	default:
		return false
	}
}
