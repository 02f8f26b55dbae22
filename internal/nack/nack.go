// Package nack builds the synthesized Nack packets a drone sends back
// toward a sender when a MsgFragment cannot be delivered (spec.md §4.3).
package nack

import "github.com/dronemesh/corerouter/packet"

// ForFragment builds a Nack packet reporting kind/offendingNode for
// the fragment carried by original, as selfID (the drone turning it
// around). The new routing header reverses the route travelled so far
// with selfID as the new front-of-route position, and resets the
// cursor to the front. selfID is used rather than original's current
// hop because the two can differ: for an UnexpectedRecipient fault,
// original's current hop is whoever it was misrouted to.
func ForFragment(original packet.Packet, kind packet.NackKind, offendingNode packet.NodeId, selfID packet.NodeId) packet.Packet {
	return packet.Packet{
		Kind:          packet.KindNack,
		RoutingHeader: packet.ReversedHeader(original.RoutingHeader, selfID),
		SessionID:     original.SessionID,
		Nack: packet.NackInfo{
			FragmentIndex: original.FragmentIndex,
			Kind:          kind,
			Node:          offendingNode,
		},
	}
}
