// Package flood implements the network-discovery broadcast algorithm:
// deduplication, path-trace extension, response synthesis, and fan-out
// to non-predecessor neighbors (spec.md §4.5).
//
// The dedup set mirrors the insert-returns-bool shape of
// core/dedupe.PacketDeduplicator.HasSeen in the teacher, generalized
// from a bounded circular buffer to an unbounded set: spec.md §3 makes
// flood_seen monotonically growing and never purged, unlike MeshCore's
// bounded ring buffer, so invariant I4 (each (initiator, flood_id)
// fans out at most once) can never be violated by eviction.
package flood

import "github.com/dronemesh/corerouter/packet"

// key identifies one flood initiation.
type key struct {
	Initiator packet.NodeId
	FloodID   uint64
}

// Engine tracks which flood initiations a drone has already admitted
// into its fan-out phase.
type Engine struct {
	seen map[key]struct{}
}

// NewEngine returns an Engine with an empty dedup set.
func NewEngine() *Engine {
	return &Engine{seen: make(map[key]struct{})}
}

// Seen reports whether (initiator, floodID) has already been observed
// by this engine, without recording it.
func (e *Engine) Seen(initiator packet.NodeId, floodID uint64) bool {
	_, ok := e.seen[key{initiator, floodID}]
	return ok
}

// Handle processes a FloodRequest that has already passed the
// UnexpectedRecipient check (its current hop is selfID). neighbors is
// the drone's current neighbor map. It returns the packets the caller
// should hand to the forwarder, in order: either a single
// FloodResponse (dedup hit or leaf) or one FloodRequest per
// non-predecessor neighbor.
func (e *Engine) Handle(selfID packet.NodeId, neighbors map[packet.NodeId]chan<- packet.Packet, fr packet.Packet) []packet.Packet {
	fr = fr.Clone()
	fr.PathTrace = append(fr.PathTrace, packet.PathTraceEntry{Node: selfID, Type: packet.NodeTypeDrone})

	k := key{fr.InitiatorID, fr.FloodID}
	_, alreadySeen := e.seen[k]
	isNew := !alreadySeen
	if isNew {
		e.seen[k] = struct{}{}
	}
	isLeaf := len(neighbors) == 1

	if !isNew || isLeaf {
		response := packet.Packet{
			Kind:          packet.KindFloodResponse,
			RoutingHeader: packet.ReversedHeader(fr.RoutingHeader, selfID),
			SessionID:     0,
			FloodID:       fr.FloodID,
			PathTrace:     fr.PathTrace,
		}
		return []packet.Packet{response}
	}

	var predecessor packet.NodeId
	hasPredecessor := fr.RoutingHeader.HopIndex > 0
	if hasPredecessor {
		predecessor = fr.RoutingHeader.Hops[fr.RoutingHeader.HopIndex-1]
	}

	var out []packet.Packet
	for n := range neighbors {
		if hasPredecessor && n == predecessor {
			continue
		}
		route := append(append([]packet.NodeId(nil), fr.RoutingHeader.Hops...), n)
		out = append(out, packet.Packet{
			Kind:          packet.KindFloodRequest,
			RoutingHeader: packet.SourceRoutingHeader{Hops: route, HopIndex: fr.RoutingHeader.HopIndex},
			SessionID:     0,
			FloodID:       fr.FloodID,
			InitiatorID:   fr.InitiatorID,
			PathTrace:     append([]packet.PathTraceEntry(nil), fr.PathTrace...),
		})
	}
	return out
}
