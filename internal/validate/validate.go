// Package validate implements the per-packet admission checks a drone
// runs before forwarding or flood-processing: addressing, terminal-hop,
// neighbor reachability, and probabilistic drop (spec.md §4.2).
//
// Gate numbering follows the style of device/router.Router.HandlePacket
// in the teacher, adapted from MeshCore's version/dedup/path gates to
// the ones spec.md names.
package validate

import "github.com/dronemesh/corerouter/packet"

// Rand supplies the uniform draw used by the drop check. Implementations
// should be injected so drop behavior is deterministically testable;
// see spec.md §9.
type Rand interface {
	// Float32 returns a value drawn uniformly from [0, 1).
	Float32() float32
}

// Action names the outcome a drone should take after validation.
type Action int

const (
	// ActionForward means the packet passed every check and should be
	// handed to the forwarder unchanged.
	ActionForward Action = iota
	// ActionFault means an addressing or topology check failed; the
	// caller must consult Result.NackKind/OffendingNode.
	ActionFault
	// ActionDropped means a MsgFragment was selected by the
	// probabilistic drop check.
	ActionDropped
	// ActionFloodOK means a FloodRequest passed its one applicable
	// check (UnexpectedRecipient) and should go to the flood engine.
	ActionFloodOK
	// ActionFloodDrop means a FloodRequest failed its recipient check
	// and must be dropped silently (spec.md §4.3): it carries no
	// sender address to Nack or shortcut toward.
	ActionFloodDrop
)

// Result is the outcome of validating one packet.
type Result struct {
	Action        Action
	NackKind      packet.NackKind
	OffendingNode packet.NodeId
}

// Validate runs the checks of spec.md §4.2 in order for a packet that
// this drone (selfID) has just received from its packet input.
// neighbors is the drone's current neighbor map; pdr is the drone's
// current packet drop rate.
func Validate(selfID packet.NodeId, neighbors map[packet.NodeId]chan<- packet.Packet, pdr float32, rng Rand, p packet.Packet) Result {
	// Gate 1: UnexpectedRecipient. Applies to every kind, including
	// FloodRequest.
	hop, inRange := p.RoutingHeader.CurrentHop()
	if !inRange || hop != selfID {
		if p.Kind == packet.KindFloodRequest {
			return Result{Action: ActionFloodDrop}
		}
		return Result{Action: ActionFault, NackKind: packet.NackUnexpectedRecipient, OffendingNode: hop}
	}

	// FloodRequest undergoes no further checks; dispatch to the flood
	// engine now.
	if p.Kind == packet.KindFloodRequest {
		return Result{Action: ActionFloodOK}
	}

	// Gate 2: DestinationIsDrone — no further hop to advance to.
	if p.RoutingHeader.AtDestination() {
		return Result{Action: ActionFault, NackKind: packet.NackDestinationIsDrone}
	}

	// Gate 3: ErrorInRouting — next hop is not a known neighbor.
	next, _ := p.RoutingHeader.NextHop()
	if _, ok := neighbors[next]; !ok {
		return Result{Action: ActionFault, NackKind: packet.NackErrorInRouting, OffendingNode: next}
	}

	// Gate 4: Dropped — MsgFragment only. pdr<=0 and pdr>=1 are
	// resolved without a draw so those boundaries are deterministic
	// regardless of the injected Rand, per spec.md §9.
	if p.Kind == packet.KindMsgFragment && pdr > 0 {
		if pdr >= 1 || rng.Float32() <= pdr {
			return Result{Action: ActionDropped}
		}
	}

	return Result{Action: ActionForward}
}
