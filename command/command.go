// Package command defines the exhaustive set of messages a simulation
// controller sends to a drone's command input (spec.md §6).
//
// This mirrors the transport package's Event/StateHandler tagged-struct
// convention in the teacher rather than an interface-per-command: the
// event loop switches on Kind once per iteration, never dispatches
// polymorphically.
package command

import "github.com/dronemesh/corerouter/packet"

// Kind tags which command a Command carries.
type Kind int

const (
	KindAddSender Kind = iota
	KindRemoveSender
	KindSetPacketDropRate
	KindCrash
)

func (k Kind) String() string {
	switch k {
	case KindAddSender:
		return "AddSender"
	case KindRemoveSender:
		return "RemoveSender"
	case KindSetPacketDropRate:
		return "SetPacketDropRate"
	case KindCrash:
		return "Crash"
	default:
		return "Unknown"
	}
}

// Command is a single controller-to-drone instruction.
type Command struct {
	Kind Kind

	// NodeID is valid for AddSender and RemoveSender.
	NodeID packet.NodeId

	// Sender is valid for AddSender: the outbound endpoint to install
	// for NodeID.
	Sender chan<- packet.Packet

	// Rate is valid for SetPacketDropRate.
	Rate float32
}

// AddSender builds a command that installs (or replaces) the outbound
// channel for a neighbor.
func AddSender(id packet.NodeId, ch chan<- packet.Packet) Command {
	return Command{Kind: KindAddSender, NodeID: id, Sender: ch}
}

// RemoveSender builds a command that drops a neighbor. A no-op if the
// neighbor is not currently known.
func RemoveSender(id packet.NodeId) Command {
	return Command{Kind: KindRemoveSender, NodeID: id}
}

// SetPacketDropRate builds a command that replaces the drone's PDR.
// The caller is responsible for clamping rate to [0, 1].
func SetPacketDropRate(rate float32) Command {
	return Command{Kind: KindSetPacketDropRate, Rate: rate}
}

// Crash builds a command that begins the drone's crash sequence. The
// drone does not exit immediately; see spec.md §4.1.
func Crash() Command {
	return Command{Kind: KindCrash}
}
