// Package topology builds a set of wired drones from a declarative
// adjacency description: one drone per node, one packet-input channel
// per node shared by every edge into it, and an initial neighbor map
// per drone built from the edges. AddEdge adds a link later with an
// AddSender command.
//
// Grounded on go-ethereum's p2p/simulations network builder, which
// separates "describe nodes and connections" from "adapter brings the
// connection up" the same way Build here separates the adjacency list
// from the channel wiring and command dispatch.
package topology

import (
	"fmt"
	"log/slog"

	"github.com/dronemesh/corerouter/command"
	"github.com/dronemesh/corerouter/drone"
	"github.com/dronemesh/corerouter/event"
	"github.com/dronemesh/corerouter/packet"
)

// Edge describes one directed link: packets sent by From are delivered
// to To's packet input.
type Edge struct {
	From, To packet.NodeId
	// Capacity sizes the buffer of To's packet input, which every edge
	// into To shares; the largest Capacity among those edges is used.
	// A node whose incoming edges all have zero Capacity (or that has
	// none) gets an unbuffered packet input.
	Capacity int
}

// Config describes a static network to build.
type Config struct {
	// Nodes lists every drone id to create, even ones with no edges.
	Nodes []packet.NodeId
	// Edges lists every directed link. An edge implies its reverse is
	// NOT created automatically — bidirectional links need two Edge
	// entries, matching spec.md's neighbor map being per-drone and
	// directional in principle even though most topologies are
	// symmetric in practice.
	Edges []Edge
	// PDR is the initial drop rate applied to every drone.
	PDR float32
	// CommandBuffer and EventBuffer size each drone's command and
	// event channels. Zero means unbuffered.
	CommandBuffer int
	EventBuffer   int
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Rand, if set, is used for every drone; nil lets each drone fall
	// back to its own default generator.
	Rand drone.Rand
}

// Network is a built set of drones ready to Run, plus the handles a
// caller needs to drive and observe them.
type Network struct {
	Drones    map[packet.NodeId]*drone.Drone
	CommandIn map[packet.NodeId]chan command.Command
	PacketIn  map[packet.NodeId]chan packet.Packet
	EventOut  map[packet.NodeId]chan event.Event
}

// Build constructs a Network from cfg. Every node in cfg.Nodes gets a
// Drone; every edge in cfg.Edges installs an initial neighbor entry on
// the From drone pointing at the To drone's packet input.
func Build(cfg Config) (*Network, error) {
	nodeSet := make(map[packet.NodeId]struct{}, len(cfg.Nodes))
	for _, id := range cfg.Nodes {
		nodeSet[id] = struct{}{}
	}

	net := &Network{
		Drones:    make(map[packet.NodeId]*drone.Drone, len(cfg.Nodes)),
		CommandIn: make(map[packet.NodeId]chan command.Command, len(cfg.Nodes)),
		PacketIn:  make(map[packet.NodeId]chan packet.Packet, len(cfg.Nodes)),
		EventOut:  make(map[packet.NodeId]chan event.Event, len(cfg.Nodes)),
	}

	for _, id := range cfg.Nodes {
		net.CommandIn[id] = make(chan command.Command, cfg.CommandBuffer)
		net.PacketIn[id] = make(chan packet.Packet, 0)
		net.EventOut[id] = make(chan event.Event, cfg.EventBuffer)
	}
	// Packet inputs are recreated below with each edge's capacity
	// applied on the receiving end; the zero-buffer placeholder above
	// only reserves the map entry.
	capacities := make(map[packet.NodeId]int, len(cfg.Nodes))

	for _, e := range cfg.Edges {
		if _, ok := nodeSet[e.From]; !ok {
			return nil, fmt.Errorf("topology: edge references unknown node %d", e.From)
		}
		if _, ok := nodeSet[e.To]; !ok {
			return nil, fmt.Errorf("topology: edge references unknown node %d", e.To)
		}
		if e.Capacity > capacities[e.To] {
			capacities[e.To] = e.Capacity
		}
	}
	for id, capacity := range capacities {
		net.PacketIn[id] = make(chan packet.Packet, capacity)
	}

	for _, id := range cfg.Nodes {
		neighbors := make(map[packet.NodeId]chan<- packet.Packet)
		for _, e := range cfg.Edges {
			if e.From == id {
				neighbors[e.To] = net.PacketIn[e.To]
			}
		}

		net.Drones[id] = drone.New(drone.Config{
			ID:        id,
			CommandIn: net.CommandIn[id],
			PacketIn:  net.PacketIn[id],
			EventOut:  net.EventOut[id],
			Neighbors: neighbors,
			PDR:       cfg.PDR,
			Logger:    cfg.Logger,
			Rand:      cfg.Rand,
		})
	}

	return net, nil
}

// AddEdge installs a new neighbor on an already-built network by
// sending an AddSender command, the same command a live controller
// would issue to change topology at runtime.
func (n *Network) AddEdge(from, to packet.NodeId) error {
	pktIn, ok := n.PacketIn[to]
	if !ok {
		return fmt.Errorf("topology: unknown node %d", to)
	}
	cmdIn, ok := n.CommandIn[from]
	if !ok {
		return fmt.Errorf("topology: unknown node %d", from)
	}
	cmdIn <- command.AddSender(to, pktIn)
	return nil
}
