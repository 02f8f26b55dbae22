// Package drone implements the routing core of a simulated
// packet-forwarding node: an event loop that multiplexes controller
// commands and neighbor packets with strict priority, a per-packet
// validation and forwarding state machine, and the flood-discovery
// algorithm (spec.md §§2-5).
//
// This corresponds to the teacher's device/connection.Manager and
// device/advert.Scheduler in shape (a Config struct, a ctx-driven
// Start/Run loop, injected logger and random source) but drives a strict two-stage
// priority select instead of a single ticker.
package drone

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"

	"github.com/dronemesh/corerouter/command"
	"github.com/dronemesh/corerouter/event"
	"github.com/dronemesh/corerouter/internal/flood"
	"github.com/dronemesh/corerouter/internal/forward"
	"github.com/dronemesh/corerouter/internal/nack"
	"github.com/dronemesh/corerouter/internal/validate"
	"github.com/dronemesh/corerouter/packet"
)

// Rand supplies the uniform draw used by the drop check. See
// validate.Rand; this is the same interface, re-exported so callers
// configuring a Drone don't need to import the internal package.
type Rand = validate.Rand

// defaultRand wraps math/rand/v2's top-level generator, matching the
// teacher's own use of math/rand/v2 package-level functions directly
// (transport/mqtt.randomString) rather than a third-party PRNG.
type defaultRand struct{}

func (defaultRand) Float32() float32 { return rand.Float32() }

// Config configures a Drone. Zero-value fields are given the same
// defaults the teacher applies in Router.New/Manager.New: a nil Logger
// falls back to slog.Default(), a nil Rand falls back to the default
// generator.
type Config struct {
	// ID is this drone's immutable identity.
	ID packet.NodeId

	// CommandIn receives controller commands.
	CommandIn <-chan command.Command
	// PacketIn receives packets from neighbors.
	PacketIn <-chan packet.Packet
	// EventOut reports events to the controller.
	EventOut chan<- event.Event

	// Neighbors is the initial neighbor → outbound-channel map. The
	// Drone takes ownership of a copy; the caller's map is not mutated
	// and may be discarded after New returns.
	Neighbors map[packet.NodeId]chan<- packet.Packet

	// PDR is the initial packet drop rate, in [0, 1].
	PDR float32

	// Logger receives structured events from the drone's loop. Falls
	// back to slog.Default().
	Logger *slog.Logger

	// Rand supplies the uniform draw for the drop check. Falls back to
	// a generator backed by math/rand/v2.
	Rand Rand
}

// Drone is a single-threaded routing actor. All fields are owned
// exclusively by the goroutine running Run; no locking is used or
// required, per spec.md §5.
type Drone struct {
	id        packet.NodeId
	commandIn <-chan command.Command
	packetIn  <-chan packet.Packet
	eventOut  chan<- event.Event
	log       *slog.Logger
	rng       Rand

	neighbors map[packet.NodeId]chan<- packet.Packet
	pdr       float32
	flood     *flood.Engine
	crashing  bool
}

// New constructs a Drone from cfg. The drone does not start processing
// until Run is called.
func New(cfg Config) *Drone {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rng := cfg.Rand
	if rng == nil {
		rng = defaultRand{}
	}

	neighbors := make(map[packet.NodeId]chan<- packet.Packet, len(cfg.Neighbors))
	for id, ch := range cfg.Neighbors {
		neighbors[id] = ch
	}

	return &Drone{
		id:        cfg.ID,
		commandIn: cfg.CommandIn,
		packetIn:  cfg.PacketIn,
		eventOut:  cfg.EventOut,
		log:       logger.With("drone", cfg.ID),
		rng:       rng,
		neighbors: neighbors,
		pdr:       cfg.PDR,
		flood:     flood.NewEngine(),
	}
}

// ID returns the drone's identity.
func (d *Drone) ID() packet.NodeId { return d.id }

// InitiateFlood originates a new FloodRequest under this drone's own
// identity, fanning it out to every current neighbor. Unlike a
// received flood, there is no predecessor to exclude and no dedup
// check: the caller is responsible for choosing a floodID this drone
// has not already used, since InitiateFlood does not consult or
// update the flood engine's seen set for its own initiations.
//
// This is not part of spec.md's distilled behavior (which only
// specifies handling an incoming flood) but is implied by the
// protocol's own shape: something has to start a flood. Safe to call
// from outside the event loop's goroutine only before Run starts, or
// from within Run's own handling path; like every other Drone method
// it is not safe for concurrent use.
func (d *Drone) InitiateFlood(floodID uint64) {
	fr := packet.Packet{
		Kind:        packet.KindFloodRequest,
		FloodID:     floodID,
		InitiatorID: d.id,
		RoutingHeader: packet.SourceRoutingHeader{
			Hops:     []packet.NodeId{d.id},
			HopIndex: 0,
		},
		PathTrace: []packet.PathTraceEntry{{Node: d.id, Type: packet.NodeTypeDrone}},
	}

	for neighbor := range d.neighbors {
		out := fr.Clone()
		out.RoutingHeader.Hops = append(out.RoutingHeader.Hops, neighbor)
		d.forwardPacket(out)
	}
}

// Run drives the event loop until the drone is crashing and its packet
// input has closed (in either order), or ctx is cancelled. It implements spec.md §4.1's
// strict command priority with a two-stage poll (per spec.md §9's
// guidance for languages without a biased select): before every
// blocking wait, pending commands are drained non-blockingly first, so
// a command queued between iterations is never starved by a backlog of
// packets.
func (d *Drone) Run(ctx context.Context) error {
	commandIn := d.commandIn
	packetIn := d.packetIn
	packetClosed := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-commandIn:
			if !ok {
				commandIn = nil
				continue
			}
			d.handleCommand(cmd)
			if d.crashing && packetClosed {
				return nil
			}
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case cmd, ok := <-commandIn:
			if !ok {
				commandIn = nil
				continue
			}
			d.handleCommand(cmd)
			if d.crashing && packetClosed {
				return nil
			}

		case p, ok := <-packetIn:
			if !ok {
				// The channel will never report anything else; stop
				// selecting on it so the loop doesn't spin. Per
				// spec.md §9 termination is deferred to drainage, so a
				// closed channel only ends the loop once crashing.
				packetIn = nil
				packetClosed = true
				if d.crashing {
					return nil
				}
				d.log.Warn("packet input closed while not crashing")
				continue
			}
			d.handlePacket(p)
		}
	}
}

func (d *Drone) handleCommand(cmd command.Command) {
	switch cmd.Kind {
	case command.KindAddSender:
		d.neighbors[cmd.NodeID] = cmd.Sender
	case command.KindRemoveSender:
		delete(d.neighbors, cmd.NodeID)
	case command.KindSetPacketDropRate:
		d.pdr = cmd.Rate
	case command.KindCrash:
		d.crashing = true
	default:
		d.log.Warn("unknown command kind", "kind", cmd.Kind)
	}
}

func (d *Drone) handlePacket(p packet.Packet) {
	if d.crashing {
		d.handleCrashingPacket(p)
		return
	}
	d.handleLivePacket(p)
}

// handleCrashingPacket implements spec.md §4.1's crash-mode overrides:
// MsgFragment is refused outright, Ack/Nack/FloodResponse keep
// flowing normally (they carry end-to-end state the network must not
// lose), and FloodRequest is dropped silently (a crashing drone
// neither discovers nor advertises new topology).
func (d *Drone) handleCrashingPacket(p packet.Packet) {
	switch p.Kind {
	case packet.KindMsgFragment:
		d.forwardSynthesizedNack(p, packet.NackErrorInRouting, d.id)
	case packet.KindAck, packet.KindNack, packet.KindFloodResponse:
		d.handleLivePacket(p)
	case packet.KindFloodRequest:
		// Dropped silently.
	}
}

func (d *Drone) handleLivePacket(p packet.Packet) {
	result := validate.Validate(d.id, d.neighbors, d.pdr, d.rng, p)

	switch result.Action {
	case validate.ActionFloodDrop:
		// No sender address exists along hops for broadcast traffic;
		// dropped silently per spec.md §4.3.
	case validate.ActionFloodOK:
		d.handleFloodRequest(p)
	case validate.ActionFault:
		d.handleFault(p, result.NackKind, result.OffendingNode)
	case validate.ActionDropped:
		d.emit(event.PacketDropped(p))
		d.handleFault(p, packet.NackDropped, 0)
	case validate.ActionForward:
		d.forwardPacket(p)
	}
}

// handleFault implements spec.md §4.3: a MsgFragment fault becomes an
// in-band Nack; a FloodRequest fault is dropped silently, matching the
// silent drop already applied to FloodRequest elsewhere in the loop,
// since flood requests never generate a fault signal of their own;
// Ack/Nack/FloodResponse faults escape out-of-band via a
// ControllerShortcut instead, since synthesizing a Nack for them could
// cascade.
func (d *Drone) handleFault(p packet.Packet, kind packet.NackKind, node packet.NodeId) {
	switch p.Kind {
	case packet.KindMsgFragment:
		d.forwardSynthesizedNack(p, kind, node)
	case packet.KindFloodRequest:
		// Dropped silently.
	default:
		d.emit(event.ControllerShortcut(p))
	}
}

func (d *Drone) forwardSynthesizedNack(original packet.Packet, kind packet.NackKind, node packet.NodeId) {
	d.forwardPacket(nack.ForFragment(original, kind, node, d.id))
}

func (d *Drone) handleFloodRequest(p packet.Packet) {
	for _, out := range d.flood.Handle(d.id, d.neighbors, p) {
		d.forwardPacket(out)
	}
}

// forwardPacket runs the forwarder (spec.md §4.4). On success it
// reports PacketSent; on failure it removes the stale neighbor (done
// inside forward.Forward) and re-enters the fault path with
// ErrorInRouting against the *original* p, since the forwarder only
// mutated its own clone.
func (d *Drone) forwardPacket(p packet.Packet) {
	sent, err := forward.Forward(neighborView{d}, p)
	if err != nil {
		var ferr *forward.Error
		if errors.As(err, &ferr) {
			d.handleFault(p, packet.NackErrorInRouting, ferr.Node)
		}
		return
	}
	d.emit(event.PacketSent(sent))
}

// emit reports e to the controller. The send is non-blocking, like
// every other outbound send in the loop (spec.md §5): the controller's
// event channel is expected to be drained continuously, and a full
// buffer must never stall packet processing or starve command
// priority.
func (d *Drone) emit(e event.Event) {
	if d.eventOut == nil {
		return
	}
	select {
	case d.eventOut <- e:
	default:
		d.log.Warn("dropped event: controller event channel full", "kind", e.Kind)
	}
}

// neighborView adapts Drone's neighbor map to forward.Neighbors.
type neighborView struct{ d *Drone }

func (v neighborView) Get(id packet.NodeId) (chan<- packet.Packet, bool) {
	ch, ok := v.d.neighbors[id]
	return ch, ok
}

func (v neighborView) Remove(id packet.NodeId) {
	delete(v.d.neighbors, id)
}
