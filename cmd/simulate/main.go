// Command simulate builds a static drone network from a topology
// file, optionally triggers a flood, runs until the run duration
// elapses or it is interrupted, and then logs each drone's sent,
// dropped and shortcut event counts. Individual events go only to the
// optional transcript sinks.
//
// The teacher repo is a library with no command entry point of its
// own; this follows the plain stdlib-flag CLI shape common across the
// rest of the retrieved pack rather than anything specific to
// MeshCore, since no third-party flag-parsing library appears
// anywhere in the examples (see DESIGN.md).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/dronemesh/corerouter/event"
	"github.com/dronemesh/corerouter/internal/clock"
	"github.com/dronemesh/corerouter/internal/stats"
	"github.com/dronemesh/corerouter/internal/topology"
	"github.com/dronemesh/corerouter/internal/transcript"
	"github.com/dronemesh/corerouter/packet"
)

func toTopologyEdges(edges []fileEdge) []topology.Edge {
	out := make([]topology.Edge, len(edges))
	for i, e := range edges {
		out[i] = topology.Edge{From: e.From, To: e.To, Capacity: e.Capacity}
	}
	return out
}

type fileEdge struct {
	From     packet.NodeId `json:"from"`
	To       packet.NodeId `json:"to"`
	Capacity int           `json:"capacity"`
}

type fileConfig struct {
	Nodes []packet.NodeId `json:"nodes"`
	Edges []fileEdge      `json:"edges"`
	PDR   float32         `json:"pdr"`
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(log); err != nil {
		log.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	var (
		topologyPath = flag.String("topology", "", "path to a topology JSON file (required)")
		duration     = flag.Duration("duration", 5*time.Second, "how long to run the simulation")
		floodFrom    = flag.Int("flood-from", -1, "if set, the node id that originates a flood at startup")
		mqttBroker   = flag.String("mqtt-broker", "", "optional MQTT broker URL for an event transcript")
		serialPort   = flag.String("serial-port", "", "optional serial port path for an event transcript")
	)
	flag.Parse()

	if *topologyPath == "" {
		return errors.New("simulate: -topology is required")
	}

	cfg, err := loadTopology(*topologyPath)
	if err != nil {
		return err
	}

	net, err := topology.Build(topology.Config{
		Nodes:         cfg.Nodes,
		Edges:         toTopologyEdges(cfg.Edges),
		PDR:           cfg.PDR,
		CommandBuffer: 8,
		EventBuffer:   64,
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("simulate: building topology: %w", err)
	}

	var sinks []transcript.Sink
	if *serialPort != "" {
		sink, err := transcript.OpenSerialSink(transcript.SerialConfig{Port: *serialPort, Logger: log})
		if err != nil {
			return err
		}
		defer sink.Close()
		sinks = append(sinks, sink)
	}
	if *mqttBroker != "" {
		sink, err := transcript.OpenMQTTSink(transcript.MQTTConfig{Broker: *mqttBroker, Logger: log})
		if err != nil {
			return err
		}
		defer sink.Close()
		sinks = append(sinks, sink)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// InitiateFlood mutates its drone's state directly rather than
	// going through a channel, so it must run before that drone's
	// event loop goroutine starts (see drone.Drone.InitiateFlood).
	if *floodFrom >= 0 {
		source := packet.NodeId(*floodFrom)
		d, ok := net.Drones[source]
		if !ok {
			return fmt.Errorf("simulate: -flood-from references unknown node %d", source)
		}
		d.InitiateFlood(clock.New().NextFloodID())
	}

	counters := make(map[packet.NodeId]*stats.Counters, len(net.Drones))
	for id, d := range net.Drones {
		counters[id] = stats.NewCounters()
		go d.Run(ctx)
		go fanOutEvents(net.EventOut[id], counters[id], sinks, id, log)
	}

	select {
	case <-ctx.Done():
	case <-time.After(*duration):
	}

	report(counters, log)
	return nil
}

// fanOutEvents mirrors eventsIn to both the stats collector and every
// transcript sink, since a channel can only be drained by one reader:
// unlike stats.Collect and transcript.Mirror run independently over
// the same channel, this reads once and fans each event out by hand.
func fanOutEvents(eventsIn <-chan event.Event, c *stats.Counters, sinks []transcript.Sink, droneID packet.NodeId, log *slog.Logger) {
	sinkCh := make(chan event.Event, cap(eventsIn))
	done := make(chan struct{})
	go func() {
		transcript.Mirror(droneID, sinkCh, log, sinks...)
		close(done)
	}()

	for e := range eventsIn {
		c.Record(e)
		sinkCh <- e
	}
	close(sinkCh)
	<-done
}

func loadTopology(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("simulate: reading topology file: %w", err)
	}
	var cfg fileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("simulate: parsing topology file: %w", err)
	}
	return cfg, nil
}

func report(counters map[packet.NodeId]*stats.Counters, log *slog.Logger) {
	ids := make([]packet.NodeId, 0, len(counters))
	for id := range counters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		snap := counters[id].Snapshot()
		log.Info("drone summary", "drone", id, "sent", snap.Sent, "dropped", snap.Dropped, "shortcut", snap.Shortcut)
	}
}
