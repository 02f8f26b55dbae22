// Package transcript mirrors the event.Event stream emitted by a set of
// drones to an out-of-band sink — MQTT or serial — for external
// visualization. Transcripts are a pure observability add-on: nothing
// in the routing core reads them back, and the simulation runs
// identically whether or not a sink is attached.
package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dronemesh/corerouter/event"
	"github.com/dronemesh/corerouter/packet"
)

// Sink receives one record per mirrored event. Implementations must
// not block the caller for long; Record is called from the same
// goroutine that drains a drone's EventOut channel.
type Sink interface {
	Record(record Record) error
	Close() error
}

// Record is the line-delimited JSON shape written to every sink. It
// flattens event.Event so a viewer doesn't need to understand the
// packet's Kind-discriminated fields to show a timeline.
type Record struct {
	DroneID packet.NodeId `json:"drone_id"`
	Kind    string        `json:"kind"`
	Packet  packet.Packet `json:"packet"`
}

func newRecord(droneID packet.NodeId, e event.Event) Record {
	return Record{DroneID: droneID, Kind: e.Kind.String(), Packet: e.Packet}
}

// Mirror fans event.Event values from eventsIn out to every attached
// sink as line-delimited JSON, until eventsIn is closed. It is meant
// to run in its own goroutine, reading the same channel the
// simulation controller would otherwise drain directly — attaching a
// transcript never changes drone behavior since sinks are downstream
// of EventOut, not upstream of it.
func Mirror(droneID packet.NodeId, eventsIn <-chan event.Event, log *slog.Logger, sinks ...Sink) {
	if log == nil {
		log = slog.Default()
	}
	log = log.WithGroup("transcript")

	for e := range eventsIn {
		record := newRecord(droneID, e)
		for _, sink := range sinks {
			if err := sink.Record(record); err != nil {
				log.Warn("failed to record event", "error", err)
			}
		}
	}
}

func encode(record Record) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("transcript: encoding record: %w", err)
	}
	return append(data, '\n'), nil
}
