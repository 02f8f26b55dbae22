package transcript

import (
	"encoding/json"
	"testing"

	"github.com/dronemesh/corerouter/event"
	"github.com/dronemesh/corerouter/packet"
)

type fakeSink struct {
	records []Record
	err     error
}

func (f *fakeSink) Record(r Record) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, r)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func TestMirror_FansOutToEverySink(t *testing.T) {
	eventsIn := make(chan event.Event, 2)
	a, b := &fakeSink{}, &fakeSink{}

	p := packet.Packet{Kind: packet.KindMsgFragment}
	eventsIn <- event.PacketSent(p)
	eventsIn <- event.PacketDropped(p)
	close(eventsIn)

	Mirror(7, eventsIn, nil, a, b)

	for _, sink := range []*fakeSink{a, b} {
		if len(sink.records) != 2 {
			t.Fatalf("sink recorded %d events, want 2", len(sink.records))
		}
		if sink.records[0].DroneID != 7 {
			t.Errorf("DroneID = %d, want 7", sink.records[0].DroneID)
		}
		if sink.records[0].Kind != event.KindPacketSent.String() {
			t.Errorf("Kind = %q, want %q", sink.records[0].Kind, event.KindPacketSent.String())
		}
	}
}

func TestMirror_ContinuesPastSinkErrors(t *testing.T) {
	eventsIn := make(chan event.Event, 1)
	failing := &fakeSink{err: errTestSink}
	ok := &fakeSink{}

	eventsIn <- event.PacketSent(packet.Packet{})
	close(eventsIn)

	Mirror(1, eventsIn, nil, failing, ok)

	if len(ok.records) != 1 {
		t.Fatalf("second sink recorded %d events, want 1 despite the first sink failing", len(ok.records))
	}
}

func TestEncode_RoundTripsAsJSON(t *testing.T) {
	record := Record{
		DroneID: 3,
		Kind:    "PacketSent",
		Packet: packet.Packet{
			Kind:          packet.KindMsgFragment,
			RoutingHeader: packet.SourceRoutingHeader{Hops: []packet.NodeId{1, 2, 3}, HopIndex: 1},
		},
	}

	line, err := encode(record)
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}
	if line[len(line)-1] != '\n' {
		t.Fatal("encode() did not terminate the line with a newline")
	}

	var decoded Record
	if err := json.Unmarshal(line[:len(line)-1], &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if decoded.DroneID != record.DroneID || decoded.Kind != record.Kind {
		t.Errorf("decoded = %+v, want %+v", decoded, record)
	}
}

var errTestSink = &sinkError{"sink unavailable"}

type sinkError struct{ msg string }

func (e *sinkError) Error() string { return e.msg }
