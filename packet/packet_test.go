package packet

import "testing"

func TestSourceRoutingHeaderValidate(t *testing.T) {
	tests := []struct {
		name    string
		header  SourceRoutingHeader
		wantErr bool
	}{
		{"valid middle", SourceRoutingHeader{Hops: []NodeId{1, 2, 3}, HopIndex: 1}, false},
		{"valid first", SourceRoutingHeader{Hops: []NodeId{1, 2, 3}, HopIndex: 0}, false},
		{"valid last", SourceRoutingHeader{Hops: []NodeId{1, 2, 3}, HopIndex: 2}, false},
		{"negative index", SourceRoutingHeader{Hops: []NodeId{1, 2, 3}, HopIndex: -1}, true},
		{"index past end", SourceRoutingHeader{Hops: []NodeId{1, 2, 3}, HopIndex: 3}, true},
		{"empty hops", SourceRoutingHeader{Hops: nil, HopIndex: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.header.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCurrentHop(t *testing.T) {
	h := SourceRoutingHeader{Hops: []NodeId{1, 2, 3}, HopIndex: 1}
	id, ok := h.CurrentHop()
	if !ok || id != 2 {
		t.Fatalf("CurrentHop() = %v, %v, want 2, true", id, ok)
	}

	h2 := SourceRoutingHeader{Hops: []NodeId{1, 2, 3}, HopIndex: 5}
	if _, ok := h2.CurrentHop(); ok {
		t.Fatal("CurrentHop() should fail for out-of-range index")
	}
}

func TestAtDestination(t *testing.T) {
	h := SourceRoutingHeader{Hops: []NodeId{1, 2}, HopIndex: 1}
	if !h.AtDestination() {
		t.Error("AtDestination() = false, want true")
	}
	h2 := SourceRoutingHeader{Hops: []NodeId{1, 2, 3}, HopIndex: 0}
	if h2.AtDestination() {
		t.Error("AtDestination() = true, want false")
	}
}

func TestNextHop(t *testing.T) {
	h := SourceRoutingHeader{Hops: []NodeId{1, 2, 3}, HopIndex: 0}
	id, ok := h.NextHop()
	if !ok || id != 2 {
		t.Fatalf("NextHop() = %v, %v, want 2, true", id, ok)
	}

	h2 := SourceRoutingHeader{Hops: []NodeId{1, 2, 3}, HopIndex: 2}
	if _, ok := h2.NextHop(); ok {
		t.Fatal("NextHop() should fail at the last hop")
	}
}

func TestReversedHeader(t *testing.T) {
	// Scenario 4 from spec.md §8: hops=[1,2,3], hop_index=1, self=2
	// (self already matches the current hop) -> reversed [2,1], index 0.
	h := SourceRoutingHeader{Hops: []NodeId{1, 2, 3}, HopIndex: 1}
	r := ReversedHeader(h, 2)

	want := []NodeId{2, 1}
	if len(r.Hops) != len(want) {
		t.Fatalf("ReversedHeader().Hops = %v, want %v", r.Hops, want)
	}
	for i := range want {
		if r.Hops[i] != want[i] {
			t.Fatalf("ReversedHeader().Hops = %v, want %v", r.Hops, want)
		}
	}
	if r.HopIndex != 0 {
		t.Errorf("ReversedHeader().HopIndex = %d, want 0", r.HopIndex)
	}

	// Mutating the original must not affect the reversed copy.
	h.Hops[0] = 99
	if r.Hops[1] != 1 {
		t.Error("ReversedHeader() aliased the original Hops slice")
	}
}

func TestReversedHeader_UnexpectedRecipient(t *testing.T) {
	// Scenario 2 from spec.md §8: hops=[1,9,3], hop_index=1, but this
	// drone is 2, not the 9 sitting at the current hop -> reversed
	// [2,1], index 0. self, not hops[hop_index], anchors the route.
	h := SourceRoutingHeader{Hops: []NodeId{1, 9, 3}, HopIndex: 1}
	r := ReversedHeader(h, 2)

	want := []NodeId{2, 1}
	if len(r.Hops) != len(want) || r.Hops[0] != want[0] || r.Hops[1] != want[1] {
		t.Fatalf("ReversedHeader().Hops = %v, want %v", r.Hops, want)
	}
	if r.HopIndex != 0 {
		t.Errorf("ReversedHeader().HopIndex = %d, want 0", r.HopIndex)
	}
}

func TestPacketClone(t *testing.T) {
	p := Packet{
		RoutingHeader: SourceRoutingHeader{Hops: []NodeId{1, 2, 3}, HopIndex: 1},
		PathTrace:     []PathTraceEntry{{Node: 1, Type: NodeTypeDrone}},
	}
	clone := p.Clone()

	clone.RoutingHeader.Hops[0] = 42
	clone.PathTrace[0].Node = 42

	if p.RoutingHeader.Hops[0] == 42 {
		t.Error("Clone() aliased RoutingHeader.Hops")
	}
	if p.PathTrace[0].Node == 42 {
		t.Error("Clone() aliased PathTrace")
	}
}

func TestPacketCloneNilSlices(t *testing.T) {
	p := Packet{RoutingHeader: SourceRoutingHeader{Hops: nil}, PathTrace: nil}
	clone := p.Clone()
	if clone.RoutingHeader.Hops != nil {
		t.Error("Clone() should preserve a nil Hops slice")
	}
	if clone.PathTrace != nil {
		t.Error("Clone() should preserve a nil PathTrace slice")
	}
}
