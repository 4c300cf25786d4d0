package flow

import "time"

// Packet is the pre-parsed IPv4 packet handed to Observe by whatever
// collaborator owns the capture path (see internal/capture). It carries
// just enough information to build a Key and update a Record.
type Packet struct {
	SrcIP       []byte
	DstIP       []byte
	Protocol    uint8
	SrcPort     uint16
	DstPort     uint16
	TotalLength int
	Timestamp   time.Time
}

// Record is the per-flow accumulator. Counters are kept in host byte
// order; the encoder is the only place that converts to network order
// (see SPEC_FULL.md's byte-order design note resolution).
type Record struct {
	Key              Key
	FlowStartMs      int64
	FlowEndMs        int64
	PacketDeltaCount uint64
	OctetDeltaCount  uint64
}

// Snapshot is an immutable, independently-owned copy of a Record taken at
// expiry or trace time. It never aliases the live table's memory.
type Snapshot struct {
	Key              Key
	FlowStartMs      int64
	FlowEndMs        int64
	PacketDeltaCount uint64
	OctetDeltaCount  uint64
}

// snapshot copies the current values of r into an independent Snapshot.
func (r *Record) snapshot() Snapshot {
	return Snapshot{
		Key:              r.Key,
		FlowStartMs:      r.FlowStartMs,
		FlowEndMs:        r.FlowEndMs,
		PacketDeltaCount: r.PacketDeltaCount,
		OctetDeltaCount:  r.OctetDeltaCount,
	}
}

func epochMs(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}
