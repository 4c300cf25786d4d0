package ipfix

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"flowexporter/internal/flow"
)

// S5: encoder round-trip.
func TestMarshal_RoundTrip(t *testing.T) {
	tmpl, err := BuildDefault()
	if err != nil {
		t.Fatalf("BuildDefault: %v", err)
	}

	key := flow.NewKey(net.ParseIP("192.0.2.1"), net.ParseIP("198.51.100.1"), flow.UDPProtocol, 1000, 2000)
	rec := flow.Snapshot{
		Key:              key,
		FlowStartMs:      1000,
		FlowEndMs:        2000,
		PacketDeltaCount: 5,
		OctetDeltaCount:  500,
	}

	now := time.Unix(1_700_000_000, 0)
	buf, err := Marshal(tmpl, []flow.Snapshot{rec}, 1, 0, now)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	if got := binary.BigEndian.Uint16(buf[0:2]); got != 10 {
		t.Fatalf("expected version 0x000a at offset 0, got %#04x", got)
	}
	if buf[0] != 0x00 || buf[1] != 0x0a {
		t.Fatalf("expected version bytes 0x00 0x0a, got %#02x %#02x", buf[0], buf[1])
	}

	length := binary.BigEndian.Uint16(buf[2:4])
	if int(length) != len(buf) {
		t.Fatalf("header length %d does not match buffer size %d", length, len(buf))
	}
	if got := binary.BigEndian.Uint32(buf[4:8]); got != uint32(now.Unix()) {
		t.Fatalf("unexpected export time: %d", got)
	}
	if got := binary.BigEndian.Uint32(buf[8:12]); got != 1 {
		t.Fatalf("unexpected sequence number: %d", got)
	}

	setID := binary.BigEndian.Uint16(buf[16:18])
	if setID != DefaultSetID {
		t.Fatalf("unexpected set id: %d", setID)
	}
	wantSetLength := setHeaderSize + tmpl.Sets[0].dataLength()
	if int(binary.BigEndian.Uint16(buf[18:20])) != wantSetLength {
		t.Fatalf("unexpected set length: %d, want %d", binary.BigEndian.Uint16(buf[18:20]), wantSetLength)
	}

	// Decode the fields back out in template order and compare.
	offset := 20
	gotSrcIP := net.IP(buf[offset : offset+4])
	offset += 4
	gotDstIP := net.IP(buf[offset : offset+4])
	offset += 4
	gotProto := buf[offset]
	offset++
	gotSrcPort := binary.BigEndian.Uint16(buf[offset : offset+2])
	offset += 2
	gotDstPort := binary.BigEndian.Uint16(buf[offset : offset+2])
	offset += 2
	gotStart := binary.BigEndian.Uint64(buf[offset : offset+8])
	offset += 8
	gotEnd := binary.BigEndian.Uint64(buf[offset : offset+8])
	offset += 8
	gotOctets := binary.BigEndian.Uint64(buf[offset : offset+8])
	offset += 8
	gotPackets := binary.BigEndian.Uint64(buf[offset : offset+8])
	offset += 8

	if !gotSrcIP.Equal(net.ParseIP("192.0.2.1")) {
		t.Fatalf("unexpected src ip: %v", gotSrcIP)
	}
	if !gotDstIP.Equal(net.ParseIP("198.51.100.1")) {
		t.Fatalf("unexpected dst ip: %v", gotDstIP)
	}
	if gotProto != flow.UDPProtocol {
		t.Fatalf("unexpected protocol: %d", gotProto)
	}
	if gotSrcPort != 1000 || gotDstPort != 2000 {
		t.Fatalf("unexpected ports: %d -> %d", gotSrcPort, gotDstPort)
	}
	if gotStart != 1000 || gotEnd != 2000 {
		t.Fatalf("unexpected timestamps: %d -> %d", gotStart, gotEnd)
	}
	if gotOctets != 500 || gotPackets != 5 {
		t.Fatalf("unexpected counters: packets=%d octets=%d", gotPackets, gotOctets)
	}
	if offset != len(buf) {
		t.Fatalf("decoded %d bytes, buffer is %d bytes", offset, len(buf))
	}
}

func TestBuild_RejectsUnknownIdentifier(t *testing.T) {
	_, err := Build(DefaultSetID, []FieldDef{{Identifier: "bogusField", SizeBytes: 4}})
	if err == nil {
		t.Fatal("expected an error for an unknown identifier")
	}
}

func TestBuild_RejectsSizeMismatch(t *testing.T) {
	_, err := Build(DefaultSetID, []FieldDef{{Identifier: "sourceIPv4Address", SizeBytes: 8}})
	if err == nil {
		t.Fatal("expected an error for a canonical size mismatch")
	}
}

func TestSplitBatches(t *testing.T) {
	tmpl, _ := BuildDefault()
	recs := make([]flow.Snapshot, 10)
	batches := SplitBatches(tmpl, recs, 60) // forces multiple small batches
	total := 0
	for _, b := range batches {
		total += len(b)
		if messageLength(tmpl.Sets[0], len(b)) > 60 {
			t.Fatalf("batch of %d records exceeds max message size", len(b))
		}
	}
	if total != 10 {
		t.Fatalf("expected all 10 records to be batched, got %d", total)
	}
}
