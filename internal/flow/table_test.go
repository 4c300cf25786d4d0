package flow

import (
	"net"
	"testing"
	"time"
)

func udpPacket(src, dst string, srcPort, dstPort uint16, length int, ts time.Time) *Packet {
	return &Packet{
		SrcIP:       net.ParseIP(src).To4(),
		DstIP:       net.ParseIP(dst).To4(),
		Protocol:    UDPProtocol,
		SrcPort:     srcPort,
		DstPort:     dstPort,
		TotalLength: length,
		Timestamp:   ts,
	}
}

func atMs(ms int64) time.Time {
	return time.Unix(0, ms*int64(time.Millisecond)).UTC()
}

// S1: idle evict.
func TestScanExpired_IdleEvict(t *testing.T) {
	table := NewTable(WithTimeouts(1000, 10000))
	table.Observe(udpPacket("10.0.0.1", "10.0.0.2", 1000, 2000, 40, atMs(0)))

	snaps := table.ScanExpired(1500)
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	s := snaps[0]
	if s.PacketDeltaCount != 1 || s.OctetDeltaCount != 40 || s.FlowStartMs != 0 || s.FlowEndMs != 0 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	if got := table.Stats().LiveFlows; got != 0 {
		t.Fatalf("expected record evicted, got %d live flows", got)
	}
}

// S2: active reset.
func TestScanExpired_ActiveReset(t *testing.T) {
	table := NewTable(WithTimeouts(10000, 1000))
	key := udpPacket("10.0.0.1", "10.0.0.2", 1000, 2000, 100, atMs(0)).clone()
	for i := int64(0); i < 1200; i += 200 {
		table.Observe(key.at(i, 100))
	}

	snaps := table.ScanExpired(1200)
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	s := snaps[0]
	if s.PacketDeltaCount != 6 || s.OctetDeltaCount != 600 || s.FlowStartMs != 0 || s.FlowEndMs != 1000 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}

	live := table.DeepCopyLive()
	if len(live) != 1 {
		t.Fatalf("expected 1 live flow after reset, got %d", len(live))
	}
	if live[0].PacketDeltaCount != 0 || live[0].OctetDeltaCount != 0 || live[0].FlowStartMs != 1200 || live[0].FlowEndMs != 1200 {
		t.Fatalf("unexpected reset record: %+v", live[0])
	}
}

// S3: both fire, IDLE wins.
func TestScanExpired_IdleWinsTie(t *testing.T) {
	table := NewTable(WithTimeouts(500, 1000))
	table.Observe(udpPacket("10.0.0.1", "10.0.0.2", 1000, 2000, 40, atMs(0)))

	snaps := table.ScanExpired(2000)
	if len(snaps) != 1 || snaps[0].FlowEndMs != 0 {
		t.Fatalf("expected a single evict snapshot ending at 0, got %+v", snaps)
	}
	if got := table.Stats().LiveFlows; got != 0 {
		t.Fatalf("expected record gone after idle+active tie, got %d live flows", got)
	}
}

// S4: ICMP packets share a flow keyed without ports.
func TestObserve_ICMPSharesFlow(t *testing.T) {
	table := NewTable()
	p1 := &Packet{
		SrcIP: net.ParseIP("1.1.1.1").To4(), DstIP: net.ParseIP("2.2.2.2").To4(),
		Protocol: 1, TotalLength: 84, Timestamp: atMs(0),
	}
	p2 := &Packet{
		SrcIP: net.ParseIP("1.1.1.1").To4(), DstIP: net.ParseIP("2.2.2.2").To4(),
		Protocol: 1, TotalLength: 84, Timestamp: atMs(10),
	}
	if err := table.Observe(p1); err != nil {
		t.Fatal(err)
	}
	if err := table.Observe(p2); err != nil {
		t.Fatal(err)
	}
	if got := table.Stats().LiveFlows; got != 1 {
		t.Fatalf("expected both ICMP packets in one flow, got %d live flows", got)
	}
	live := table.DeepCopyLive()
	if live[0].Key.SrcPort() != 0 || live[0].Key.DstPort() != 0 {
		t.Fatalf("expected zero ports for ICMP key, got %+v", live[0].Key)
	}
	if live[0].PacketDeltaCount != 2 {
		t.Fatalf("expected packet count 2, got %d", live[0].PacketDeltaCount)
	}
}

// S6: trace isolation — a deep copy must be unaffected by further observes.
func TestDeepCopyLive_Isolation(t *testing.T) {
	table := NewTable()
	table.Observe(udpPacket("10.0.0.1", "10.0.0.2", 1000, 2000, 40, atMs(0)))

	snapshot := table.DeepCopyLive()
	if len(snapshot) != 1 || snapshot[0].PacketDeltaCount != 1 {
		t.Fatalf("unexpected initial snapshot: %+v", snapshot)
	}

	for i := 0; i < 1000; i++ {
		table.Observe(udpPacket("10.0.0.1", "10.0.0.2", 1000, 2000, 40, atMs(int64(i))))
	}

	if snapshot[0].PacketDeltaCount != 1 {
		t.Fatalf("trace snapshot mutated by later observes: %+v", snapshot[0])
	}
}

// TableFull: once a shard is saturated, further inserts into it are
// dropped and counted, without disturbing already-admitted flows.
func TestObserve_TableFull(t *testing.T) {
	table := NewTable(WithShardMaxFlows(1))
	table.shards = table.shards[:1]
	table.shardCount = 1

	if err := table.Observe(udpPacket("10.0.0.1", "10.0.0.2", 1, 2, 10, atMs(0))); err != nil {
		t.Fatalf("first insert should succeed: %v", err)
	}
	err := table.Observe(udpPacket("10.0.0.3", "10.0.0.4", 3, 4, 10, atMs(0)))
	if err != ErrTableFull {
		t.Fatalf("expected ErrTableFull, got %v", err)
	}
	if got := table.Stats(); got.LiveFlows != 1 || got.Untracked != 1 {
		t.Fatalf("unexpected stats after overflow: %+v", got)
	}
}

// helper used only by TestScanExpired_ActiveReset to vary timestamp/length
// while keeping the 5-tuple fixed.
type packetTemplate Packet

func (p *Packet) clone() *packetTemplate {
	t := packetTemplate(*p)
	return &t
}

func (pt *packetTemplate) at(ms int64, length int) *Packet {
	p := Packet(*pt)
	p.Timestamp = atMs(ms)
	p.TotalLength = length
	return &p
}
