package expiry

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"flowexporter/internal/flow"
	"flowexporter/internal/ipfix"
)

type fakeEgress struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
}

func (f *fakeEgress) Send(_ context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("boom")
	}
	cp := append([]byte(nil), payload...)
	f.payloads = append(f.payloads, cp)
	return nil
}

func (f *fakeEgress) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func TestScheduler_EmitsOnTick(t *testing.T) {
	table := flow.NewTable(flow.WithTimeouts(10, 100000))
	table.Observe(&flow.Packet{
		SrcIP: net.ParseIP("10.0.0.1").To4(), DstIP: net.ParseIP("10.0.0.2").To4(),
		Protocol: flow.UDPProtocol, SrcPort: 1000, DstPort: 2000,
		TotalLength: 40, Timestamp: time.Now().Add(-time.Second),
	})

	tmpl, _ := ipfix.BuildDefault()
	egress := &fakeEgress{}
	sched := New(table, tmpl, egress, nil, 0, 20*time.Millisecond, 0)
	sched.Start()
	defer sched.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for egress.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if egress.count() == 0 {
		t.Fatal("expected at least one emitted message")
	}
}

func TestScheduler_StopFlushesRemaining(t *testing.T) {
	table := flow.NewTable(flow.WithTimeouts(1_000_000, 1_000_000))
	table.Observe(&flow.Packet{
		SrcIP: net.ParseIP("10.0.0.1").To4(), DstIP: net.ParseIP("10.0.0.2").To4(),
		Protocol: flow.UDPProtocol, SrcPort: 1, DstPort: 2,
		TotalLength: 10, Timestamp: time.Now(),
	})

	tmpl, _ := ipfix.BuildDefault()
	egress := &fakeEgress{}
	sched := New(table, tmpl, egress, nil, 0, time.Hour, 0)
	sched.Start()
	sched.Stop()

	if egress.count() != 1 {
		t.Fatalf("expected shutdown to flush the one live flow, got %d messages", egress.count())
	}
	if got := table.Stats().LiveFlows; got != 0 {
		t.Fatalf("expected table empty after shutdown scan, got %d live flows", got)
	}
}

func TestScheduler_EgressFailureIsDroppedNotRetried(t *testing.T) {
	table := flow.NewTable(flow.WithTimeouts(1, 1_000_000))
	table.Observe(&flow.Packet{
		SrcIP: net.ParseIP("10.0.0.1").To4(), DstIP: net.ParseIP("10.0.0.2").To4(),
		Protocol: flow.UDPProtocol, SrcPort: 1, DstPort: 2,
		TotalLength: 10, Timestamp: time.Now().Add(-time.Second),
	})

	tmpl, _ := ipfix.BuildDefault()
	egress := &fakeEgress{fail: true}
	sched := New(table, tmpl, egress, nil, 0, 20*time.Millisecond, 0)
	sched.Start()
	time.Sleep(100 * time.Millisecond)
	sched.Stop()

	stats := sched.Stats()
	if stats.EgressErrs != 1 || stats.Dropped != 1 {
		t.Fatalf("expected exactly one egress error and one dropped record (no retry), got stats=%+v", stats)
	}
	if egress.count() != 0 {
		t.Fatalf("expected no successful sends, got %d", egress.count())
	}
}
