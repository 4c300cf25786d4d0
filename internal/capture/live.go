package capture

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"flowexporter/internal/flow"
)

const (
	snapshotLen int32 = 1600
	promiscuous       = true
)

// Handler is called for every successfully parsed packet observed on an
// interface.
type Handler func(ifaceIndex int, info *flow.Packet)

// LiveCapture opens interfaceName for live capture and feeds parsed
// packets to handler until ctx is canceled. ifaceIndex identifies the
// ingress interface to the caller (see internal/trace); it is assigned
// by the caller, not derived from the OS.
func LiveCapture(ctx context.Context, interfaceName string, ifaceIndex int, handler Handler, parseErrors *atomic.Uint64) error {
	handle, err := pcap.OpenLive(interfaceName, snapshotLen, promiscuous, pcap.BlockForever)
	if err != nil {
		return err
	}
	defer handle.Close()

	go func() {
		<-ctx.Done()
		handle.Close()
	}()

	log.Printf("capture: listening on %s (iface index %d)", interfaceName, ifaceIndex)
	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	for packet := range packetSource.Packets() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		info, err := ParsePacket(packet.Data(), time.Now())
		if err != nil {
			if parseErrors != nil {
				parseErrors.Add(1)
			}
			continue
		}
		handler(ifaceIndex, info)
	}
	return nil
}
