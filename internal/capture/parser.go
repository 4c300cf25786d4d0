// Package capture turns raw wire bytes into flow.Packet values using
// gopacket, and drives live interface capture for the probe binary.
package capture

import (
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"flowexporter/internal/flow"
)

// ParsePacket decodes a raw Ethernet frame and extracts the IPv4 5-tuple
// plus total length needed to drive flow.Table.Observe. Packets whose
// Layer-3 protocol is not IPv4, and those without a TCP or UDP header
// (for protocols that carry ports), fail with a ParseError-class error
// (spec §7): the caller counts this and drops the packet.
func ParsePacket(data []byte, captureTime time.Time) (*flow.Packet, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)

	ipLayer := packet.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return nil, fmt.Errorf("capture: %w: not an IPv4 packet", ErrParse)
	}
	ip4 := ipLayer.(*layers.IPv4)

	ts := captureTime
	if meta := packet.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		ts = meta.Timestamp
	}

	info := &flow.Packet{
		SrcIP:       []byte(ip4.SrcIP.To4()),
		DstIP:       []byte(ip4.DstIP.To4()),
		Protocol:    uint8(ip4.Protocol),
		TotalLength: int(ip4.Length),
		Timestamp:   ts,
	}

	switch info.Protocol {
	case flow.TCPProtocol:
		tcpLayer := packet.Layer(layers.LayerTypeTCP)
		if tcpLayer == nil {
			return nil, fmt.Errorf("capture: %w: protocol is TCP but no TCP header decoded", ErrParse)
		}
		tcp := tcpLayer.(*layers.TCP)
		info.SrcPort = uint16(tcp.SrcPort)
		info.DstPort = uint16(tcp.DstPort)
	case flow.UDPProtocol:
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			return nil, fmt.Errorf("capture: %w: protocol is UDP but no UDP header decoded", ErrParse)
		}
		udp := udpLayer.(*layers.UDP)
		info.SrcPort = uint16(udp.SrcPort)
		info.DstPort = uint16(udp.DstPort)
	}

	return info, nil
}
