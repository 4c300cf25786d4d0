// Package pcap replays a pcap capture file through the same parser the
// live capture path uses, for offline testing of flowexporterd without a
// real interface. Grounded on the teacher's pkg/pcap.Reader, generalized
// to emit flow.Packet instead of the teacher's model.PacketInfo.
package pcap

import (
	"log"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"flowexporter/internal/capture"
	"flowexporter/internal/flow"
)

// Reader reads packets from a pcap file.
type Reader struct {
	handle *pcap.Handle
}

// NewReader creates a new pcap reader for the given file path.
func NewReader(filePath string) (*Reader, error) {
	handle, err := pcap.OpenOffline(filePath)
	if err != nil {
		return nil, err
	}
	return &Reader{handle: handle}, nil
}

// Close closes the pcap handle.
func (r *Reader) Close() {
	r.handle.Close()
}

// ReadPackets reads every packet from the pcap file, parses it with the
// same logic the live capture path uses, and sends the result to out. It
// closes out when the file is exhausted. Unparseable packets are logged
// and skipped, matching the live path's ParseError handling.
func (r *Reader) ReadPackets(out chan<- *flow.Packet) {
	defer close(out)

	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())
	for packet := range packetSource.Packets() {
		pkt, err := capture.ParsePacket(packet.Data(), packet.Metadata().Timestamp)
		if err != nil {
			log.Printf("pcap: dropping unparseable packet: %v", err)
			continue
		}
		out <- pkt
	}
}
