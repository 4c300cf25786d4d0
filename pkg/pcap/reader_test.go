package pcap

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"flowexporter/internal/flow"
)

// writeTestPcap serializes a single TCP/IPv4 packet into a fresh pcap
// file, grounded on scripts/pcapgen/main.go's layer construction, so the
// test fixture is generated in-process instead of checked in as a binary.
func writeTestPcap(t *testing.T, path string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating pcap file: %v", err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("writing pcap header: %v", err)
	}

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		SrcIP:    net.IPv4(192, 168, 1, 10),
		DstIP:    net.IPv4(192, 168, 1, 20),
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
	}
	tcp := &layers.TCP{
		SrcPort: 51234,
		DstPort: 443,
		Seq:     1,
		SYN:     true,
		Window:  14600,
	}
	tcp.SetNetworkLayerForChecksum(ip)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp); err != nil {
		t.Fatalf("serializing layers: %v", err)
	}

	ci := gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(buf.Bytes()),
		Length:        len(buf.Bytes()),
	}
	if err := w.WritePacket(ci, buf.Bytes()); err != nil {
		t.Fatalf("writing packet: %v", err)
	}
}

func TestReader_ReadPackets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pcap")
	writeTestPcap(t, path)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("failed to create reader: %v", err)
	}
	defer reader.Close()

	out := make(chan *flow.Packet)
	go reader.ReadPackets(out)

	count := 0
	var last *flow.Packet
	for pkt := range out {
		count++
		last = pkt
	}

	if count != 1 {
		t.Fatalf("expected to read 1 packet, got %d", count)
	}
	if last.Protocol != flow.TCPProtocol {
		t.Errorf("expected TCP protocol, got %d", last.Protocol)
	}
	if net.IP(last.SrcIP).String() != "192.168.1.10" {
		t.Errorf("expected src ip 192.168.1.10, got %s", net.IP(last.SrcIP).String())
	}
	if last.DstPort != 443 {
		t.Errorf("expected dst port 443, got %d", last.DstPort)
	}
}
