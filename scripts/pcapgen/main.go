// Command pcapgen writes a pcap file of a bounded set of TCP/UDP flows
// repeated across many packets, for feeding flowprobe or pkg/pcap.Reader
// in local testing without a live interface. Unlike a purely random
// per-packet 5-tuple, packets are drawn from a small flow pool so a
// replay actually exercises flow.Table's per-key counter accumulation
// instead of creating one flow per packet.
package main

import (
	"flag"
	"log"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"flowexporter/internal/flow"
)

type flowTuple struct {
	srcIP    net.IP
	dstIP    net.IP
	srcPort  layers.TCPPort
	dstPort  layers.TCPPort
	protocol uint8
}

func main() {
	outputFile := flag.String("o", "test.pcap", "Output pcap file path")
	packetCount := flag.Int("c", 1000, "Number of packets to generate")
	flowCount := flag.Int("flows", 20, "Number of distinct 5-tuples to draw packets from")
	udpFraction := flag.Float64("udp-fraction", 0.3, "Fraction of flows that are UDP rather than TCP")
	flag.Parse()

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	pcapWriter := pcapgo.NewWriter(f)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		log.Fatalf("Failed to write pcap header: %v", err)
	}

	rand.Seed(time.Now().UnixNano())

	flows := make([]flowTuple, *flowCount)
	for i := range flows {
		protocol := uint8(flow.TCPProtocol)
		if rand.Float64() < *udpFraction {
			protocol = flow.UDPProtocol
		}
		flows[i] = flowTuple{
			srcIP:    net.IP{byte(rand.Intn(256)), byte(rand.Intn(256)), byte(rand.Intn(256)), byte(rand.Intn(256))},
			dstIP:    net.IP{byte(rand.Intn(256)), byte(rand.Intn(256)), byte(rand.Intn(256)), byte(rand.Intn(256))},
			srcPort:  layers.TCPPort(rand.Intn(65535-1024) + 1024),
			dstPort:  layers.TCPPort(rand.Intn(65535-1024) + 1024),
			protocol: protocol,
		}
	}

	log.Printf("Generating %d packets across %d flows into %s...", *packetCount, *flowCount, *outputFile)

	for i := 0; i < *packetCount; i++ {
		if (i+1)%100000 == 0 {
			log.Printf("Generated %d packets...", i+1)
		}

		ft := flows[rand.Intn(len(flows))]
		payloadSize := rand.Intn(1400) + 50

		ethLayer := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
			DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ipLayer := &layers.IPv4{
			SrcIP:    ft.srcIP,
			DstIP:    ft.dstIP,
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocol(ft.protocol),
		}

		payload := make([]byte, payloadSize)
		rand.Read(payload)

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}

		var err error
		if ft.protocol == flow.UDPProtocol {
			udpLayer := &layers.UDP{SrcPort: layers.UDPPort(ft.srcPort), DstPort: layers.UDPPort(ft.dstPort)}
			udpLayer.SetNetworkLayerForChecksum(ipLayer)
			err = gopacket.SerializeLayers(buf, opts, ethLayer, ipLayer, udpLayer, gopacket.Payload(payload))
		} else {
			tcpLayer := &layers.TCP{
				SrcPort: ft.srcPort,
				DstPort: ft.dstPort,
				Seq:     rand.Uint32(),
				Ack:     rand.Uint32(),
				SYN:     true,
				Window:  14600,
			}
			tcpLayer.SetNetworkLayerForChecksum(ipLayer)
			err = gopacket.SerializeLayers(buf, opts, ethLayer, ipLayer, tcpLayer, gopacket.Payload(payload))
		}
		if err != nil {
			log.Fatalf("Failed to serialize layers: %v", err)
		}

		ci := gopacket.CaptureInfo{
			Timestamp:     time.Now(),
			CaptureLength: len(buf.Bytes()),
			Length:        len(buf.Bytes()),
		}
		if err := pcapWriter.WritePacket(ci, buf.Bytes()); err != nil {
			log.Fatalf("Failed to write packet: %v", err)
		}
	}

	log.Printf("Successfully generated %d packets into %s.", *packetCount, *outputFile)
}
