// Package flow implements the flow table: the keyed store and per-flow
// accumulator that sits on the packet hot path.
package flow

import (
	"encoding/binary"
	"net"
)

// TCPProtocol and UDPProtocol are the only IP protocol numbers for which
// ports are extracted into a FlowKey; every other protocol gets SrcPort
// and DstPort of zero.
const (
	TCPProtocol uint8 = 6
	UDPProtocol uint8 = 17
)

// KeySize is the fixed, zero-padded size of a Key, chosen so the struct is
// comparable and usable directly as a Go map key.
const KeySize = 48

// Key is the 5-tuple flow key described in spec §3: source and destination
// IPv4 address, protocol, and (for TCP/UDP only) source and destination
// port. The remaining bytes are zero-filled padding and are part of key
// equality, matching the 48-byte bihash key the original dataplane used.
type Key [KeySize]byte

// NewKey builds a Key from a parsed IPv4 5-tuple. Addresses are stored in
// the 4-byte form; ports are zero for protocols other than TCP/UDP.
func NewKey(srcIP, dstIP net.IP, protocol uint8, srcPort, dstPort uint16) Key {
	var k Key
	src4 := srcIP.To4()
	dst4 := dstIP.To4()
	copy(k[0:4], src4)
	copy(k[4:8], dst4)
	k[8] = protocol
	if protocol == TCPProtocol || protocol == UDPProtocol {
		binary.BigEndian.PutUint16(k[9:11], srcPort)
		binary.BigEndian.PutUint16(k[11:13], dstPort)
	}
	// k[13:48] stays zero: padding, included in equality by design.
	return k
}

// SrcIP returns the source address encoded in the key.
func (k Key) SrcIP() net.IP { return net.IP(append([]byte(nil), k[0:4]...)) }

// DstIP returns the destination address encoded in the key.
func (k Key) DstIP() net.IP { return net.IP(append([]byte(nil), k[4:8]...)) }

// Protocol returns the IP protocol number encoded in the key.
func (k Key) Protocol() uint8 { return k[8] }

// SrcPort returns the source port encoded in the key, or 0 if the
// protocol carries no ports.
func (k Key) SrcPort() uint16 { return binary.BigEndian.Uint16(k[9:11]) }

// DstPort returns the destination port encoded in the key, or 0 if the
// protocol carries no ports.
func (k Key) DstPort() uint16 { return binary.BigEndian.Uint16(k[11:13]) }
