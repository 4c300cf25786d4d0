// Package ipfix implements the IPFIX v10 (RFC 7011 / NetFlow v10)
// template description and wire-format data-record encoder described in
// spec §4.C.
package ipfix

import "fmt"

// FieldID is one of the closed set of information elements this exporter
// understands; spec §3 lists exactly these nine.
type FieldID int

const (
	SourceIPv4Address FieldID = iota
	DestinationIPv4Address
	ProtocolIdentifier
	SourceTransportPort
	DestinationTransportPort
	FlowStartMilliseconds
	FlowEndMilliseconds
	OctetDeltaCount
	PacketDeltaCount
)

func (f FieldID) String() string {
	switch f {
	case SourceIPv4Address:
		return "sourceIPv4Address"
	case DestinationIPv4Address:
		return "destinationIPv4Address"
	case ProtocolIdentifier:
		return "protocolIdentifier"
	case SourceTransportPort:
		return "sourceTransportPort"
	case DestinationTransportPort:
		return "destinationTransportPort"
	case FlowStartMilliseconds:
		return "flowStartMilliseconds"
	case FlowEndMilliseconds:
		return "flowEndMilliseconds"
	case OctetDeltaCount:
		return "octetDeltaCount"
	case PacketDeltaCount:
		return "packetDeltaCount"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// canonicalSize is the wire size mandated by the IPFIX IANA registry for
// each information element this exporter supports. Template construction
// rejects any FieldSpec whose declared size disagrees.
var canonicalSize = map[FieldID]int{
	SourceIPv4Address:        4,
	DestinationIPv4Address:   4,
	ProtocolIdentifier:       1,
	SourceTransportPort:      2,
	DestinationTransportPort: 2,
	FlowStartMilliseconds:    8,
	FlowEndMilliseconds:      8,
	OctetDeltaCount:          8,
	PacketDeltaCount:         8,
}

// FieldNames maps the identifier string used in configuration (spec §6's
// `template` option) to a FieldID.
var FieldNames = map[string]FieldID{
	"sourceIPv4Address":        SourceIPv4Address,
	"destinationIPv4Address":   DestinationIPv4Address,
	"protocolIdentifier":       ProtocolIdentifier,
	"sourceTransportPort":      SourceTransportPort,
	"destinationTransportPort": DestinationTransportPort,
	"flowStartMilliseconds":    FlowStartMilliseconds,
	"flowEndMilliseconds":      FlowEndMilliseconds,
	"octetDeltaCount":          OctetDeltaCount,
	"packetDeltaCount":         PacketDeltaCount,
}
