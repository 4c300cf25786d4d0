package ipfix

import (
	"encoding/binary"
	"fmt"
	"time"

	"flowexporter/internal/flow"
)

// Version is the fixed NetFlow v10 / IPFIX version number, spec §6.
const Version uint16 = 10

const (
	headerSize    = 16 // version, length, export time, sequence number, domain id
	setHeaderSize = 4  // set id, set length
)

// DefaultMaxMessageBytes bounds a single NetFlow v10 message so it stays
// well under a typical path MTU once IP/UDP headers are added.
const DefaultMaxMessageBytes = 1400

// encodeField writes the network-order wire bytes for one field of one
// record at the start of buf, returning the number of bytes
// written. It returns an EncoderError-class error for any field
// identifier the template validated (at Build time) but that this
// encoder nonetheless doesn't know how to serialize — this should be
// unreachable given Build's validation, but keeps the encoder itself
// total rather than trusting the caller.
func encodeField(buf []byte, f FieldSpec, rec flow.Snapshot) (int, error) {
	k := rec.Key
	switch f.Identifier {
	case SourceIPv4Address:
		copy(buf[0:4], k[0:4])
		return 4, nil
	case DestinationIPv4Address:
		copy(buf[0:4], k[4:8])
		return 4, nil
	case ProtocolIdentifier:
		buf[0] = k[8]
		return 1, nil
	case SourceTransportPort:
		copy(buf[0:2], k[9:11])
		return 2, nil
	case DestinationTransportPort:
		copy(buf[0:2], k[11:13])
		return 2, nil
	case FlowStartMilliseconds:
		binary.BigEndian.PutUint64(buf[0:8], uint64(rec.FlowStartMs))
		return 8, nil
	case FlowEndMilliseconds:
		binary.BigEndian.PutUint64(buf[0:8], uint64(rec.FlowEndMs))
		return 8, nil
	case OctetDeltaCount:
		binary.BigEndian.PutUint64(buf[0:8], rec.OctetDeltaCount)
		return 8, nil
	case PacketDeltaCount:
		binary.BigEndian.PutUint64(buf[0:8], rec.PacketDeltaCount)
		return 8, nil
	default:
		return 0, fmt.Errorf("ipfix: %w: identifier %v", ErrUnknownField, f.Identifier)
	}
}

// messageLength returns the total wire size of a message carrying
// recordCount records of a single set, including the 16-byte header.
func messageLength(set TemplateSet, recordCount int) int {
	return headerSize + setHeaderSize + set.dataLength()*recordCount
}

// Marshal writes one complete NetFlow v10 message containing every given
// record against tmpl's first (and, per spec §4.C, typically only)
// TemplateSet. It is the Write function spec §4.C describes: the caller
// is responsible for pre-batching records (see SplitBatches) so the
// result fits within a UDP datagram.
func Marshal(tmpl *Template, records []flow.Snapshot, seq, domainID uint32, exportTime time.Time) ([]byte, error) {
	if len(tmpl.Sets) == 0 {
		return nil, fmt.Errorf("ipfix: template has no sets")
	}
	set := tmpl.Sets[0]

	buf := make([]byte, messageLength(set, len(records)))

	binary.BigEndian.PutUint16(buf[0:2], Version)
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(buf)))
	binary.BigEndian.PutUint32(buf[4:8], uint32(exportTime.Unix()))
	binary.BigEndian.PutUint32(buf[8:12], seq)
	binary.BigEndian.PutUint32(buf[12:16], domainID)

	setLength := setHeaderSize + set.dataLength()*len(records)
	binary.BigEndian.PutUint16(buf[16:18], set.ID)
	binary.BigEndian.PutUint16(buf[18:20], uint16(setLength))

	offset := headerSize + setHeaderSize
	for _, rec := range records {
		for _, f := range set.Fields {
			n, err := encodeField(buf[offset:offset+f.SizeBytes], f, rec)
			if err != nil {
				return nil, err
			}
			offset += n
		}
	}
	return buf, nil
}

// SplitBatches groups records into the fewest chunks that each produce a
// message no larger than maxMessageBytes, implementing the "multiple
// flows packed into a single data packet" decision in SPEC_FULL.md. A
// maxMessageBytes of 0 or less falls back to DefaultMaxMessageBytes.
func SplitBatches(tmpl *Template, records []flow.Snapshot, maxMessageBytes int) [][]flow.Snapshot {
	if maxMessageBytes <= 0 {
		maxMessageBytes = DefaultMaxMessageBytes
	}
	if len(records) == 0 || len(tmpl.Sets) == 0 {
		return nil
	}
	set := tmpl.Sets[0]
	perRecord := set.dataLength()
	maxRecords := (maxMessageBytes - headerSize - setHeaderSize) / perRecord
	if maxRecords < 1 {
		maxRecords = 1
	}

	var batches [][]flow.Snapshot
	for len(records) > 0 {
		n := maxRecords
		if n > len(records) {
			n = len(records)
		}
		batches = append(batches, records[:n])
		records = records[n:]
	}
	return batches
}
