// Package transport carries parsed packets between a capture-only
// process (cmd/flowprobe) and the exporter core (cmd/flowexporterd) over
// NATS, standing in for the "host packet-forwarding graph" spec.md marks
// out of scope. Envelopes are framed by hand with
// google.golang.org/protobuf/encoding/protowire: the same low-level wire
// encoding the protobuf runtime itself is built on, used directly rather
// than through generated message types (see DESIGN.md for why no .pb.go
// codegen is produced in this exercise).
package transport

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"flowexporter/internal/flow"
)

// Field numbers for the wire envelope. Stable across versions; never
// renumber a field once anything depends on it.
const (
	fieldIngressInterface = 1
	fieldCaptureTimeNanos = 2
	fieldSrcIP            = 3
	fieldDstIP            = 4
	fieldProtocol         = 5
	fieldSrcPort          = 6
	fieldDstPort          = 7
	fieldTotalLength      = 8
	fieldTrace            = 9
)

// Envelope is the wire message published by flowprobe and consumed by
// flowexporterd: one parsed packet plus the ingress interface it arrived
// on. Trace flags this packet for the hot-path trace capture spec §4.D
// describes; flowprobe sets it on a sampled subset of packets, and
// flowexporterd's Observe call site checks it to decide whether to take
// a trace.Snapshot.
type Envelope struct {
	IngressInterface int
	CaptureTime      time.Time
	Packet           flow.Packet
	Trace            bool
}

// Encode serializes env as a length-delimited sequence of protobuf wire
// fields.
func Encode(env *Envelope) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldIngressInterface, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.IngressInterface))

	b = protowire.AppendTag(b, fieldCaptureTimeNanos, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.CaptureTime.UnixNano()))

	b = protowire.AppendTag(b, fieldSrcIP, protowire.BytesType)
	b = protowire.AppendBytes(b, env.Packet.SrcIP)

	b = protowire.AppendTag(b, fieldDstIP, protowire.BytesType)
	b = protowire.AppendBytes(b, env.Packet.DstIP)

	b = protowire.AppendTag(b, fieldProtocol, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.Packet.Protocol))

	b = protowire.AppendTag(b, fieldSrcPort, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.Packet.SrcPort))

	b = protowire.AppendTag(b, fieldDstPort, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.Packet.DstPort))

	b = protowire.AppendTag(b, fieldTotalLength, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.Packet.TotalLength))

	b = protowire.AppendTag(b, fieldTrace, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(env.Trace))

	return b
}

// Decode parses bytes produced by Encode. Unknown fields are skipped,
// matching protobuf's forwards-compatibility rule, so flowexporterd and
// flowprobe can be upgraded independently.
func Decode(data []byte) (*Envelope, error) {
	env := &Envelope{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("transport: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldIngressInterface:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("transport: %w", protowire.ParseError(n))
			}
			env.IngressInterface = int(v)
			data = data[n:]
		case fieldCaptureTimeNanos:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("transport: %w", protowire.ParseError(n))
			}
			env.CaptureTime = time.Unix(0, int64(v)).UTC()
			data = data[n:]
		case fieldSrcIP:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("transport: %w", protowire.ParseError(n))
			}
			env.Packet.SrcIP = append([]byte(nil), v...)
			data = data[n:]
		case fieldDstIP:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("transport: %w", protowire.ParseError(n))
			}
			env.Packet.DstIP = append([]byte(nil), v...)
			data = data[n:]
		case fieldProtocol:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("transport: %w", protowire.ParseError(n))
			}
			env.Packet.Protocol = uint8(v)
			data = data[n:]
		case fieldSrcPort:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("transport: %w", protowire.ParseError(n))
			}
			env.Packet.SrcPort = uint16(v)
			data = data[n:]
		case fieldDstPort:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("transport: %w", protowire.ParseError(n))
			}
			env.Packet.DstPort = uint16(v)
			data = data[n:]
		case fieldTotalLength:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("transport: %w", protowire.ParseError(n))
			}
			env.Packet.TotalLength = int(v)
			data = data[n:]
		case fieldTrace:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("transport: %w", protowire.ParseError(n))
			}
			env.Trace = protowire.DecodeBool(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("transport: %w", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	env.Packet.Timestamp = env.CaptureTime
	return env, nil
}
