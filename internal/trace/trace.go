// Package trace implements the hot-path diagnostic capture described in
// spec §4.D and §9: a per-packet snapshot that deep-copies the current
// flow table state without ever aliasing or mutating it. The original
// dataplane's equivalent (the VPP plugin's trace path, reproduced in
// original_source/ipfix/node.c) shared the live record vector by shallow
// copy; this package exists specifically to not repeat that bug.
package trace

import (
	"flowexporter/internal/flow"
)

// Snapshot is an independently-owned capture of one traced packet's
// context. Records is a deep copy: mutating the live table after a
// Snapshot is taken never changes it (spec §8's S6 property).
type Snapshot struct {
	IngressInterface int
	NextStep         string
	Records          []flow.Record
}

// Capture builds a Snapshot for a packet that arrived on ingressInterface
// and is headed to nextStep. It deep-copies every live record via
// Table.DeepCopyLive, which itself copies record values out from under
// the shard locks rather than handing back pointers into the arena.
func Capture(table *flow.Table, ingressInterface int, nextStep string) Snapshot {
	return Snapshot{
		IngressInterface: ingressInterface,
		NextStep:         nextStep,
		Records:          table.DeepCopyLive(),
	}
}
