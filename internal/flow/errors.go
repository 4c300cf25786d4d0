package flow

import "errors"

// ErrTableFull is returned by Observe when a shard has reached its
// configured capacity and cannot admit a new flow. The Table counts the
// packet against its "untracked" stat (see Stats) before returning this;
// the caller (cmd/flowexporterd) logs and drops the packet.
var ErrTableFull = errors.New("flow: table full")

// keyIndexMismatch is the Fatal error class from spec §7: the arena slot
// recorded for a key no longer holds a record with that key. This is a
// programming-error class, not a runtime condition, so callers panic
// rather than propagate it.
type keyIndexMismatch struct {
	key Key
	idx uint32
}

func (e *keyIndexMismatch) Error() string {
	return "flow: arena index does not point back to the key that produced it"
}
