// Package egress implements the opaque egress collaborator spec §4.D
// describes: it accepts a wire-format payload destined for the
// configured collector and reports success or failure. Everything about
// IPFIX is upstream of this package; egress never inspects the payload.
package egress

import "context"

// Sender is the minimal contract the expiry Scheduler depends on.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
}
