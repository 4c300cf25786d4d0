package egress

import "errors"

// ErrEgress is the EgressError class from spec §7: the egress
// collaborator failed to hand off a payload. The Scheduler drops the
// snapshot without retry and continues.
var ErrEgress = errors.New("egress: send failed")
