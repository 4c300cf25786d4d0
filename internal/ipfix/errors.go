package ipfix

import "errors"

// ErrUnknownField is the EncoderError class from spec §7: the template
// references a field identifier the encoder does not know how to
// serialize. The offending record (or batch) is discarded by the caller;
// this error never halts the scheduler.
var ErrUnknownField = errors.New("ipfix: unknown field identifier")
