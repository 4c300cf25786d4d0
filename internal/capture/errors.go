package capture

import "errors"

// ErrParse is the ParseError class from spec §7: a malformed or
// unsupported packet. The packet is ignored and a counter incremented;
// nothing is surfaced past the capture boundary.
var ErrParse = errors.New("capture: malformed or unsupported packet")
