package egress

import (
	"context"
	"fmt"
	"net"
)

// UDPSender transmits payloads to collector_ip:collector_port from
// exporter_ip:exporter_port, per spec §4.D and §6. It is the only
// component that knows the payload travels over UDP; the Scheduler just
// sees a Sender.
type UDPSender struct {
	conn *net.UDPConn
}

// NewUDPSender binds a UDP socket on exporterAddr and connects it to
// collectorAddr, both in "ip:port" form.
func NewUDPSender(exporterAddr, collectorAddr string) (*UDPSender, error) {
	laddr, err := net.ResolveUDPAddr("udp4", exporterAddr)
	if err != nil {
		return nil, fmt.Errorf("egress: resolving exporter address %q: %w", exporterAddr, err)
	}
	raddr, err := net.ResolveUDPAddr("udp4", collectorAddr)
	if err != nil {
		return nil, fmt.Errorf("egress: resolving collector address %q: %w", collectorAddr, err)
	}
	conn, err := net.DialUDP("udp4", laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("egress: dialing collector %q: %w", collectorAddr, err)
	}
	return &UDPSender{conn: conn}, nil
}

// Send writes payload to the collector. UDP is fire-and-forget by
// design (spec's non-goal: reliable transport); a write error is
// reported to the caller, which drops the snapshot without retrying.
func (u *UDPSender) Send(_ context.Context, payload []byte) error {
	if _, err := u.conn.Write(payload); err != nil {
		return fmt.Errorf("egress: %w: %v", ErrEgress, err)
	}
	return nil
}

// Close releases the underlying socket.
func (u *UDPSender) Close() error {
	return u.conn.Close()
}
