package transport

import (
	"log"

	"github.com/nats-io/nats.go"
)

// Publisher publishes encoded Envelopes to a NATS subject. Grounded on
// the teacher's internal/probe.Publisher, swapping the protobuf-codegen
// payload for the hand-framed Envelope wire format above.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher connects to natsURL and returns a Publisher bound to
// subject.
func NewPublisher(natsURL, subject string) (*Publisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}
	log.Printf("transport: connected to NATS at %s", natsURL)
	return &Publisher{nc: nc, subject: subject}, nil
}

// Publish encodes env and publishes it to the configured subject.
func (p *Publisher) Publish(env *Envelope) error {
	return p.nc.Publish(p.subject, Encode(env))
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
	}
}
