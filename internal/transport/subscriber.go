package transport

import (
	"log"

	"github.com/nats-io/nats.go"
)

// Handler processes one decoded Envelope received from the subject.
type Handler func(env *Envelope)

// Subscriber subscribes to a NATS subject and decodes each message into
// an Envelope before calling the configured Handler. Grounded on the
// teacher's internal/probe.Subscriber.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber connects to natsURL and returns a Subscriber bound to
// subject.
func NewSubscriber(natsURL, subject string) (*Subscriber, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}
	log.Printf("transport: connected to NATS at %s", natsURL)
	return &Subscriber{nc: nc, subject: subject}, nil
}

// Start begins delivering decoded envelopes to handler. Malformed
// messages are logged and dropped rather than crashing the subscriber.
func (s *Subscriber) Start(handler Handler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		env, err := Decode(msg.Data)
		if err != nil {
			log.Printf("transport: dropping malformed envelope: %v", err)
			return
		}
		handler(env)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("transport: subscribed to %q", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
