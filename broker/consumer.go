package broker

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Message is a broker delivery stripped of transport details.
type Message struct {
	Subject string
	Data    []byte
}

// Subscriber is the subset of *nats.Conn used for consuming.
type Subscriber interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// StartConsumer subscribes handler to subject. Handlers run on the NATS
// delivery goroutine and must not block for long.
func StartConsumer(sub Subscriber, subject string, handler func(Message)) (*nats.Subscription, error) {
	s, err := sub.Subscribe(subject, func(msg *nats.Msg) {
		log.Debug().Str("subject", msg.Subject).Int("bytes", len(msg.Data)).Msg("Received message")
		handler(Message{Subject: msg.Subject, Data: msg.Data})
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	log.Info().Str("subject", subject).Msg("Consumer started")
	return s, nil
}
